package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// compOps maps SQL comparison operators to MongoDB operator tags.
var compOps = map[string]string{
	">":      "$gt",
	">=":     "$gte",
	"<":      "$lt",
	"<=":     "$lte",
	"!=":     "$ne",
	"<>":     "$ne",
	"in":     "$in",
	"not in": "$nin",
}

var (
	// ErrUnknownOperator is returned by Translate for operators it does
	// not know. CompileWhere skips such conditions.
	ErrUnknownOperator = errors.New("dialect: unknown operator")

	// ErrBadOperand is returned for a known operator whose value has the
	// wrong shape, such as a scalar given to between.
	ErrBadOperand = errors.New("dialect: bad operand")
)

// Translate turns one (operator, value) pair into a predicate fragment.
func Translate(op string, v any) (any, error) {
	op = strings.ToLower(strings.TrimSpace(op))

	switch op {
	case "=", "==":
		return v, nil

	case "like":
		return likeRegex(fmt.Sprint(v)), nil

	case "between":
		items, ok := list(v)
		if !ok || len(items) != 2 {
			return nil, fmt.Errorf("%w: between needs [low, high], got %v", ErrBadOperand, v)
		}
		return bson.D{{Key: "$gte", Value: items[0]}, {Key: "$lte", Value: items[1]}}, nil

	case "mod":
		return modFragment(v)

	case "in", "not in":
		if _, ok := list(v); !ok {
			return nil, fmt.Errorf("%w: %s needs a list, got %v", ErrBadOperand, op, v)
		}
	}

	if tag, ok := compOps[op]; ok {
		return bson.D{{Key: tag, Value: v}}, nil
	}
	return nil, fmt.Errorf("%w: '%s'", ErrUnknownOperator, op)
}

// likeRegex converts a SQL LIKE pattern into a case-insensitive regular
// expression. A leading or trailing % leaves that side unanchored.
func likeRegex(pattern string) bson.Regex {
	start, end := "^", "$"

	if strings.HasSuffix(pattern, "%") {
		end = ""
	}
	if strings.HasPrefix(pattern, "%") {
		start = ""
		pattern = pattern[1:]
	}
	if end == "" && pattern != "" {
		pattern = pattern[:len(pattern)-1]
	}

	parts := strings.Split(pattern, "%")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}

	return bson.Regex{
		Pattern: start + strings.Join(parts, ".*") + end,
		Options: "i",
	}
}

// modFragment handles [divisor, remainder, op]. Equality yields a plain
// $mod; any other operator wraps the $mod, with negation as $not.
func modFragment(v any) (any, error) {
	items, ok := list(v)
	if !ok || len(items) < 2 || len(items) > 3 {
		return nil, fmt.Errorf("%w: mod needs [divisor, remainder, op], got %v", ErrBadOperand, v)
	}
	mod := bson.D{{Key: "$mod", Value: bson.A{items[0], items[1]}}}

	op := "="
	if len(items) > 2 {
		op = strings.ToLower(strings.TrimSpace(fmt.Sprint(items[2])))
	}

	switch op {
	case "", "=", "==":
		return mod, nil
	case "!=", "<>", "not":
		return bson.D{{Key: "$not", Value: mod}}, nil
	}

	tag, ok := compOps[op]
	if !ok {
		tag = op
		if !strings.HasPrefix(tag, "$") {
			tag = "$" + tag
		}
	}
	return bson.D{{Key: tag, Value: mod}}, nil
}

// list flattens any slice or array into []any.
func list(v any) ([]any, bool) {
	switch vv := v.(type) {
	case []any:
		return vv, true
	case bson.A:
		return vv, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
