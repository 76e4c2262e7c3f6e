package dialect

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dosco/graphjin/mongoql/mongodriver"
	"github.com/dosco/graphjin/mongoql/qcode"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// ErrNoValues is returned by writes with nothing to write.
	ErrNoValues = errors.New("dialect: no values to write")

	// ErrMixedReplace is returned when a replacement would combine plain
	// fields with increments or unsets.
	ErrMixedReplace = errors.New("dialect: replace cannot combine fields with increment or unset")
)

// compileInsert emits a single insert for one row and a batch insert for
// several.
func compileInsert(q *mongodriver.Query, d *qcode.Descriptor) error {
	if len(d.Values) == 0 {
		return ErrNoValues
	}

	cols := d.Columns
	if len(cols) == 0 {
		for k := range d.Values[0] {
			cols = append(cols, k)
		}
		sort.Strings(cols)
	}

	docs := make([]bson.D, len(d.Values))
	for i, row := range d.Values {
		doc := make(bson.D, 0, len(cols))
		for _, c := range cols {
			if v, ok := row[c]; ok {
				doc = append(doc, bson.E{Key: c, Value: v})
			}
		}
		docs[i] = doc
	}

	if len(docs) > 1 {
		q.Operation = mongodriver.OpBatchInsert
		q.Documents = docs
	} else {
		q.Operation = mongodriver.OpInsert
		q.Document = docs[0]
	}
	return nil
}

// compileUpdate groups assignments by update operator. A replace upserts
// and lifts the plain assignments to the top level.
func compileUpdate(q *mongodriver.Query, d *qcode.Descriptor, replace bool) error {
	if len(d.Set) == 0 {
		return ErrNoValues
	}

	var update bson.D

	put := func(op, field string, v any) {
		i, ok := lookup(update, op)
		if !ok {
			update = append(update, bson.E{Key: op, Value: bson.D{}})
			i = len(update) - 1
		}
		update[i].Value = append(update[i].Value.(bson.D), bson.E{Key: field, Value: v})
	}

	for _, s := range d.Set {
		switch s.Op {
		case "+":
			put("$inc", s.Field, s.Value)
		case "-":
			n, err := negate(s.Value)
			if err != nil {
				return err
			}
			put("$inc", s.Field, n)
		default:
			if s.Value == nil {
				put("$unset", s.Field, "")
			} else {
				put("$set", s.Field, s.Value)
			}
		}
	}

	if replace {
		if i, ok := lookup(update, "$set"); ok {
			if len(update) != 1 {
				return ErrMixedReplace
			}
			update = update[i].Value.(bson.D)
		}
	}

	q.Operation = mongodriver.OpUpdate
	q.Update = update
	q.Multi = true
	q.Upsert = replace

	if v, ok := d.Options["upsert"].(bool); ok && v {
		q.Upsert = true
	}
	return nil
}

func negate(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return -n, nil
	case int8:
		return -n, nil
	case int16:
		return -n, nil
	case int32:
		return -n, nil
	case int64:
		return -n, nil
	case uint:
		return -int64(n), nil
	case uint8:
		return -int64(n), nil
	case uint16:
		return -int64(n), nil
	case uint32:
		return -int64(n), nil
	case float32:
		return -n, nil
	case float64:
		return -n, nil
	default:
		return nil, fmt.Errorf("dialect: cannot decrement by %T", v)
	}
}
