package dialect

import (
	"errors"
	"fmt"

	"github.com/dosco/graphjin/mongoql/qcode"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrUnbalancedGroup is returned when group markers do not pair up.
var ErrUnbalancedGroup = errors.New("dialect: unbalanced condition group")

type frame struct {
	acc  bson.D
	last string
}

// CompileWhere folds a flat list of conditions and group markers into a
// filter document. Connectives are applied left to right; groups are the
// only way to change precedence. Conditions with an unknown operator are
// skipped; a known operator with a malformed value is an error.
func CompileWhere(conds []qcode.Condition) (bson.D, error) {
	var st []frame

	cur := bson.D{}
	last := "$and"

	for i, c := range conds {
		tag := c.Logic.Tag()

		switch {
		case c.Open:
			st = append(st, frame{acc: cur, last: last})
			cur, last = bson.D{}, "$and"

		case c.Close:
			if len(st) == 0 {
				return nil, fmt.Errorf("%w: close marker at %d has no matching open",
					ErrUnbalancedGroup, i)
			}
			child := cur
			parent := st[len(st)-1]
			st = st[:len(st)-1]

			cur, last = parent.acc, parent.last
			if len(child) != 0 {
				cur = paste(cur, last, tag, child, false)
			}

		default:
			f, err := Translate(c.Op, c.Value)
			if errors.Is(err, ErrUnknownOperator) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("%w (where[%d] on '%s')", err, i, c.Column)
			}
			cur = paste(cur, last, tag, bson.D{{Key: c.Column, Value: f}}, true)
			last = tag
		}
	}

	if len(st) != 0 {
		return nil, fmt.Errorf("%w: %d group(s) left open", ErrUnbalancedGroup, len(st))
	}
	return cur, nil
}

// paste merges entry into the accumulator t. prev is the connective used
// last at this level and next the one joining entry. field is true when
// entry is a single {column: fragment} pair, false for a finished group.
// t is never modified.
func paste(t bson.D, prev, next string, entry bson.D, field bool) bson.D {
	// connective changed: demote everything so far into a new list
	if prev != next {
		if len(t) == 0 {
			return bson.D{{Key: next, Value: bson.A{member(next, entry)}}}
		}
		return bson.D{{Key: next, Value: bson.A{member(next, t), member(next, entry)}}}
	}

	if i, ok := lookup(t, next); ok {
		l, _ := t[i].Value.(bson.A)
		nl := make(bson.A, len(l), len(l)+1)
		copy(nl, l)

		out := clone(t)
		out[i].Value = append(nl, member(next, entry))
		return out
	}

	if len(t) == 0 {
		return clone(entry)
	}

	if !field {
		if !hasLogicKey(t) && !hasLogicKey(entry) && disjoint(t, entry) {
			return append(clone(t), entry...)
		}
		return bson.D{{Key: next, Value: bson.A{member(next, t), member(next, entry)}}}
	}

	col, f := entry[0].Key, entry[0].Value

	if i, ok := lookup(t, col); ok {
		if m, ok := mergeOps(t[i].Value, f); ok {
			out := clone(t)
			out[i].Value = m
			return out
		}
		return bson.D{{Key: "$and", Value: append(split(t), entry)}}
	}

	if hasLogicKey(t) {
		return bson.D{{Key: next, Value: bson.A{member(next, t), member(next, entry)}}}
	}
	return append(clone(t), entry...)
}
