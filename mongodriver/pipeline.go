package mongodriver

import (
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AliasSep replaces '.' in aggregation output keys, which MongoDB does
// not allow in $group field names.
const AliasSep = "->"

const (
	// TotalRowCount is the key of the single row returned by a count find.
	TotalRowCount = "total_row_count"
	// TotalCount is copied from _count on grouped rows.
	TotalCount = "total_count"
)

// rowMapper restores caller facing keys on result documents.
type rowMapper struct {
	selectAs   map[string]string
	aliasKey   map[string]string
	totalCount bool
}

func (m rowMapper) apply(d bson.D) bson.D {
	out := make(bson.D, 0, len(d)+len(m.selectAs)+1)

	for _, e := range d {
		key := e.Key
		if k, ok := m.aliasKey[key]; ok {
			key = k
		} else if k, ok := m.selectAs[key]; ok {
			key = k
		}

		val := e.Value
		if key == "_id" {
			val = m.translateIDBack(val)
		}
		out = append(out, bson.E{Key: key, Value: val})
	}

	for name, alias := range m.selectAs {
		if !strings.Contains(name, ".") {
			continue
		}
		if v, ok := lookupPath(d, strings.Split(name, ".")); ok {
			out = append(out, bson.E{Key: alias, Value: v})
		}
	}

	if m.totalCount {
		for _, e := range d {
			if e.Key == "_count" {
				out = append(out, bson.E{Key: TotalCount, Value: e.Value})
				break
			}
		}
	}
	return out
}

// translateIDBack converts ObjectIDs to hex and restores the dotted keys
// of a compound group key that were sanitized at compile time.
func (m rowMapper) translateIDBack(v any) any {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.D:
		out := make(bson.D, len(val))
		for i, e := range val {
			key := e.Key
			if k, ok := m.aliasKey[key]; ok {
				key = k
			}
			out[i] = bson.E{Key: key, Value: m.translateIDBack(e.Value)}
		}
		return out
	default:
		return v
	}
}

func lookupPath(d bson.D, path []string) (any, bool) {
	for _, e := range d {
		if e.Key != path[0] {
			continue
		}
		if len(path) == 1 {
			return e.Value, true
		}
		sub, ok := e.Value.(bson.D)
		if !ok {
			return nil, false
		}
		return lookupPath(sub, path[1:])
	}
	return nil, false
}

// Result is the outcome of one executed operation.
type Result struct {
	rows         Rows
	lastInsertID string
	rowsAffected int64
	statement    string
}

// Rows returns the result documents, or nil for writes.
func (r *Result) Rows() Rows {
	return r.rows
}

// InsertedID returns the inserted document ID as a string.
func (r *Result) InsertedID() string {
	return r.lastInsertID
}

// RowsAffected returns the number of inserted, modified or removed
// documents, or the count for a count query.
func (r *Result) RowsAffected() int64 {
	return r.rowsAffected
}

// Statement returns the shell rendering of the executed operation.
func (r *Result) Statement() string {
	return r.statement
}
