package dialect

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func isLogicKey(k string) bool {
	return k == "$and" || k == "$or"
}

func hasLogicKey(d bson.D) bool {
	for _, e := range d {
		if isLogicKey(e.Key) {
			return true
		}
	}
	return false
}

func lookup(d bson.D, key string) (int, bool) {
	for i, e := range d {
		if e.Key == key {
			return i, true
		}
	}
	return -1, false
}

func clone(d bson.D) bson.D {
	out := make(bson.D, len(d))
	copy(out, d)
	return out
}

func disjoint(a, b bson.D) bool {
	for _, e := range b {
		if _, ok := lookup(a, e.Key); ok {
			return false
		}
	}
	return true
}

// split turns a multi-key document into a list of single-key documents.
func split(d bson.D) bson.A {
	out := make(bson.A, 0, len(d)+1)
	for _, e := range d {
		out = append(out, bson.D{e})
	}
	return out
}

// member prepares d for placement in a connective list. Inside $or an
// implicit-AND document is made explicit so each list item is one term.
func member(tag string, d bson.D) bson.D {
	if tag == "$or" && len(d) > 1 {
		return bson.D{{Key: "$and", Value: split(d)}}
	}
	return d
}

// asDoc returns v as an ordered document. Maps are ordered by key.
func asDoc(v any) (bson.D, bool) {
	var m map[string]any

	switch vv := v.(type) {
	case bson.D:
		return vv, true
	case bson.M:
		m = vv
	case map[string]any:
		m = vv
	default:
		return nil, false
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := make(bson.D, 0, len(keys))
	for _, k := range keys {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d, true
}

// opDoc returns v as a document when every key is an operator tag.
func opDoc(v any) (bson.D, bool) {
	d, ok := asDoc(v)
	if !ok || len(d) == 0 {
		return nil, false
	}
	for _, e := range d {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return d, true
}

// mergeOps combines two operator documents on the same field when they
// share no operator.
func mergeOps(a, b any) (bson.D, bool) {
	da, ok := opDoc(a)
	if !ok {
		return nil, false
	}
	db, ok := opDoc(b)
	if !ok || !disjoint(da, db) {
		return nil, false
	}
	return append(clone(da), db...), true
}
