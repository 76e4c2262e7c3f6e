package mongodriver

import (
	"context"

	v1mongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Rows iterates over result documents.
type Rows interface {
	Next(ctx context.Context) bool
	Current() bson.Raw
	Decode(v any) error
	Err() error
	Close(ctx context.Context) error
}

// sliceRows holds results that were read eagerly.
type sliceRows struct {
	docs []bson.Raw
	i    int
}

func newSliceRows(docs []bson.Raw) *sliceRows {
	return &sliceRows{docs: docs, i: -1}
}

func (r *sliceRows) Next(ctx context.Context) bool {
	if r.i+1 >= len(r.docs) {
		r.i = len(r.docs)
		return false
	}
	r.i++
	return true
}

func (r *sliceRows) Current() bson.Raw {
	if r.i < 0 || r.i >= len(r.docs) {
		return nil
	}
	return r.docs[r.i]
}

func (r *sliceRows) Decode(v any) error {
	return bson.Unmarshal(r.Current(), v)
}

func (r *sliceRows) Err() error                      { return nil }
func (r *sliceRows) Close(ctx context.Context) error { return nil }

// cursorRows reads lazily from a legacy cursor.
type cursorRows struct {
	cur *v1mongo.Cursor
}

func (r *cursorRows) Next(ctx context.Context) bool {
	return r.cur.Next(ctx)
}

func (r *cursorRows) Current() bson.Raw {
	return bson.Raw(r.cur.Current)
}

func (r *cursorRows) Decode(v any) error {
	return bson.Unmarshal(r.cur.Current, v)
}

func (r *cursorRows) Err() error {
	return r.cur.Err()
}

func (r *cursorRows) Close(ctx context.Context) error {
	return r.cur.Close(ctx)
}

// mappedRows rewrites every document of the underlying rows.
type mappedRows struct {
	Rows
	m   rowMapper
	cur bson.Raw
	err error
}

func mapRows(r Rows, m rowMapper) Rows {
	return &mappedRows{Rows: r, m: m}
}

func (r *mappedRows) Next(ctx context.Context) bool {
	if r.err != nil || !r.Rows.Next(ctx) {
		return false
	}

	var doc bson.D
	if r.err = bson.Unmarshal(r.Rows.Current(), &doc); r.err != nil {
		return false
	}
	if r.cur, r.err = bson.Marshal(r.m.apply(doc)); r.err != nil {
		return false
	}
	return true
}

func (r *mappedRows) Current() bson.Raw {
	return r.cur
}

func (r *mappedRows) Decode(v any) error {
	return bson.Unmarshal(r.cur, v)
}

func (r *mappedRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.Rows.Err()
}

// All reads the remaining rows into a slice of documents and closes rows.
func All(ctx context.Context, rows Rows) ([]bson.D, error) {
	defer rows.Close(ctx) //nolint:errcheck

	var out []bson.D
	for rows.Next(ctx) {
		var d bson.D
		if err := rows.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
