package mongodriver

import (
	"context"
	"fmt"

	v1bson "go.mongodb.org/mongo-driver/bson"
	v1mongo "go.mongodb.org/mongo-driver/mongo"
	v1options "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// legacyBackend executes on a v1 client. Writes are direct collection
// calls, reads stay on a lazy cursor and time limits are sent as maxTime.
// Documents are handed over as raw BSON.
type legacyBackend struct {
	db *v1mongo.Database
}

func (b *legacyBackend) Generation() Generation { return Legacy }

func (b *legacyBackend) Database() string { return b.db.Name() }

func (b *legacyBackend) SelectCollection(name string) Collection {
	return &legacyCollection{db: b.db, coll: b.db.Collection(name)}
}

func (b *legacyBackend) RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error) {
	raw, err := toLegacy(cmd)
	if err != nil {
		return nil, err
	}
	res, err := b.db.RunCommand(ctx, raw).Raw()
	if err != nil {
		return nil, err
	}
	return bson.Raw(res), nil
}

// Exec is not available: the legacy generation has no raw statement
// passthrough.
func (b *legacyBackend) Exec(ctx context.Context, statement string) (bson.Raw, error) {
	return nil, fmt.Errorf("%w: raw statement", ErrNotSupported)
}

type legacyCollection struct {
	db   *v1mongo.Database
	coll *v1mongo.Collection
}

func toLegacy(v any) (v1bson.Raw, error) {
	if d, ok := v.(bson.D); ok && d == nil {
		v = bson.D{}
	}
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mongodriver: encode document: %w", err)
	}
	return v1bson.Raw(b), nil
}

func toLegacyList(docs []bson.D) ([]any, error) {
	out := make([]any, len(docs))
	for i, d := range docs {
		raw, err := toLegacy(d)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func (c *legacyCollection) Aggregate(ctx context.Context, pipeline []bson.D, o ReadOptions) (Rows, error) {
	stages, err := toLegacyList(pipeline)
	if err != nil {
		return nil, err
	}

	aggOpts := v1options.Aggregate()
	if o.MaxTime > 0 {
		aggOpts.SetMaxTime(o.MaxTime)
	}

	cursor, err := c.coll.Aggregate(ctx, stages, aggOpts)
	if err != nil {
		return nil, err
	}
	return &cursorRows{cur: cursor}, nil
}

func (c *legacyCollection) Find(ctx context.Context, filter bson.D, o FindOptions) (Rows, error) {
	f, err := toLegacy(filter)
	if err != nil {
		return nil, err
	}

	findOpts := v1options.Find()
	if len(o.Projection) != 0 {
		p, err := toLegacy(o.Projection)
		if err != nil {
			return nil, err
		}
		findOpts.SetProjection(p)
	}
	if len(o.Sort) != 0 {
		s, err := toLegacy(o.Sort)
		if err != nil {
			return nil, err
		}
		findOpts.SetSort(s)
	}
	if o.Skip > 0 {
		findOpts.SetSkip(o.Skip)
	}
	if o.Limit > 0 {
		findOpts.SetLimit(o.Limit)
	}
	if o.MaxTime > 0 {
		findOpts.SetMaxTime(o.MaxTime)
	}

	cursor, err := c.coll.Find(ctx, f, findOpts)
	if err != nil {
		return nil, err
	}
	return &cursorRows{cur: cursor}, nil
}

// Count runs the count command.
func (c *legacyCollection) Count(ctx context.Context, filter bson.D, o ReadOptions) (int64, error) {
	cmd := bson.D{
		{Key: "count", Value: c.coll.Name()},
		{Key: "query", Value: nonNil(filter)},
	}
	if o.MaxTime > 0 {
		cmd = append(cmd, bson.E{Key: "maxTimeMS", Value: o.MaxTime.Milliseconds()})
	}

	raw, err := toLegacy(cmd)
	if err != nil {
		return 0, err
	}

	var res struct {
		N int64 `bson:"n"`
	}
	if err := c.db.RunCommand(ctx, raw).Decode(&res); err != nil {
		return 0, err
	}
	return res.N, nil
}

func (c *legacyCollection) Insert(ctx context.Context, doc bson.D) (string, error) {
	raw, err := toLegacy(doc)
	if err != nil {
		return "", err
	}

	res, err := c.coll.InsertOne(ctx, raw)
	if err != nil {
		return "", err
	}
	return idString(res.InsertedID), nil
}

func (c *legacyCollection) BatchInsert(ctx context.Context, docs []bson.D) (int64, error) {
	list, err := toLegacyList(docs)
	if err != nil {
		return 0, err
	}

	res, err := c.coll.InsertMany(ctx, list)
	if err != nil {
		return 0, err
	}
	return int64(len(res.InsertedIDs)), nil
}

func (c *legacyCollection) Update(ctx context.Context, filter, update bson.D, o UpdateOptions) (int64, error) {
	f, err := toLegacy(filter)
	if err != nil {
		return 0, err
	}
	u, err := toLegacy(update)
	if err != nil {
		return 0, err
	}

	var res *v1mongo.UpdateResult

	switch {
	case replacement(update):
		res, err = c.coll.ReplaceOne(ctx, f, u, v1options.Replace().SetUpsert(o.Upsert))
	case o.Multi:
		res, err = c.coll.UpdateMany(ctx, f, u, v1options.Update().SetUpsert(o.Upsert))
	default:
		res, err = c.coll.UpdateOne(ctx, f, u, v1options.Update().SetUpsert(o.Upsert))
	}
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount + res.UpsertedCount, nil
}

func (c *legacyCollection) Remove(ctx context.Context, filter bson.D) (int64, error) {
	f, err := toLegacy(filter)
	if err != nil {
		return 0, err
	}

	res, err := c.coll.DeleteMany(ctx, f)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
