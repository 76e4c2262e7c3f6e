package mongodriver

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// modernBackend executes on a v2 client. Writes go through BulkWrite and
// reads are collected eagerly. The v2 driver has no per operation
// maxTime, so the limit is carried by the context deadline.
type modernBackend struct {
	db *mongo.Database
}

func (b *modernBackend) Generation() Generation { return Modern }

func (b *modernBackend) Database() string { return b.db.Name() }

func (b *modernBackend) SelectCollection(name string) Collection {
	return &modernCollection{coll: b.db.Collection(name)}
}

func (b *modernBackend) RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error) {
	return b.db.RunCommand(ctx, cmd).Raw()
}

func (b *modernBackend) Exec(ctx context.Context, statement string) (bson.Raw, error) {
	var cmd bson.D
	if err := bson.UnmarshalExtJSON([]byte(statement), false, &cmd); err != nil {
		return nil, fmt.Errorf("mongodriver: parse command: %w", err)
	}
	return b.RunCommand(ctx, cmd)
}

type modernCollection struct {
	coll *mongo.Collection
}

func withMaxTime(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (c *modernCollection) Aggregate(ctx context.Context, pipeline []bson.D, o ReadOptions) (Rows, error) {
	ctx, cancel := withMaxTime(ctx, o.MaxTime)
	defer cancel()

	cursor, err := c.coll.Aggregate(ctx, mongo.Pipeline(pipeline))
	if err != nil {
		return nil, err
	}

	var docs []bson.Raw
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return newSliceRows(docs), nil
}

func (c *modernCollection) Find(ctx context.Context, filter bson.D, o FindOptions) (Rows, error) {
	ctx, cancel := withMaxTime(ctx, o.MaxTime)
	defer cancel()

	findOpts := options.Find()
	if len(o.Projection) != 0 {
		findOpts.SetProjection(o.Projection)
	}
	if len(o.Sort) != 0 {
		findOpts.SetSort(o.Sort)
	}
	if o.Skip > 0 {
		findOpts.SetSkip(o.Skip)
	}
	if o.Limit > 0 {
		findOpts.SetLimit(o.Limit)
	}

	cursor, err := c.coll.Find(ctx, nonNil(filter), findOpts)
	if err != nil {
		return nil, err
	}

	var docs []bson.Raw
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return newSliceRows(docs), nil
}

func (c *modernCollection) Count(ctx context.Context, filter bson.D, o ReadOptions) (int64, error) {
	ctx, cancel := withMaxTime(ctx, o.MaxTime)
	defer cancel()

	return c.coll.CountDocuments(ctx, nonNil(filter))
}

func (c *modernCollection) Insert(ctx context.Context, doc bson.D) (string, error) {
	var id any
	if i, ok := lookupKey(doc, "_id"); ok {
		id = doc[i].Value
	} else {
		id = bson.NewObjectID()
		doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
	}

	models := []mongo.WriteModel{
		mongo.NewInsertOneModel().SetDocument(doc),
	}
	if _, err := c.coll.BulkWrite(ctx, models); err != nil {
		return "", err
	}
	return idString(id), nil
}

func (c *modernCollection) BatchInsert(ctx context.Context, docs []bson.D) (int64, error) {
	models := make([]mongo.WriteModel, len(docs))
	for i, d := range docs {
		models[i] = mongo.NewInsertOneModel().SetDocument(d)
	}

	res, err := c.coll.BulkWrite(ctx, models)
	if err != nil {
		return 0, err
	}
	return res.InsertedCount, nil
}

func (c *modernCollection) Update(ctx context.Context, filter, update bson.D, o UpdateOptions) (int64, error) {
	var m mongo.WriteModel

	switch {
	case replacement(update):
		m = mongo.NewReplaceOneModel().
			SetFilter(nonNil(filter)).SetReplacement(update).SetUpsert(o.Upsert)
	case o.Multi:
		m = mongo.NewUpdateManyModel().
			SetFilter(nonNil(filter)).SetUpdate(update).SetUpsert(o.Upsert)
	default:
		m = mongo.NewUpdateOneModel().
			SetFilter(nonNil(filter)).SetUpdate(update).SetUpsert(o.Upsert)
	}

	res, err := c.coll.BulkWrite(ctx, []mongo.WriteModel{m})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount + res.UpsertedCount, nil
}

func (c *modernCollection) Remove(ctx context.Context, filter bson.D) (int64, error) {
	models := []mongo.WriteModel{
		mongo.NewDeleteManyModel().SetFilter(nonNil(filter)),
	}

	res, err := c.coll.BulkWrite(ctx, models)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func nonNil(d bson.D) bson.D {
	if d == nil {
		return bson.D{}
	}
	return d
}

func lookupKey(d bson.D, key string) (int, bool) {
	for i, e := range d {
		if e.Key == key {
			return i, true
		}
	}
	return -1, false
}

func replacement(update bson.D) bool {
	if len(update) == 0 {
		return false
	}
	for _, e := range update {
		if len(e.Key) != 0 && e.Key[0] == '$' {
			return false
		}
	}
	return true
}

// idString normalizes an inserted ID of either generation to a string.
func idString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case bson.ObjectID:
		return v.Hex()
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
