package mongodriver

import (
	"context"
	"fmt"
	"time"

	v1mongo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Generation identifies which MongoDB client library a handle belongs to.
type Generation int

const (
	// Modern is go.mongodb.org/mongo-driver/v2.
	Modern Generation = iota + 1
	// Legacy is go.mongodb.org/mongo-driver (v1).
	Legacy
)

func (g Generation) String() string {
	switch g {
	case Modern:
		return "modern"
	case Legacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ReadOptions apply to count and aggregate.
type ReadOptions struct {
	MaxTime time.Duration
}

// FindOptions apply to find.
type FindOptions struct {
	Projection bson.D
	Sort       bson.D
	Skip       int64
	Limit      int64
	MaxTime    time.Duration
}

// UpdateOptions apply to update.
type UpdateOptions struct {
	Upsert bool
	Multi  bool
}

// Backend is the set of database level calls both client generations
// provide.
type Backend interface {
	Generation() Generation
	Database() string
	SelectCollection(name string) Collection
	RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error)
	// Exec runs a raw Extended JSON command.
	Exec(ctx context.Context, statement string) (bson.Raw, error)
}

// Collection is the set of collection level calls both client
// generations provide. Documents always cross this boundary in the
// modern bson types.
type Collection interface {
	Aggregate(ctx context.Context, pipeline []bson.D, o ReadOptions) (Rows, error)
	Find(ctx context.Context, filter bson.D, o FindOptions) (Rows, error)
	Count(ctx context.Context, filter bson.D, o ReadOptions) (int64, error)
	Insert(ctx context.Context, doc bson.D) (string, error)
	BatchInsert(ctx context.Context, docs []bson.D) (int64, error)
	Update(ctx context.Context, filter, update bson.D, o UpdateOptions) (int64, error)
	Remove(ctx context.Context, filter bson.D) (int64, error)
}

// Probe reports the client generation of a database handle.
func Probe(handle any) (Generation, error) {
	switch h := handle.(type) {
	case *mongo.Database:
		return Modern, nil
	case *v1mongo.Database:
		return Legacy, nil
	case Backend:
		return h.Generation(), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnknownHandle, handle)
	}
}

// NewBackend probes the handle and wraps it in the backend of its
// client generation.
func NewBackend(handle any) (Backend, error) {
	if be, ok := handle.(Backend); ok {
		return be, nil
	}

	gen, err := Probe(handle)
	if err != nil {
		return nil, err
	}

	switch gen {
	case Modern:
		return &modernBackend{db: handle.(*mongo.Database)}, nil
	case Legacy:
		return &legacyBackend{db: handle.(*v1mongo.Database)}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownHandle, handle)
	}
}
