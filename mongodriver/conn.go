package mongodriver

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultQueryTimeout bounds server side execution of reads.
const DefaultQueryTimeout = 60 * time.Second

// Conn executes compiled operation documents against one database,
// whichever client generation backs it.
type Conn struct {
	be      Backend
	log     *zap.Logger
	tracer  trace.Tracer
	timeout time.Duration
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used for executed operations.
func WithLogger(log *zap.Logger) Option {
	return func(c *Conn) {
		if log != nil {
			c.log = log
		}
	}
}

// WithQueryTimeout sets the default server side time limit of reads.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *Conn) {
		c.timeout = d
	}
}

// New probes the handle once and returns a connection bound to the
// matching client generation. The handle is a *mongo.Database of either
// go.mongodb.org/mongo-driver/v2 or go.mongodb.org/mongo-driver.
func New(handle any, opts ...Option) (*Conn, error) {
	be, err := NewBackend(handle)
	if err != nil {
		return nil, err
	}
	return NewConn(be, opts...), nil
}

// NewConn returns a connection over an existing backend.
func NewConn(be Backend, opts ...Option) *Conn {
	c := &Conn{
		be:      be,
		log:     zap.NewNop(),
		tracer:  otel.Tracer("github.com/dosco/graphjin/mongoql/mongodriver"),
		timeout: DefaultQueryTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generation returns the client generation found at construction.
func (c *Conn) Generation() Generation {
	return c.be.Generation()
}

// Backend returns the underlying backend.
func (c *Conn) Backend() Backend {
	return c.be
}

// Execute runs a compiled operation document.
func (c *Conn) Execute(ctx context.Context, q *Query) (*Result, error) {
	stmt := Statement(q)

	return c.run(ctx, q.Operation, stmt, func(ctx context.Context) (*Result, error) {
		if q.Collection == "" {
			return nil, fmt.Errorf("mongodriver: %s requires collection", q.Operation)
		}
		return c.execute(ctx, q)
	})
}

// Exec runs a raw Extended JSON database command.
func (c *Conn) Exec(ctx context.Context, statement string) (*Result, error) {
	stmt := "db.runCommand(" + statement + ")"

	return c.run(ctx, "command", stmt, func(ctx context.Context) (*Result, error) {
		raw, err := c.be.Exec(ctx, statement)
		if err != nil {
			return nil, err
		}
		return &Result{rows: newSliceRows([]bson.Raw{raw})}, nil
	})
}

func (c *Conn) run(ctx context.Context,
	op Operation,
	stmt string,
	fn func(context.Context) (*Result, error),
) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "mongodb "+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.name", c.be.Database()),
			attribute.String("db.operation", string(op)),
			attribute.String("db.statement", stmt),
		))
	defer span.End()

	start := time.Now()

	res, err := fn(ctx)
	if err != nil {
		err = &ExecError{Op: op, Statement: stmt, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("mongodb", zap.String("query", stmt), zap.Error(err))
		return nil, err
	}
	res.statement = stmt

	c.log.Debug("mongodb",
		zap.String("query", stmt),
		zap.Stringer("generation", c.be.Generation()),
		zap.Duration("took", time.Since(start)))

	return res, nil
}

func (c *Conn) execute(ctx context.Context, q *Query) (*Result, error) {
	coll := c.be.SelectCollection(q.Collection)
	ro := ReadOptions{MaxTime: c.maxTime(q)}

	switch q.Operation {
	case OpAggregate:
		rows, err := coll.Aggregate(ctx, q.Pipeline, ro)
		if err != nil {
			return nil, err
		}
		m := rowMapper{aliasKey: q.AliasKey, totalCount: q.TotalCount}
		return &Result{rows: mapRows(rows, m)}, nil

	case OpFind:
		rows, err := coll.Find(ctx, q.Filter, FindOptions{
			Projection: q.Projection,
			Sort:       q.Sort,
			Skip:       q.Skip,
			Limit:      q.Limit,
			MaxTime:    ro.MaxTime,
		})
		if err != nil {
			return nil, err
		}
		return &Result{rows: mapRows(rows, rowMapper{selectAs: q.SelectAs})}, nil

	case OpCount:
		return c.count(ctx, coll, q, ro)

	case OpDistinct:
		return c.distinct(ctx, q, ro)

	case OpInsert:
		id, err := coll.Insert(ctx, q.Document)
		if err != nil {
			return nil, err
		}
		return &Result{lastInsertID: id, rowsAffected: 1}, nil

	case OpBatchInsert:
		n, err := coll.BatchInsert(ctx, q.Documents)
		if err != nil {
			return nil, err
		}
		return &Result{rowsAffected: n}, nil

	case OpUpdate:
		n, err := coll.Update(ctx, q.Filter, q.Update, UpdateOptions{
			Upsert: q.Upsert,
			Multi:  q.Multi,
		})
		if err != nil {
			return nil, err
		}
		return &Result{rowsAffected: n}, nil

	case OpRemove:
		n, err := coll.Remove(ctx, q.Filter)
		if err != nil {
			return nil, err
		}
		return &Result{rowsAffected: n}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, q.Operation)
	}
}

func (c *Conn) maxTime(q *Query) time.Duration {
	if q.Timeout > 0 {
		return q.Timeout
	}
	return c.timeout
}

// count returns the single row {total_row_count: n}.
func (c *Conn) count(ctx context.Context, coll Collection, q *Query, ro ReadOptions) (*Result, error) {
	n, err := coll.Count(ctx, q.Filter, ro)
	if err != nil {
		return nil, err
	}

	row, err := bson.Marshal(bson.D{{Key: TotalRowCount, Value: n}})
	if err != nil {
		return nil, err
	}
	return &Result{rows: newSliceRows([]bson.Raw{row}), rowsAffected: n}, nil
}

// distinct runs the distinct command and returns one {field: value} row
// per distinct value.
func (c *Conn) distinct(ctx context.Context, q *Query, ro ReadOptions) (*Result, error) {
	cmd := bson.D{
		{Key: "distinct", Value: q.Collection},
		{Key: "key", Value: q.Distinct},
		{Key: "query", Value: nonNil(q.Filter)},
	}
	if ro.MaxTime > 0 {
		cmd = append(cmd, bson.E{Key: "maxTimeMS", Value: ro.MaxTime.Milliseconds()})
	}

	raw, err := c.be.RunCommand(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var res struct {
		Values []bson.RawValue `bson:"values"`
	}
	if err := bson.Unmarshal(raw, &res); err != nil {
		return nil, err
	}

	docs := make([]bson.Raw, 0, len(res.Values))
	for _, v := range res.Values {
		d, err := bson.Marshal(bson.D{{Key: q.Distinct, Value: v}})
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	rows := mapRows(newSliceRows(docs), rowMapper{})
	return &Result{rows: rows, rowsAffected: int64(len(docs))}, nil
}
