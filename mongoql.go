// Package mongoql compiles SQL shaped operation descriptors into MongoDB
// operations and runs them on the right connection, over either
// generation of the official Go client.
//
// A descriptor is compiled into a mongodriver.Query, a route is chosen
// for it and the matching connection executes it:
//
//	eng, err := mongoql.New(conf, map[mongoql.Route]*mongodriver.Conn{
//		mongoql.Primary:   primary,
//		mongoql.Secondary: replica,
//	})
//
//	res, err := eng.Query(ctx, &qcode.Descriptor{
//		Type:  qcode.QTSelect,
//		Table: "users",
//		Where: []qcode.Condition{qcode.Where("age", ">", 18)},
//	}, mongoql.RouteHint{})
package mongoql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dosco/graphjin/mongoql/internal/dialect"
	"github.com/dosco/graphjin/mongoql/mongodriver"
	"github.com/dosco/graphjin/mongoql/qcode"
	"go.uber.org/zap"
)

var (
	// ErrUnknownRoute is returned when a named route has no connection.
	ErrUnknownRoute = errors.New("mongoql: unknown route")

	// ErrNoPrimary is returned by New without a primary connection.
	ErrNoPrimary = errors.New("mongoql: no primary connection")
)

// Engine compiles, routes and executes descriptors. It keeps no per
// call state and is safe for concurrent use.
type Engine struct {
	conf  Config
	conns map[Route]*mongodriver.Conn
	log   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New returns an engine over one connection per route. When no
// secondary connection is given reads use the primary.
func New(conf *Config, conns map[Route]*mongodriver.Conn, opts ...Option) (*Engine, error) {
	e := &Engine{
		conns: make(map[Route]*mongodriver.Conn, len(conns)+1),
		log:   zap.NewNop(),
	}
	if conf != nil {
		e.conf = *conf
	}
	for _, o := range opts {
		o(e)
	}

	for r, c := range conns {
		if c != nil {
			e.conns[Route(strings.ToLower(string(r)))] = c
		}
	}

	p, ok := e.conns[Primary]
	if !ok {
		return nil, ErrNoPrimary
	}
	if _, ok := e.conns[Secondary]; !ok {
		e.log.Debug("no secondary connection, reads use the primary")
		e.conns[Secondary] = p
	}
	return e, nil
}

// Compile turns a descriptor into an operation document with the
// configured collection prefix and query timeout applied.
func (e *Engine) Compile(d *qcode.Descriptor) (*mongodriver.Query, error) {
	return Compile(&e.conf, d)
}

// Compile is Engine.Compile without an engine. A nil conf compiles the
// descriptor as is.
func Compile(conf *Config, d *qcode.Descriptor) (*mongodriver.Query, error) {
	q, err := dialect.Compile(d)
	if err != nil {
		return nil, err
	}
	if conf == nil {
		return q, nil
	}

	q.Collection = conf.TablePrefix + q.Collection
	if q.Timeout == 0 {
		q.Timeout = conf.QueryTimeout
	}
	return q, nil
}

// Query compiles d and executes it on the route chosen for it.
func (e *Engine) Query(ctx context.Context, d *qcode.Descriptor, hint RouteHint) (*mongodriver.Result, error) {
	q, err := e.Compile(d)
	if err != nil {
		return nil, err
	}

	route := SelectRoute(string(d.Type.Normalize()), hint)

	c, err := e.conn(route)
	if err != nil {
		return nil, err
	}

	e.log.Debug("query",
		zap.String("route", string(route)),
		zap.String("operation", string(q.Operation)),
		zap.String("collection", q.Collection))

	return c.Execute(ctx, q)
}

// Exec runs a raw Extended JSON command on the primary or on the route
// named by the hint.
func (e *Engine) Exec(ctx context.Context, statement string, hint RouteHint) (*mongodriver.Result, error) {
	route := Primary
	if hint.Name != "" && routeNameRe.MatchString(hint.Name) {
		route = Route(strings.ToLower(hint.Name))
	}

	c, err := e.conn(route)
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx, statement)
}

// Conn returns the connection of a route.
func (e *Engine) Conn(r Route) (*mongodriver.Conn, error) {
	return e.conn(r)
}

func (e *Engine) conn(r Route) (*mongodriver.Conn, error) {
	c, ok := e.conns[r]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoute, r)
	}
	return c, nil
}
