package main

import (
	"context"
	"fmt"

	"github.com/dosco/graphjin/mongoql"
	"github.com/dosco/graphjin/mongoql/mongodriver"
	v1mongo "go.mongodb.org/mongo-driver/mongo"
	v1options "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
)

// newEngine opens one client per configured route. The returned
// function disconnects them all.
func newEngine(ctx context.Context) (*mongoql.Engine, func(), error) {
	zl := log.Desugar()

	conns := make(map[mongoql.Route]*mongodriver.Conn, len(conf.Routes))
	var closers []func()

	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	for name, uri := range conf.Routes {
		db, closeFn, err := openDB(ctx, uri)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("route '%s': %w", name, err)
		}
		closers = append(closers, closeFn)

		opts := []mongodriver.Option{mongodriver.WithLogger(zl.With(zap.String("route", name)))}
		if conf.QueryTimeout != 0 {
			opts = append(opts, mongodriver.WithQueryTimeout(conf.QueryTimeout))
		}

		c, err := mongodriver.New(db, opts...)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		log.Debugf("route %s: %s client", name, c.Generation())
		conns[mongoql.Route(name)] = c
	}

	eng, err := mongoql.New(conf, conns, mongoql.WithLogger(zl))
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return eng, closeAll, nil
}

// openDB connects with the client generation set in the config
func openDB(ctx context.Context, uri string) (any, func(), error) {
	if conf.Generation == "v1" {
		client, err := v1mongo.Connect(ctx, v1options.Client().ApplyURI(uri))
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warnf("disconnect: %s", err)
			}
		}
		return client.Database(conf.Database), closeFn, nil
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warnf("disconnect: %s", err)
		}
	}
	return client.Database(conf.Database), closeFn, nil
}
