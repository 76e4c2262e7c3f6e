package main

import (
	"context"
	"fmt"
	"io"

	"github.com/dosco/graphjin/mongoql"
	"github.com/dosco/graphjin/mongoql/mongodriver"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	primary bool
	route   string
)

func queryCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "query <descriptor.yml>",
		Short: "Compile a descriptor and run it",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdQuery,
	}
	routeFlags(c)
	return c
}

func execCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "exec <command>",
		Short: "Run a raw command given as Extended JSON",
		Long:  "Run a raw command given as Extended JSON. Only supported by the v2 client.",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdExec,
	}
	c.Flags().StringVar(&route, "route", "", "run on this named route")
	return c
}

func routeFlags(c *cobra.Command) {
	c.Flags().BoolVar(&primary, "primary", false, "read from the primary")
	c.Flags().StringVar(&route, "route", "", "read from this named route")
}

func cmdQuery(cmd *cobra.Command, args []string) error {
	if err := setup(cpath); err != nil {
		return err
	}

	d, err := readDescriptor(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, closeFn, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := eng.Query(ctx, d, mongoql.RouteHint{Primary: primary, Name: route})
	if err != nil {
		return err
	}
	return printResult(ctx, cmd.OutOrStdout(), res)
}

func cmdExec(cmd *cobra.Command, args []string) error {
	if err := setup(cpath); err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	eng, closeFn, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := eng.Exec(ctx, args[0], mongoql.RouteHint{Name: route})
	if err != nil {
		return err
	}
	return printResult(ctx, cmd.OutOrStdout(), res)
}

func printResult(ctx context.Context, w io.Writer, res *mongodriver.Result) error {
	log.Debugf("%s", res.Statement())

	if res.Rows() == nil {
		if id := res.InsertedID(); id != "" {
			fmt.Fprintf(w, "inserted: %s\n", id)
		}
		fmt.Fprintf(w, "affected: %d\n", res.RowsAffected())
		return nil
	}

	docs, err := mongodriver.All(ctx, res.Rows())
	if err != nil {
		return err
	}
	for _, d := range docs {
		b, err := bson.MarshalExtJSON(d, false, false)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	}
	return nil
}
