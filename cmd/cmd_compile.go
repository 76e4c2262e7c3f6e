package main

import (
	"fmt"

	"github.com/dosco/graphjin/mongoql"
	"github.com/dosco/graphjin/mongoql/mongodriver"
	"github.com/dosco/graphjin/mongoql/qcode"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func compileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile <descriptor.yml>",
		Short: "Print the MongoDB operation a descriptor compiles to",
		Args:  cobra.ExactArgs(1),
		RunE:  cmdCompile,
	}
}

func cmdCompile(cmd *cobra.Command, args []string) error {
	if err := setup(cpath); err != nil {
		return err
	}

	d, err := readDescriptor(args[0])
	if err != nil {
		return err
	}

	q, err := mongoql.Compile(conf, d)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), mongodriver.Statement(q))
	return nil
}

// readDescriptor reads a descriptor from a yaml (or json) file
func readDescriptor(file string) (*qcode.Descriptor, error) {
	b, err := afero.ReadFile(fs, file)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return qcode.Decode(m)
}
