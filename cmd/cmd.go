package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dosco/graphjin/mongoql"
	"github.com/dosco/graphjin/mongoql/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// These variables are set using -ldflags
	version string
	commit  string
	date    string
)

var (
	log   *zap.SugaredLogger
	conf  *mongoql.Config
	cpath string
	fs    afero.Fs = afero.NewOsFs()
)

// Cmd is the entry point for the CLI
func Cmd() {
	log = util.NewLogger(false, "info").Sugar()

	if err := rootCmd().Execute(); err != nil {
		log.Fatalf("%s", err)
	}
}

func rootCmd() *cobra.Command {
	cobra.EnableCommandSorting = false
	cmd := &cobra.Command{
		Use:           "mongoql",
		Short:         BuildDetails(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cpath,
		"path", "./config", "path to config files")

	cmd.AddCommand(compileCmd())
	cmd.AddCommand(queryCmd())
	cmd.AddCommand(execCmd())
	cmd.AddCommand(versionCmd())
	return cmd
}

// setup loads .env and reads the config file named by MONGOQL_ENV
// (dev by default) from the config path
func setup(cpath string) error {
	if conf != nil {
		return nil
	}

	if _, err := fs.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cp, err := filepath.Abs(cpath)
	if err != nil {
		return err
	}

	c, err := mongoql.ReadInConfigFS(filepath.Join(cp, configName()), fs)
	if err != nil {
		return err
	}
	conf = c

	log = util.NewLogger(conf.LogFormat == "json", conf.LogLevel).Sugar()
	return nil
}

func configName() string {
	if v := os.Getenv("MONGOQL_ENV"); v != "" {
		return v
	}
	return "dev"
}

// BuildDetails returns the version line printed by the CLI
func BuildDetails() string {
	if version == "" {
		return "mongoql (unknown version)"
	}
	return fmt.Sprintf("mongoql %s (%s, %s) %s/%s",
		version, commit, date, runtime.GOOS, runtime.GOARCH)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), BuildDetails())
		},
	}
}
