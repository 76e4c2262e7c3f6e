package mongoql

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config holds the settings of an Engine and of the connections the
// command line tool opens for it.
type Config struct {
	// Database name used on every route
	Database string `mapstructure:"database" jsonschema:"title=Database Name" validate:"required"`

	// Prefix added to every collection name
	TablePrefix string `mapstructure:"table_prefix" jsonschema:"title=Collection Prefix"`

	// Server side time limit for find, count and aggregate. Defaults to 60s
	QueryTimeout time.Duration `mapstructure:"query_timeout" jsonschema:"title=Query Timeout,type=string,default=60s"`

	// Client library to connect with: auto, v2 or v1
	Generation string `mapstructure:"generation" jsonschema:"title=Client Generation,enum=auto,enum=v2,enum=v1" validate:"omitempty,oneof=auto v2 v1"`

	// Connection URI per route name. A primary route is required,
	// a missing secondary falls back to the primary connection
	Routes map[string]string `mapstructure:"routes" jsonschema:"title=Routes" validate:"required"`

	// Log level: debug, info, warn or error
	LogLevel string `mapstructure:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error"`

	// Log format: json or plain
	LogFormat string `mapstructure:"log_format" jsonschema:"title=Log Format,enum=json,enum=plain"`
}

// ReadInConfig reads the config file. Environment variables prefixed
// with MONGOQL_ override file values.
func ReadInConfig(configFile string) (*Config, error) {
	return readInConfig(configFile, nil)
}

// ReadInConfigFS is the same as ReadInConfig but reads from fs.
func ReadInConfigFS(configFile string, fs afero.Fs) (*Config, error) {
	return readInConfig(configFile, fs)
}

func readInConfig(configFile string, fs afero.Fs) (*Config, error) {
	vi := newViper(filepath.Dir(configFile), filepath.Base(configFile))
	if fs != nil {
		vi.SetFs(fs)
	}

	if err := vi.ReadInConfig(); err != nil {
		return nil, err
	}

	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, "MONGOQL_") {
			continue
		}
		kv := strings.SplitN(e, "=", 2)
		key := strings.ToLower(strings.TrimPrefix(kv[0], "MONGOQL_"))
		vi.Set(strings.ReplaceAll(key, "__", "."), kv[1])
	}

	conf := &Config{}
	if err := vi.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed to decode config, %v", err)
	}
	return conf, conf.Validate()
}

func newViper(configPath, configFile string) *viper.Viper {
	vi := viper.New()

	vi.SetDefault("query_timeout", "60s")
	vi.SetDefault("generation", "auto")
	vi.SetDefault("log_level", "info")
	vi.SetDefault("log_format", "plain")

	vi.SetConfigName(strings.TrimSuffix(configFile, filepath.Ext(configFile)))
	vi.AddConfigPath(configPath)
	return vi
}

var validate = validator.New()

// Validate checks required settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("mongoql: config: %w", err)
	}
	if _, ok := c.Routes[string(Primary)]; !ok {
		return fmt.Errorf("mongoql: config: no '%s' route", Primary)
	}
	return nil
}
