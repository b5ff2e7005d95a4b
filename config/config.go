/*
config.go - Server configuration

PURPOSE:
  Collects every setting of the server from command-line flags, environment
  variables and an optional .env file, in that order of precedence.

SOURCES:
  1. Flags (--port=8080)
  2. Environment (PORT=8080)
  3. .env file in the working directory, read into the environment first.
     Variables already set in the environment are not overwritten.
  4. Defaults from the struct tags

EXAMPLES:
  ./server --db=./data/timesheets.db --log-format=json
  PORT=3000 LOG_LEVEL=debug ./server
  ./server --db=:memory: --seed-file=./settings.yaml
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the server.
type Config struct {
	Port   int    `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	DBPath string `long:"db" env:"DB_PATH" default:"timesheets.db" description:"SQLite database path, :memory: for an in-memory database"`

	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Minimum log level"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`

	CORSOrigins  []string `long:"cors-origin" env:"CORS_ORIGINS" env-delim:"," default:"*" description:"Allowed CORS origins, repeatable"`
	BaseCurrency string   `long:"base-currency" env:"BASE_CURRENCY" default:"EUR" description:"Currency allowances and expense totals are reported in"`

	SeedFile string `long:"seed-file" env:"SEED_FILE" description:"YAML file with settings defaults, the built-in defaults when empty"`
	SkipSeed bool   `long:"skip-seed" env:"SKIP_SEED" description:"Do not load settings defaults on start"`

	WeekCheckInterval time.Duration `long:"week-check-interval" env:"WEEK_CHECK_INTERVAL" default:"1h" description:"How often draft timesheets are opened for the current week, 0 disables"`

	ReadTimeout     time.Duration `long:"read-timeout" env:"READ_TIMEOUT" default:"15s" description:"HTTP read timeout"`
	WriteTimeout    time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" default:"15s" description:"HTTP write timeout"`
	IdleTimeout     time.Duration `long:"idle-timeout" env:"IDLE_TIMEOUT" default:"60s" description:"HTTP idle timeout"`
	ShutdownTimeout time.Duration `long:"shutdown-timeout" env:"SHUTDOWN_TIMEOUT" default:"30s" description:"Grace period for in-flight requests on shutdown"`
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Load reads the env files (".env" when none are given), then parses args.
// Missing env files are ignored. Help requests return a *flags.Error with
// Type flags.ErrHelp.
func Load(args []string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Port < 1 || c.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "database path cannot be empty")
	}
	if !currencyCode.MatchString(c.BaseCurrency) {
		problems = append(problems, fmt.Sprintf("invalid base currency %q: must be three upper-case letters", c.BaseCurrency))
	}
	if len(c.CORSOrigins) == 0 {
		problems = append(problems, "at least one CORS origin is required")
	}
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"read timeout", c.ReadTimeout},
		{"write timeout", c.WriteTimeout},
		{"idle timeout", c.IdleTimeout},
		{"shutdown timeout", c.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			problems = append(problems, fmt.Sprintf("invalid %s %v: must be positive", t.name, t.d))
		}
	}
	if c.WeekCheckInterval < 0 {
		problems = append(problems, fmt.Sprintf("invalid week check interval %v: must not be negative", c.WeekCheckInterval))
	}
	if _, err := c.Level(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// InMemory reports whether the store lives in memory only.
func (c *Config) InMemory() bool {
	return c.DBPath == ":memory:"
}
