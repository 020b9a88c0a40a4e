// Package config loads pivot settings from defaults, a YAML file, PIVOT_
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/internal/pivot"
	"go-retail-pivot/pkg/utils"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: PIVOT_SOURCE__TABLE sets source.table.
const EnvPrefix = "PIVOT_"

// Output modes for the CLI.
const (
	OutputTable = "table"
	OutputCSV   = "csv"
	OutputJSON  = "json"
)

// list keys are split on commas when they come from the environment
var listKeys = map[string]bool{
	"group_by":        true,
	"detail_columns":  true,
	"source.statuses": true,
}

// Config is the full set of pivot settings.
type Config struct {
	Database          string `koanf:"database"`
	Addr              string `koanf:"addr"`
	ExportDir         string `koanf:"export_dir"`
	CurrencySymbol    string `koanf:"currency_symbol"`
	Locale            string `koanf:"locale"`
	MaxNodes          int    `koanf:"max_nodes"`
	Strict            bool   `koanf:"strict"`
	PreserveExpansion bool   `koanf:"preserve_expansion"`
	Output            string `koanf:"output"`
	LogLevel          string `koanf:"log_level"`
	BuildTimeout      string `koanf:"build_timeout"` // per-request rebuild limit of the API, e.g. "30s"

	Source             model.RecordQuery       `koanf:"source"`
	GroupBy            []string                `koanf:"group_by"`
	Measures           []model.MeasureRef      `koanf:"measures"`
	DetailColumns      []string                `koanf:"detail_columns"`
	Filters            []model.FilterRule      `koanf:"filters"`
	Derivations        []model.Derivation      `koanf:"derivations"`
	DefaultDerivations bool                    `koanf:"default_derivations"` // prepend the retail derived metrics
	Dimensions         []model.Dimension       `koanf:"dimensions"`          // registered on top of the retail catalog
	Aggregations       []model.AggregationSpec `koanf:"aggregations"`

	file string
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"database":            "pivot.db",
		"addr":                ":8080",
		"export_dir":          "exports",
		"currency_symbol":     pivot.DefaultCurrencySymbol,
		"locale":              "en",
		"max_nodes":           100000,
		"strict":              false,
		"preserve_expansion":  true,
		"output":              OutputTable,
		"log_level":           "info",
		"build_timeout":       "30s",
		"default_derivations": true,
		"source.table":        "orders",
		"source.date_field":   "order_date",
		"group_by":            []string{"status"},
		"measures": []interface{}{
			map[string]interface{}{"reducer": string(model.ReducerCount)},
			map[string]interface{}{"field": "total", "reducer": string(model.ReducerSum)},
		},
	}
}

// findConfigFile returns the explicit path, or pivot.yaml / pivot.yml in the
// working directory when present.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"pivot.yaml", "pivot.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds a Config. Precedence (highest to lowest): flags > env vars >
// config file > defaults. Only flags that were explicitly set override.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// PIVOT_MAX_NODES -> max_nodes, PIVOT_SOURCE__TABLE -> source.table
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			switch key {
			case "table":
				key = "source.table"
			case "limit":
				key = "source.limit"
			case "status":
				key = "source.statuses"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.file = used
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// File reports the config file that was read, if any.
func (c *Config) File() string { return c.file }

// Validate checks settings that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputTable, OutputCSV, OutputJSON:
	default:
		return fmt.Errorf("unknown output %q (want table, csv or json)", c.Output)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("max_nodes must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// Catalog returns the retail catalog plus any configured dimensions and
// aggregations. The active lists are left empty; ViewSpec carries them.
func (c *Config) Catalog() (*pivot.Catalog, error) {
	cat := pivot.DefaultRetailCatalog()
	for _, d := range c.Dimensions {
		if err := cat.AddDimension(d); err != nil {
			return nil, fmt.Errorf("dimension %s: %w", d.Key, err)
		}
	}
	for _, a := range c.Aggregations {
		if err := cat.AddAggregation(a); err != nil {
			return nil, fmt.Errorf("aggregation %s: %w", a.Label, err)
		}
	}
	return cat, nil
}

// ViewSpec returns the configured view.
func (c *Config) ViewSpec() model.ViewSpec {
	derivations := c.Derivations
	if c.DefaultDerivations {
		derivations = append(pivot.DefaultRetailDerivations(), derivations...)
	}
	return model.ViewSpec{
		Name:          "default",
		Source:        c.Source,
		GroupBy:       c.GroupBy,
		Measures:      c.Measures,
		Filters:       c.Filters,
		Derivations:   derivations,
		DetailColumns: c.DetailColumns,
	}
}

// ViewOptions maps the engine settings onto view options.
func (c *Config) ViewOptions(log logrus.FieldLogger, metrics *pivot.Metrics) []pivot.Option {
	return []pivot.Option{
		pivot.WithLogger(log),
		pivot.WithMetrics(metrics),
		pivot.WithStrict(c.Strict),
		pivot.WithMaxNodes(c.MaxNodes),
		pivot.WithPreserveExpansion(c.PreserveExpansion),
	}
}

// Timeout returns the API rebuild limit, falling back to 30s when unset or
// unparsable.
func (c *Config) Timeout() time.Duration {
	return utils.ParseDuration(c.BuildTimeout, 30*time.Second)
}

// Formatter returns the display formatter for the configured currency and
// locale.
func (c *Config) Formatter() *pivot.Formatter {
	return pivot.NewFormatter(c.CurrencySymbol, c.Locale)
}

// ExportPath returns the export directory as an absolute path when possible.
func (c *Config) ExportPath() string {
	if abs, err := filepath.Abs(c.ExportDir); err == nil {
		return abs
	}
	return c.ExportDir
}

// NewLogger returns a text logger at the configured level.
func (c *Config) NewLogger(w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
