package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-retail-pivot/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pivot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.File())
	assert.Equal(t, "pivot.db", cfg.Database)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "$", cfg.CurrencySymbol)
	assert.Equal(t, 100000, cfg.MaxNodes)
	assert.True(t, cfg.PreserveExpansion)
	assert.False(t, cfg.Strict)
	assert.Equal(t, OutputTable, cfg.Output)
	assert.Equal(t, "orders", cfg.Source.Table)
	assert.Equal(t, "order_date", cfg.Source.DateField)
	assert.Equal(t, []string{"status"}, cfg.GroupBy)
	assert.Equal(t, []model.MeasureRef{
		{Reducer: model.ReducerCount},
		{Field: "total", Reducer: model.ReducerSum},
	}, cfg.Measures)
}

func TestLoadPicksUpWorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pivot.yml"), []byte("addr: \":9090\"\n"), 0600))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "pivot.yml", cfg.File())
	assert.Equal(t, ":9090", cfg.Addr)
}

func TestLoadFileDefinesView(t *testing.T) {
	path := writeConfig(t, `
group_by: [region, store]
measures:
  - reducer: count
  - field: tax
    reducer: sum
detail_columns: [order_id]
filters:
  - id: open
    dimension: status
    operator: is_not
    value: cancelled
    type: enumerated
default_derivations: false
derivations:
  - field: margin_rate
    kind: rate
    source: margin
    against: total
    percent: true
dimensions:
  - key: tier
    type: enumerated
    category: People
aggregations:
  - field: tax
    reducer: sum
    label: Tax
    format: currency
source:
  table: sales
  statuses: [completed, pending]
  limit: 500
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File())

	spec := cfg.ViewSpec()
	assert.Equal(t, []string{"region", "store"}, spec.GroupBy)
	assert.Equal(t, []string{"order_id"}, spec.DetailColumns)
	require.Len(t, spec.Filters, 1)
	assert.Equal(t, model.OpIsNot, spec.Filters[0].Operator)
	assert.Equal(t, "cancelled", spec.Filters[0].Value)
	require.Len(t, spec.Derivations, 1, "defaults disabled")
	assert.True(t, spec.Derivations[0].Percent)
	assert.Equal(t, "sales", spec.Source.Table)
	assert.Equal(t, []string{"completed", "pending"}, spec.Source.Statuses)
	assert.Equal(t, 500, spec.Source.Limit)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	tier, ok := cat.Dimension("tier")
	require.True(t, ok)
	assert.Equal(t, "Tier", tier.Label)
	assert.Equal(t, model.TypeEnumerated, tier.Type)

	require.NoError(t, cat.SetGroupBy(spec.GroupBy))
	require.NoError(t, cat.SetMeasures(spec.Measures))
	assert.Equal(t, "Tax", cat.Measures()[1].Label)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, "max_nodes: 10\nlocale: de\nsource:\n  table: from_file\n")

	t.Setenv("PIVOT_MAX_NODES", "20")
	t.Setenv("PIVOT_SOURCE__TABLE", "from_env")
	t.Setenv("PIVOT_GROUP_BY", "region, store")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("max-nodes", 0, "")
	flags.String("table", "", "")
	flags.String("locale", "", "")
	require.NoError(t, flags.Set("max-nodes", "30"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.MaxNodes, "flag beats env and file")
	assert.Equal(t, "from_env", cfg.Source.Table, "unset flag leaves env value")
	assert.Equal(t, "de", cfg.Locale, "file beats defaults")
	assert.Equal(t, []string{"region", "store"}, cfg.GroupBy)

	require.NoError(t, flags.Set("table", "from_flag"))
	cfg, err = Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "from_flag", cfg.Source.Table)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown output", "output: xml\n"},
		{"negative max nodes", "max_nodes: -1\n"},
		{"bad log level", "log_level: chatty\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestCatalogRejectsClashingDefinitions(t *testing.T) {
	cfg := &Config{Dimensions: []model.Dimension{{Key: "status"}}}
	_, err := cfg.Catalog()
	assert.Error(t, err)
}

func TestViewSpecPrependsDefaultDerivations(t *testing.T) {
	cfg := &Config{
		DefaultDerivations: true,
		Derivations:        []model.Derivation{{Field: "unit_price", Kind: model.DeriveRate, Source: "total", Against: "quantity"}},
	}
	spec := cfg.ViewSpec()
	require.Len(t, spec.Derivations, 5)
	assert.Equal(t, "margin_rate", spec.Derivations[0].Field)
	assert.Equal(t, "unit_price", spec.Derivations[4].Field)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := (&Config{LogLevel: "warn"}).NewLogger(&buf)
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log.Info("hidden")
	log.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, (&Config{BuildTimeout: "5s"}).Timeout())
	assert.Equal(t, 30*time.Second, (&Config{BuildTimeout: "soon"}).Timeout())
	assert.Equal(t, 30*time.Second, (&Config{}).Timeout())
}
