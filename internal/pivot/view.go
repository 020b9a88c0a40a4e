package pivot

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Option configures a View.
type Option func(*View)

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(v *View) { v.log = log }
}

// WithMetrics records builds and exports on m.
func WithMetrics(m *Metrics) Option {
	return func(v *View) { v.metrics = m }
}

// WithStrict surfaces malformed rules and coerced values as errors.
func WithStrict(strict bool) Option {
	return func(v *View) { v.strict = strict }
}

// WithMaxNodes caps the number of group nodes per build.
func WithMaxNodes(n int) Option {
	return func(v *View) { v.maxNodes = n }
}

// WithClock fixes "now" for age derivations.
func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

// WithPreserveExpansion keeps expanded groups open across rebuilds when
// their path still exists. When false every rebuild collapses the tree.
func WithPreserveExpansion(preserve bool) Option {
	return func(v *View) { v.preserve = preserve }
}

// WithFormatter formats aggregate cells in CSV exports.
func WithFormatter(f *Formatter) Option {
	return func(v *View) { v.formatter = f }
}

// View ties records, catalog, rules and derivations to a built tree and its
// expansion state. Any input change requires Rebuild. A View is not safe for
// concurrent use.
type View struct {
	catalog       *Catalog
	records       []model.Record
	rules         []model.FilterRule
	compiled      *RuleSet
	derivations   []model.Derivation
	detailColumns []string

	roots []*PivotNode
	dims  []model.Dimension
	aggs  []model.AggregationSpec
	tree  *TreeView
	stats model.BuildStats

	log       logrus.FieldLogger
	metrics   *Metrics
	strict    bool
	maxNodes  int
	now       func() time.Time
	preserve  bool
	formatter *Formatter
}

// NewView creates a view over catalog. The catalog's active group-by and
// measures lists drive every build.
func NewView(catalog *Catalog, opts ...Option) *View {
	v := &View{
		catalog:  catalog,
		compiled: &RuleSet{},
		tree:     NewTreeView(),
		log:      logrus.StandardLogger(),
		now:      time.Now,
		preserve: true,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Catalog returns the catalog the view groups by.
func (v *View) Catalog() *Catalog { return v.catalog }

// SetRecords replaces the record collection. The slice is not copied and
// must not be mutated afterwards.
func (v *View) SetRecords(records []model.Record) {
	v.records = records
}

// SetFilters compiles and stores rules. Lenient views log malformed rules
// once here and ignore them.
func (v *View) SetFilters(rules []model.FilterRule) error {
	compiled, err := CompileRulesFor(v.catalog, rules, v.strict)
	if err != nil {
		return err
	}
	for _, invalid := range compiled.Invalid {
		v.log.WithError(invalid).Warn("⚠️ Ignoring malformed filter rule")
	}
	v.metrics.RecordInvalidRules(len(compiled.Invalid))
	v.rules = rules
	v.compiled = compiled
	return nil
}

// Filters returns the rules last set.
func (v *View) Filters() []model.FilterRule { return v.rules }

// SetDerivations validates and stores derived metrics.
func (v *View) SetDerivations(derivations []model.Derivation) error {
	if _, err := NewDeriver(derivations); err != nil {
		return err
	}
	v.derivations = derivations
	return nil
}

// SetDetailColumns selects per-record CSV columns.
func (v *View) SetDetailColumns(cols []string) {
	v.detailColumns = cols
}

// Rebuild derives, filters and groups the records into a new tree.
// Derivation runs first so rules can reference derived fields.
func (v *View) Rebuild(ctx context.Context) error {
	start := time.Now()
	stats, err := v.rebuild(ctx)
	stats.Duration = time.Since(start)
	v.metrics.RecordBuild(stats.RecordsIn, stats.RecordsOut, stats.Nodes, stats.Coercions, stats.Duration, err)
	if err != nil {
		v.log.WithError(err).Error("❌ Pivot rebuild failed")
		return err
	}
	v.stats = stats

	v.log.WithFields(logrus.Fields{
		"records_in":  stats.RecordsIn,
		"records_out": stats.RecordsOut,
		"nodes":       stats.Nodes,
		"leaves":      stats.Leaves,
		"coercions":   stats.Coercions,
		"duration":    stats.Duration,
	}).Info("📊 Pivot rebuilt")
	return nil
}

func (v *View) rebuild(ctx context.Context) (model.BuildStats, error) {
	stats := model.BuildStats{RecordsIn: len(v.records), BuiltAt: v.now()}

	deriver, err := NewDeriver(v.derivations, WithNow(v.now))
	if err != nil {
		return stats, err
	}
	records := deriver.Derive(v.records)
	records = v.compiled.Apply(records)
	stats.RecordsOut = len(records)

	dims, aggs := v.catalog.GroupBy(), v.catalog.Measures()
	res, err := Build(ctx, records, dims, aggs, BuildOptions{
		MaxNodes: v.maxNodes,
		Strict:   v.strict,
	})
	if err != nil {
		return stats, err
	}
	stats.Nodes = res.Nodes
	stats.Leaves = res.Leaves
	stats.Coercions = res.Coercions

	v.roots = res.Roots
	v.dims, v.aggs = dims, aggs
	if v.preserve {
		v.tree.Retain(v.roots)
	} else {
		v.tree.CollapseAll()
	}
	return stats, nil
}

// Roots returns the current forest.
func (v *View) Roots() []*PivotNode { return v.roots }

// Columns returns the dimensions and aggregations of the current forest.
func (v *View) Columns() ([]model.Dimension, []model.AggregationSpec) { return v.dims, v.aggs }

// Stats describes the last successful rebuild.
func (v *View) Stats() model.BuildStats { return v.stats }

// Tree exposes the expansion state.
func (v *View) Tree() *TreeView { return v.tree }

// Rows flattens the current forest.
func (v *View) Rows() []DisplayRow { return v.tree.Flatten(v.roots) }

// Expand opens a group. Unknown IDs are rejected.
func (v *View) Expand(id string) error {
	if !v.has(id) {
		return fmt.Errorf("node %s not in current tree", id)
	}
	v.tree.Expand(id)
	return nil
}

// Collapse closes a group.
func (v *View) Collapse(id string) { v.tree.Collapse(id) }

// ExpandAll opens every group.
func (v *View) ExpandAll() { v.tree.ExpandAll(v.roots) }

// CollapseAll closes every group.
func (v *View) CollapseAll() { v.tree.CollapseAll() }

func (v *View) has(id string) bool {
	found := false
	Walk(v.roots, func(n *PivotNode) bool {
		found = n.ID == id
		return !found
	})
	return found
}

// ExportCSV writes the current flattened rows.
func (v *View) ExportCSV(w io.Writer) (int, error) {
	n, err := WriteCSV(w, v.Rows(), v.dims, v.aggs, CSVOptions{
		DetailColumns: v.detailColumns,
		Formatter:     v.formatter,
	})
	v.metrics.RecordExport(n, err)
	if err != nil {
		v.log.WithError(err).Error("❌ CSV export failed")
		return n, err
	}
	v.log.WithField("rows", n).Info("💾 CSV export written")
	return n, nil
}

// ExportFile writes the current rows as CSV to a new timestamped file in
// the export directory of viewID. Failures are reported in the result.
func (v *View) ExportFile(outputs *utils.OutputManager, viewID, viewName string) model.ExportResult {
	now := v.now().UTC()
	result := model.ExportResult{Type: "csv", Timestamp: now}

	fileName := utils.ExportFileName(viewName, "csv", now)
	path, err := outputs.GetOutputFilePath(viewID, fileName)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Path = path
	result.Type = outputs.GetFileType(path)

	f, err := os.Create(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	n, err := v.ExportCSV(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	result.RowCount = n
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if size, err := outputs.GetFileSize(path); err == nil {
		result.Bytes = size
	}
	result.URL = outputs.GetDownloadURL(viewID, fileName)
	result.Success = true
	return result
}

// DetailColumns returns the record fields exported on detail rows.
func (v *View) DetailColumns() []string { return v.detailColumns }

// ApplySpec sets group-by, measures, filters, derivations and detail
// columns from a saved view spec. Rebuild afterwards.
func (v *View) ApplySpec(spec model.ViewSpec) error {
	if err := v.catalog.SetGroupBy(spec.GroupBy); err != nil {
		return fmt.Errorf("group by: %w", err)
	}
	if err := v.catalog.SetMeasures(spec.Measures); err != nil {
		return fmt.Errorf("measures: %w", err)
	}
	if err := v.SetFilters(spec.Filters); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	if err := v.SetDerivations(spec.Derivations); err != nil {
		return fmt.Errorf("derivations: %w", err)
	}
	v.SetDetailColumns(spec.DetailColumns)
	return nil
}
