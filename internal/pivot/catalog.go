package pivot

import (
	"fmt"
	"strings"

	"go-retail-pivot/internal/model"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is a presentation grouping of catalog entries.
type Category struct {
	Name         string                  `json:"name"`
	Dimensions   []model.Dimension       `json:"dimensions"`
	Aggregations []model.AggregationSpec `json:"aggregations"`
}

type aggKey struct {
	field   string
	reducer model.Reducer
}

func keyOf(field string, reducer model.Reducer) aggKey {
	if reducer == model.ReducerCount {
		// count ignores its source field
		return aggKey{reducer: reducer}
	}
	return aggKey{field: field, reducer: reducer}
}

// Catalog registers selectable dimensions and aggregations and tracks the
// active "group by" and "measures" lists. It is owned by the caller; there
// is no package-level registry.
type Catalog struct {
	dimensions   map[string]model.Dimension
	dimOrder     []string
	aggregations map[aggKey]model.AggregationSpec
	aggOrder     []aggKey
	labels       map[string]aggKey
	categories   []string

	groupBy  []string
	measures []aggKey
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		dimensions:   make(map[string]model.Dimension),
		aggregations: make(map[aggKey]model.AggregationSpec),
		labels:       make(map[string]aggKey),
	}
}

var titleCaser = cases.Title(language.English)

func defaultLabel(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

func validType(t model.ValueType) bool {
	switch t {
	case model.TypeText, model.TypeNumber, model.TypeDate, model.TypeBoolean, model.TypeEnumerated:
		return true
	}
	return false
}

func validReducer(r model.Reducer) bool {
	switch r {
	case model.ReducerSum, model.ReducerCount, model.ReducerAverage, model.ReducerMin, model.ReducerMax:
		return true
	}
	return false
}

func (c *Catalog) noteCategory(name string) {
	for _, existing := range c.categories {
		if existing == name {
			return
		}
	}
	c.categories = append(c.categories, name)
}

// AddDimension registers a dimension. Keys are unique.
func (c *Catalog) AddDimension(d model.Dimension) error {
	if d.Key == "" {
		return fmt.Errorf("dimension key is required")
	}
	if d.Type == "" {
		d.Type = model.TypeText
	}
	if !validType(d.Type) {
		return fmt.Errorf("dimension %s: unsupported type %q", d.Key, d.Type)
	}
	if _, exists := c.dimensions[d.Key]; exists {
		return newError(KindDuplicate, d.Key, "dimension already registered")
	}
	if d.Label == "" {
		d.Label = defaultLabel(d.Key)
	}
	if d.Category == "" {
		d.Category = "General"
	}
	c.dimensions[d.Key] = d
	c.dimOrder = append(c.dimOrder, d.Key)
	c.noteCategory(d.Category)
	return nil
}

// AddAggregation registers an aggregation. The (field, reducer) pair and
// the label are unique.
func (c *Catalog) AddAggregation(a model.AggregationSpec) error {
	if !validReducer(a.Reducer) {
		return fmt.Errorf("aggregation %s: unsupported reducer %q", a.Field, a.Reducer)
	}
	if a.Reducer != model.ReducerCount && a.Field == "" {
		return fmt.Errorf("aggregation %s requires a source field", a.Reducer)
	}
	key := keyOf(a.Field, a.Reducer)
	if _, exists := c.aggregations[key]; exists {
		return newError(KindDuplicate, a.Field, "aggregation %s already registered", a.Reducer)
	}
	if a.Label == "" {
		if a.Reducer == model.ReducerCount {
			a.Label = "Count"
		} else {
			a.Label = defaultLabel(string(a.Reducer)) + " of " + defaultLabel(a.Field)
		}
	}
	if _, taken := c.labels[a.Label]; taken {
		return newError(KindDuplicate, a.Label, "aggregation label already in use")
	}
	if a.Format == "" {
		if a.Reducer == model.ReducerCount {
			a.Format = model.FormatCount
		} else {
			a.Format = model.FormatNumber
		}
	}
	if a.Category == "" {
		a.Category = "Measures"
	}
	c.aggregations[key] = a
	c.aggOrder = append(c.aggOrder, key)
	c.labels[a.Label] = key
	c.noteCategory(a.Category)
	return nil
}

// Dimension looks up a registered dimension.
func (c *Catalog) Dimension(key string) (model.Dimension, bool) {
	d, ok := c.dimensions[key]
	return d, ok
}

// Aggregation looks up a registered aggregation.
func (c *Catalog) Aggregation(field string, reducer model.Reducer) (model.AggregationSpec, bool) {
	a, ok := c.aggregations[keyOf(field, reducer)]
	return a, ok
}

// Dimensions returns every registered dimension in registration order.
func (c *Catalog) Dimensions() []model.Dimension {
	out := make([]model.Dimension, 0, len(c.dimOrder))
	for _, key := range c.dimOrder {
		out = append(out, c.dimensions[key])
	}
	return out
}

// Aggregations returns every registered aggregation in registration order.
func (c *Catalog) Aggregations() []model.AggregationSpec {
	out := make([]model.AggregationSpec, 0, len(c.aggOrder))
	for _, key := range c.aggOrder {
		out = append(out, c.aggregations[key])
	}
	return out
}

// Categories groups the catalog for display.
func (c *Catalog) Categories() []Category {
	out := make([]Category, 0, len(c.categories))
	for _, name := range c.categories {
		cat := Category{Name: name}
		for _, d := range c.Dimensions() {
			if d.Category == name {
				cat.Dimensions = append(cat.Dimensions, d)
			}
		}
		for _, a := range c.Aggregations() {
			if a.Category == name {
				cat.Aggregations = append(cat.Aggregations, a)
			}
		}
		out = append(out, cat)
	}
	return out
}

// ---------------------------------------------------------------------------
// Active lists
// ---------------------------------------------------------------------------

// AddGroupBy appends a dimension to the active group-by list.
func (c *Catalog) AddGroupBy(key string) error {
	if _, ok := c.dimensions[key]; !ok {
		return newError(KindUnknownDimension, key, "not in catalog")
	}
	for _, active := range c.groupBy {
		if active == key {
			return newError(KindDuplicate, key, "already grouped by")
		}
	}
	c.groupBy = append(c.groupBy, key)
	return nil
}

// RemoveGroupBy drops a dimension from the group-by list.
func (c *Catalog) RemoveGroupBy(key string) bool {
	for i, active := range c.groupBy {
		if active == key {
			c.groupBy = append(c.groupBy[:i], c.groupBy[i+1:]...)
			return true
		}
	}
	return false
}

// MoveGroupBy moves an active dimension to a new position.
func (c *Catalog) MoveGroupBy(key string, index int) error {
	if !c.RemoveGroupBy(key) {
		return newError(KindUnknownDimension, key, "not grouped by")
	}
	if index < 0 {
		index = 0
	}
	if index > len(c.groupBy) {
		index = len(c.groupBy)
	}
	c.groupBy = append(c.groupBy, "")
	copy(c.groupBy[index+1:], c.groupBy[index:])
	c.groupBy[index] = key
	return nil
}

// SetGroupBy replaces the group-by list. Nothing changes on error.
func (c *Catalog) SetGroupBy(keys []string) error {
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if _, ok := c.dimensions[key]; !ok {
			return newError(KindUnknownDimension, key, "not in catalog")
		}
		if seen[key] {
			return newError(KindDuplicate, key, "listed twice")
		}
		seen[key] = true
	}
	c.groupBy = append([]string(nil), keys...)
	return nil
}

// ClearGroupBy empties the group-by list.
func (c *Catalog) ClearGroupBy() { c.groupBy = nil }

// GroupBy returns the active dimensions in order.
func (c *Catalog) GroupBy() []model.Dimension {
	out := make([]model.Dimension, 0, len(c.groupBy))
	for _, key := range c.groupBy {
		out = append(out, c.dimensions[key])
	}
	return out
}

// AddMeasure activates a registered aggregation.
func (c *Catalog) AddMeasure(field string, reducer model.Reducer) error {
	key := keyOf(field, reducer)
	if _, ok := c.aggregations[key]; !ok {
		return newError(KindUnknownAggregation, field, "%s not in catalog", reducer)
	}
	for _, active := range c.measures {
		if active == key {
			return newError(KindDuplicate, field, "%s already active", reducer)
		}
	}
	c.measures = append(c.measures, key)
	return nil
}

// RemoveMeasure deactivates an aggregation.
func (c *Catalog) RemoveMeasure(field string, reducer model.Reducer) bool {
	key := keyOf(field, reducer)
	for i, active := range c.measures {
		if active == key {
			c.measures = append(c.measures[:i], c.measures[i+1:]...)
			return true
		}
	}
	return false
}

// SetMeasures replaces the measures list. Nothing changes on error.
func (c *Catalog) SetMeasures(refs []model.MeasureRef) error {
	keys := make([]aggKey, 0, len(refs))
	seen := make(map[aggKey]bool, len(refs))
	for _, ref := range refs {
		key := keyOf(ref.Field, ref.Reducer)
		if _, ok := c.aggregations[key]; !ok {
			return newError(KindUnknownAggregation, ref.Field, "%s not in catalog", ref.Reducer)
		}
		if seen[key] {
			return newError(KindDuplicate, ref.Field, "%s listed twice", ref.Reducer)
		}
		seen[key] = true
		keys = append(keys, key)
	}
	c.measures = keys
	return nil
}

// ClearMeasures empties the measures list.
func (c *Catalog) ClearMeasures() { c.measures = nil }

// Measures returns the active aggregations in order.
func (c *Catalog) Measures() []model.AggregationSpec {
	out := make([]model.AggregationSpec, 0, len(c.measures))
	for _, key := range c.measures {
		out = append(out, c.aggregations[key])
	}
	return out
}

// Clone copies the catalog including its active lists. Definitions are
// values, so the copy can be mutated independently.
func (c *Catalog) Clone() *Catalog {
	out := NewCatalog()
	for k, v := range c.dimensions {
		out.dimensions[k] = v
	}
	for k, v := range c.aggregations {
		out.aggregations[k] = v
	}
	for k, v := range c.labels {
		out.labels[k] = v
	}
	out.dimOrder = append([]string(nil), c.dimOrder...)
	out.aggOrder = append([]aggKey(nil), c.aggOrder...)
	out.categories = append([]string(nil), c.categories...)
	out.groupBy = append([]string(nil), c.groupBy...)
	out.measures = append([]aggKey(nil), c.measures...)
	return out
}

// ---------------------------------------------------------------------------
// Retail defaults
// ---------------------------------------------------------------------------

// DefaultRetailCatalog registers the sales, inventory and returns fields the
// back office lists expose.
func DefaultRetailCatalog() *Catalog {
	c := NewCatalog()
	orderMonth := func(r model.Record) (interface{}, bool) {
		v, ok := r["order_date"]
		return v, ok
	}
	dims := []model.Dimension{
		{Key: "status", Label: "Status", Type: model.TypeEnumerated, Category: "Order"},
		{Key: "channel", Label: "Channel", Type: model.TypeEnumerated, Category: "Order"},
		{Key: "payment_method", Label: "Payment Method", Type: model.TypeEnumerated, Category: "Order"},
		{Key: "order_date", Label: "Order Date", Type: model.TypeDate, Category: "Order", Bucket: model.BucketDay},
		{Key: "order_month", Label: "Order Month", Type: model.TypeDate, Category: "Order", Bucket: model.BucketMonth, Accessor: orderMonth},
		{Key: "store", Label: "Store", Type: model.TypeText, Category: "Location"},
		{Key: "region", Label: "Region", Type: model.TypeText, Category: "Location"},
		{Key: "warehouse", Label: "Warehouse", Type: model.TypeText, Category: "Location"},
		{Key: "category", Label: "Product Category", Type: model.TypeText, Category: "Product"},
		{Key: "brand", Label: "Brand", Type: model.TypeText, Category: "Product"},
		{Key: "sku", Label: "SKU", Type: model.TypeText, Category: "Product"},
		{Key: "salesperson", Label: "Salesperson", Type: model.TypeText, Category: "People"},
		{Key: "customer_type", Label: "Customer Type", Type: model.TypeEnumerated, Category: "People"},
		{Key: "is_return", Label: "Returned", Type: model.TypeBoolean, Category: "Returns & Warranty"},
		{Key: "return_reason", Label: "Return Reason", Type: model.TypeText, Category: "Returns & Warranty"},
		{Key: "warranty_status", Label: "Warranty Status", Type: model.TypeEnumerated, Category: "Returns & Warranty"},
		{Key: "scrap_reason", Label: "Scrap Reason", Type: model.TypeText, Category: "Returns & Warranty"},
		{Key: "quantity", Label: "Quantity", Type: model.TypeNumber, Category: "Product"},
	}
	aggs := []model.AggregationSpec{
		{Reducer: model.ReducerCount, Label: "Count", Format: model.FormatCount},
		{Field: "total", Reducer: model.ReducerSum, Label: "Total Sales", Format: model.FormatCurrency},
		{Field: "total", Reducer: model.ReducerAverage, Label: "Average Order Value", Format: model.FormatCurrency},
		{Field: "total", Reducer: model.ReducerMin, Label: "Smallest Order", Format: model.FormatCurrency},
		{Field: "total", Reducer: model.ReducerMax, Label: "Largest Order", Format: model.FormatCurrency},
		{Field: "quantity", Reducer: model.ReducerSum, Label: "Units Sold", Format: model.FormatCount},
		{Field: "discount", Reducer: model.ReducerSum, Label: "Discounts", Format: model.FormatCurrency},
		{Field: "margin", Reducer: model.ReducerSum, Label: "Gross Margin", Format: model.FormatCurrency},
		{Field: "margin_rate", Reducer: model.ReducerAverage, Label: "Margin %", Format: model.FormatPercent},
		{Field: "return_rate", Reducer: model.ReducerAverage, Label: "Return Rate", Format: model.FormatPercent},
		{Field: "sales_share", Reducer: model.ReducerSum, Label: "Share of Sales", Format: model.FormatPercent},
		{Field: "age_days", Reducer: model.ReducerAverage, Label: "Average Age (days)", Format: model.FormatNumber},
		{Field: "stock_on_hand", Reducer: model.ReducerSum, Label: "Stock On Hand", Format: model.FormatCount},
	}
	for _, d := range dims {
		if err := c.AddDimension(d); err != nil {
			panic(err)
		}
	}
	for _, a := range aggs {
		if err := c.AddAggregation(a); err != nil {
			panic(err)
		}
	}
	return c
}

// DefaultRetailDerivations computes the derived fields DefaultRetailCatalog
// aggregates.
func DefaultRetailDerivations() []model.Derivation {
	return []model.Derivation{
		{Field: "margin_rate", Kind: model.DeriveRate, Source: "margin", Against: "total", Percent: true},
		{Field: "return_rate", Kind: model.DeriveRate, Source: "returned_quantity", Against: "quantity", Percent: true},
		{Field: "sales_share", Kind: model.DeriveShare, Source: "total", Percent: true},
		{Field: "age_days", Kind: model.DeriveAge, Source: "order_date"},
	}
}
