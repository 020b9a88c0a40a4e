package model

import "time"

// Record is a schema-agnostic transaction row: field name to scalar
// (string, number, bool or time.Time).
type Record map[string]interface{}

// Clone returns a shallow copy of the record so derived fields never leak
// into the caller's collection.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ValueType is the declared type of a dimension or filter rule.
type ValueType string

const (
	TypeText       ValueType = "text"
	TypeNumber     ValueType = "number"
	TypeDate       ValueType = "date"
	TypeBoolean    ValueType = "boolean"
	TypeEnumerated ValueType = "enumerated"
)

// Operator is a filter comparison.
type Operator string

const (
	OpIs               Operator = "is"
	OpIsNot            Operator = "is_not"
	OpContains         Operator = "contains"
	OpNotContains      Operator = "not_contains"
	OpStartsWith       Operator = "starts_with"
	OpEndsWith         Operator = "ends_with"
	OpIsEmpty          Operator = "is_empty"
	OpIsNotEmpty       Operator = "is_not_empty"
	OpGreaterThan      Operator = "greater_than"
	OpGreaterThanEqual Operator = "greater_than_equal"
	OpLessThan         Operator = "less_than"
	OpLessThanEqual    Operator = "less_than_equal"
	OpIsAfter          Operator = "is_after"
	OpIsOnOrAfter      Operator = "is_on_or_after"
	OpIsBefore         Operator = "is_before"
	OpIsOnOrBefore     Operator = "is_on_or_before"
)

// Reducer folds a numeric field over a group.
type Reducer string

const (
	ReducerSum     Reducer = "sum"
	ReducerCount   Reducer = "count"
	ReducerAverage Reducer = "average"
	ReducerMin     Reducer = "min"
	ReducerMax     Reducer = "max"
)

// DisplayFormat selects how an aggregate value is rendered.
type DisplayFormat string

const (
	FormatCurrency DisplayFormat = "currency"
	FormatPercent  DisplayFormat = "percent"
	FormatCount    DisplayFormat = "count"
	FormatNumber   DisplayFormat = "number"
)

// DateBucket coarsens date dimensions before grouping.
type DateBucket string

const (
	BucketDay   DateBucket = "day"
	BucketMonth DateBucket = "month"
	BucketYear  DateBucket = "year"
)

// Dimension is a field usable for grouping and filtering.
type Dimension struct {
	Key      string     `json:"key" koanf:"key"`
	Label    string     `json:"label" koanf:"label"`
	Type     ValueType  `json:"type" koanf:"type"`
	Category string     `json:"category,omitempty" koanf:"category"` // display grouping only
	Bucket   DateBucket `json:"bucket,omitempty" koanf:"bucket"`     // date dimensions only

	// Accessor reads the dimension from a record. Nil falls back to a map
	// lookup of Key.
	Accessor func(Record) (interface{}, bool) `json:"-" koanf:"-"`
}

// Value returns the raw value of the dimension for a record.
func (d Dimension) Value(rec Record) (interface{}, bool) {
	if d.Accessor != nil {
		return d.Accessor(rec)
	}
	v, ok := rec[d.Key]
	return v, ok
}

// AggregationSpec defines one measure column.
type AggregationSpec struct {
	Field    string        `json:"field" koanf:"field"` // ignored for count
	Reducer  Reducer       `json:"reducer" koanf:"reducer"`
	Label    string        `json:"label" koanf:"label"`
	Format   DisplayFormat `json:"format" koanf:"format"`
	Category string        `json:"category,omitempty" koanf:"category"`

	// Accessor reads the aggregated field from a record. Nil falls back to
	// a map lookup of Field.
	Accessor func(Record) (interface{}, bool) `json:"-" koanf:"-"`
}

// Value returns the raw aggregation input of a record.
func (a AggregationSpec) Value(rec Record) (interface{}, bool) {
	if a.Accessor != nil {
		return a.Accessor(rec)
	}
	v, ok := rec[a.Field]
	return v, ok
}

// FilterRule is a single typed predicate against one dimension.
type FilterRule struct {
	ID           string      `json:"id" koanf:"id"`
	DimensionKey string      `json:"dimension" koanf:"dimension"`
	Operator     Operator    `json:"operator" koanf:"operator"`
	Value        interface{} `json:"value,omitempty" koanf:"value"`
	ValueType    ValueType   `json:"type" koanf:"type"`
}

// DerivationKind names a derived metric.
type DerivationKind string

const (
	DeriveRate  DerivationKind = "rate"
	DeriveShare DerivationKind = "share"
	DeriveAge   DerivationKind = "age"
)

// Derivation computes one dependent field before grouping.
type Derivation struct {
	Field   string         `json:"field" koanf:"field"` // output field
	Kind    DerivationKind `json:"kind" koanf:"kind"`
	Source  string         `json:"source" koanf:"source"`   // numerator, part, or reference date
	Against string         `json:"against" koanf:"against"` // denominator or whole; empty whole means collection total
	Percent bool           `json:"percent" koanf:"percent"` // scale ratio by 100
}

// MeasureRef names a catalog aggregation by field and reducer.
type MeasureRef struct {
	Field   string  `json:"field" koanf:"field"`
	Reducer Reducer `json:"reducer" koanf:"reducer"`
}

// RecordQuery is the coarse server-side filter applied by the record source.
type RecordQuery struct {
	Table     string     `json:"table" koanf:"table"`
	DateField string     `json:"dateField,omitempty" koanf:"date_field"`
	From      *time.Time `json:"from,omitempty" koanf:"from"`
	To        *time.Time `json:"to,omitempty" koanf:"to"`
	Statuses  []string   `json:"statuses,omitempty" koanf:"statuses"`
	Limit     int        `json:"limit,omitempty" koanf:"limit"`
}

// ViewSpec defines a saved pivot view
type ViewSpec struct {
	Name          string       `json:"name"`
	Source        RecordQuery  `json:"source"`                  // where records come from
	GroupBy       []string     `json:"groupBy"`                 // ordered dimension keys
	Measures      []MeasureRef `json:"measures"`                // active aggregations
	Filters       []FilterRule `json:"filters,omitempty"`       // fine-grained filters
	Derivations   []Derivation `json:"derivations,omitempty"`   // derived metrics
	DetailColumns []string     `json:"detailColumns,omitempty"` // CSV detail columns (single dimension only)
}

// AdHocRequest is the body of POST /api/v1/pivot
type AdHocRequest struct {
	Records []Record `json:"records"`
	View    ViewSpec `json:"view"`
	Expand  string   `json:"expand,omitempty"` // "all" or "none"
}
