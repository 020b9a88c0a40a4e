package pivot

import (
	"strings"
	"time"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/pkg/utils"

	"go.uber.org/multierr"
)

// operatorsByType lists the legal operators for each value type.
var operatorsByType = map[model.ValueType][]model.Operator{
	model.TypeText: {
		model.OpIs, model.OpIsNot, model.OpContains, model.OpNotContains,
		model.OpStartsWith, model.OpEndsWith, model.OpIsEmpty, model.OpIsNotEmpty,
	},
	model.TypeNumber: {
		model.OpIs, model.OpIsNot, model.OpGreaterThan, model.OpGreaterThanEqual,
		model.OpLessThan, model.OpLessThanEqual, model.OpIsEmpty, model.OpIsNotEmpty,
	},
	model.TypeDate: {
		model.OpIs, model.OpIsNot, model.OpIsAfter, model.OpIsOnOrAfter,
		model.OpIsBefore, model.OpIsOnOrBefore, model.OpIsEmpty, model.OpIsNotEmpty,
	},
	model.TypeBoolean: {
		model.OpIs, model.OpIsNot,
	},
	model.TypeEnumerated: {
		model.OpIs, model.OpIsNot, model.OpIsEmpty, model.OpIsNotEmpty,
	},
}

// Operators returns the operators legal for a value type.
func Operators(t model.ValueType) []model.Operator {
	return append([]model.Operator(nil), operatorsByType[t]...)
}

func operatorAllowed(t model.ValueType, op model.Operator) bool {
	for _, allowed := range operatorsByType[t] {
		if allowed == op {
			return true
		}
	}
	return false
}

func needsValue(op model.Operator) bool {
	return op != model.OpIsEmpty && op != model.OpIsNotEmpty
}

// compiledRule is a rule whose comparison value has been converted once to
// the rule's type.
type compiledRule struct {
	rule    model.FilterRule
	get     func(model.Record) (interface{}, bool)
	text    string
	number  float64
	day     time.Time
	boolean bool
}

// NewFilterRule builds a rule, rejecting operators that are illegal for the
// value type and value-requiring operators without a value.
func NewFilterRule(id, dimensionKey string, op model.Operator, value interface{}, valueType model.ValueType) (model.FilterRule, error) {
	rule := model.FilterRule{
		ID:           id,
		DimensionKey: dimensionKey,
		Operator:     op,
		Value:        value,
		ValueType:    valueType,
	}
	if _, err := compileRule(rule, nil); err != nil {
		return model.FilterRule{}, err
	}
	return rule, nil
}

func compileRule(rule model.FilterRule, get func(model.Record) (interface{}, bool)) (compiledRule, error) {
	if get == nil {
		key := rule.DimensionKey
		get = func(r model.Record) (interface{}, bool) {
			v, ok := r[key]
			return v, ok
		}
	}
	c := compiledRule{rule: rule, get: get}
	if rule.ValueType == "" {
		rule.ValueType = model.TypeText
		c.rule.ValueType = model.TypeText
	}
	if _, known := operatorsByType[rule.ValueType]; !known {
		return c, newError(KindInvalidFilterRule, rule.ID, "unknown value type %q", rule.ValueType)
	}
	if !operatorAllowed(rule.ValueType, rule.Operator) {
		return c, newError(KindInvalidFilterRule, rule.ID, "operator %q not valid for %s", rule.Operator, rule.ValueType)
	}
	if !needsValue(rule.Operator) {
		return c, nil
	}
	if rule.Value == nil {
		return c, newError(KindInvalidFilterRule, rule.ID, "operator %q needs a comparison value", rule.Operator)
	}

	var ok bool
	switch rule.ValueType {
	case model.TypeText:
		c.text, ok = strings.ToLower(utils.Text(rule.Value)), true
	case model.TypeEnumerated:
		c.text, ok = utils.Text(rule.Value), true
	case model.TypeNumber:
		c.number, ok = utils.Numeric(rule.Value)
	case model.TypeDate:
		var t time.Time
		t, ok = utils.Date(rule.Value)
		c.day = truncateDay(t)
	case model.TypeBoolean:
		c.boolean, ok = utils.Bool(rule.Value)
	}
	if !ok {
		return c, newError(KindInvalidFilterRule, rule.ID, "value %v is not a %s", rule.Value, rule.ValueType)
	}
	return c, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c compiledRule) eval(rec model.Record) bool {
	raw, present := c.get(rec)
	empty := !present || utils.IsEmpty(raw)

	switch c.rule.Operator {
	case model.OpIsEmpty:
		return empty
	case model.OpIsNotEmpty:
		return !empty
	}
	// missing data never satisfies a value predicate
	if empty {
		return false
	}

	switch c.rule.ValueType {
	case model.TypeText:
		return compareText(strings.ToLower(utils.Text(raw)), c.text, c.rule.Operator)
	case model.TypeEnumerated:
		return compareText(utils.Text(raw), c.text, c.rule.Operator)
	case model.TypeNumber:
		n, ok := utils.Numeric(raw)
		if !ok {
			return false
		}
		return compareNumber(n, c.number, c.rule.Operator)
	case model.TypeDate:
		t, ok := utils.Date(raw)
		if !ok {
			return false
		}
		return compareDay(truncateDay(t), c.day, c.rule.Operator)
	case model.TypeBoolean:
		b, ok := utils.Bool(raw)
		if !ok {
			return false
		}
		if c.rule.Operator == model.OpIs {
			return b == c.boolean
		}
		return b != c.boolean
	}
	return false
}

func compareText(v, want string, op model.Operator) bool {
	switch op {
	case model.OpIs:
		return v == want
	case model.OpIsNot:
		return v != want
	case model.OpContains:
		return strings.Contains(v, want)
	case model.OpNotContains:
		return !strings.Contains(v, want)
	case model.OpStartsWith:
		return strings.HasPrefix(v, want)
	case model.OpEndsWith:
		return strings.HasSuffix(v, want)
	}
	return false
}

func compareNumber(v, want float64, op model.Operator) bool {
	switch op {
	case model.OpIs:
		return v == want
	case model.OpIsNot:
		return v != want
	case model.OpGreaterThan:
		return v > want
	case model.OpGreaterThanEqual:
		return v >= want
	case model.OpLessThan:
		return v < want
	case model.OpLessThanEqual:
		return v <= want
	}
	return false
}

func compareDay(v, want time.Time, op model.Operator) bool {
	switch op {
	case model.OpIs:
		return v.Equal(want)
	case model.OpIsNot:
		return !v.Equal(want)
	case model.OpIsAfter:
		return v.After(want)
	case model.OpIsOnOrAfter:
		return !v.Before(want)
	case model.OpIsBefore:
		return v.Before(want)
	case model.OpIsOnOrBefore:
		return !v.After(want)
	}
	return false
}

// RuleSet is a compiled conjunction of filter rules.
type RuleSet struct {
	rules []compiledRule

	// Invalid holds the rules dropped in lenient mode.
	Invalid []error
}

// CompileRules validates and pre-converts rules. Rules without a dimension
// key or operator are skipped. In lenient mode malformed rules are dropped
// and reported in Invalid; in strict mode every problem is returned.
func CompileRules(rules []model.FilterRule, strict bool) (*RuleSet, error) {
	return compileRules(nil, rules, strict)
}

// CompileRulesFor is CompileRules reading record values through the
// catalog's dimension accessors.
func CompileRulesFor(c *Catalog, rules []model.FilterRule, strict bool) (*RuleSet, error) {
	return compileRules(c, rules, strict)
}

func compileRules(c *Catalog, rules []model.FilterRule, strict bool) (*RuleSet, error) {
	rs := &RuleSet{}
	var errs error
	for _, rule := range rules {
		if rule.DimensionKey == "" || rule.Operator == "" {
			continue
		}
		var get func(model.Record) (interface{}, bool)
		if c != nil {
			if dim, ok := c.Dimension(rule.DimensionKey); ok && dim.Accessor != nil {
				get = dim.Accessor
			}
		}
		compiled, err := compileRule(rule, get)
		if err != nil {
			errs = multierr.Append(errs, err)
			rs.Invalid = append(rs.Invalid, err)
			continue
		}
		rs.rules = append(rs.rules, compiled)
	}
	if strict && errs != nil {
		return nil, errs
	}
	return rs, nil
}

// Len is the number of active rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Matches reports whether the record satisfies every rule.
func (rs *RuleSet) Matches(rec model.Record) bool {
	for _, rule := range rs.rules {
		if !rule.eval(rec) {
			return false
		}
	}
	return true
}

// Apply keeps the matching records in their original order.
func (rs *RuleSet) Apply(records []model.Record) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		if rs.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Matches evaluates rules leniently against one record.
func Matches(rec model.Record, rules []model.FilterRule) bool {
	rs, _ := CompileRules(rules, false)
	return rs.Matches(rec)
}

// Apply filters records leniently, preserving order.
func Apply(records []model.Record, rules []model.FilterRule) []model.Record {
	rs, _ := CompileRules(rules, false)
	return rs.Apply(records)
}
