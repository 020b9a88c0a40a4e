package pivot_test

import (
	"testing"
	"time"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/internal/pivot"
	"go-retail-pivot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func rule(dim string, op model.Operator, value interface{}, vt model.ValueType) model.FilterRule {
	return model.FilterRule{ID: dim + "-" + string(op), DimensionKey: dim, Operator: op, Value: value, ValueType: vt}
}

func TestNewFilterRule(t *testing.T) {
	tests := []struct {
		name    string
		op      model.Operator
		value   interface{}
		vt      model.ValueType
		wantErr bool
	}{
		{"text contains", model.OpContains, "aud", model.TypeText, false},
		{"empty needs no value", model.OpIsEmpty, nil, model.TypeNumber, false},
		{"empty string is a value", model.OpIs, "", model.TypeText, false},
		{"boolean has no contains", model.OpContains, "x", model.TypeBoolean, true},
		{"enumerated has no starts_with", model.OpStartsWith, "c", model.TypeEnumerated, true},
		{"number has no is_after", model.OpIsAfter, 3, model.TypeNumber, true},
		{"missing value", model.OpGreaterThan, nil, model.TypeNumber, true},
		{"value not a number", model.OpGreaterThan, "lots", model.TypeNumber, true},
		{"value not a date", model.OpIsBefore, "soon", model.TypeDate, true},
		{"unknown type", model.OpIs, "x", model.ValueType("money"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := pivot.NewFilterRule("r1", "field", tt.op, tt.value, tt.vt)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, pivot.ErrInvalidFilterRule)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "field", r.DimensionKey)
		})
	}
}

func TestMatchesText(t *testing.T) {
	rec := model.Record{"brand": "Acme Audio"}
	tests := []struct {
		op    model.Operator
		value string
		want  bool
	}{
		{model.OpIs, "ACME AUDIO", true},
		{model.OpIsNot, "acme audio", false},
		{model.OpContains, "AUDIO", true},
		{model.OpNotContains, "video", true},
		{model.OpStartsWith, "acme", true},
		{model.OpEndsWith, "Acme", false},
		{model.OpIsEmpty, "", false},
		{model.OpIsNotEmpty, "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, pivot.Matches(rec, []model.FilterRule{rule("brand", tt.op, tt.value, model.TypeText)}))
		})
	}
}

func TestMissingValueNeverSatisfiesPredicate(t *testing.T) {
	missing := model.Record{"other": 1}
	blank := model.Record{"brand": "   "}

	for _, rec := range []model.Record{missing, blank} {
		assert.False(t, pivot.Matches(rec, []model.FilterRule{rule("brand", model.OpIs, "", model.TypeText)}))
		assert.False(t, pivot.Matches(rec, []model.FilterRule{rule("brand", model.OpIsNot, "acme", model.TypeText)}))
		assert.False(t, pivot.Matches(rec, []model.FilterRule{rule("brand", model.OpNotContains, "acme", model.TypeText)}))
		assert.True(t, pivot.Matches(rec, []model.FilterRule{rule("brand", model.OpIsEmpty, nil, model.TypeText)}))
		assert.False(t, pivot.Matches(rec, []model.FilterRule{rule("brand", model.OpIsNotEmpty, nil, model.TypeText)}))
	}
}

func TestMatchesNumber(t *testing.T) {
	records := testutil.RetailRecords()

	got := pivot.Apply(records, []model.FilterRule{rule("total", model.OpGreaterThan, 100, model.TypeNumber)})
	require.Len(t, got, 2)
	assert.Equal(t, "SO-1001", got[0]["order_id"])
	assert.Equal(t, "SO-1003", got[1]["order_id"])

	// "n/a" is not a number and fails every value predicate
	got = pivot.Apply(records, []model.FilterRule{rule("total", model.OpLessThanEqual, 1000, model.TypeNumber)})
	assert.Len(t, got, 3)

	got = pivot.Apply(records, []model.FilterRule{rule("quantity", model.OpIs, "1", model.TypeNumber)})
	assert.Len(t, got, 2)
}

func TestMatchesDateIgnoresTimeOfDay(t *testing.T) {
	rec := model.Record{"order_date": time.Date(2024, 3, 4, 17, 45, 0, 0, time.UTC)}

	assert.True(t, pivot.Matches(rec, []model.FilterRule{rule("order_date", model.OpIs, "2024-03-04", model.TypeDate)}))
	assert.False(t, pivot.Matches(rec, []model.FilterRule{rule("order_date", model.OpIsAfter, "2024-03-04", model.TypeDate)}))
	assert.True(t, pivot.Matches(rec, []model.FilterRule{rule("order_date", model.OpIsOnOrAfter, "2024-03-04", model.TypeDate)}))
	assert.True(t, pivot.Matches(rec, []model.FilterRule{rule("order_date", model.OpIsBefore, "2024-03-05", model.TypeDate)}))
	assert.True(t, pivot.Matches(rec, []model.FilterRule{rule("order_date", model.OpIsOnOrBefore, "2024-03-04T00:00:00Z", model.TypeDate)}))
	assert.True(t, pivot.Matches(model.Record{"order_date": "2024-03-04 09:00:00"},
		[]model.FilterRule{rule("order_date", model.OpIs, "03/04/2024", model.TypeDate)}))
}

func TestMatchesBooleanAndEnumerated(t *testing.T) {
	rec := model.Record{"is_return": "yes", "status": "completed"}

	assert.True(t, pivot.Matches(rec, []model.FilterRule{rule("is_return", model.OpIs, true, model.TypeBoolean)}))
	assert.False(t, pivot.Matches(rec, []model.FilterRule{rule("is_return", model.OpIsNot, true, model.TypeBoolean)}))
	assert.True(t, pivot.Matches(rec, []model.FilterRule{rule("status", model.OpIs, "completed", model.TypeEnumerated)}))
	assert.False(t, pivot.Matches(rec, []model.FilterRule{rule("status", model.OpIs, "Completed", model.TypeEnumerated)}))
}

func TestIncompleteAndMalformedRulesAreVacuous(t *testing.T) {
	records := testutil.StatusRecords()
	rules := []model.FilterRule{
		{ID: "no-op", DimensionKey: "status", ValueType: model.TypeText},
		{ID: "no-dim", Operator: model.OpIs, Value: "x"},
		rule("status", model.OpContains, "x", model.TypeBoolean),
		rule("total", model.OpGreaterThan, nil, model.TypeNumber),
	}

	assert.Equal(t, records, pivot.Apply(records, rules))

	rs, err := pivot.CompileRules(rules, false)
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.Len(t, rs.Invalid, 2)
}

func TestCompileRulesStrict(t *testing.T) {
	rules := []model.FilterRule{
		rule("status", model.OpIs, "completed", model.TypeEnumerated),
		rule("status", model.OpContains, "x", model.TypeBoolean),
		rule("total", model.OpGreaterThan, nil, model.TypeNumber),
	}

	rs, err := pivot.CompileRules(rules, true)
	require.Error(t, err)
	assert.Nil(t, rs)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, pivot.ErrInvalidFilterRule)
}

func TestApplyProperties(t *testing.T) {
	records := testutil.RetailRecords()
	ruleSets := [][]model.FilterRule{
		nil,
		{rule("region", model.OpIs, "north", model.TypeText)},
		{rule("channel", model.OpIs, "online", model.TypeEnumerated), rule("total", model.OpGreaterThan, 0, model.TypeNumber)},
		{rule("salesperson", model.OpIsEmpty, nil, model.TypeText)},
		{rule("order_date", model.OpIsBefore, "2024-04-01", model.TypeDate)},
	}

	for _, rules := range ruleSets {
		once := pivot.Apply(records, rules)

		// subset, in original order
		j := 0
		for _, rec := range once {
			for j < len(records) && records[j]["order_id"] != rec["order_id"] {
				j++
			}
			require.Less(t, j, len(records), "record %v out of order or not in input", rec["order_id"])
			j++
		}

		assert.Equal(t, once, pivot.Apply(once, rules))
	}
}

func TestScenarioFilterThenRebuild(t *testing.T) {
	records := testutil.StatusRecords()
	filtered := pivot.Apply(records, []model.FilterRule{rule("status", model.OpIs, "completed", model.TypeEnumerated)})
	require.Len(t, filtered, 2)

	res, err := pivot.Build(t.Context(), filtered, statusDims(), statusAggs(), pivot.BuildOptions{})
	require.NoError(t, err)
	require.Len(t, res.Roots, 1)
	assert.Equal(t, "completed", res.Roots[0].Value)
}

func TestCompileRulesForUsesAccessor(t *testing.T) {
	cat := pivot.DefaultRetailCatalog()
	rec := model.Record{"order_date": "2024-03-04"}

	rs, err := pivot.CompileRulesFor(cat, []model.FilterRule{rule("order_month", model.OpIsOnOrAfter, "2024-03-01", model.TypeDate)}, true)
	require.NoError(t, err)
	assert.True(t, rs.Matches(rec))
}
