package pivot_test

import (
	"context"
	"encoding/json"
	"testing"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/internal/pivot"
	"go-retail-pivot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusDims() []model.Dimension {
	return []model.Dimension{{Key: "status", Label: "Status", Type: model.TypeEnumerated}}
}

func statusAggs() []model.AggregationSpec {
	return []model.AggregationSpec{
		{Reducer: model.ReducerCount, Label: "Count", Format: model.FormatCount},
		{Field: "total", Reducer: model.ReducerSum, Label: "Total", Format: model.FormatCurrency},
	}
}

func TestBuildGroupsByStatus(t *testing.T) {
	res, err := pivot.Build(t.Context(), testutil.StatusRecords(), statusDims(), statusAggs(), pivot.BuildOptions{})
	require.NoError(t, err)
	require.Len(t, res.Roots, 2)

	completed, cancelled := res.Roots[0], res.Roots[1]
	assert.Equal(t, "completed", completed.Value)
	assert.Equal(t, 150.0, completed.Aggregates["Total"])
	assert.Equal(t, 2.0, completed.Aggregates["Count"])
	assert.Equal(t, "cancelled", cancelled.Value)
	assert.Equal(t, 20.0, cancelled.Aggregates["Total"])
	assert.Equal(t, 1.0, cancelled.Aggregates["Count"])

	assert.True(t, completed.IsLeaf)
	assert.Len(t, completed.Members, 2)
	assert.Equal(t, 2, res.Nodes)
	assert.Equal(t, 2, res.Leaves)
	assert.Zero(t, res.Coercions)
}

func TestBuildMissingValueGroupsUnderUnknown(t *testing.T) {
	records := append(testutil.StatusRecords(),
		model.Record{"total": 5},
		model.Record{"status": "", "total": 7},
	)

	res, err := pivot.Build(t.Context(), records, statusDims(), statusAggs(), pivot.BuildOptions{})
	require.NoError(t, err)
	require.Len(t, res.Roots, 3)
	assert.Equal(t, pivot.UnknownValue, res.Roots[2].Value)
	assert.Equal(t, 12.0, res.Roots[2].Aggregates["Total"])
	assert.Equal(t, 2.0, res.Roots[2].Aggregates["Count"])
}

func TestBuildPartitionsRecords(t *testing.T) {
	records := testutil.RetailRecords()
	dims := []model.Dimension{
		{Key: "region", Label: "Region"},
		{Key: "channel", Label: "Channel"},
		{Key: "brand", Label: "Brand"},
	}
	aggs := []model.AggregationSpec{{Field: "ignored", Reducer: model.ReducerCount, Label: "Count"}}

	res, err := pivot.Build(t.Context(), records, dims, aggs, pivot.BuildOptions{})
	require.NoError(t, err)

	seen := map[interface{}]int{}
	var counted float64
	for _, leaf := range pivot.Leaves(res.Roots) {
		assert.Equal(t, 2, leaf.Level)
		counted += leaf.Aggregates["Count"]
		for _, rec := range leaf.Members {
			seen[rec["order_id"]]++
		}
	}
	assert.Equal(t, float64(len(records)), counted)
	require.Len(t, seen, len(records))
	for id, n := range seen {
		assert.Equal(t, 1, n, "record %v placed more than once", id)
	}
	assert.Zero(t, res.Coercions, "count never reads its source field")

	var rootCount float64
	for _, root := range res.Roots {
		rootCount += root.Aggregates["Count"]
		assert.Nil(t, root.Members, "only leaves keep members")
	}
	assert.Equal(t, float64(len(records)), rootCount)
}

func TestBuildAverageIsSumOverCount(t *testing.T) {
	records := []model.Record{
		{"store": "A", "total": 10.1},
		{"store": "A", "total": 20.2},
		{"store": "B", "total": 0.3},
		{"store": "A", "total": 30.3},
	}
	aggs := []model.AggregationSpec{
		{Field: "total", Reducer: model.ReducerSum, Label: "Sum"},
		{Field: "total", Reducer: model.ReducerAverage, Label: "Avg"},
		{Reducer: model.ReducerCount, Label: "Count"},
	}

	res, err := pivot.Build(t.Context(), records, []model.Dimension{{Key: "store"}}, aggs, pivot.BuildOptions{})
	require.NoError(t, err)
	pivot.Walk(res.Roots, func(n *pivot.PivotNode) bool {
		assert.InDelta(t, n.Aggregates["Sum"]/n.Aggregates["Count"], n.Aggregates["Avg"], 1e-9)
		return true
	})
	assert.InDelta(t, 20.2, res.Roots[0].Aggregates["Avg"], 1e-9)
}

func TestBuildMinMaxFirstValueWins(t *testing.T) {
	records := []model.Record{
		{"k": "x", "v": -5},
		{"k": "x", "v": -3},
		{"k": "y", "v": 7},
	}
	aggs := []model.AggregationSpec{
		{Field: "v", Reducer: model.ReducerMin, Label: "Min"},
		{Field: "v", Reducer: model.ReducerMax, Label: "Max"},
	}

	res, err := pivot.Build(t.Context(), records, []model.Dimension{{Key: "k"}}, aggs, pivot.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, -5.0, res.Roots[0].Aggregates["Min"])
	assert.Equal(t, -3.0, res.Roots[0].Aggregates["Max"])
	assert.Equal(t, 7.0, res.Roots[1].Aggregates["Min"])
	assert.Equal(t, 7.0, res.Roots[1].Aggregates["Max"])
}

func TestBuildCoercesNonNumeric(t *testing.T) {
	records := testutil.RetailRecords()
	aggs := []model.AggregationSpec{{Field: "total", Reducer: model.ReducerSum, Label: "Total"}}

	res, err := pivot.Build(t.Context(), records, []model.Dimension{{Key: "status"}}, aggs, pivot.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Coercions)
	require.Len(t, res.Roots, 3)
	assert.Equal(t, "cancelled", res.Roots[2].Value)
	assert.Equal(t, 0.0, res.Roots[2].Aggregates["Total"])

	_, err = pivot.Build(t.Context(), records, []model.Dimension{{Key: "status"}}, aggs, pivot.BuildOptions{Strict: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, pivot.ErrCoercionFallback)
}

func TestBuildIDsAreDeterministic(t *testing.T) {
	records := testutil.RetailRecords()
	dims := []model.Dimension{{Key: "region"}, {Key: "store"}}

	first, err := pivot.Build(t.Context(), records, dims, nil, pivot.BuildOptions{})
	require.NoError(t, err)
	second, err := pivot.Build(t.Context(), records[1:], dims, nil, pivot.BuildOptions{})
	require.NoError(t, err)

	ids := func(res *pivot.BuildResult) map[string]string {
		out := map[string]string{}
		pivot.Walk(res.Roots, func(n *pivot.PivotNode) bool {
			out[n.ID] = n.Value
			return true
		})
		return out
	}
	a, b := ids(first), ids(second)
	for id, value := range b {
		assert.Equal(t, value, a[id], "rebuilt node %s should keep its path id", value)
	}

	// the same store under two regions is two different nodes
	var downtown []string
	for id, value := range a {
		if value == "Downtown" {
			downtown = append(downtown, id)
		}
	}
	assert.Len(t, downtown, 2)
}

func TestBuildNodeLimit(t *testing.T) {
	_, err := pivot.Build(t.Context(), testutil.StatusRecords(), statusDims(), statusAggs(), pivot.BuildOptions{MaxNodes: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, pivot.ErrNodeLimit)
}

func TestBuildHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pivot.Build(ctx, testutil.StatusRecords(), statusDims(), statusAggs(), pivot.BuildOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildWithoutDimensions(t *testing.T) {
	res, err := pivot.Build(t.Context(), testutil.StatusRecords(), nil, statusAggs(), pivot.BuildOptions{})
	require.NoError(t, err)
	require.Len(t, res.Roots, 1)
	root := res.Roots[0]
	assert.Equal(t, pivot.AllValue, root.Value)
	assert.True(t, root.IsLeaf)
	assert.Len(t, root.Members, 3)
	assert.Equal(t, 170.0, root.Aggregates["Total"])
}

func TestBuildBucketsDates(t *testing.T) {
	cat := pivot.DefaultRetailCatalog()
	month, ok := cat.Dimension("order_month")
	require.True(t, ok)

	res, err := pivot.Build(t.Context(), testutil.RetailRecords(), []model.Dimension{month}, statusAggs(), pivot.BuildOptions{})
	require.NoError(t, err)
	require.Len(t, res.Roots, 2)
	assert.Equal(t, "2024-03", res.Roots[0].Value)
	assert.Equal(t, "2024-04", res.Roots[1].Value)
	assert.Equal(t, 2.0, res.Roots[1].Aggregates["Count"])
}

func TestBuildTreatsNonFiniteAsCoercion(t *testing.T) {
	records := []model.Record{
		{"status": "completed", "total": "NaN"},
		{"status": "completed", "total": 5.0},
		{"status": "completed", "total": "+Inf"},
	}
	aggs := []model.AggregationSpec{
		{Field: "total", Reducer: model.ReducerSum, Label: "Total"},
		{Field: "total", Reducer: model.ReducerAverage, Label: "Average"},
	}

	res, err := pivot.Build(t.Context(), records, statusDims(), aggs, pivot.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Coercions)
	require.Len(t, res.Roots, 1)
	assert.Equal(t, 5.0, res.Roots[0].Aggregates["Total"])
	assert.InDelta(t, 5.0/3, res.Roots[0].Aggregates["Average"], 1e-9)

	_, err = json.Marshal(pivot.Flatten(res.Roots, nil))
	assert.NoError(t, err)
}

func TestBuildUsesAggregationAccessor(t *testing.T) {
	records := []model.Record{
		{"status": "completed", "lines": []float64{2, 3}},
		{"status": "completed", "lines": []float64{4}},
	}
	aggs := []model.AggregationSpec{{
		Field:   "line_total",
		Reducer: model.ReducerSum,
		Label:   "Line Total",
		Accessor: func(r model.Record) (interface{}, bool) {
			lines, ok := r["lines"].([]float64)
			if !ok {
				return nil, false
			}
			sum := 0.0
			for _, l := range lines {
				sum += l
			}
			return sum, true
		},
	}}

	res, err := pivot.Build(t.Context(), records, statusDims(), aggs, pivot.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Coercions)
	assert.Equal(t, 9.0, res.Roots[0].Aggregates["Line Total"])
}

func TestBuildIDsKeepKeyAndValueApart(t *testing.T) {
	a, err := pivot.Build(t.Context(), []model.Record{{"a": "b=c"}}, []model.Dimension{{Key: "a"}}, nil, pivot.BuildOptions{})
	require.NoError(t, err)
	b, err := pivot.Build(t.Context(), []model.Record{{"a=b": "c"}}, []model.Dimension{{Key: "a=b"}}, nil, pivot.BuildOptions{})
	require.NoError(t, err)

	require.Len(t, a.Roots, 1)
	require.Len(t, b.Roots, 1)
	assert.NotEqual(t, a.Roots[0].ID, b.Roots[0].ID)
}
