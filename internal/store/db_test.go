package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-retail-pivot/internal/model"
	"go-retail-pivot/internal/testutil"
	"go-retail-pivot/pkg/utils"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := InitDB(":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImportAndLoadRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	n, err := s.ImportRecords(ctx, "orders", testutil.RetailRecords())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	records, err := s.LoadRecords(ctx, model.RecordQuery{Table: "orders"})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "SO-1001", records[0]["order_id"])
	assert.Equal(t, "SO-1004", records[3]["order_id"])

	total, ok := utils.Numeric(records[0]["total"])
	require.True(t, ok)
	assert.Equal(t, 120.0, total)

	day, ok := utils.Date(records[0]["order_date"])
	require.True(t, ok)
	assert.Equal(t, "2024-03-04", day.Format("2006-01-02"))

	returned, ok := utils.Bool(records[1]["is_return"])
	require.True(t, ok)
	assert.True(t, returned)
}

func TestLoadRecordsCoarseFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()
	_, err := s.ImportRecords(ctx, "orders", testutil.RetailRecords())
	require.NoError(t, err)

	from := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	records, err := s.LoadRecords(ctx, model.RecordQuery{Table: "orders", From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SO-1002", records[0]["order_id"])
	assert.Equal(t, "SO-1003", records[1]["order_id"])

	records, err = s.LoadRecords(ctx, model.RecordQuery{Table: "orders", Statuses: []string{"pending", "cancelled"}})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.LoadRecords(ctx, model.RecordQuery{Table: "orders", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLoadRecordsRejectsBadIdentifiers(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadRecords(t.Context(), model.RecordQuery{Table: "orders; DROP TABLE views"})
	assert.Error(t, err)
	_, err = s.LoadRecords(t.Context(), model.RecordQuery{Table: "orders", DateField: "1=1 OR date"})
	assert.Error(t, err)
	_, err = s.ImportRecords(t.Context(), "orders", []model.Record{{"bad column": 1}})
	assert.Error(t, err)
}

func TestImportAddsNewColumns(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	_, err := s.ImportRecords(ctx, "returns", []model.Record{{"sku": "A1"}})
	require.NoError(t, err)
	_, err = s.ImportRecords(ctx, "returns", []model.Record{{"sku": "B2", "reason": "damaged"}})
	require.NoError(t, err)

	records, err := s.LoadRecords(ctx, model.RecordQuery{Table: "returns"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.NotContains(t, records[0], "reason", "NULL columns are left out")
	assert.Equal(t, "damaged", records[1]["reason"])
}

func TestSavedViewLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := t.Context()

	spec := model.ViewSpec{
		Name:     "Sales by status",
		Source:   model.RecordQuery{Table: "orders"},
		GroupBy:  []string{"status"},
		Measures: []model.MeasureRef{{Field: "total", Reducer: model.ReducerSum}},
		Filters: []model.FilterRule{
			{ID: "f1", DimensionKey: "status", Operator: model.OpIsNot, Value: "cancelled", ValueType: model.TypeEnumerated},
		},
	}
	saved, err := s.SaveView(ctx, spec)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := s.GetView(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, spec.GroupBy, got.Spec.GroupBy)
	assert.Equal(t, "cancelled", got.Spec.Filters[0].Value)

	spec.Name = "Renamed"
	require.NoError(t, s.UpdateView(ctx, saved.ID, spec))

	views, err := s.ListViews(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Renamed", views[0].Spec.Name)

	require.NoError(t, s.DeleteView(ctx, saved.ID))
	_, err = s.GetView(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrViewNotFound)
	assert.ErrorIs(t, s.DeleteView(ctx, saved.ID), ErrViewNotFound)
	assert.ErrorIs(t, s.UpdateView(ctx, "missing", spec), ErrViewNotFound)
}

func TestWithRetryOnlyRetriesBusy(t *testing.T) {
	calls := 0
	err := withRetry(t.Context(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return sqlite3.Error{Code: sqlite3.ErrBusy}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	boom := errors.New("boom")
	err = withRetry(t.Context(), func(_ context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
