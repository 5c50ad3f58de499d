package aggregate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mandi-pipeline/internal/model"
	"github.com/sells-group/mandi-pipeline/internal/store"
	"github.com/sells-group/mandi-pipeline/internal/units"
)

func newTestAggregator(t *testing.T) (*Aggregator, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st), st
}

func TestComputeYield(t *testing.T) {
	assert.InDelta(t, 70.0, ComputeYield(10, 7), 1e-9)
	assert.InDelta(t, 100.0, ComputeYield(3, 3), 1e-9)
	assert.InDelta(t, 66.666, ComputeYield(3, 2), 0.01)
	assert.Zero(t, ComputeYield(0, 0)) // no division by zero
}

func price(date, market string, modal float64, unit string) model.PriceRecord {
	return model.PriceRecord{
		ReportDate: date,
		Source:     model.SourceAgmark,
		State:      "Maharashtra",
		Market:     market,
		Commodity:  "Onion",
		Code:       "VAAR5",
		MinPrice:   modal - 100,
		MaxPrice:   modal + 100,
		ModalPrice: modal,
		Unit:       unit,
		TraceID:    "t",
	}
}

func TestRefreshTrends_OneRowPerUnit(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertPrice(ctx, price("2024-03-01", "Pune", 1200, units.PerQuintal)))
	require.NoError(t, st.UpsertPrice(ctx, price("2024-03-01", "Nashik", 1250, units.PerQuintal)))
	require.NoError(t, st.UpsertPrice(ctx, price("2024-03-01", "Rajkot", 30, units.PerUnit)))

	require.NoError(t, agg.RefreshTrends(ctx, "2024-03-01", []string{"VAAR5"}))

	trends, err := st.TrendsByCode(ctx, "VAAR5", "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, units.PerQuintal, trends[0].Unit)
	assert.InDelta(t, 1225.0, trends[0].AvgPrice, 1e-9)
	assert.Equal(t, units.PerUnit, trends[1].Unit)
	assert.InDelta(t, 30.0, trends[1].AvgPrice, 1e-9)
}

func TestRefreshTrends_Reinvocable(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertPrice(ctx, price("2024-03-01", "Pune", 1200, units.PerQuintal)))
	require.NoError(t, agg.RefreshTrends(ctx, "2024-03-01", []string{"VAAR5"}))

	// A later price for the same key shifts the average on refresh.
	require.NoError(t, st.UpsertPrice(ctx, price("2024-03-01", "Pune", 1300, units.PerQuintal)))
	require.NoError(t, agg.RefreshTrends(ctx, "2024-03-01", []string{"VAAR5"}))

	trends, err := st.TrendsByCode(ctx, "VAAR5", "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.InDelta(t, 1300.0, trends[0].AvgPrice, 1e-9)
}

func TestRefreshTrends_NoPricesWritesNothing(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, agg.RefreshTrends(ctx, "2024-03-01", []string{"VAAR9"}))

	trends, err := st.TrendsByCode(ctx, "VAAR9", "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	assert.Empty(t, trends)
}

func TestRefreshYield(t *testing.T) {
	agg, st := newTestAggregator(t)
	ctx := context.Background()

	require.NoError(t, agg.RefreshYield(ctx, "2024-03-01", model.YieldScopeAll, 10, 7))

	stats, err := st.YieldByDate(ctx, "2024-03-01")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, model.YieldScopeAll, stats[0].Scope)
	assert.InDelta(t, 70.0, stats[0].YieldPct, 1e-9)
}
