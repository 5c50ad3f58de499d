package normalizer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mandi-pipeline/internal/model"
	"github.com/sells-group/mandi-pipeline/internal/registry"
	"github.com/sells-group/mandi-pipeline/internal/resolve"
	"github.com/sells-group/mandi-pipeline/internal/store"
	"github.com/sells-group/mandi-pipeline/internal/units"
)

func newTestNormalizer(t *testing.T) (*Normalizer, store.Store, *registry.Registry) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewSQLite(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	reg, err := registry.Load(registry.NewFileStore(filepath.Join(dir, "data.json")))
	require.NoError(t, err)

	return New(st, reg, resolve.New(reg)), st, reg
}

func f64(v float64) *float64 { return &v }

func rawRow(source model.Source, date, market, commodity, unit string, modal float64) model.RawRecord {
	return model.RawRecord{
		Source:     source,
		ReportDate: date,
		State:      "maharashtra",
		District:   "central",
		Market:     market,
		Commodity:  commodity,
		Unit:       unit,
		MinPrice:   modal - 100,
		MaxPrice:   modal + 100,
		ModalPrice: modal,
		TraceID:    "tr-" + market + "-" + commodity,
	}
}

func TestRun_EmptyDateIsNoOp(t *testing.T) {
	n, st, _ := newTestNormalizer(t)
	ctx := context.Background()

	report, err := n.Run(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Zero(t, report.RawCount)
	assert.Zero(t, report.Processed)

	// The run is still logged, but no yield rows are written.
	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)

	stats, err := st.YieldByDate(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestRun_EndToEnd_OnionScenario(t *testing.T) {
	n, st, reg := newTestNormalizer(t)
	ctx := context.Background()

	quintal := rawRow(model.SourceAgmark, "2024-03-01", "pune", "Onion", "Quintal", 1200)
	variant := rawRow(model.SourceAgmark, "2024-03-01", "nashik", "onion", "Quintal", 1250)
	nos := rawRow(model.SourceAgmark, "2024-03-01", "rajkot", "Onion (Red)", "Nos", 40)

	_, err := st.SeedRaw(ctx, []model.RawRecord{quintal, variant, nos})
	require.NoError(t, err)

	report, err := n.Run(ctx, "2024-03-01")
	require.NoError(t, err)

	assert.Equal(t, 3, report.RawCount)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Minted)

	// All three variants resolved to the one minted identity.
	ids := reg.Commodities()
	require.Len(t, ids, 1)
	assert.Equal(t, "Onion", ids[0].Name)
	code := ids[0].Code

	prices, err := st.PricesByRange(ctx, "2024-03-01", "2024-03-01", "")
	require.NoError(t, err)
	require.Len(t, prices, 2)
	for _, p := range prices {
		assert.Equal(t, code, p.Code)
		assert.Equal(t, units.PerQuintal, p.Unit)
		assert.Equal(t, "Maharashtra", p.State)
	}

	trends, err := st.TrendsByCode(ctx, code, "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.InDelta(t, 1225.0, trends[0].AvgPrice, 1e-9)
	assert.Equal(t, units.PerQuintal, trends[0].Unit)

	stats, err := st.YieldByDate(ctx, "2024-03-01")
	require.NoError(t, err)
	require.Len(t, stats, 2) // AGMARK + ALL
	for _, ys := range stats {
		assert.Equal(t, 3, ys.RawCount)
		assert.Equal(t, 2, ys.Processed)
		assert.InDelta(t, 66.666, ys.YieldPct, 0.01)
	}

	// The "Nos" row stays unprocessed, with its identity backfilled for
	// the next run.
	remaining, err := st.FetchUnprocessed(ctx, "2024-03-01")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Onion (Red)", remaining[0].Commodity)
	require.NotNil(t, remaining[0].Code)
	assert.Equal(t, code, *remaining[0].Code)
}

func TestRun_ArrivalConversion(t *testing.T) {
	n, st, _ := newTestNormalizer(t)
	ctx := context.Background()

	row := rawRow(model.SourceEnam, "2024-03-01", "rajkot", "Onion", "Qui", 1100)
	row.ArrivalQty = f64(50)

	_, err := st.SeedRaw(ctx, []model.RawRecord{row})
	require.NoError(t, err)

	_, err = n.Run(ctx, "2024-03-01")
	require.NoError(t, err)

	arrivals, err := st.ArrivalsByRange(ctx, "2024-03-01", "2024-03-01", "")
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	assert.Equal(t, 5.0, arrivals[0].Quantity)
	assert.Equal(t, units.MetricTonnes, arrivals[0].Unit)
}

func TestRun_UnconvertibleArrivalUnitKeptVerbatim(t *testing.T) {
	n, st, _ := newTestNormalizer(t)
	ctx := context.Background()

	row := rawRow(model.SourceEnam, "2024-03-01", "rajkot", "Coconut", "Nos", 30)
	row.ArrivalQty = f64(1200)

	_, err := st.SeedRaw(ctx, []model.RawRecord{row})
	require.NoError(t, err)

	_, err = n.Run(ctx, "2024-03-01")
	require.NoError(t, err)

	arrivals, err := st.ArrivalsByRange(ctx, "2024-03-01", "2024-03-01", "")
	require.NoError(t, err)
	require.Len(t, arrivals, 1)
	assert.Equal(t, 1200.0, arrivals[0].Quantity)
	assert.Equal(t, "Nos", arrivals[0].Unit)
}

func TestRun_UnitConflict_QuintalWins(t *testing.T) {
	n, st, _ := newTestNormalizer(t)
	ctx := context.Background()

	_, err := st.SeedRaw(ctx, []model.RawRecord{
		rawRow(model.SourceAgmark, "2024-03-01", "pune", "Banana", "Nos", 30),
		rawRow(model.SourceEnam, "2024-03-01", "rajkot", "Banana", "Quintal", 1500),
	})
	require.NoError(t, err)

	report, err := n.Run(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Skipped)

	prices, err := st.PricesByRange(ctx, "2024-03-01", "2024-03-01", "")
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, model.SourceEnam, prices[0].Source)
	assert.Equal(t, units.PerQuintal, prices[0].Unit)
}

func TestRun_SecondRunIsNoOp(t *testing.T) {
	n, st, _ := newTestNormalizer(t)
	ctx := context.Background()

	_, err := st.SeedRaw(ctx, []model.RawRecord{
		rawRow(model.SourceAgmark, "2024-03-01", "pune", "Onion", "Quintal", 1200),
	})
	require.NoError(t, err)

	first, err := n.Run(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	second, err := n.Run(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Zero(t, second.RawCount)
	assert.Zero(t, second.Processed)
}

func TestRun_ReprocessingReproducesCanonicalRows(t *testing.T) {
	n, st, _ := newTestNormalizer(t)
	ctx := context.Background()

	rows := []model.RawRecord{
		rawRow(model.SourceAgmark, "2024-03-01", "pune", "Onion", "Quintal", 1200),
		rawRow(model.SourceAgmark, "2024-03-01", "nashik", "Onion", "Quintal", 1250),
	}
	_, err := st.SeedRaw(ctx, rows)
	require.NoError(t, err)

	_, err = n.Run(ctx, "2024-03-01")
	require.NoError(t, err)

	before, err := st.PricesByRange(ctx, "2024-03-01", "2024-03-01", "")
	require.NoError(t, err)
	require.Len(t, before, 2)

	// Force-reset the date the way the re-fetch collaborators do, then
	// run again.
	_, err = st.PurgeRawDate(ctx, model.SourceAgmark, "2024-03-01")
	require.NoError(t, err)
	_, err = st.SeedRaw(ctx, rows)
	require.NoError(t, err)

	report, err := n.Run(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Zero(t, report.Minted) // identity reused, not re-minted

	after, err := st.PricesByRange(ctx, "2024-03-01", "2024-03-01", "")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	trends, err := st.TrendsByCode(ctx, before[0].Code, "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.InDelta(t, 1225.0, trends[0].AvgPrice, 1e-9)
}

func TestRun_IdentityReusedAcrossDates(t *testing.T) {
	n, st, reg := newTestNormalizer(t)
	ctx := context.Background()

	_, err := st.SeedRaw(ctx, []model.RawRecord{
		rawRow(model.SourceAgmark, "2024-03-01", "pune", "Green Gram", "Quintal", 7000),
	})
	require.NoError(t, err)
	_, err = n.Run(ctx, "2024-03-01")
	require.NoError(t, err)

	_, err = st.SeedRaw(ctx, []model.RawRecord{
		rawRow(model.SourceAgmark, "2024-03-02", "pune", "GreenGram", "Quintal", 7100),
	})
	require.NoError(t, err)
	report, err := n.Run(ctx, "2024-03-02")
	require.NoError(t, err)

	assert.Zero(t, report.Minted)
	assert.Len(t, reg.Commodities(), 1)
}

func TestRun_EmptyCommodityNameCountedUnresolved(t *testing.T) {
	n, st, _ := newTestNormalizer(t)
	ctx := context.Background()

	_, err := st.SeedRaw(ctx, []model.RawRecord{
		rawRow(model.SourceAgmark, "2024-03-01", "pune", "  ", "Quintal", 1200),
		rawRow(model.SourceAgmark, "2024-03-01", "nashik", "Onion", "Quintal", 1250),
	})
	require.NoError(t, err)

	report, err := n.Run(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2, report.RawCount)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Unresolved)

	// Unresolved rows still count in the yield denominator.
	stats, err := st.YieldByDate(ctx, "2024-03-01")
	require.NoError(t, err)
	require.NotEmpty(t, stats)
	for _, ys := range stats {
		assert.Equal(t, 2, ys.RawCount)
		assert.InDelta(t, 50.0, ys.YieldPct, 1e-9)
	}
}

func TestWinningUnit_TieBrokenByFirstSeen(t *testing.T) {
	a := rawRow(model.SourceAgmark, "2024-03-01", "pune", "Onion", "Bag", 100)
	b := rawRow(model.SourceAgmark, "2024-03-01", "nashik", "Onion", "Cartload", 200)

	// Both units rank 10; the first-seen one wins.
	assert.Equal(t, "Bag", winningUnit([]*model.RawRecord{&a, &b}))
	assert.Equal(t, "Cartload", winningUnit([]*model.RawRecord{&b, &a}))
}
