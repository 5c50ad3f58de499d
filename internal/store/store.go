// Package store persists raw market rows, canonical price and arrival
// tables, derived summaries and the normalization run log behind a single
// interface with Postgres and SQLite backends.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mandi-pipeline/internal/model"
)

// Store defines the persistence interface for the normalization pipeline.
// All dates are ISO strings (YYYY-MM-DD).
type Store interface {
	// Raw rows. Seed and purge are the boundary with the upstream fetch
	// collaborators; the normalizer only reads, backfills codes and flips
	// the processed flag.
	SeedRaw(ctx context.Context, recs []model.RawRecord) (int64, error)
	PurgeRawDate(ctx context.Context, source model.Source, date string) (int, error)
	FetchUnprocessed(ctx context.Context, date string) ([]model.RawRecord, error)
	BackfillCode(ctx context.Context, source model.Source, rawID int64, code string) error
	MarkProcessed(ctx context.Context, source model.Source, date string, rawIDs []int64) error

	// Canonical tables. Upserts overwrite derived fields on natural-key
	// conflict (last write wins).
	UpsertPrice(ctx context.Context, rec model.PriceRecord) error
	UpsertArrival(ctx context.Context, rec model.ArrivalRecord) error
	PricesByRange(ctx context.Context, from, to, commodity string) ([]model.PriceRecord, error)
	ArrivalsByRange(ctx context.Context, from, to, commodity string) ([]model.ArrivalRecord, error)
	PurgeCanonicalDate(ctx context.Context, date string) (int, error)

	// Derived summaries.
	AvgDailyPrices(ctx context.Context, code, date string) ([]model.TrendSummary, error)
	UpsertTrend(ctx context.Context, ts model.TrendSummary) error
	TrendsByCode(ctx context.Context, code, from, to string) ([]model.TrendSummary, error)
	UpsertYield(ctx context.Context, ys model.YieldStat) error
	YieldByDate(ctx context.Context, date string) ([]model.YieldStat, error)

	// Run log.
	StartRun(ctx context.Context, date string) (int64, error)
	CompleteRun(ctx context.Context, runID int64, raw, processed, skipped int) error
	FailRun(ctx context.Context, runID int64, errMsg string) error
	ListRuns(ctx context.Context, limit int) ([]model.NormRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

func rawTable(source model.Source) (string, error) {
	switch source {
	case model.SourceAgmark:
		return "agmark_raw", nil
	case model.SourceEnam:
		return "enam_raw", nil
	default:
		return "", eris.Errorf("unknown source: %s", source)
	}
}
