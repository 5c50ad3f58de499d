// Package aggregate maintains the derived trend and yield tables. Both
// refreshes are pure read-then-upsert and safe to re-invoke for a date.
package aggregate

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mandi-pipeline/internal/model"
	"github.com/sells-group/mandi-pipeline/internal/store"
)

// ComputeYield returns processed/raw as a percentage, 0 when raw is 0.
func ComputeYield(raw, processed int) float64 {
	if raw == 0 {
		return 0
	}
	return float64(processed) / float64(raw) * 100
}

// Aggregator recomputes trend summaries and yield stats from the canonical
// tables.
type Aggregator struct {
	store store.Store
	log   *zap.Logger
}

func New(st store.Store) *Aggregator {
	return &Aggregator{
		store: st,
		log:   zap.L().With(zap.String("component", "aggregate")),
	}
}

// RefreshTrends recomputes the daily trend summary for each given identity
// code on a date: average canonical price grouped by canonical unit, one
// row per unit found.
func (a *Aggregator) RefreshTrends(ctx context.Context, date string, codes []string) error {
	for _, code := range codes {
		trends, err := a.store.AvgDailyPrices(ctx, code, date)
		if err != nil {
			return eris.Wrapf(err, "aggregate: avg prices %s %s", code, date)
		}
		for _, ts := range trends {
			if err := a.store.UpsertTrend(ctx, ts); err != nil {
				return eris.Wrapf(err, "aggregate: upsert trend %s %s", code, date)
			}
		}
		a.log.Debug("trend refreshed",
			zap.String("code", code),
			zap.String("date", date),
			zap.Int("units", len(trends)),
		)
	}
	return nil
}

// RefreshYield upserts the yield stat for one date and source scope.
func (a *Aggregator) RefreshYield(ctx context.Context, date, scope string, raw, processed int) error {
	ys := model.YieldStat{
		ReportDate: date,
		Scope:      scope,
		RawCount:   raw,
		Processed:  processed,
		YieldPct:   ComputeYield(raw, processed),
	}
	if err := a.store.UpsertYield(ctx, ys); err != nil {
		return eris.Wrapf(err, "aggregate: upsert yield %s %s", date, scope)
	}
	return nil
}
