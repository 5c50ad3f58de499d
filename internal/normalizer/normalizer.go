// Package normalizer orchestrates one normalization run per report date:
// resolve identities, pick a winning unit per commodity, write canonical
// price and arrival rows, then refresh the derived summaries.
package normalizer

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/mandi-pipeline/internal/aggregate"
	"github.com/sells-group/mandi-pipeline/internal/model"
	"github.com/sells-group/mandi-pipeline/internal/registry"
	"github.com/sells-group/mandi-pipeline/internal/resolve"
	"github.com/sells-group/mandi-pipeline/internal/store"
	"github.com/sells-group/mandi-pipeline/internal/units"
)

// Report summarizes one normalization run.
type Report struct {
	ReportDate string `json:"report_date"`
	RawCount   int    `json:"raw_count"`
	Processed  int    `json:"processed"`
	Skipped    int    `json:"skipped"`    // non-winning-unit rows, retried next run
	Unresolved int    `json:"unresolved"` // rows whose name resolved to nothing
	Minted     int    `json:"minted"`     // identities minted during the run
}

// Normalizer drives the raw → canonical state machine for one date at a
// time. A raw row either becomes processed in a run or stays unprocessed
// for the next one; there is no partial state.
type Normalizer struct {
	store    store.Store
	reg      *registry.Registry
	resolver *resolve.Resolver
	agg      *aggregate.Aggregator
	log      *zap.Logger

	// Per-date locks so one process cannot run the same date twice
	// concurrently. Cross-process serialization stays with the scheduler.
	mu     sync.Mutex
	byDate map[string]*sync.Mutex
}

func New(st store.Store, reg *registry.Registry, res *resolve.Resolver) *Normalizer {
	return &Normalizer{
		store:    st,
		reg:      reg,
		resolver: res,
		agg:      aggregate.New(st),
		log:      zap.L().With(zap.String("component", "normalizer")),
		byDate:   make(map[string]*sync.Mutex),
	}
}

func (n *Normalizer) dateLock(date string) *sync.Mutex {
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.byDate[date]
	if !ok {
		l = &sync.Mutex{}
		n.byDate[date] = l
	}
	return l
}

// Run normalizes all unprocessed raw rows for one ISO date. A run that
// finds no rows is a no-op, not an error. Per-row write failures are
// logged and skipped; the rows stay unprocessed for the next run.
func (n *Normalizer) Run(ctx context.Context, date string) (*Report, error) {
	lock := n.dateLock(date)
	lock.Lock()
	defer lock.Unlock()

	runID, err := n.store.StartRun(ctx, date)
	if err != nil {
		return nil, eris.Wrapf(err, "normalizer: start run %s", date)
	}

	report, err := n.run(ctx, date)
	if err != nil {
		if failErr := n.store.FailRun(ctx, runID, err.Error()); failErr != nil {
			n.log.Warn("could not record run failure", zap.Error(failErr))
		}
		return nil, err
	}

	if err := n.store.CompleteRun(ctx, runID, report.RawCount, report.Processed, report.Skipped); err != nil {
		return nil, eris.Wrapf(err, "normalizer: complete run %s", date)
	}

	n.log.Info("normalization run complete",
		zap.String("date", date),
		zap.Int("raw", report.RawCount),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("unresolved", report.Unresolved),
		zap.Int("minted", report.Minted),
	)
	return report, nil
}

func (n *Normalizer) run(ctx context.Context, date string) (*Report, error) {
	report := &Report{ReportDate: date}

	raws, err := n.store.FetchUnprocessed(ctx, date)
	if err != nil {
		return nil, eris.Wrapf(err, "normalizer: fetch unprocessed %s", date)
	}
	report.RawCount = len(raws)
	if len(raws) == 0 {
		n.log.Info("no unprocessed rows", zap.String("date", date))
		return report, nil
	}

	mintedBefore := len(n.reg.Commodities())

	// Resolve identities and backfill codes into the raw rows. A row whose
	// backfill write fails is left out of this run entirely.
	groups := make(map[string][]*model.RawRecord)
	for i := range raws {
		r := &raws[i]
		if r.Code == nil || *r.Code == "" {
			code, ok := n.resolver.Resolve(r.Commodity)
			if !ok {
				report.Unresolved++
				continue
			}
			if err := n.store.BackfillCode(ctx, r.Source, r.ID, code); err != nil {
				n.log.Warn("identity backfill failed, row skipped",
					zap.String("source", string(r.Source)),
					zap.Int64("raw_id", r.ID),
					zap.Error(err),
				)
				continue
			}
			r.Code = &code
		}
		groups[*r.Code] = append(groups[*r.Code], r)
	}
	report.Minted = len(n.reg.Commodities()) - mintedBefore

	caser := cases.Title(language.English)
	processedIDs := make(map[model.Source][]int64)
	var touched []string

	for code, group := range groups {
		winning := winningUnit(group)
		wrote := false
		for _, r := range group {
			if r.Unit != winning {
				report.Skipped++
				continue
			}
			if err := n.canonicalize(ctx, caser, code, r); err != nil {
				n.log.Warn("canonical write failed, row skipped",
					zap.String("source", string(r.Source)),
					zap.Int64("raw_id", r.ID),
					zap.Error(err),
				)
				continue
			}
			processedIDs[r.Source] = append(processedIDs[r.Source], r.ID)
			report.Processed++
			wrote = true
		}
		if wrote {
			touched = append(touched, code)
		}
	}

	for source, ids := range processedIDs {
		if err := n.store.MarkProcessed(ctx, source, date, ids); err != nil {
			return nil, eris.Wrapf(err, "normalizer: mark processed %s %s", source, date)
		}
	}

	if err := n.refreshYield(ctx, date, raws, processedIDs); err != nil {
		return nil, err
	}

	sort.Strings(touched)
	if err := n.agg.RefreshTrends(ctx, date, touched); err != nil {
		return nil, err
	}
	return report, nil
}

// canonicalize writes the canonical price row, and the arrival row when
// the raw record carries an arrival quantity.
func (n *Normalizer) canonicalize(ctx context.Context, caser cases.Caser, code string, r *model.RawRecord) error {
	price := model.PriceRecord{
		ReportDate: r.ReportDate,
		Source:     r.Source,
		State:      caser.String(r.State),
		District:   caser.String(r.District),
		Market:     caser.String(r.Market),
		Commodity:  r.Commodity,
		Code:       code,
		MinPrice:   r.MinPrice,
		MaxPrice:   r.MaxPrice,
		ModalPrice: r.ModalPrice,
		Unit:       units.Standardize(r.Unit),
		TraceID:    r.TraceID,
	}
	if err := n.store.UpsertPrice(ctx, price); err != nil {
		return err
	}

	if r.ArrivalQty == nil {
		return nil
	}
	qty, unit, _ := units.ToTonnes(*r.ArrivalQty, r.Unit)
	arrival := model.ArrivalRecord{
		ReportDate: r.ReportDate,
		Source:     r.Source,
		State:      price.State,
		Market:     price.Market,
		Commodity:  r.Commodity,
		Code:       code,
		Quantity:   qty,
		Unit:       unit,
		TraceID:    r.TraceID,
	}
	return n.store.UpsertArrival(ctx, arrival)
}

// refreshYield upserts one yield stat per source present plus the combined
// scope. The raw denominator is everything fetched, including unresolved
// and skipped rows.
func (n *Normalizer) refreshYield(ctx context.Context, date string, raws []model.RawRecord, processedIDs map[model.Source][]int64) error {
	rawBySource := make(map[model.Source]int)
	for _, r := range raws {
		rawBySource[r.Source]++
	}

	var totalProcessed int
	for source, raw := range rawBySource {
		processed := len(processedIDs[source])
		totalProcessed += processed
		if err := n.agg.RefreshYield(ctx, date, string(source), raw, processed); err != nil {
			return err
		}
	}
	return n.agg.RefreshYield(ctx, date, model.YieldScopeAll, len(raws), totalProcessed)
}

// winningUnit picks the unit every canonical row for this identity/date
// must carry: distinct raw units ranked by standardizer priority, ties
// broken by first-seen order.
func winningUnit(group []*model.RawRecord) string {
	var seen []string
	known := make(map[string]bool)
	for _, r := range group {
		if !known[r.Unit] {
			known[r.Unit] = true
			seen = append(seen, r.Unit)
		}
	}
	sort.SliceStable(seen, func(i, j int) bool {
		return units.Priority(seen[i]) < units.Priority(seen[j])
	})
	return seen[0]
}
