// Package ingest loads raw price rows from delimited files into the store.
// It is the offline edge of the fetch-collaborator boundary: the scrapers
// hand over CSV drops, ingest validates and seeds them.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mandi-pipeline/internal/model"
	"github.com/sells-group/mandi-pipeline/internal/store"
)

// columns lists the required CSV header fields. arrival_qty and trace_id
// may be empty per row; the rest may not.
var columns = []string{
	"report_date", "state", "district", "market", "commodity", "unit",
	"min_price", "max_price", "modal_price", "arrival_qty", "trace_id",
}

// Result summarizes one file load.
type Result struct {
	Seeded    int64 `json:"seeded"`
	Malformed int   `json:"malformed"` // rows dropped for parse errors
}

// Loader parses raw-row CSV files and seeds them into the store.
type Loader struct {
	store store.Store
	log   *zap.Logger
}

func New(st store.Store) *Loader {
	return &Loader{
		store: st,
		log:   zap.L().With(zap.String("component", "ingest")),
	}
}

// LoadCSV reads one CSV file of raw rows for a source and seeds them.
// Malformed rows are logged and dropped; a malformed header fails the load.
func (l *Loader) LoadCSV(ctx context.Context, path string, source model.Source) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	recs, malformed, err := l.parse(ctx, f, source)
	if err != nil {
		return nil, err
	}

	n, err := l.store.SeedRaw(ctx, recs)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: seed %s", path)
	}
	l.log.Info("file loaded",
		zap.String("path", path),
		zap.String("source", string(source)),
		zap.Int64("seeded", n),
		zap.Int("malformed", malformed),
	)
	return &Result{Seeded: n, Malformed: malformed}, nil
}

func (l *Loader) parse(ctx context.Context, r io.Reader, source model.Source) ([]model.RawRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields, validated per row

	header, err := reader.Read()
	if err != nil {
		return nil, 0, eris.Wrap(err, "ingest: read header")
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, 0, err
	}

	var (
		recs      []model.RawRecord
		malformed int
		line      = 1
	)
	for {
		if ctx.Err() != nil {
			return nil, malformed, eris.Wrap(ctx.Err(), "ingest: context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			malformed++
			l.log.Warn("unreadable row dropped", zap.Int("line", line), zap.Error(err))
			continue
		}

		rec, err := parseRow(record, idx, source)
		if err != nil {
			malformed++
			l.log.Warn("malformed row dropped", zap.Int("line", line), zap.Error(err))
			continue
		}
		recs = append(recs, rec)
	}
	return recs, malformed, nil
}

// headerIndex maps each required column name to its position.
func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range columns {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("ingest: missing column %q", col)
		}
	}
	return idx, nil
}

func parseRow(record []string, idx map[string]int, source model.Source) (model.RawRecord, error) {
	field := func(name string) string {
		i := idx[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rec := model.RawRecord{
		Source:     source,
		ReportDate: field("report_date"),
		State:      field("state"),
		District:   field("district"),
		Market:     field("market"),
		Commodity:  field("commodity"),
		Unit:       field("unit"),
		TraceID:    field("trace_id"),
	}
	for _, name := range []string{"report_date", "state", "market", "commodity", "unit"} {
		if field(name) == "" {
			return model.RawRecord{}, eris.Errorf("ingest: empty %s", name)
		}
	}

	var err error
	if rec.MinPrice, err = strconv.ParseFloat(field("min_price"), 64); err != nil {
		return model.RawRecord{}, eris.Wrap(err, "ingest: min_price")
	}
	if rec.MaxPrice, err = strconv.ParseFloat(field("max_price"), 64); err != nil {
		return model.RawRecord{}, eris.Wrap(err, "ingest: max_price")
	}
	if rec.ModalPrice, err = strconv.ParseFloat(field("modal_price"), 64); err != nil {
		return model.RawRecord{}, eris.Wrap(err, "ingest: modal_price")
	}
	if raw := field("arrival_qty"); raw != "" {
		qty, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.RawRecord{}, eris.Wrap(err, "ingest: arrival_qty")
		}
		rec.ArrivalQty = &qty
	}
	return rec, nil
}
