package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/mandi-pipeline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS agmark_raw (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	report_date TEXT NOT NULL,
	state       TEXT NOT NULL,
	district    TEXT NOT NULL DEFAULT '',
	market      TEXT NOT NULL,
	commodity   TEXT NOT NULL,
	unit        TEXT NOT NULL,
	min_price   REAL NOT NULL DEFAULT 0,
	max_price   REAL NOT NULL DEFAULT 0,
	modal_price REAL NOT NULL DEFAULT 0,
	arrival_qty REAL,
	code        TEXT,
	trace_id    TEXT NOT NULL DEFAULT '',
	processed   INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (report_date, state, district, market, commodity)
);

CREATE TABLE IF NOT EXISTS enam_raw (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	report_date TEXT NOT NULL,
	state       TEXT NOT NULL,
	district    TEXT NOT NULL DEFAULT '',
	market      TEXT NOT NULL,
	commodity   TEXT NOT NULL,
	unit        TEXT NOT NULL,
	min_price   REAL NOT NULL DEFAULT 0,
	max_price   REAL NOT NULL DEFAULT 0,
	modal_price REAL NOT NULL DEFAULT 0,
	arrival_qty REAL,
	code        TEXT,
	trace_id    TEXT NOT NULL DEFAULT '',
	processed   INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (report_date, state, district, market, commodity)
);

CREATE TABLE IF NOT EXISTS common_prices (
	id          TEXT PRIMARY KEY,
	report_date TEXT NOT NULL,
	source      TEXT NOT NULL,
	state       TEXT NOT NULL,
	district    TEXT NOT NULL DEFAULT '',
	market      TEXT NOT NULL,
	commodity   TEXT NOT NULL,
	code        TEXT NOT NULL,
	min_price   REAL NOT NULL,
	max_price   REAL NOT NULL,
	modal_price REAL NOT NULL,
	unit        TEXT NOT NULL,
	trace_id    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (report_date, source, state, market, commodity)
);

CREATE TABLE IF NOT EXISTS common_arrivals (
	id          TEXT PRIMARY KEY,
	report_date TEXT NOT NULL,
	source      TEXT NOT NULL,
	state       TEXT NOT NULL,
	market      TEXT NOT NULL,
	commodity   TEXT NOT NULL,
	code        TEXT NOT NULL,
	quantity    REAL NOT NULL,
	unit        TEXT NOT NULL,
	trace_id    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (report_date, source, state, market, commodity)
);

CREATE TABLE IF NOT EXISTS trend_summaries (
	id          TEXT PRIMARY KEY,
	code        TEXT NOT NULL,
	report_date TEXT NOT NULL,
	period_type TEXT NOT NULL,
	avg_price   REAL NOT NULL,
	unit        TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (code, report_date, period_type, unit)
);

CREATE TABLE IF NOT EXISTS yield_stats (
	id              TEXT PRIMARY KEY,
	report_date     TEXT NOT NULL,
	scope           TEXT NOT NULL,
	raw_count       INTEGER NOT NULL,
	processed_count INTEGER NOT NULL,
	yield_pct       REAL NOT NULL,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (report_date, scope)
);

CREATE TABLE IF NOT EXISTS norm_runs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	report_date     TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	started_at      DATETIME NOT NULL,
	completed_at    DATETIME,
	raw_count       INTEGER NOT NULL DEFAULT 0,
	processed_count INTEGER NOT NULL DEFAULT 0,
	skipped_count   INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_agmark_raw_date_processed ON agmark_raw(report_date, processed);
CREATE INDEX IF NOT EXISTS idx_enam_raw_date_processed ON enam_raw(report_date, processed);
CREATE INDEX IF NOT EXISTS idx_common_prices_date ON common_prices(report_date);
CREATE INDEX IF NOT EXISTS idx_common_prices_code_date ON common_prices(code, report_date);
CREATE INDEX IF NOT EXISTS idx_common_arrivals_date ON common_arrivals(report_date);
CREATE INDEX IF NOT EXISTS idx_trend_summaries_code_date ON trend_summaries(code, report_date);
CREATE INDEX IF NOT EXISTS idx_norm_runs_date ON norm_runs(report_date);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SeedRaw(ctx context.Context, recs []model.RawRecord) (int64, error) {
	var total int64
	for _, r := range recs {
		table, err := rawTable(r.Source)
		if err != nil {
			return total, err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO `+table+` (report_date, state, district, market, commodity, unit,
				min_price, max_price, modal_price, arrival_qty, code, trace_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (report_date, state, district, market, commodity) DO UPDATE SET
				unit = excluded.unit,
				min_price = excluded.min_price,
				max_price = excluded.max_price,
				modal_price = excluded.modal_price,
				arrival_qty = excluded.arrival_qty,
				trace_id = excluded.trace_id`,
			r.ReportDate, r.State, r.District, r.Market, r.Commodity, r.Unit,
			r.MinPrice, r.MaxPrice, r.ModalPrice, r.ArrivalQty, r.Code, r.TraceID,
		)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: seed %s", table)
		}
		total++
	}
	return total, nil
}

func (s *SQLiteStore) PurgeRawDate(ctx context.Context, source model.Source, date string) (int, error) {
	table, err := rawTable(source)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE report_date = ?`, date)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: purge %s %s", table, date)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "rows affected")
	}
	return int(n), nil
}

func (s *SQLiteStore) FetchUnprocessed(ctx context.Context, date string) ([]model.RawRecord, error) {
	var out []model.RawRecord
	for _, source := range []model.Source{model.SourceAgmark, model.SourceEnam} {
		table, _ := rawTable(source)
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, report_date, state, district, market, commodity, unit,
				min_price, max_price, modal_price, arrival_qty, code, trace_id, processed
			FROM `+table+` WHERE report_date = ? AND processed = 0 ORDER BY id`,
			date,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: fetch unprocessed %s", table)
		}
		for rows.Next() {
			var r model.RawRecord
			r.Source = source
			if err := rows.Scan(&r.ID, &r.ReportDate, &r.State, &r.District, &r.Market,
				&r.Commodity, &r.Unit, &r.MinPrice, &r.MaxPrice, &r.ModalPrice,
				&r.ArrivalQty, &r.Code, &r.TraceID, &r.Processed); err != nil {
				rows.Close()
				return nil, eris.Wrapf(err, "sqlite: scan %s", table)
			}
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, eris.Wrapf(err, "sqlite: fetch unprocessed %s", table)
		}
		rows.Close()
	}
	return out, nil
}

func (s *SQLiteStore) BackfillCode(ctx context.Context, source model.Source, rawID int64, code string) error {
	table, err := rawTable(source)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE `+table+` SET code = ? WHERE id = ?`, code, rawID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: backfill code %s %d", table, rawID)
	}
	return checkRowsAffected(res, "raw row", table)
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, source model.Source, date string, rawIDs []int64) error {
	if len(rawIDs) == 0 {
		return nil
	}
	table, err := rawTable(source)
	if err != nil {
		return err
	}
	placeholders := strings.Repeat("?,", len(rawIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(rawIDs)+1)
	args = append(args, date)
	for _, id := range rawIDs {
		args = append(args, id)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE `+table+` SET processed = 1 WHERE report_date = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	return eris.Wrapf(err, "sqlite: mark processed %s %s", table, date)
}

func (s *SQLiteStore) UpsertPrice(ctx context.Context, rec model.PriceRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO common_prices
			(id, report_date, source, state, district, market, commodity, code, min_price, max_price, modal_price, unit, trace_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_date, source, state, market, commodity) DO UPDATE SET
			district = excluded.district,
			code = excluded.code,
			min_price = excluded.min_price,
			max_price = excluded.max_price,
			modal_price = excluded.modal_price,
			unit = excluded.unit,
			trace_id = excluded.trace_id,
			updated_at = datetime('now')`,
		id, rec.ReportDate, string(rec.Source), rec.State, rec.District, rec.Market,
		rec.Commodity, rec.Code, rec.MinPrice, rec.MaxPrice, rec.ModalPrice,
		rec.Unit, rec.TraceID,
	)
	return eris.Wrap(err, "sqlite: upsert price")
}

func (s *SQLiteStore) UpsertArrival(ctx context.Context, rec model.ArrivalRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO common_arrivals
			(id, report_date, source, state, market, commodity, code, quantity, unit, trace_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_date, source, state, market, commodity) DO UPDATE SET
			code = excluded.code,
			quantity = excluded.quantity,
			unit = excluded.unit,
			trace_id = excluded.trace_id,
			updated_at = datetime('now')`,
		id, rec.ReportDate, string(rec.Source), rec.State, rec.Market,
		rec.Commodity, rec.Code, rec.Quantity, rec.Unit, rec.TraceID,
	)
	return eris.Wrap(err, "sqlite: upsert arrival")
}

func (s *SQLiteStore) PricesByRange(ctx context.Context, from, to, commodity string) ([]model.PriceRecord, error) {
	query := `SELECT id, report_date, source, state, district, market, commodity, code,
		min_price, max_price, modal_price, unit, trace_id
	FROM common_prices WHERE report_date >= ? AND report_date <= ?`
	args := []any{from, to}
	if commodity != "" {
		query += ` AND commodity = ?`
		args = append(args, commodity)
	}
	query += ` ORDER BY report_date, source, state, market, commodity`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prices by range")
	}
	defer rows.Close()

	var out []model.PriceRecord
	for rows.Next() {
		var p model.PriceRecord
		if err := rows.Scan(&p.ID, &p.ReportDate, &p.Source, &p.State, &p.District,
			&p.Market, &p.Commodity, &p.Code, &p.MinPrice, &p.MaxPrice,
			&p.ModalPrice, &p.Unit, &p.TraceID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan price")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: prices by range")
}

func (s *SQLiteStore) ArrivalsByRange(ctx context.Context, from, to, commodity string) ([]model.ArrivalRecord, error) {
	query := `SELECT id, report_date, source, state, market, commodity, code, quantity, unit, trace_id
	FROM common_arrivals WHERE report_date >= ? AND report_date <= ?`
	args := []any{from, to}
	if commodity != "" {
		query += ` AND commodity = ?`
		args = append(args, commodity)
	}
	query += ` ORDER BY report_date, source, state, market, commodity`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: arrivals by range")
	}
	defer rows.Close()

	var out []model.ArrivalRecord
	for rows.Next() {
		var a model.ArrivalRecord
		if err := rows.Scan(&a.ID, &a.ReportDate, &a.Source, &a.State, &a.Market,
			&a.Commodity, &a.Code, &a.Quantity, &a.Unit, &a.TraceID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan arrival")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: arrivals by range")
}

func (s *SQLiteStore) PurgeCanonicalDate(ctx context.Context, date string) (int, error) {
	var total int
	for _, table := range []string{"common_prices", "common_arrivals", "trend_summaries", "yield_stats"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE report_date = ?`, date)
		if err != nil {
			return total, eris.Wrapf(err, "sqlite: purge %s %s", table, date)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, eris.Wrap(err, "rows affected")
		}
		total += int(n)
	}
	return total, nil
}

func (s *SQLiteStore) AvgDailyPrices(ctx context.Context, code, date string) ([]model.TrendSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, report_date, AVG(modal_price), unit
		FROM common_prices WHERE code = ? AND report_date = ?
		GROUP BY code, report_date, unit ORDER BY unit`,
		code, date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: avg daily prices")
	}
	defer rows.Close()

	var out []model.TrendSummary
	for rows.Next() {
		ts := model.TrendSummary{PeriodType: model.PeriodDaily}
		if err := rows.Scan(&ts.Code, &ts.ReportDate, &ts.AvgPrice, &ts.Unit); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan avg price")
		}
		out = append(out, ts)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: avg daily prices")
}

func (s *SQLiteStore) UpsertTrend(ctx context.Context, ts model.TrendSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trend_summaries (id, code, report_date, period_type, avg_price, unit)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (code, report_date, period_type, unit) DO UPDATE SET
			avg_price = excluded.avg_price,
			updated_at = datetime('now')`,
		uuid.New().String(), ts.Code, ts.ReportDate, ts.PeriodType, ts.AvgPrice, ts.Unit,
	)
	return eris.Wrap(err, "sqlite: upsert trend")
}

func (s *SQLiteStore) TrendsByCode(ctx context.Context, code, from, to string) ([]model.TrendSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, report_date, period_type, avg_price, unit
		FROM trend_summaries
		WHERE code = ? AND report_date >= ? AND report_date <= ?
		ORDER BY report_date, unit`,
		code, from, to,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: trends by code")
	}
	defer rows.Close()

	var out []model.TrendSummary
	for rows.Next() {
		var ts model.TrendSummary
		if err := rows.Scan(&ts.Code, &ts.ReportDate, &ts.PeriodType, &ts.AvgPrice, &ts.Unit); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan trend")
		}
		out = append(out, ts)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: trends by code")
}

func (s *SQLiteStore) UpsertYield(ctx context.Context, ys model.YieldStat) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO yield_stats (id, report_date, scope, raw_count, processed_count, yield_pct)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (report_date, scope) DO UPDATE SET
			raw_count = excluded.raw_count,
			processed_count = excluded.processed_count,
			yield_pct = excluded.yield_pct,
			updated_at = datetime('now')`,
		uuid.New().String(), ys.ReportDate, ys.Scope, ys.RawCount, ys.Processed, ys.YieldPct,
	)
	return eris.Wrap(err, "sqlite: upsert yield")
}

func (s *SQLiteStore) YieldByDate(ctx context.Context, date string) ([]model.YieldStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report_date, scope, raw_count, processed_count, yield_pct
		FROM yield_stats WHERE report_date = ? ORDER BY scope`,
		date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: yield by date")
	}
	defer rows.Close()

	var out []model.YieldStat
	for rows.Next() {
		var ys model.YieldStat
		if err := rows.Scan(&ys.ReportDate, &ys.Scope, &ys.RawCount, &ys.Processed, &ys.YieldPct); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan yield")
		}
		out = append(out, ys)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: yield by date")
}

func (s *SQLiteStore) StartRun(ctx context.Context, date string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO norm_runs (report_date, status, started_at) VALUES (?, ?, ?)`,
		date, string(model.RunStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: start run %s", date)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: last insert id")
	}
	return id, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID int64, raw, processed, skipped int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE norm_runs SET status = ?, completed_at = ?,
			raw_count = ?, processed_count = ?, skipped_count = ?
		WHERE id = ?`,
		string(model.RunStatusComplete), time.Now().UTC(), raw, processed, skipped, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %d", runID)
	}
	return checkRowsAffected(res, "run", "norm_runs")
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID int64, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE norm_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(model.RunStatusFailed), time.Now().UTC(), errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %d", runID)
	}
	return checkRowsAffected(res, "run", "norm_runs")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.NormRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_date, status, started_at, completed_at,
			raw_count, processed_count, skipped_count, error
		FROM norm_runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []model.NormRun
	for rows.Next() {
		var r model.NormRun
		var completed sql.NullTime
		if err := rows.Scan(&r.ID, &r.ReportDate, &r.Status, &r.StartedAt, &completed,
			&r.RawCount, &r.Processed, &r.Skipped, &r.Error); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if completed.Valid {
			t := completed.Time
			r.CompletedAt = &t
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func checkRowsAffected(res sql.Result, entity, table string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found in %s", entity, table)
	}
	return nil
}
