package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mandi-pipeline/internal/db"
	"github.com/sells-group/mandi-pipeline/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest normalization-loop operations.
var preparedStatements = map[string]string{
	"backfill_agmark_code": `UPDATE agmark_raw SET code = $1 WHERE id = $2`,
	"backfill_enam_code":   `UPDATE enam_raw SET code = $1 WHERE id = $2`,
	"upsert_price":         upsertPriceSQL,
	"upsert_arrival":       upsertArrivalSQL,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS agmark_raw (
	id          BIGSERIAL PRIMARY KEY,
	report_date TEXT NOT NULL,
	state       TEXT NOT NULL,
	district    TEXT NOT NULL DEFAULT '',
	market      TEXT NOT NULL,
	commodity   TEXT NOT NULL,
	unit        TEXT NOT NULL,
	min_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	max_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	modal_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	arrival_qty DOUBLE PRECISION,
	code        TEXT,
	trace_id    TEXT NOT NULL DEFAULT '',
	processed   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (report_date, state, district, market, commodity)
);

CREATE TABLE IF NOT EXISTS enam_raw (
	id          BIGSERIAL PRIMARY KEY,
	report_date TEXT NOT NULL,
	state       TEXT NOT NULL,
	district    TEXT NOT NULL DEFAULT '',
	market      TEXT NOT NULL,
	commodity   TEXT NOT NULL,
	unit        TEXT NOT NULL,
	min_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	max_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
	modal_price DOUBLE PRECISION NOT NULL DEFAULT 0,
	arrival_qty DOUBLE PRECISION,
	code        TEXT,
	trace_id    TEXT NOT NULL DEFAULT '',
	processed   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
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
	min_price   DOUBLE PRECISION NOT NULL,
	max_price   DOUBLE PRECISION NOT NULL,
	modal_price DOUBLE PRECISION NOT NULL,
	unit        TEXT NOT NULL,
	trace_id    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
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
	quantity    DOUBLE PRECISION NOT NULL,
	unit        TEXT NOT NULL,
	trace_id    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (report_date, source, state, market, commodity)
);

CREATE TABLE IF NOT EXISTS trend_summaries (
	id          TEXT PRIMARY KEY,
	code        TEXT NOT NULL,
	report_date TEXT NOT NULL,
	period_type TEXT NOT NULL,
	avg_price   DOUBLE PRECISION NOT NULL,
	unit        TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (code, report_date, period_type, unit)
);

CREATE TABLE IF NOT EXISTS yield_stats (
	id              TEXT PRIMARY KEY,
	report_date     TEXT NOT NULL,
	scope           TEXT NOT NULL,
	raw_count       INTEGER NOT NULL,
	processed_count INTEGER NOT NULL,
	yield_pct       DOUBLE PRECISION NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (report_date, scope)
);

CREATE TABLE IF NOT EXISTS norm_runs (
	id              BIGSERIAL PRIMARY KEY,
	report_date     TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ,
	raw_count       INTEGER NOT NULL DEFAULT 0,
	processed_count INTEGER NOT NULL DEFAULT 0,
	skipped_count   INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_agmark_raw_date_processed ON agmark_raw(report_date, processed);
CREATE INDEX IF NOT EXISTS idx_enam_raw_date_processed ON enam_raw(report_date, processed);
CREATE INDEX IF NOT EXISTS idx_common_prices_date ON common_prices(report_date);
CREATE INDEX IF NOT EXISTS idx_common_prices_code_date ON common_prices(code, report_date);
CREATE INDEX IF NOT EXISTS idx_common_prices_commodity ON common_prices(commodity);
CREATE INDEX IF NOT EXISTS idx_common_arrivals_date ON common_arrivals(report_date);
CREATE INDEX IF NOT EXISTS idx_trend_summaries_code_date ON trend_summaries(code, report_date);
CREATE INDEX IF NOT EXISTS idx_norm_runs_date ON norm_runs(report_date);
`

const upsertPriceSQL = `INSERT INTO common_prices
	(id, report_date, source, state, district, market, commodity, code, min_price, max_price, modal_price, unit, trace_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (report_date, source, state, market, commodity) DO UPDATE SET
	district = EXCLUDED.district,
	code = EXCLUDED.code,
	min_price = EXCLUDED.min_price,
	max_price = EXCLUDED.max_price,
	modal_price = EXCLUDED.modal_price,
	unit = EXCLUDED.unit,
	trace_id = EXCLUDED.trace_id,
	updated_at = now()`

const upsertArrivalSQL = `INSERT INTO common_arrivals
	(id, report_date, source, state, market, commodity, code, quantity, unit, trace_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (report_date, source, state, market, commodity) DO UPDATE SET
	code = EXCLUDED.code,
	quantity = EXCLUDED.quantity,
	unit = EXCLUDED.unit,
	trace_id = EXCLUDED.trace_id,
	updated_at = now()`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var rawColumns = []string{
	"report_date", "state", "district", "market", "commodity", "unit",
	"min_price", "max_price", "modal_price", "arrival_qty", "code", "trace_id",
}

var rawConflictKeys = []string{"report_date", "state", "district", "market", "commodity"}

func (s *PostgresStore) SeedRaw(ctx context.Context, recs []model.RawRecord) (int64, error) {
	bySource := map[model.Source][][]any{}
	for _, r := range recs {
		bySource[r.Source] = append(bySource[r.Source], []any{
			r.ReportDate, r.State, r.District, r.Market, r.Commodity, r.Unit,
			r.MinPrice, r.MaxPrice, r.ModalPrice, r.ArrivalQty, r.Code, r.TraceID,
		})
	}

	var total int64
	for source, rows := range bySource {
		table, err := rawTable(source)
		if err != nil {
			return total, err
		}
		n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
			Table:        table,
			Columns:      rawColumns,
			ConflictKeys: rawConflictKeys,
			UpdateCols:   []string{"unit", "min_price", "max_price", "modal_price", "arrival_qty", "trace_id"},
		}, rows)
		if err != nil {
			return total, eris.Wrapf(err, "postgres: seed %s", table)
		}
		total += n
	}
	return total, nil
}

func (s *PostgresStore) PurgeRawDate(ctx context.Context, source model.Source, date string) (int, error) {
	table, err := rawTable(source)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE report_date = $1`, date)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: purge %s %s", table, date)
	}
	return int(tag.RowsAffected()), nil
}

const rawSelectColumns = `id, report_date, state, district, market, commodity, unit,
	min_price, max_price, modal_price, arrival_qty, code, trace_id, processed`

func (s *PostgresStore) FetchUnprocessed(ctx context.Context, date string) ([]model.RawRecord, error) {
	var out []model.RawRecord
	for _, source := range []model.Source{model.SourceAgmark, model.SourceEnam} {
		table, _ := rawTable(source)
		rows, err := s.pool.Query(ctx,
			`SELECT `+rawSelectColumns+` FROM `+table+` WHERE report_date = $1 AND processed = FALSE ORDER BY id`,
			date)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: fetch unprocessed %s", table)
		}
		recs, err := scanRawRows(rows, source)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", table)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func scanRawRows(rows pgx.Rows, source model.Source) ([]model.RawRecord, error) {
	defer rows.Close()
	var out []model.RawRecord
	for rows.Next() {
		var r model.RawRecord
		r.Source = source
		if err := rows.Scan(&r.ID, &r.ReportDate, &r.State, &r.District, &r.Market,
			&r.Commodity, &r.Unit, &r.MinPrice, &r.MaxPrice, &r.ModalPrice,
			&r.ArrivalQty, &r.Code, &r.TraceID, &r.Processed); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) BackfillCode(ctx context.Context, source model.Source, rawID int64, code string) error {
	table, err := rawTable(source)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE `+table+` SET code = $1 WHERE id = $2`, code, rawID)
	if err != nil {
		return eris.Wrapf(err, "postgres: backfill code %s %d", table, rawID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("raw row not found: %s %d", table, rawID)
	}
	return nil
}

func (s *PostgresStore) MarkProcessed(ctx context.Context, source model.Source, date string, rawIDs []int64) error {
	if len(rawIDs) == 0 {
		return nil
	}
	table, err := rawTable(source)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE `+table+` SET processed = TRUE WHERE report_date = $1 AND id = ANY($2)`,
		date, rawIDs,
	)
	return eris.Wrapf(err, "postgres: mark processed %s %s", table, date)
}

func (s *PostgresStore) UpsertPrice(ctx context.Context, rec model.PriceRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, upsertPriceSQL,
		id, rec.ReportDate, string(rec.Source), rec.State, rec.District, rec.Market,
		rec.Commodity, rec.Code, rec.MinPrice, rec.MaxPrice, rec.ModalPrice,
		rec.Unit, rec.TraceID,
	)
	return eris.Wrap(err, "postgres: upsert price")
}

func (s *PostgresStore) UpsertArrival(ctx context.Context, rec model.ArrivalRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx, upsertArrivalSQL,
		id, rec.ReportDate, string(rec.Source), rec.State, rec.Market,
		rec.Commodity, rec.Code, rec.Quantity, rec.Unit, rec.TraceID,
	)
	return eris.Wrap(err, "postgres: upsert arrival")
}

func (s *PostgresStore) PricesByRange(ctx context.Context, from, to, commodity string) ([]model.PriceRecord, error) {
	query := `SELECT id, report_date, source, state, district, market, commodity, code,
		min_price, max_price, modal_price, unit, trace_id
	FROM common_prices WHERE report_date >= $1 AND report_date <= $2`
	args := []any{from, to}
	if commodity != "" {
		query += ` AND commodity = $3`
		args = append(args, commodity)
	}
	query += ` ORDER BY report_date, source, state, market, commodity`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: prices by range")
	}
	defer rows.Close()

	var out []model.PriceRecord
	for rows.Next() {
		var p model.PriceRecord
		if err := rows.Scan(&p.ID, &p.ReportDate, &p.Source, &p.State, &p.District,
			&p.Market, &p.Commodity, &p.Code, &p.MinPrice, &p.MaxPrice,
			&p.ModalPrice, &p.Unit, &p.TraceID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan price")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: prices by range")
}

func (s *PostgresStore) ArrivalsByRange(ctx context.Context, from, to, commodity string) ([]model.ArrivalRecord, error) {
	query := `SELECT id, report_date, source, state, market, commodity, code, quantity, unit, trace_id
	FROM common_arrivals WHERE report_date >= $1 AND report_date <= $2`
	args := []any{from, to}
	if commodity != "" {
		query += ` AND commodity = $3`
		args = append(args, commodity)
	}
	query += ` ORDER BY report_date, source, state, market, commodity`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: arrivals by range")
	}
	defer rows.Close()

	var out []model.ArrivalRecord
	for rows.Next() {
		var a model.ArrivalRecord
		if err := rows.Scan(&a.ID, &a.ReportDate, &a.Source, &a.State, &a.Market,
			&a.Commodity, &a.Code, &a.Quantity, &a.Unit, &a.TraceID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan arrival")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: arrivals by range")
}

func (s *PostgresStore) PurgeCanonicalDate(ctx context.Context, date string) (int, error) {
	var total int
	for _, table := range []string{"common_prices", "common_arrivals", "trend_summaries", "yield_stats"} {
		tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE report_date = $1`, date)
		if err != nil {
			return total, eris.Wrapf(err, "postgres: purge %s %s", table, date)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}

func (s *PostgresStore) AvgDailyPrices(ctx context.Context, code, date string) ([]model.TrendSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, report_date, AVG(modal_price), unit
		FROM common_prices WHERE code = $1 AND report_date = $2
		GROUP BY code, report_date, unit ORDER BY unit`,
		code, date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: avg daily prices")
	}
	defer rows.Close()

	var out []model.TrendSummary
	for rows.Next() {
		ts := model.TrendSummary{PeriodType: model.PeriodDaily}
		if err := rows.Scan(&ts.Code, &ts.ReportDate, &ts.AvgPrice, &ts.Unit); err != nil {
			return nil, eris.Wrap(err, "postgres: scan avg price")
		}
		out = append(out, ts)
	}
	return out, eris.Wrap(rows.Err(), "postgres: avg daily prices")
}

func (s *PostgresStore) UpsertTrend(ctx context.Context, ts model.TrendSummary) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trend_summaries (id, code, report_date, period_type, avg_price, unit)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code, report_date, period_type, unit) DO UPDATE SET
			avg_price = EXCLUDED.avg_price,
			updated_at = now()`,
		uuid.New().String(), ts.Code, ts.ReportDate, ts.PeriodType, ts.AvgPrice, ts.Unit,
	)
	return eris.Wrap(err, "postgres: upsert trend")
}

func (s *PostgresStore) TrendsByCode(ctx context.Context, code, from, to string) ([]model.TrendSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, report_date, period_type, avg_price, unit
		FROM trend_summaries
		WHERE code = $1 AND report_date >= $2 AND report_date <= $3
		ORDER BY report_date, unit`,
		code, from, to,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: trends by code")
	}
	defer rows.Close()

	var out []model.TrendSummary
	for rows.Next() {
		var ts model.TrendSummary
		if err := rows.Scan(&ts.Code, &ts.ReportDate, &ts.PeriodType, &ts.AvgPrice, &ts.Unit); err != nil {
			return nil, eris.Wrap(err, "postgres: scan trend")
		}
		out = append(out, ts)
	}
	return out, eris.Wrap(rows.Err(), "postgres: trends by code")
}

func (s *PostgresStore) UpsertYield(ctx context.Context, ys model.YieldStat) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO yield_stats (id, report_date, scope, raw_count, processed_count, yield_pct)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_date, scope) DO UPDATE SET
			raw_count = EXCLUDED.raw_count,
			processed_count = EXCLUDED.processed_count,
			yield_pct = EXCLUDED.yield_pct,
			updated_at = now()`,
		uuid.New().String(), ys.ReportDate, ys.Scope, ys.RawCount, ys.Processed, ys.YieldPct,
	)
	return eris.Wrap(err, "postgres: upsert yield")
}

func (s *PostgresStore) YieldByDate(ctx context.Context, date string) ([]model.YieldStat, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT report_date, scope, raw_count, processed_count, yield_pct
		FROM yield_stats WHERE report_date = $1 ORDER BY scope`,
		date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: yield by date")
	}
	defer rows.Close()

	var out []model.YieldStat
	for rows.Next() {
		var ys model.YieldStat
		if err := rows.Scan(&ys.ReportDate, &ys.Scope, &ys.RawCount, &ys.Processed, &ys.YieldPct); err != nil {
			return nil, eris.Wrap(err, "postgres: scan yield")
		}
		out = append(out, ys)
	}
	return out, eris.Wrap(rows.Err(), "postgres: yield by date")
}

func (s *PostgresStore) StartRun(ctx context.Context, date string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO norm_runs (report_date, status, started_at) VALUES ($1, $2, $3) RETURNING id`,
		date, string(model.RunStatusRunning), time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: start run %s", date)
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID int64, raw, processed, skipped int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE norm_runs SET status = $1, completed_at = $2,
			raw_count = $3, processed_count = $4, skipped_count = $5
		WHERE id = $6`,
		string(model.RunStatusComplete), time.Now().UTC(), raw, processed, skipped, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %d", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %d", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID int64, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE norm_runs SET status = $1, completed_at = $2, error = $3 WHERE id = $4`,
		string(model.RunStatusFailed), time.Now().UTC(), errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %d", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %d", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.NormRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, report_date, status, started_at, completed_at,
			raw_count, processed_count, skipped_count, error
		FROM norm_runs ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []model.NormRun
	for rows.Next() {
		var r model.NormRun
		if err := rows.Scan(&r.ID, &r.ReportDate, &r.Status, &r.StartedAt, &r.CompletedAt,
			&r.RawCount, &r.Processed, &r.Skipped, &r.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list runs")
}
