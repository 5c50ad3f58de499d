package model

import "time"

// PeriodDaily is the only period the aggregator currently computes; the
// summary table is keyed to admit weekly/monthly rollups later.
const PeriodDaily = "daily"

// YieldScopeAll is the source-scope of the combined yield row for a date.
const YieldScopeAll = "ALL"

// TrendSummary is one pre-aggregated trend row, unique on
// (code, report date, period type). When multiple canonical units remain
// under one identity, one row exists per unit.
type TrendSummary struct {
	Code       string  `json:"code"`
	ReportDate string  `json:"report_date"`
	PeriodType string  `json:"period_type"`
	AvgPrice   float64 `json:"avg_price"`
	Unit       string  `json:"unit"`
}

// YieldStat is the processing-completeness record for one date and source
// scope, unique on (report date, scope). YieldPct = processed/raw × 100,
// 0 when raw is 0.
type YieldStat struct {
	ReportDate string  `json:"report_date"`
	Scope      string  `json:"scope"` // "AGMARK", "eNAM" or "ALL"
	RawCount   int     `json:"raw_count"`
	Processed  int     `json:"processed_count"`
	YieldPct   float64 `json:"yield_pct"`
}

// RunStatus tracks the lifecycle of one normalization run in the run log.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// NormRun is one entry in the normalization run log.
type NormRun struct {
	ID          int64      `json:"id"`
	ReportDate  string     `json:"report_date"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RawCount    int        `json:"raw_count"`
	Processed   int        `json:"processed_count"`
	Skipped     int        `json:"skipped_count"` // rows left unprocessed by unit conflict
	Error       string     `json:"error,omitempty"`
}
