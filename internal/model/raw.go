package model

// Source identifies which upstream price-reporting service produced a row.
type Source string

const (
	SourceAgmark Source = "AGMARK"
	SourceEnam   Source = "eNAM"
)

// RawRecord is the unified view over one row of either raw table
// (agmark_raw or enam_raw). The fetch collaborators create these rows;
// the normalizer only backfills the resolved code and flips Processed.
//
// ReportDate is an ISO date string (YYYY-MM-DD). Raw rows are keyed and
// queried by calendar date, never by instant, so the pipeline carries
// dates as strings end to end.
type RawRecord struct {
	ID         int64    `json:"id"`
	Source     Source   `json:"source"`
	ReportDate string   `json:"report_date"`
	State      string   `json:"state"`
	District   string   `json:"district,omitempty"` // Agmark only
	Market     string   `json:"market"`             // APMC name for eNAM
	Commodity  string   `json:"commodity"`
	Unit       string   `json:"unit"` // raw unit-of-measure string, e.g. "Rs./Quintal", "Nos"
	MinPrice   float64  `json:"min_price"`
	MaxPrice   float64  `json:"max_price"`
	ModalPrice float64  `json:"modal_price"`
	ArrivalQty *float64 `json:"arrival_qty,omitempty"` // eNAM only
	Code       *string  `json:"code,omitempty"`        // resolved commodity code, nil until resolved
	TraceID    string   `json:"trace_id"`
	Processed  bool     `json:"processed"`
}
