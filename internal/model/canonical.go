package model

// PriceRecord is one row of the common price table, unique on
// (report date, source, state, market, commodity name).
type PriceRecord struct {
	ID         string  `json:"id"`
	ReportDate string  `json:"report_date"`
	Source     Source  `json:"source"`
	State      string  `json:"state"`
	District   string  `json:"district,omitempty"`
	Market     string  `json:"market"`
	Commodity  string  `json:"commodity"`
	Code       string  `json:"code"`
	MinPrice   float64 `json:"min_price"`
	MaxPrice   float64 `json:"max_price"`
	ModalPrice float64 `json:"modal_price"`
	Unit       string  `json:"unit"` // standardized price unit
	TraceID    string  `json:"trace_id"`
}

// ArrivalRecord is one row of the common arrival table, keyed like
// PriceRecord. Quantity is in metric tonnes when Unit == "MT"; for units
// the pipeline cannot convert, Quantity is the raw value and Unit carries
// the original unit string verbatim.
type ArrivalRecord struct {
	ID         string  `json:"id"`
	ReportDate string  `json:"report_date"`
	Source     Source  `json:"source"`
	State      string  `json:"state"`
	Market     string  `json:"market"`
	Commodity  string  `json:"commodity"`
	Code       string  `json:"code"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	TraceID    string  `json:"trace_id"`
}
