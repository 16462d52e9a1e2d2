package models

import "time"

// Instrument types used across the store and the chat engine.
const (
	TypeStock = "stock"
	TypeFund  = "fund"
	TypeETF   = "etf"
)

// Metric keys shared by the store, the comparator and the synthesizer.
// Return-period keys keep the dataset's column naming.
const (
	MetricPrice        = "price"
	MetricNAV          = "nav"
	MetricMarketCap    = "market_cap"
	MetricPERatio      = "pe_ratio"
	MetricExpenseRatio = "expense_ratio"
	MetricCategory     = "category"
	MetricReturns1D    = "1DReturns"
	MetricReturns1W    = "1WReturns"
	MetricReturns1M    = "1MReturns"
	MetricReturns3M    = "3MReturns"
	MetricReturns1Y    = "1YReturns"
)

// FinancialRecord is the tagged union returned by the unified identifier
// lookup: the instrument type plus a metric-name -> value map. Values are
// float64, string or nil; a metric absent from the dataset is absent from
// the map rather than zero.
type FinancialRecord struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

type NewsItem struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Source         string    `json:"source"`
	URL            string    `json:"url"`
	Date           time.Time `json:"date"`
	Sentiment      string    `json:"sentiment"`
	SentimentScore float64   `json:"sentiment_score"`
	Entities       []string  `json:"entities"`
}

type HoldingRow struct {
	SchemeName string  `json:"scheme_name"`
	Company    string  `json:"company"`
	Weight     float64 `json:"weight"`
}

// QueryRecord is one processed chat turn, kept for history and evaluation.
type QueryRecord struct {
	ID         string
	SessionID  string
	QueryText  string
	Answer     string
	Confidence float64
	Intent     string
	LatencyMS  int
	CreatedAt  time.Time
}
