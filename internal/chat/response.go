package chat

import "github.com/newswise/backend/internal/storage/models"

// Intent labels attached to responses for history and metrics.
const (
	IntentComparison       = "comparison"
	IntentClarification    = "clarification"
	IntentDisambiguation   = "disambiguation"
	IntentStockMovement    = "stock_movement"
	IntentMarketEvent      = "market_event"
	IntentMacroNews        = "macro_news"
	IntentQuarterlyResults = "quarterly_results"
	IntentGeneric          = "generic"
	IntentError            = "error"
)

const maxRelatedNews = 5

// Response is the single shape every query resolves to. RelatedNews
// and FinancialData are always non-nil so clients never see null.
type Response struct {
	ID             string             `json:"id,omitempty"`
	Answer         string             `json:"answer"`
	Confidence     float64            `json:"confidence"`
	IsPrompt       bool               `json:"is_prompt,omitempty"`
	RelatedNews    []models.NewsItem  `json:"related_news"`
	FinancialData  map[string]any     `json:"financial_data"`
	ComparisonData []ComparisonEntry  `json:"comparison_data,omitempty"`
	TableData      *TableData         `json:"table_data,omitempty"`
	Intent         string             `json:"intent,omitempty"`
	LatencyMS      int                `json:"latency_ms,omitempty"`
}

// ComparisonEntry is one side of a comparison: the query term, the
// resolved instrument type and its metric map.
type ComparisonEntry struct {
	Entity string         `json:"entity"`
	Type   string         `json:"type"`
	Data   map[string]any `json:"data"`
}

// TableData is the structured side of a comparison answer.
type TableData struct {
	Headers []string        `json:"headers"`
	Rows    []ComparisonRow `json:"rows"`
}

// ComparisonRow holds both formatted values and a verdict. A row is
// only emitted when both sides expose the metric.
type ComparisonRow struct {
	Metric  string `json:"metric"`
	Value1  string `json:"value1"`
	Value2  string `json:"value2"`
	Verdict string `json:"verdict"`
}

func newResponse(answer string, confidence float64) *Response {
	return &Response{
		Answer:        answer,
		Confidence:    confidence,
		RelatedNews:   []models.NewsItem{},
		FinancialData: map[string]any{},
	}
}
