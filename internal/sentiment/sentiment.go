package sentiment

import "context"

// Labels attached to analyzed text.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Result is a label plus a score in [-1, 1].
type Result struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyzer scores a piece of news text. Implementations must be safe
// for concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Result, error)
}
