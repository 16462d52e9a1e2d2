package sentiment

import (
	"context"
	"strings"
)

var positiveWords = []string{
	"gain", "gains", "rise", "rises", "surge", "surges", "jump", "jumps",
	"rally", "rallies", "growth", "profit", "profits", "strong", "record",
	"beat", "beats", "upgrade", "upgraded", "bullish", "outperform",
	"positive", "soar", "soars", "boost", "boosts", "recovery", "high",
}

var negativeWords = []string{
	"fall", "falls", "drop", "drops", "plunge", "plunges", "slip", "slips",
	"decline", "declines", "loss", "losses", "weak", "miss", "misses",
	"downgrade", "downgraded", "bearish", "underperform", "negative",
	"slump", "slumps", "crash", "crashes", "concern", "concerns", "low",
	"cut", "cuts", "fraud", "probe",
}

// LexiconAnalyzer scores text by counting sentiment-bearing words. It
// needs no network and is the default analyzer.
type LexiconAnalyzer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

func NewLexiconAnalyzer() *LexiconAnalyzer {
	a := &LexiconAnalyzer{
		positive: make(map[string]struct{}, len(positiveWords)),
		negative: make(map[string]struct{}, len(negativeWords)),
	}
	for _, w := range positiveWords {
		a.positive[w] = struct{}{}
	}
	for _, w := range negativeWords {
		a.negative[w] = struct{}{}
	}
	return a
}

func (a *LexiconAnalyzer) Analyze(_ context.Context, text string) (Result, error) {
	words := strings.Fields(strings.ToLower(text))

	var pos, neg int
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:'\"()")
		if _, ok := a.positive[w]; ok {
			pos++
		}
		if _, ok := a.negative[w]; ok {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return Result{Label: LabelNeutral, Score: 0}, nil
	}

	score := float64(pos-neg) / float64(total)
	label := LabelNeutral
	if score > 0.2 {
		label = LabelPositive
	} else if score < -0.2 {
		label = LabelNegative
	}

	return Result{Label: label, Score: score}, nil
}
