package chat

import (
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/catalog"
	"github.com/newswise/backend/pkg/logger"
)

var (
	punctRe  = regexp.MustCompile(`[^\w\s]`)
	tickerRe = regexp.MustCompile(`^[A-Z]{1,5}$`)
	suffixRe = regexp.MustCompile(`\s+(ltd\.?|limited|corp\.?|corporation|inc\.?)$`)
)

// sectorShortlist is matched as a substring in addition to whatever
// sectors the catalog knows.
var sectorShortlist = []string{
	"Technology", "Finance", "Healthcare", "Energy", "Consumer", "Banking",
}

// Extractor derives candidate entity names from free text using the
// catalog plus pattern rules. Substring matching trades precision for
// recall on purpose; capitalized ordinary words can look like tickers.
type Extractor struct {
	catalog *catalog.Catalog
}

func NewExtractor(cat *catalog.Catalog) *Extractor {
	return &Extractor{catalog: cat}
}

// normalizeEntityName trims the captured name and strips trailing
// corporate suffixes like "Ltd" so lookups match dataset names.
func normalizeEntityName(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSpace(suffixRe.ReplaceAllString(strings.ToLower(name), ""))
}

// IsEntityOnly reports whether the query is just an entity name with
// no actual question. Queries over 3 tokens are never entity-only.
// Exact catalog matches qualify at up to 3 tokens; for 1-2 tokens a
// substring of a catalog name qualifies too.
func (e *Extractor) IsEntityOnly(query string) (string, bool) {
	clean := strings.ToLower(strings.TrimSpace(punctRe.ReplaceAllString(query, "")))
	words := strings.Fields(clean)
	if len(words) == 0 || len(words) > 3 {
		return "", false
	}

	if canonical, ok := e.catalog.Canonical(clean); ok {
		return canonical, true
	}

	if len(words) <= 2 {
		for _, name := range e.catalog.Names() {
			if strings.Contains(strings.ToLower(name), clean) {
				return name, true
			}
		}
	}

	return "", false
}

// Extract collects candidate entities: all-caps 1-5 letter tokens as
// ticker candidates (no dictionary exclusion), catalog names found as
// substrings, and sector keywords. Deduplicated by exact string match.
func (e *Extractor) Extract(query string) []string {
	queryLower := strings.ToLower(query)

	var candidates []string
	for _, token := range tokenize(query) {
		if tickerRe.MatchString(token) {
			candidates = append(candidates, token)
		}
	}

	for _, name := range e.catalog.Names() {
		if strings.Contains(queryLower, strings.ToLower(name)) {
			candidates = append(candidates, name)
		}
	}

	for _, sector := range sectorShortlist {
		if strings.Contains(queryLower, strings.ToLower(sector)) {
			candidates = append(candidates, sector)
		}
	}

	return dedupe(candidates)
}

// ExtractWithFallback adds the keyword fallback: when nothing matched,
// words over 3 characters are tried as substrings of catalog names.
func (e *Extractor) ExtractWithFallback(query string) []string {
	entities := e.Extract(query)
	if len(entities) > 0 {
		return entities
	}

	var candidates []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) <= 3 {
			continue
		}
		for _, name := range e.catalog.Names() {
			if strings.Contains(strings.ToLower(name), word) {
				candidates = append(candidates, name)
			}
		}
	}

	if len(candidates) > 0 {
		logger.Debug("Entity keyword fallback used",
			zap.String("query", query),
			zap.Int("matches", len(candidates)),
		)
	}
	return dedupe(candidates)
}

// tokenize splits the query with the NLP tokenizer, which separates
// punctuation from words so "INFY," still yields a ticker candidate.
// On tokenizer failure it falls back to whitespace splitting.
func tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return strings.Fields(text)
	}

	tokens := doc.Tokens()
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Text)
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
