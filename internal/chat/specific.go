package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/pkg/logger"
)

var indexNames = map[string]struct{}{
	"nifty": {}, "nifty 50": {}, "nifty50": {}, "sensex": {}, "bse": {}, "nse": {},
}

var macroKeywords = []string{
	"economic", "economy", "macro", "global", "market", "fed", "rbi",
	"interest rate", "inflation",
}

var quarterlyVocab = []string{
	"quarter", "quarterly", "earnings", "results", "profit", "revenue",
	"financial performance",
}

// periodDays maps time-period captures to a lookback window.
func periodDays(period string) int {
	switch {
	case period == "today":
		return 1
	case period == "yesterday":
		return 2
	case strings.Contains(period, "week"):
		return 7
	default:
		return 30
	}
}

func (e *Engine) handleStockMovement(ctx context.Context, company, direction, period string) *Response {
	normalized := normalizeEntityName(company)

	news, err := e.data.NewsForEntity(normalized, 30)
	if err != nil {
		logger.Warn("News lookup failed", zap.String("entity", normalized), zap.Error(err))
	}

	if len(news) < e.minHandlerNews && e.external != nil {
		news = append(news, e.searchCompanyNews(ctx, normalized)...)
	}

	stockData, err := e.data.StockInfo(normalized)
	if err != nil {
		resp := newResponse(fmt.Sprintf(
			"I couldn't find specific market data for %s in our database. However, based on general market trends and news sentiment, %s has likely been affected by broader market movements. For real-time stock information, please check financial portals like NSE or BSE.",
			company, company,
		), 0.7)
		resp.RelatedNews = firstN(news, 3)
		return resp
	}

	financialData := map[string]any{models.TypeStock: stockData}
	resp := newResponse(e.synthesize("stock movement", news, financialData), 0.9)
	resp.RelatedNews = firstN(news, 3)
	resp.FinancialData = financialData
	return resp
}

func (e *Engine) handleMarketEvent(ctx context.Context, entity, period string) *Response {
	_, isIndex := indexNames[strings.ToLower(entity)]
	days := periodDays(period)

	news, err := e.data.NewsForEntity(entity, days)
	if err != nil {
		logger.Warn("News lookup failed", zap.String("entity", entity), zap.Error(err))
	}

	if len(news) < e.minHandlerNews && e.external != nil {
		news = append(news, e.searchCompanyNews(ctx, entity)...)
	}

	record, _ := e.data.FinancialRecord(entity)

	var parts []string
	if record != nil && record.Type == models.TypeStock {
		if change, ok := getFloat(record.Data, models.MetricReturns1D); ok && period == "today" {
			parts = append(parts, fmt.Sprintf("%s moved %s by %.2f%% today.", entity, upOrDown(change), abs(change)))
		} else if change, ok := getFloat(record.Data, models.MetricReturns1W); ok && strings.Contains(period, "week") {
			parts = append(parts, fmt.Sprintf("%s moved %s by %.2f%% this week.", entity, upOrDown(change), abs(change)))
		}
	}

	if len(news) > 0 {
		if isIndex {
			parts = append(parts, fmt.Sprintf("Here's what happened with %s %s:", entity, period))
		} else {
			parts = append(parts, fmt.Sprintf("Recent news about %s:", entity))
		}
		for i, item := range firstN(news, 3) {
			parts = append(parts, fmt.Sprintf("%d. %s (%s)", i+1, item.Title, item.Date.Format("2006-01-02")))
			if i == 0 && item.Summary != "" {
				parts = append(parts, "   "+item.Summary)
			}
		}
	} else {
		parts = append(parts, fmt.Sprintf("I couldn't find specific news about %s for %s.", entity, period))
	}

	resp := newResponse(strings.Join(parts, "\n"), 0.8)
	resp.RelatedNews = firstN(news, 5)
	if record != nil {
		resp.FinancialData = map[string]any{record.Type: record.Data}
	}
	return resp
}

func (e *Engine) handleMacroNews(newsType, entity, assetType string) *Response {
	var news []models.NewsItem
	for _, term := range []string{newsType, entity, assetType} {
		termNews, err := e.data.SearchNews(term, 10)
		if err != nil {
			logger.Warn("News search failed", zap.String("term", term), zap.Error(err))
			continue
		}
		news = append(news, termNews...)
	}
	news = dedupeByTitle(news)

	// Two-sided relevance filter: a hit on any single search term is
	// not enough, the article must carry a macro keyword AND mention
	// the entity or asset type.
	var relevant []models.NewsItem
	for _, item := range news {
		text := strings.ToLower(item.Title + " " + item.Summary)

		isMacro := false
		for _, kw := range macroKeywords {
			if strings.Contains(text, kw) {
				isMacro = true
				break
			}
		}
		mentions := strings.Contains(text, strings.ToLower(entity)) ||
			strings.Contains(text, strings.ToLower(assetType))

		if isMacro && mentions {
			relevant = append(relevant, item)
		}
	}

	if len(relevant) == 0 {
		resp := newResponse(fmt.Sprintf(
			"I couldn't find specific information about %s news affecting %s %s. Try a broader search or different keywords.",
			newsType, entity, assetType,
		), 0.5)
		resp.RelatedNews = firstN(news, 5)
		return resp
	}

	parts := []string{fmt.Sprintf("Here's how %s news is affecting %s %s:", newsType, entity, assetType)}
	for i, item := range firstN(relevant, 3) {
		parts = append(parts, fmt.Sprintf("%d. %s%s (%s)", i+1, item.Title, sentimentTag(item), item.Date.Format("2006-01-02")))
		if i == 0 && item.Summary != "" {
			parts = append(parts, "   "+item.Summary)
		}
	}

	resp := newResponse(strings.Join(parts, "\n"), 0.8)
	resp.RelatedNews = firstN(relevant, 5)
	return resp
}

func (e *Engine) handleQuarterlyResults(ctx context.Context, company string) *Response {
	// Expand the captured fragment to the full catalog name if one
	// contains it.
	for _, name := range e.catalog.Names() {
		if strings.Contains(strings.ToLower(name), company) {
			company = name
			break
		}
	}

	variants := []string{
		company + " quarterly results",
		company + " earnings",
		company + " q1",
		company + " q2",
		company + " q3",
		company + " q4",
	}

	var all []models.NewsItem
	for _, term := range variants {
		termNews, err := e.data.SearchNews(term, 10)
		if err != nil {
			continue
		}
		all = append(all, termNews...)
	}
	all = dedupeByTitle(all)

	var quarterly []models.NewsItem
	seen := make(map[string]struct{})
	for _, item := range all {
		if matchesVocab(item, quarterlyVocab) {
			quarterly = append(quarterly, item)
			seen[item.Title] = struct{}{}
		}
	}

	// Thin coverage: pull per-variant from the external provider until
	// there are 3 matches or the variants run out.
	if len(quarterly) < 2 && e.external != nil {
		vocab := quarterlyVocab[:6]
		for _, term := range variants {
			additional := e.searchCompanyNews(ctx, term)
			for _, item := range additional {
				if _, dup := seen[item.Title]; dup {
					continue
				}
				if matchesVocab(item, vocab) {
					seen[item.Title] = struct{}{}
					quarterly = append(quarterly, item)
				}
			}
			if len(quarterly) >= 3 {
				break
			}
		}
	}

	record, _ := e.data.FinancialRecord(company)

	if len(quarterly) == 0 {
		resp := newResponse(fmt.Sprintf(
			"I couldn't find specific information about %s's last quarterly results. Try asking about a different company or check back later for updates.",
			company,
		), 0.5)
		if record != nil {
			resp.FinancialData = map[string]any{record.Type: record.Data}
		}
		return resp
	}

	parts := []string{fmt.Sprintf("Here's information about %s's last quarter results:", company)}
	for i, item := range firstN(quarterly, 3) {
		parts = append(parts, fmt.Sprintf("%d. %s%s (%s)", i+1, item.Title, sentimentTag(item), item.Date.Format("2006-01-02")))
		if item.Summary != "" {
			parts = append(parts, "   "+item.Summary)
		}
	}

	resp := newResponse(strings.Join(parts, "\n"), 0.9)
	resp.RelatedNews = firstN(quarterly, 5)
	if record != nil {
		resp.FinancialData = map[string]any{record.Type: record.Data}
	}
	return resp
}

func matchesVocab(item models.NewsItem, vocab []string) bool {
	text := strings.ToLower(item.Title + " " + item.Summary)
	for _, term := range vocab {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func sentimentTag(item models.NewsItem) string {
	if item.Sentiment == "" {
		return ""
	}
	s := item.Sentiment
	return fmt.Sprintf(" (%s)", strings.ToUpper(s[:1])+s[1:])
}

func dedupeByTitle(items []models.NewsItem) []models.NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Title]; ok {
			continue
		}
		seen[item.Title] = struct{}{}
		out = append(out, item)
	}
	return out
}

func firstN(items []models.NewsItem, n int) []models.NewsItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func upOrDown(change float64) string {
	if change > 0 {
		return "up"
	}
	return "down"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
