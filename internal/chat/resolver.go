package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/newswise/backend/internal/metrics"
	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/pkg/logger"
)

// entityData resolves one entity with a known instrument type, used
// when the user answers a disambiguation prompt.
func (e *Engine) entityData(entity, entityType string) *Response {
	normalized := normalizeEntityName(entity)

	logger.Info("Resolving entity data",
		zap.String("entity", entity),
		zap.String("normalized", normalized),
		zap.String("type", entityType),
	)

	financialData := map[string]any{}

	switch entityType {
	case models.TypeStock:
		data, err := e.data.StockInfo(entity)
		if err != nil {
			data, err = e.data.StockInfo(normalized)
		}
		// Abbreviated names like "HDFC" often only match on the first
		// word of the stored name.
		if err != nil && strings.Contains(normalized, " ") {
			data, err = e.data.StockInfo(strings.Fields(normalized)[0])
		}
		if err == nil {
			financialData[models.TypeStock] = data
		}
	case models.TypeFund:
		data, err := e.data.FundInfo(entity)
		if err != nil {
			data, err = e.data.FundInfo(normalized)
		}
		if err == nil {
			financialData[models.TypeFund] = data
		}
	case models.TypeETF:
		data, err := e.data.ETFInfo(entity)
		if err != nil {
			data, err = e.data.ETFInfo(normalized)
		}
		if err == nil {
			financialData[models.TypeETF] = data
		}
	}

	news, err := e.data.NewsForEntity(entity, 30)
	if err != nil {
		logger.Warn("News lookup failed", zap.String("entity", entity), zap.Error(err))
	}

	typeDisplay := entityType
	if typeDisplay == models.TypeFund {
		typeDisplay = "mutual fund"
	}

	if len(financialData) == 0 {
		resp := newResponse(fmt.Sprintf("I couldn't find specific information about %s as a %s.", entity, typeDisplay), 0.5)
		resp.RelatedNews = firstN(news, 5)
		return resp
	}

	data := financialData[entityType].(map[string]any)

	displayName := entity
	if name, ok := getString(data, "name"); ok {
		displayName = name
	} else if name, ok := getString(data, "scheme_name"); ok {
		displayName = name
	}

	parts := []string{fmt.Sprintf("Here's information about %s (%s):", displayName, typeDisplay)}
	switch entityType {
	case models.TypeStock:
		if price, ok := getFloat(data, models.MetricPrice); ok {
			parts = append(parts, fmt.Sprintf("Price: ₹%.2f", price))
		}
		if change, ok := getFloat(data, models.MetricReturns1D); ok {
			parts = append(parts, fmt.Sprintf("1-Day Change: %+.2f%%", change))
		}
	case models.TypeFund, models.TypeETF:
		if nav, ok := getFloat(data, models.MetricNAV); ok {
			parts = append(parts, fmt.Sprintf("NAV: ₹%.2f", nav))
		}
		if category, ok := getString(data, models.MetricCategory); ok {
			parts = append(parts, fmt.Sprintf("Category: %s", category))
		}
	}

	if len(news) > 0 {
		parts = append(parts, "\nRecent news:")
		for i, item := range firstN(news, 3) {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, item.Title))
		}
	}

	resp := newResponse(strings.Join(parts, "\n"), 0.9)
	resp.RelatedNews = firstN(news, 5)
	resp.FinancialData = financialData
	return resp
}

// handleGeneric is the fallback path: extract entities, gather news
// and financial data for each, supplement from the external provider
// when coverage is thin, then synthesize an answer.
func (e *Engine) handleGeneric(ctx context.Context, query string) *Response {
	entities := e.extractor.ExtractWithFallback(query)
	logger.Info("Extracted entities", zap.Strings("entities", entities))

	var news []models.NewsItem
	financialData := map[string]any{}

	for _, entity := range entities {
		entityNews, err := e.data.NewsForEntity(entity, 30)
		if err == nil {
			news = append(news, entityNews...)
		}

		record, err := e.data.FinancialRecord(entity)
		if err != nil {
			continue
		}
		financialData[record.Type] = record.Data

		if record.Type == models.TypeFund {
			holdings, err := e.data.Holdings(entity)
			if err == nil && len(holdings) > 0 {
				if len(holdings) > 10 {
					holdings = holdings[:10]
				}
				financialData["holdings"] = holdings
			}
		}
	}

	queryLower := strings.ToLower(query)
	if strings.Contains(queryLower, "news") && len(news) == 0 {
		recent, err := e.data.RecentNews(5)
		if err == nil {
			news = recent
		}
	}

	if (len(news) < 2 || len(financialData) == 0) && e.external != nil {
		external := e.searchExternal(ctx, query)
		for i := range external {
			external[i].Source = "[External] " + external[i].Source
		}
		news = append(news, external...)
	}

	answer := e.synthesize(query, news, financialData)

	confidence := 0.5
	if len(entities) > 0 || len(news) > 0 || len(financialData) > 0 {
		confidence = 0.85
	}

	resp := newResponse(answer, confidence)
	resp.RelatedNews = firstN(news, 5)
	resp.FinancialData = financialData
	return resp
}

// searchCompanyNews is the supplemental per-company retrieval used by
// the specific handlers when stored coverage is thin.
func (e *Engine) searchCompanyNews(ctx context.Context, company string) []models.NewsItem {
	metrics.ExternalSearchTotal.Inc()

	items, err := e.external.SearchCompanyNews(ctx, company)
	if err != nil {
		logger.Warn("Supplemental company news failed",
			zap.String("company", company),
			zap.Error(err),
		)
		return nil
	}
	return items
}

// searchExternal retries with the first three words when the full
// query finds nothing.
func (e *Engine) searchExternal(ctx context.Context, query string) []models.NewsItem {
	metrics.ExternalSearchTotal.Inc()

	items, err := e.external.Search(ctx, query)
	if err != nil {
		logger.Warn("External news search failed", zap.Error(err))
		return nil
	}

	if len(items) == 0 {
		words := strings.Fields(query)
		if len(words) > 3 {
			simplified := strings.Join(words[:3], " ")
			items, err = e.external.Search(ctx, simplified)
			if err != nil {
				return nil
			}
		}
	}
	return items
}
