package chat

import (
	"fmt"
	"strings"

	"github.com/newswise/backend/internal/storage/models"
)

var (
	newsWords        = []string{"news", "update", "latest", "report", "announcement"}
	priceWords       = []string{"price", "value", "worth", "cost", "rate"}
	performanceWords = []string{"performance", "return", "gain", "growth"}
)

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// synthesize composes the generic answer from resolved data and news.
// Sections are appended in a fixed order: financial metrics, internal
// news, external news, then a fallback sentence only if nothing else
// was produced.
func (e *Engine) synthesize(query string, newsItems []models.NewsItem, financialData map[string]any) string {
	queryLower := strings.ToLower(query)

	var internal, external []models.NewsItem
	for _, item := range newsItems {
		if strings.HasPrefix(item.Source, "[External]") {
			external = append(external, item)
		} else {
			internal = append(internal, item)
		}
	}

	isNewsQuery := containsAny(queryLower, newsWords)
	isPriceQuery := containsAny(queryLower, priceWords)
	isPerformanceQuery := containsAny(queryLower, performanceWords)

	var parts []string

	if len(financialData) > 0 && (isPriceQuery || isPerformanceQuery) {
		if stock, ok := financialData[models.TypeStock].(map[string]any); ok {
			name := "the stock"
			if n, ok := getString(stock, "name"); ok {
				name = n
			}
			if price, ok := getFloat(stock, models.MetricPrice); ok && isPriceQuery {
				parts = append(parts, fmt.Sprintf("The current price of %s is ₹%.2f.", name, price))
			}
			if isPerformanceQuery {
				if change, ok := getFloat(stock, models.MetricReturns1D); ok {
					parts = append(parts, fmt.Sprintf("%s is %s by %.2f%% today.", name, upOrDown(change), abs(change)))
				}
				if yearly, ok := getFloat(stock, models.MetricReturns1Y); ok {
					parts = append(parts, fmt.Sprintf("The 1-year return is %.2f%%.", yearly))
				}
			}
		} else if fund, ok := financialData[models.TypeFund].(map[string]any); ok {
			name := "the fund"
			if n, ok := getString(fund, "scheme_name"); ok {
				name = n
			}
			if nav, ok := getFloat(fund, models.MetricNAV); ok && isPriceQuery {
				parts = append(parts, fmt.Sprintf("The current NAV of %s is ₹%.2f.", name, nav))
			}
			if isPerformanceQuery {
				if yearly, ok := getFloat(fund, models.MetricReturns1Y); ok {
					parts = append(parts, fmt.Sprintf("The 1-year return is %.2f%%.", yearly))
				}
			}
		}
	}

	if len(newsItems) > 0 && (isNewsQuery || len(parts) == 0) {
		if len(internal) > 0 {
			item := internal[0]
			source := item.Source
			if source == "" {
				source = "recent news"
			}
			parts = append(parts, fmt.Sprintf("According to %s, %s.", source, item.Title))
			if len(internal) > 1 {
				parts = append(parts, fmt.Sprintf("There are %d more related news items available.", len(internal)))
			}
		}

		if len(external) > 0 {
			item := external[0]
			source := strings.TrimPrefix(item.Source, "[External] ")
			parts = append(parts, fmt.Sprintf("%s reports: %s", source, item.Title))
			if len(item.Summary) > 10 {
				parts = append(parts, fmt.Sprintf("Summary: %s", item.Summary))
			}
			if item.URL != "" {
				parts = append(parts, fmt.Sprintf("For more details, refer to: %s", item.URL))
			}
			if len(external) > 1 {
				parts = append(parts, fmt.Sprintf("I found %d additional news sources with relevant information.", len(external)-1))
			}
		}
	}

	if len(parts) == 0 {
		switch {
		case isNewsQuery:
			parts = append(parts, "I couldn't find any recent news matching your query. You might want to try a more specific question.")
		case isPriceQuery || isPerformanceQuery:
			parts = append(parts, "I don't have the specific financial data you're looking for. Please try asking about a specific stock or fund.")
		default:
			parts = append(parts, "I don't have enough information to answer your query. Please try a more specific question about stocks, funds, or market news.")
		}
	}

	return strings.Join(parts, " ")
}

func getFloat(data map[string]any, key string) (float64, bool) {
	switch v := data[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func getString(data map[string]any, key string) (string, bool) {
	if v, ok := data[key].(string); ok && v != "" {
		return v, true
	}
	return "", false
}
