package sqlite

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/pkg/logger"
)

// SeedSampleData loads a small starter dataset when the instrument
// tables are empty, so a fresh install answers queries before any
// ingestion has run. Safe to call on every startup.
func (c *Client) SeedSampleData() error {
	var count int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM stocks").Scan(&count); err != nil {
		return fmt.Errorf("failed to check stocks table: %w", err)
	}
	if count > 0 {
		return nil
	}

	type stockSeed struct {
		name, symbol, sector string
		data                 map[string]float64
	}
	stocks := []stockSeed{
		{"HDFC Bank", "HDFCBANK", "Banking", map[string]float64{
			models.MetricPrice: 1543.25, models.MetricReturns1D: 0.45, models.MetricReturns1W: 1.82,
			models.MetricReturns1M: 3.12, models.MetricReturns3M: 5.67, models.MetricReturns1Y: 12.34,
			models.MetricMarketCap: 8540000000000, models.MetricPERatio: 19.8,
		}},
		{"ICICI Bank", "ICICIBANK", "Banking", map[string]float64{
			models.MetricPrice: 987.60, models.MetricReturns1D: -0.23, models.MetricReturns1W: 0.91,
			models.MetricReturns1M: 2.45, models.MetricReturns3M: 7.10, models.MetricReturns1Y: 18.22,
			models.MetricMarketCap: 6920000000000, models.MetricPERatio: 17.3,
		}},
		{"SBI", "SBIN", "Banking", map[string]float64{
			models.MetricPrice: 612.40, models.MetricReturns1D: 0.12, models.MetricReturns1W: -0.54,
			models.MetricReturns1M: 1.78, models.MetricReturns3M: 4.32, models.MetricReturns1Y: 22.90,
			models.MetricMarketCap: 5460000000000, models.MetricPERatio: 11.2,
		}},
		{"Infosys", "INFY", "Technology", map[string]float64{
			models.MetricPrice: 1456.80, models.MetricReturns1D: -1.35, models.MetricReturns1W: -2.10,
			models.MetricReturns1M: 0.85, models.MetricReturns3M: 3.44, models.MetricReturns1Y: 9.87,
			models.MetricMarketCap: 6050000000000, models.MetricPERatio: 24.6,
		}},
		{"TCS", "TCS", "Technology", map[string]float64{
			models.MetricPrice: 3521.15, models.MetricReturns1D: 0.67, models.MetricReturns1W: 1.20,
			models.MetricReturns1M: 2.30, models.MetricReturns3M: 6.55, models.MetricReturns1Y: 15.40,
			models.MetricMarketCap: 12870000000000, models.MetricPERatio: 28.1,
		}},
		{"Reliance Industries", "RELIANCE", "Energy", map[string]float64{
			models.MetricPrice: 2389.45, models.MetricReturns1D: 0.92, models.MetricReturns1W: 2.41,
			models.MetricReturns1M: 4.18, models.MetricReturns3M: 8.73, models.MetricReturns1Y: 21.05,
			models.MetricMarketCap: 16150000000000, models.MetricPERatio: 26.4,
		}},
		{"Tata Motors", "TATAMOTORS", "Consumer", map[string]float64{
			models.MetricPrice: 634.90, models.MetricReturns1D: -0.78, models.MetricReturns1W: 1.15,
			models.MetricReturns1M: 5.62, models.MetricReturns3M: 12.30, models.MetricReturns1Y: 48.75,
			models.MetricMarketCap: 2110000000000, models.MetricPERatio: 15.7,
		}},
		{"Axis Bank", "AXISBANK", "Banking", map[string]float64{
			models.MetricPrice: 1045.30, models.MetricReturns1D: 0.31, models.MetricReturns1W: 1.44,
			models.MetricReturns1M: 2.89, models.MetricReturns3M: 6.21, models.MetricReturns1Y: 19.60,
			models.MetricMarketCap: 3220000000000, models.MetricPERatio: 13.9,
		}},
	}

	for _, s := range stocks {
		if err := c.UpsertStock(s.name, s.symbol, s.sector, s.data); err != nil {
			return err
		}
	}

	type fundSeed struct {
		scheme, category string
		data             map[string]float64
	}
	funds := []fundSeed{
		{"HDFC Top 100 Fund", "Large Cap", map[string]float64{
			models.MetricNAV: 812.45, models.MetricReturns1D: 0.22, models.MetricReturns1W: 1.05,
			models.MetricReturns1M: 2.67, models.MetricReturns3M: 5.91, models.MetricReturns1Y: 14.80,
			models.MetricExpenseRatio: 1.12,
		}},
		{"SBI Bluechip Fund", "Large Cap", map[string]float64{
			models.MetricNAV: 76.32, models.MetricReturns1D: 0.18, models.MetricReturns1W: 0.88,
			models.MetricReturns1M: 2.12, models.MetricReturns3M: 5.03, models.MetricReturns1Y: 13.25,
			models.MetricExpenseRatio: 0.97,
		}},
		{"ICICI Prudential Technology Fund", "Sectoral", map[string]float64{
			models.MetricNAV: 168.90, models.MetricReturns1D: -0.95, models.MetricReturns1W: -1.42,
			models.MetricReturns1M: 1.33, models.MetricReturns3M: 4.76, models.MetricReturns1Y: 28.44,
			models.MetricExpenseRatio: 1.85,
		}},
		{"Axis Midcap Fund", "Mid Cap", map[string]float64{
			models.MetricNAV: 94.17, models.MetricReturns1D: 0.41, models.MetricReturns1W: 1.67,
			models.MetricReturns1M: 3.88, models.MetricReturns3M: 9.12, models.MetricReturns1Y: 24.31,
			models.MetricExpenseRatio: 1.54,
		}},
	}

	for _, f := range funds {
		if err := c.UpsertFund(f.scheme, f.category, f.data); err != nil {
			return err
		}
	}

	etfs := []struct {
		name, symbol, category string
		data                   map[string]float64
	}{
		{"Nifty 50 ETF", "NIFTYBEES", "Index", map[string]float64{
			models.MetricNAV: 245.60, models.MetricReturns1D: 0.35, models.MetricReturns1W: 1.21,
			models.MetricReturns1M: 2.54, models.MetricReturns3M: 6.08, models.MetricReturns1Y: 16.72,
			models.MetricExpenseRatio: 0.05,
		}},
		{"Gold ETF", "GOLDBEES", "Commodity", map[string]float64{
			models.MetricNAV: 54.88, models.MetricReturns1D: 0.08, models.MetricReturns1W: 0.42,
			models.MetricReturns1M: 1.95, models.MetricReturns3M: 4.20, models.MetricReturns1Y: 11.35,
			models.MetricExpenseRatio: 0.50,
		}},
	}

	for _, e := range etfs {
		if err := c.UpsertETF(e.name, e.symbol, e.category, e.data); err != nil {
			return err
		}
	}

	holdings := []models.HoldingRow{
		{SchemeName: "HDFC Top 100 Fund", Company: "HDFC Bank", Weight: 9.8},
		{SchemeName: "HDFC Top 100 Fund", Company: "ICICI Bank", Weight: 8.4},
		{SchemeName: "HDFC Top 100 Fund", Company: "Reliance Industries", Weight: 7.9},
		{SchemeName: "HDFC Top 100 Fund", Company: "Infosys", Weight: 6.2},
		{SchemeName: "SBI Bluechip Fund", Company: "HDFC Bank", Weight: 8.7},
		{SchemeName: "SBI Bluechip Fund", Company: "Reliance Industries", Weight: 7.5},
		{SchemeName: "SBI Bluechip Fund", Company: "TCS", Weight: 5.9},
		{SchemeName: "ICICI Prudential Technology Fund", Company: "Infosys", Weight: 22.4},
		{SchemeName: "ICICI Prudential Technology Fund", Company: "TCS", Weight: 19.1},
		{SchemeName: "Axis Midcap Fund", Company: "Tata Motors", Weight: 4.3},
	}

	for _, h := range holdings {
		if err := c.InsertHolding(h); err != nil {
			return err
		}
	}

	now := time.Now()
	news := []models.NewsItem{
		{
			ID: uuid.New().String(), Title: "HDFC Bank posts steady quarterly profit growth",
			Summary: "HDFC Bank reported a rise in net profit for the quarter driven by loan growth and stable asset quality.",
			Source:  "MoneyControl", Date: now.Add(-6 * time.Hour),
			Sentiment: "positive", SentimentScore: 0.6, Entities: []string{"HDFC Bank", "Banking"},
		},
		{
			ID: uuid.New().String(), Title: "Infosys shares slip after muted revenue guidance",
			Summary: "Infosys fell in trade after the company trimmed its full-year revenue growth guidance citing weak discretionary spending.",
			Source:  "Economic Times", Date: now.Add(-20 * time.Hour),
			Sentiment: "negative", SentimentScore: -0.5, Entities: []string{"Infosys", "Technology"},
		},
		{
			ID: uuid.New().String(), Title: "RBI holds interest rates, markets steady",
			Summary: "The central bank kept policy rates unchanged as inflation stays within the target band, with bank stocks trading flat.",
			Source:  "LiveMint", Date: now.Add(-30 * time.Hour),
			Sentiment: "neutral", SentimentScore: 0.0, Entities: []string{"RBI", "Banking", "Nifty"},
		},
		{
			ID: uuid.New().String(), Title: "Reliance Industries surges on energy business outlook",
			Summary: "Reliance Industries gained after analysts raised targets on stronger refining margins and retail expansion.",
			Source:  "MoneyControl", Date: now.Add(-48 * time.Hour),
			Sentiment: "positive", SentimentScore: 0.7, Entities: []string{"Reliance Industries", "Energy"},
		},
	}

	if _, err := c.StoreNews(news); err != nil {
		return err
	}

	logger.Info("Sample dataset seeded",
		zap.Int("stocks", len(stocks)),
		zap.Int("funds", len(funds)),
		zap.Int("etfs", len(etfs)),
	)
	return nil
}
