package chat

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswise/backend/internal/catalog"
	"github.com/newswise/backend/internal/metrics"
	"github.com/newswise/backend/internal/session"
	"github.com/newswise/backend/internal/storage/models"
)

type fakeData struct {
	stocks map[string]map[string]any
	funds  map[string]map[string]any
	etfs   map[string]map[string]any
	news   []models.NewsItem
	recent []models.NewsItem
}

func (f *fakeData) lookup(table map[string]map[string]any, name string) (map[string]any, error) {
	q := strings.ToLower(strings.TrimSpace(name))
	if data, ok := table[q]; ok {
		return data, nil
	}
	for key, data := range table {
		if strings.Contains(key, q) || strings.Contains(q, key) {
			return data, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeData) StockInfo(name string) (map[string]any, error) { return f.lookup(f.stocks, name) }
func (f *fakeData) FundInfo(name string) (map[string]any, error)  { return f.lookup(f.funds, name) }
func (f *fakeData) ETFInfo(name string) (map[string]any, error)   { return f.lookup(f.etfs, name) }

func (f *fakeData) FinancialRecord(name string) (*models.FinancialRecord, error) {
	if data, err := f.StockInfo(name); err == nil {
		return &models.FinancialRecord{Type: models.TypeStock, Data: data}, nil
	}
	if data, err := f.FundInfo(name); err == nil {
		return &models.FinancialRecord{Type: models.TypeFund, Data: data}, nil
	}
	if data, err := f.ETFInfo(name); err == nil {
		return &models.FinancialRecord{Type: models.TypeETF, Data: data}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeData) NewsForEntity(entity string, days int) ([]models.NewsItem, error) {
	var out []models.NewsItem
	for _, item := range f.news {
		text := strings.ToLower(item.Title + " " + strings.Join(item.Entities, " "))
		if strings.Contains(text, strings.ToLower(entity)) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeData) SearchNews(query string, limit int) ([]models.NewsItem, error) {
	var out []models.NewsItem
	for _, item := range f.news {
		if strings.Contains(strings.ToLower(item.Title+" "+item.Summary), strings.ToLower(query)) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeData) RecentNews(limit int) ([]models.NewsItem, error) { return f.recent, nil }

func (f *fakeData) Holdings(fundName string) ([]models.HoldingRow, error) { return nil, nil }

func (f *fakeData) EntityNames() ([]string, error) {
	var names []string
	for _, table := range []map[string]map[string]any{f.stocks, f.funds, f.etfs} {
		for _, data := range table {
			if name, ok := data["name"].(string); ok {
				names = append(names, name)
			} else if name, ok := data["scheme_name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func newTestEngine(t *testing.T, data *fakeData) (*Engine, session.Store) {
	t.Helper()
	sessions := session.NewMemoryStore()
	cat := catalog.New(data)
	return NewEngine(cat, sessions, data, nil, nil, Config{}), sessions
}

func testData() *fakeData {
	return &fakeData{
		stocks: map[string]map[string]any{
			"hdfc bank": {
				"name": "HDFC Bank", models.MetricPrice: 1543.25,
				models.MetricReturns1D: 0.45, models.MetricReturns1Y: 12.34,
				models.MetricMarketCap: 8540000.0, models.MetricPERatio: 19.8,
			},
			"icici bank": {
				"name": "ICICI Bank", models.MetricPrice: 987.60,
				models.MetricReturns1D: -0.23, models.MetricReturns1Y: 18.22,
				models.MetricMarketCap: 6920000.0, models.MetricPERatio: 17.3,
			},
		},
		funds: map[string]map[string]any{
			"hdfc top 100 fund": {
				"scheme_name": "HDFC Top 100 Fund", models.MetricNAV: 812.45,
				models.MetricReturns1Y: 14.80, models.MetricCategory: "Large Cap",
				models.MetricExpenseRatio: 1.12,
			},
		},
		etfs: map[string]map[string]any{},
	}
}

func TestEntityOnlyQueryTriggersDisambiguation(t *testing.T) {
	engine, sessions := newTestEngine(t, testData())
	ctx := context.Background()

	resp := engine.ProcessQuery(ctx, "HDFC Bank", "s1")

	assert.True(t, resp.IsPrompt)
	assert.Contains(t, resp.Answer, "HDFC Bank")
	assert.Contains(t, resp.Answer, "stock, mutual fund, or ETF")
	assert.Equal(t, 0.9, resp.Confidence)
	assert.Empty(t, resp.FinancialData)
	assert.Empty(t, resp.RelatedNews)

	state, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.PhaseAwaitingEntityType, state.Phase)
	assert.Equal(t, "HDFC Bank", state.Entity)
}

func TestClarificationReplyResolvesEntity(t *testing.T) {
	engine, sessions := newTestEngine(t, testData())
	ctx := context.Background()

	engine.ProcessQuery(ctx, "HDFC Bank", "s1")
	resp := engine.ProcessQuery(ctx, "stock", "s1")

	assert.False(t, resp.IsPrompt)
	assert.Contains(t, resp.Answer, "Price: ₹1543.25")
	assert.Equal(t, 0.9, resp.Confidence)
	assert.Contains(t, resp.FinancialData, "stock")

	state, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.PhaseInitial, state.Phase)
	assert.Empty(t, state.Entity)
}

func TestClarificationReplyWithoutKeywordReprompts(t *testing.T) {
	engine, sessions := newTestEngine(t, testData())
	ctx := context.Background()

	engine.ProcessQuery(ctx, "HDFC Bank", "s1")
	resp := engine.ProcessQuery(ctx, "yes please", "s1")

	assert.True(t, resp.IsPrompt)
	assert.Contains(t, resp.Answer, "Would you like information about HDFC Bank")

	state, err := sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.PhaseAwaitingEntityType, state.Phase)
	assert.Equal(t, "HDFC Bank", state.Entity)
}

func TestMutualFundKeywordResolvesAsFund(t *testing.T) {
	engine, _ := newTestEngine(t, testData())
	ctx := context.Background()

	engine.ProcessQuery(ctx, "HDFC Top", "s2")
	resp := engine.ProcessQuery(ctx, "mutual fund", "s2")

	assert.Contains(t, resp.Answer, "NAV: ₹812.45")
	assert.Contains(t, resp.FinancialData, "fund")
}

func TestComparisonProducesTableWithVerdicts(t *testing.T) {
	engine, _ := newTestEngine(t, testData())

	resp := engine.ProcessQuery(context.Background(), "Compare HDFC Bank and ICICI Bank", "s1")

	assert.Equal(t, IntentComparison, resp.Intent)
	assert.Equal(t, 0.9, resp.Confidence)
	require.NotNil(t, resp.TableData)
	require.Len(t, resp.ComparisonData, 2)
	assert.Equal(t, models.TypeStock, resp.ComparisonData[0].Type)

	var priceRow *ComparisonRow
	for i := range resp.TableData.Rows {
		if resp.TableData.Rows[i].Metric == "Current Price (₹)" {
			priceRow = &resp.TableData.Rows[i]
		}
	}
	require.NotNil(t, priceRow, "price row expected")
	assert.Contains(t, priceRow.Verdict, "higher")

	var peRow *ComparisonRow
	for i := range resp.TableData.Rows {
		if resp.TableData.Rows[i].Metric == "P/E Ratio" {
			peRow = &resp.TableData.Rows[i]
		}
	}
	require.NotNil(t, peRow)
	assert.Contains(t, peRow.Verdict, "lower P/E")
}

func TestComparisonAcrossTypesFailsSoft(t *testing.T) {
	engine, _ := newTestEngine(t, testData())

	resp := engine.ProcessQuery(context.Background(), "compare hdfc top 100 fund vs hdfc bank", "s1")

	assert.Equal(t, IntentComparison, resp.Intent)
	assert.Contains(t, resp.Answer, "different types of financial instruments")
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Nil(t, resp.TableData)
}

func TestStockMovementFallbackWithoutData(t *testing.T) {
	engine, _ := newTestEngine(t, testData())

	resp := engine.ProcessQuery(context.Background(), "Why did Infosys fall today?", "s1")

	assert.Equal(t, IntentStockMovement, resp.Intent)
	assert.Equal(t, 0.7, resp.Confidence)
	assert.Contains(t, resp.Answer, "couldn't find specific market data for infosys")
	assert.Empty(t, resp.FinancialData)
}

func TestStockMovementWithDataScoresHigh(t *testing.T) {
	data := testData()
	data.news = []models.NewsItem{
		{Title: "HDFC Bank posts profit growth", Source: "MoneyControl", Entities: []string{"HDFC Bank"}},
	}
	engine, _ := newTestEngine(t, data)

	resp := engine.ProcessQuery(context.Background(), "Why did HDFC Bank rise today?", "s1")

	assert.Equal(t, 0.9, resp.Confidence)
	assert.Contains(t, resp.FinancialData, "stock")
}

func TestMarketEventBuildsNarrative(t *testing.T) {
	data := testData()
	data.news = []models.NewsItem{
		{Title: "HDFC Bank posts steady growth", Summary: "Loan growth stays strong.", Entities: []string{"HDFC Bank"}},
		{Title: "HDFC Bank expands branch network", Entities: []string{"HDFC Bank"}},
	}
	engine, _ := newTestEngine(t, data)

	resp := engine.ProcessQuery(context.Background(), "What happened to hdfc bank today", "s1")

	assert.Equal(t, IntentMarketEvent, resp.Intent)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Contains(t, resp.Answer, "moved up by 0.45% today")
	assert.Contains(t, resp.Answer, "1. HDFC Bank posts steady growth")
	assert.Contains(t, resp.Answer, "Loan growth stays strong.")
}

func TestMacroNewsTwoSidedFilter(t *testing.T) {
	data := testData()
	data.news = []models.NewsItem{
		// Macro keyword plus asset-type mention: should pass the filter.
		{Title: "Global rally lifts banking stocks", Summary: "Markets surged worldwide.", Sentiment: "positive"},
		// Macro keyword only, no entity or asset-type mention: filtered out.
		{Title: "Global economy outlook improves", Summary: "Growth forecasts raised."},
	}
	engine, _ := newTestEngine(t, data)

	resp := engine.ProcessQuery(context.Background(), "global news affecting banking stocks", "s1")

	assert.Equal(t, IntentMacroNews, resp.Intent)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Contains(t, resp.Answer, "Here's how global news is affecting banking stocks:")
	assert.Contains(t, resp.Answer, "Global rally lifts banking stocks")
	assert.NotContains(t, resp.Answer, "outlook improves")
}

func TestQuarterlyResultsFiltersVocabulary(t *testing.T) {
	data := testData()
	data.news = []models.NewsItem{
		{Title: "HDFC Bank quarterly results beat estimates", Summary: "Net profit rose."},
		{Title: "HDFC Bank opens new branches", Summary: "Expansion continues."},
	}
	engine, _ := newTestEngine(t, data)

	resp := engine.ProcessQuery(context.Background(), "how was the last quarter for hdfc bank", "s1")

	assert.Equal(t, IntentQuarterlyResults, resp.Intent)
	assert.Equal(t, 0.9, resp.Confidence)
	assert.Contains(t, resp.Answer, "quarterly results beat estimates")
	assert.NotContains(t, resp.Answer, "opens new branches")
}

func TestUnrecognizedQueryFallsBackAtLowConfidence(t *testing.T) {
	engine, _ := newTestEngine(t, testData())

	resp := engine.ProcessQuery(context.Background(), "tell me something interesting about the weather", "s1")

	assert.Equal(t, IntentGeneric, resp.Intent)
	assert.Equal(t, 0.5, resp.Confidence)
	assert.Contains(t, resp.Answer, "I don't have enough information")
}

func TestGenericPathAnswersPriceQuestions(t *testing.T) {
	engine, _ := newTestEngine(t, testData())

	resp := engine.ProcessQuery(context.Background(), "what is the price of HDFC Bank shares", "s1")

	assert.Equal(t, 0.85, resp.Confidence)
	assert.Contains(t, resp.Answer, "The current price of HDFC Bank is ₹1543.25.")
	assert.Contains(t, resp.FinancialData, "stock")
}

func TestResponseInvariantsHold(t *testing.T) {
	data := testData()
	data.stocks["hdfc bank"][models.MetricPERatio] = math.NaN()
	data.stocks["hdfc bank"][models.MetricMarketCap] = math.Inf(1)
	for i := 0; i < 8; i++ {
		data.news = append(data.news, models.NewsItem{
			Title: "HDFC Bank update", Entities: []string{"HDFC Bank"},
		})
	}
	engine, _ := newTestEngine(t, data)

	resp := engine.ProcessQuery(context.Background(), "latest news plus price of HDFC Bank shares today", "s1")

	assert.LessOrEqual(t, len(resp.RelatedNews), 5)
	assert.GreaterOrEqual(t, resp.Confidence, 0.0)
	assert.LessOrEqual(t, resp.Confidence, 1.0)

	assert.Equal(t, IntentGeneric, resp.Intent)
	stock, ok := resp.FinancialData["stock"].(map[string]any)
	require.True(t, ok, "stock data expected on the generic path")
	assert.Nil(t, stock[models.MetricPERatio])
	assert.Nil(t, stock[models.MetricMarketCap])
	assert.NotEmpty(t, resp.ID)
}

func TestComparisonDataSanitized(t *testing.T) {
	data := testData()
	data.stocks["icici bank"][models.MetricPERatio] = math.NaN()
	engine, _ := newTestEngine(t, data)

	resp := engine.ProcessQuery(context.Background(), "Compare HDFC Bank and ICICI Bank", "s1")

	require.Len(t, resp.ComparisonData, 2)
	found := false
	for _, entry := range resp.ComparisonData {
		if name, _ := entry.Data["name"].(string); name == "ICICI Bank" {
			found = true
			assert.Nil(t, entry.Data[models.MetricPERatio])
		}
	}
	assert.True(t, found, "ICICI Bank entry expected in comparison data")
}

type fakeExternal struct {
	items        []models.NewsItem
	companyCalls int
	searchCalls  int
}

func (f *fakeExternal) SearchCompanyNews(_ context.Context, _ string) ([]models.NewsItem, error) {
	f.companyCalls++
	return f.items, nil
}

func (f *fakeExternal) Search(_ context.Context, _ string) ([]models.NewsItem, error) {
	f.searchCalls++
	return f.items, nil
}

func TestSupplementalSearchesAreCounted(t *testing.T) {
	data := testData()
	external := &fakeExternal{items: []models.NewsItem{
		{Title: "Infosys slides on weak guidance", Source: "MoneyControl"},
	}}
	engine := NewEngine(catalog.New(data), session.NewMemoryStore(), data, external, nil, Config{})

	before := testutil.ToFloat64(metrics.ExternalSearchTotal)
	resp := engine.ProcessQuery(context.Background(), "Why did Infosys fall today?", "s1")
	after := testutil.ToFloat64(metrics.ExternalSearchTotal)

	assert.Equal(t, IntentStockMovement, resp.Intent)
	assert.Equal(t, 1, external.companyCalls)
	assert.GreaterOrEqual(t, after-before, 1.0)
}

func TestNewsQueryUsesRecentNewsWhenNothingMatches(t *testing.T) {
	data := testData()
	data.recent = []models.NewsItem{
		{Title: "Markets close higher", Source: "LiveMint"},
	}
	engine, _ := newTestEngine(t, data)

	resp := engine.ProcessQuery(context.Background(), "any market news updates for me today please", "s1")

	assert.Contains(t, resp.Answer, "Markets close higher")
}
