package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/catalog"
	"github.com/newswise/backend/internal/metrics"
	"github.com/newswise/backend/internal/session"
	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/pkg/logger"
)

// DataProvider is the persisted financial and news record source,
// normally the sqlite store.
type DataProvider interface {
	FinancialRecord(name string) (*models.FinancialRecord, error)
	StockInfo(name string) (map[string]any, error)
	FundInfo(name string) (map[string]any, error)
	ETFInfo(name string) (map[string]any, error)
	NewsForEntity(entity string, days int) ([]models.NewsItem, error)
	SearchNews(query string, limit int) ([]models.NewsItem, error)
	RecentNews(limit int) ([]models.NewsItem, error)
	Holdings(fundName string) ([]models.HoldingRow, error)
}

// NewsProvider supplies supplemental retrieval when stored coverage is
// below the configured minimums. May be nil when scraping is disabled.
type NewsProvider interface {
	SearchCompanyNews(ctx context.Context, company string) ([]models.NewsItem, error)
	Search(ctx context.Context, query string) ([]models.NewsItem, error)
}

// HistoryRecorder persists processed turns. May be nil.
type HistoryRecorder interface {
	RecordQuery(record *models.QueryRecord) error
}

// Config carries the coverage thresholds that trigger supplemental
// retrieval.
type Config struct {
	MinEntityNews  int
	MinHandlerNews int
}

// Engine is the query interpretation and dialogue resolution core. One
// instance serves all sessions; per-session state lives in the store.
type Engine struct {
	catalog   *catalog.Catalog
	extractor *Extractor
	sessions  session.Store
	data      DataProvider
	external  NewsProvider
	history   HistoryRecorder

	minEntityNews  int
	minHandlerNews int

	matchers []matcher
}

func NewEngine(cat *catalog.Catalog, sessions session.Store, data DataProvider, external NewsProvider, history HistoryRecorder, cfg Config) *Engine {
	if cfg.MinEntityNews <= 0 {
		cfg.MinEntityNews = 5
	}
	if cfg.MinHandlerNews <= 0 {
		cfg.MinHandlerNews = 3
	}

	e := &Engine{
		catalog:        cat,
		extractor:      NewExtractor(cat),
		sessions:       sessions,
		data:           data,
		external:       external,
		history:        history,
		minEntityNews:  cfg.MinEntityNews,
		minHandlerNews: cfg.MinHandlerNews,
	}

	// Dispatch order is fixed: first match wins.
	e.matchers = []matcher{
		&comparisonMatcher{e},
		&clarificationMatcher{e},
		&entityOnlyMatcher{e},
		&templateMatcher{e},
		&genericMatcher{e},
	}

	return e
}

// ProcessQuery is the single entry point. It always returns a
// well-formed response; every failure mode degrades to an apology with
// reduced confidence instead of an error.
func (e *Engine) ProcessQuery(ctx context.Context, query, sessionID string) (resp *Response) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Query processing panicked",
				zap.Any("panic", r),
				zap.String("query", query),
			)
			resp = newResponse("I apologize, but I encountered an error processing your query. Please try again.", 0)
			resp.Intent = IntentError
		}
		e.finalize(resp, query, sessionID, start)
	}()

	logger.Info("Processing query",
		zap.String("query", query),
		zap.String("session_id", sessionID),
	)

	e.catalog.EnsureLoaded()

	state, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		logger.Warn("Session load failed, starting fresh", zap.Error(err))
		state = session.NewState()
	}
	state.LastQuery = query

	resp = e.dispatch(ctx, query, state)

	if err := e.sessions.Put(ctx, sessionID, state); err != nil {
		logger.Warn("Session save failed", zap.Error(err))
	}

	return resp
}

func (e *Engine) dispatch(ctx context.Context, query string, state *session.State) *Response {
	for _, m := range e.matchers {
		if handler, ok := m.tryMatch(query, state); ok {
			return handler(ctx)
		}
	}
	// genericMatcher always matches; this is unreachable.
	return newResponse("I don't have enough information to answer your query.", 0.5)
}

// finalize enforces the response invariants: confidence in [0,1], at
// most 5 related news items, no NaN or Infinity in financial data.
func (e *Engine) finalize(resp *Response, query, sessionID string, start time.Time) {
	if resp.RelatedNews == nil {
		resp.RelatedNews = []models.NewsItem{}
	}
	if len(resp.RelatedNews) > maxRelatedNews {
		resp.RelatedNews = resp.RelatedNews[:maxRelatedNews]
	}
	if resp.FinancialData == nil {
		resp.FinancialData = map[string]any{}
	}
	resp.FinancialData = sanitizeValues(resp.FinancialData)
	for i := range resp.ComparisonData {
		resp.ComparisonData[i].Data = sanitizeValues(resp.ComparisonData[i].Data)
	}
	if resp.Confidence < 0 {
		resp.Confidence = 0
	} else if resp.Confidence > 1 {
		resp.Confidence = 1
	}

	resp.ID = uuid.New().String()
	resp.LatencyMS = int(time.Since(start).Milliseconds())

	metrics.ObserveQuery(resp.Intent, resp.Confidence, time.Since(start).Seconds())

	if e.history != nil {
		record := &models.QueryRecord{
			ID:         resp.ID,
			SessionID:  sessionID,
			QueryText:  query,
			Answer:     resp.Answer,
			Confidence: resp.Confidence,
			Intent:     resp.Intent,
			LatencyMS:  resp.LatencyMS,
			CreatedAt:  time.Now(),
		}
		if err := e.history.RecordQuery(record); err != nil {
			logger.Warn("Query history write failed", zap.Error(err))
		}
	}
}
