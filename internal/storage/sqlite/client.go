package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/pkg/logger"
	"github.com/newswise/backend/pkg/utils"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stocks (
		name TEXT PRIMARY KEY,
		symbol TEXT,
		sector TEXT,
		price REAL,
		returns_1d REAL,
		returns_1w REAL,
		returns_1m REAL,
		returns_3m REAL,
		returns_1y REAL,
		market_cap REAL,
		pe_ratio REAL
	);
	CREATE INDEX IF NOT EXISTS idx_stocks_symbol ON stocks(symbol);
	CREATE INDEX IF NOT EXISTS idx_stocks_sector ON stocks(sector);

	CREATE TABLE IF NOT EXISTS funds (
		scheme_name TEXT PRIMARY KEY,
		category TEXT,
		nav REAL,
		returns_1d REAL,
		returns_1w REAL,
		returns_1m REAL,
		returns_3m REAL,
		returns_1y REAL,
		expense_ratio REAL
	);
	CREATE INDEX IF NOT EXISTS idx_funds_category ON funds(category);

	CREATE TABLE IF NOT EXISTS etfs (
		name TEXT PRIMARY KEY,
		symbol TEXT,
		category TEXT,
		nav REAL,
		returns_1d REAL,
		returns_1w REAL,
		returns_1m REAL,
		returns_3m REAL,
		returns_1y REAL,
		expense_ratio REAL
	);
	CREATE INDEX IF NOT EXISTS idx_etfs_symbol ON etfs(symbol);

	CREATE TABLE IF NOT EXISTS news (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT,
		source TEXT,
		url TEXT,
		published_at INTEGER NOT NULL,
		sentiment TEXT,
		sentiment_score REAL,
		entities TEXT,
		dedup_key TEXT UNIQUE
	);
	CREATE INDEX IF NOT EXISTS idx_news_published ON news(published_at);

	CREATE TABLE IF NOT EXISTS holdings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scheme_name TEXT NOT NULL,
		company TEXT NOT NULL,
		weight REAL
	);
	CREATE INDEX IF NOT EXISTS idx_holdings_scheme ON holdings(scheme_name);
	CREATE INDEX IF NOT EXISTS idx_holdings_company ON holdings(company);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		query_text TEXT NOT NULL,
		answer TEXT,
		confidence REAL,
		intent TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_session ON query_history(session_id);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// returnKeys maps dataset column names to response metric keys in the
// fixed presentation order used throughout the engine.
var returnColumns = []struct {
	column string
	key    string
}{
	{"returns_1d", models.MetricReturns1D},
	{"returns_1w", models.MetricReturns1W},
	{"returns_1m", models.MetricReturns1M},
	{"returns_3m", models.MetricReturns3M},
	{"returns_1y", models.MetricReturns1Y},
}

func put(data map[string]any, key string, v sql.NullFloat64) {
	if v.Valid {
		data[key] = v.Float64
	}
}

func putStr(data map[string]any, key string, v sql.NullString) {
	if v.Valid && v.String != "" {
		data[key] = v.String
	}
}

// StockInfo resolves a display name to a stock row. Matching is
// case-insensitive and proceeds exact -> substring -> short-prefix, so
// both "HDFC Bank" and "hdfc" find the same row.
func (c *Client) StockInfo(name string) (map[string]any, error) {
	row, err := c.findRow("stocks", "name", name)
	if err != nil {
		return nil, err
	}
	return c.scanStock(row)
}

func (c *Client) scanStock(row *sql.Row) (map[string]any, error) {
	var (
		rowName  string
		symbol   sql.NullString
		sector   sql.NullString
		price    sql.NullFloat64
		returns  [5]sql.NullFloat64
		mcap     sql.NullFloat64
		pe       sql.NullFloat64
	)

	err := row.Scan(&rowName, &symbol, &sector, &price,
		&returns[0], &returns[1], &returns[2], &returns[3], &returns[4],
		&mcap, &pe)
	if err != nil {
		return nil, err
	}

	data := map[string]any{"name": rowName}
	putStr(data, "symbol", symbol)
	putStr(data, "sector", sector)
	put(data, models.MetricPrice, price)
	for i, rc := range returnColumns {
		put(data, rc.key, returns[i])
	}
	put(data, models.MetricMarketCap, mcap)
	put(data, models.MetricPERatio, pe)
	return data, nil
}

// FundInfo resolves a scheme name to a mutual fund row with the same
// matching ladder as StockInfo.
func (c *Client) FundInfo(name string) (map[string]any, error) {
	row, err := c.findRow("funds", "scheme_name", name)
	if err != nil {
		return nil, err
	}

	var (
		scheme   string
		category sql.NullString
		nav      sql.NullFloat64
		returns  [5]sql.NullFloat64
		expense  sql.NullFloat64
	)

	err = row.Scan(&scheme, &category, &nav,
		&returns[0], &returns[1], &returns[2], &returns[3], &returns[4],
		&expense)
	if err != nil {
		return nil, err
	}

	data := map[string]any{"scheme_name": scheme}
	putStr(data, models.MetricCategory, category)
	put(data, models.MetricNAV, nav)
	for i, rc := range returnColumns {
		put(data, rc.key, returns[i])
	}
	put(data, models.MetricExpenseRatio, expense)
	return data, nil
}

func (c *Client) ETFInfo(name string) (map[string]any, error) {
	row, err := c.findRow("etfs", "name", name)
	if err != nil {
		return nil, err
	}

	var (
		rowName  string
		symbol   sql.NullString
		category sql.NullString
		nav      sql.NullFloat64
		returns  [5]sql.NullFloat64
		expense  sql.NullFloat64
	)

	err = row.Scan(&rowName, &symbol, &category, &nav,
		&returns[0], &returns[1], &returns[2], &returns[3], &returns[4],
		&expense)
	if err != nil {
		return nil, err
	}

	data := map[string]any{"name": rowName}
	putStr(data, "symbol", symbol)
	putStr(data, models.MetricCategory, category)
	put(data, models.MetricNAV, nav)
	for i, rc := range returnColumns {
		put(data, rc.key, returns[i])
	}
	put(data, models.MetricExpenseRatio, expense)
	return data, nil
}

// findRow runs the three-step match against one table. The exact step
// also matches ticker symbols where the table has them, so "INFY"
// resolves like "Infosys". Short queries (abbreviations like "sbi" or
// "hdfc") additionally try a prefix match before giving up.
func (c *Client) findRow(table, nameCol, name string) (*sql.Row, error) {
	q := strings.TrimSpace(name)
	if q == "" {
		return nil, sql.ErrNoRows
	}

	allCols := map[string]string{
		"stocks": "name, symbol, sector, price, returns_1d, returns_1w, returns_1m, returns_3m, returns_1y, market_cap, pe_ratio",
		"funds":  "scheme_name, category, nav, returns_1d, returns_1w, returns_1m, returns_3m, returns_1y, expense_ratio",
		"etfs":   "name, symbol, category, nav, returns_1d, returns_1w, returns_1m, returns_3m, returns_1y, expense_ratio",
	}
	cols := allCols[table]

	exactCond := fmt.Sprintf("LOWER(%s) = LOWER(?)", nameCol)
	exactArgs := []any{q}
	if table == "stocks" || table == "etfs" {
		exactCond = fmt.Sprintf("(LOWER(%s) = LOWER(?) OR LOWER(symbol) = LOWER(?))", nameCol)
		exactArgs = []any{q, q}
	}

	exact := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", cols, table, exactCond)
	var probe string
	if err := c.db.QueryRow(fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", nameCol, table, exactCond), exactArgs...).Scan(&probe); err == nil {
		return c.db.QueryRow(exact, exactArgs...), nil
	}

	partial := fmt.Sprintf("SELECT %s FROM %s WHERE LOWER(%s) LIKE LOWER(?) ORDER BY LENGTH(%s) LIMIT 1", cols, table, nameCol, nameCol)
	if err := c.db.QueryRow(fmt.Sprintf("SELECT %s FROM %s WHERE LOWER(%s) LIKE LOWER(?) LIMIT 1", nameCol, table, nameCol), "%"+q+"%").Scan(&probe); err == nil {
		return c.db.QueryRow(partial, "%"+q+"%"), nil
	}

	if len(q) <= 5 {
		prefix := fmt.Sprintf("SELECT %s FROM %s WHERE LOWER(%s) LIKE LOWER(?) ORDER BY LENGTH(%s) LIMIT 1", cols, table, nameCol, nameCol)
		if err := c.db.QueryRow(fmt.Sprintf("SELECT %s FROM %s WHERE LOWER(%s) LIKE LOWER(?) LIMIT 1", nameCol, table, nameCol), q+"%").Scan(&probe); err == nil {
			return c.db.QueryRow(prefix, q+"%"), nil
		}
	}

	return nil, sql.ErrNoRows
}

// FinancialRecord is the unified identifier lookup: stocks win over
// funds, funds over ETFs when a name matches more than one table.
func (c *Client) FinancialRecord(name string) (*models.FinancialRecord, error) {
	if data, err := c.StockInfo(name); err == nil {
		return &models.FinancialRecord{Type: models.TypeStock, Data: data}, nil
	}
	if data, err := c.FundInfo(name); err == nil {
		return &models.FinancialRecord{Type: models.TypeFund, Data: data}, nil
	}
	if data, err := c.ETFInfo(name); err == nil {
		return &models.FinancialRecord{Type: models.TypeETF, Data: data}, nil
	}
	return nil, sql.ErrNoRows
}

const newsColumns = "id, title, summary, source, url, published_at, sentiment, sentiment_score, entities"

func scanNewsRows(rows *sql.Rows) ([]models.NewsItem, error) {
	var items []models.NewsItem
	for rows.Next() {
		var (
			item        models.NewsItem
			summary     sql.NullString
			source      sql.NullString
			url         sql.NullString
			publishedAt int64
			sentiment   sql.NullString
			score       sql.NullFloat64
			entities    sql.NullString
		)

		err := rows.Scan(&item.ID, &item.Title, &summary, &source, &url,
			&publishedAt, &sentiment, &score, &entities)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		item.Summary = summary.String
		item.Source = source.String
		item.URL = url.String
		item.Date = time.Unix(publishedAt, 0)
		item.Sentiment = sentiment.String
		item.SentimentScore = score.Float64
		if entities.Valid && entities.String != "" {
			json.Unmarshal([]byte(entities.String), &item.Entities)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// NewsForEntity returns stored articles mentioning the entity within
// the last `days` days, newest first, capped at 50. The match covers
// the tagged entity list plus title and summary text so untagged
// articles are still found.
func (c *Client) NewsForEntity(entity string, days int) ([]models.NewsItem, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days).Unix()

	query := fmt.Sprintf(`
		SELECT %s FROM news
		WHERE published_at >= ?
		  AND (LOWER(entities) LIKE LOWER(?)
		   OR LOWER(title) LIKE LOWER(?)
		   OR LOWER(summary) LIKE LOWER(?))
		ORDER BY published_at DESC
		LIMIT 50
	`, newsColumns)

	pattern := "%" + entity + "%"
	rows, err := c.db.Query(query, cutoff, pattern, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	defer rows.Close()

	return scanNewsRows(rows)
}

// SearchNews ranks stored articles by how many query words appear in
// the title or summary.
func (c *Client) SearchNews(query string, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 10
	}

	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil, nil
	}

	var (
		scoreParts []string
		whereParts []string
		args       []any
	)
	for _, w := range words {
		pattern := "%" + w + "%"
		scoreParts = append(scoreParts, "(CASE WHEN LOWER(title) LIKE ? THEN 2 WHEN LOWER(summary) LIKE ? THEN 1 ELSE 0 END)")
		whereParts = append(whereParts, "LOWER(title) LIKE ? OR LOWER(summary) LIKE ?")
		args = append(args, pattern, pattern)
	}
	// Score args come first in the SELECT list, then the WHERE args.
	args = append(args, args...)
	args = append(args, limit)

	sqlText := fmt.Sprintf(`
		SELECT %s FROM news
		WHERE %s
		ORDER BY (%s) DESC, published_at DESC
		LIMIT ?
	`, newsColumns, strings.Join(whereParts, " OR "), strings.Join(scoreParts, " + "))

	rows, err := c.db.Query(sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search news: %w", err)
	}
	defer rows.Close()

	return scanNewsRows(rows)
}

func (c *Client) RecentNews(limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf("SELECT %s FROM news ORDER BY published_at DESC LIMIT ?", newsColumns)
	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent news: %w", err)
	}
	defer rows.Close()

	return scanNewsRows(rows)
}

// StoreNews inserts articles, skipping ones already present. Dedup is
// by hashed title+source so the same story from a different source is
// kept. Returns the number of newly stored items.
func (c *Client) StoreNews(items []models.NewsItem) (int, error) {
	query := `
		INSERT OR IGNORE INTO news (id, title, summary, source, url, published_at, sentiment, sentiment_score, entities, dedup_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stored := 0
	for _, item := range items {
		id := item.ID
		if id == "" {
			id = uuid.New().String()
		}
		entitiesJSON, _ := json.Marshal(item.Entities)
		dedupKey := utils.HashString(strings.ToLower(item.Title) + "|" + strings.ToLower(item.Source))

		res, err := c.db.Exec(query, id, item.Title, item.Summary, item.Source, item.URL,
			item.Date.Unix(), item.Sentiment, item.SentimentScore, string(entitiesJSON), dedupKey)
		if err != nil {
			return stored, fmt.Errorf("failed to store news item: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stored++
		}
	}

	logger.Debug("News stored", zap.Int("received", len(items)), zap.Int("stored", stored))
	return stored, nil
}

func (c *Client) Holdings(schemeName string) ([]models.HoldingRow, error) {
	query := `
		SELECT scheme_name, company, weight
		FROM holdings
		WHERE LOWER(scheme_name) LIKE LOWER(?)
		ORDER BY weight DESC
	`

	rows, err := c.db.Query(query, "%"+schemeName+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.HoldingRow
	for rows.Next() {
		var h models.HoldingRow
		var weight sql.NullFloat64
		if err := rows.Scan(&h.SchemeName, &h.Company, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		h.Weight = weight.Float64
		holdings = append(holdings, h)
	}

	return holdings, rows.Err()
}

func (c *Client) InsertHolding(h models.HoldingRow) error {
	_, err := c.db.Exec(`INSERT INTO holdings (scheme_name, company, weight) VALUES (?, ?, ?)`,
		h.SchemeName, h.Company, h.Weight)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}
	return nil
}

// EntityNames returns every known instrument name and ticker symbol
// across all three tables. The catalog loads this once and matches
// against it.
func (c *Client) EntityNames() ([]string, error) {
	query := `
		SELECT name FROM stocks
		UNION
		SELECT symbol FROM stocks WHERE symbol IS NOT NULL AND symbol != ''
		UNION
		SELECT scheme_name FROM funds
		UNION
		SELECT name FROM etfs
		UNION
		SELECT symbol FROM etfs WHERE symbol IS NOT NULL AND symbol != ''
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get entity names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func (c *Client) UpsertStock(name, symbol, sector string, data map[string]float64) error {
	query := `
		INSERT INTO stocks (name, symbol, sector, price, returns_1d, returns_1w, returns_1m, returns_3m, returns_1y, market_cap, pe_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			price = excluded.price,
			returns_1d = excluded.returns_1d,
			returns_1w = excluded.returns_1w,
			returns_1m = excluded.returns_1m,
			returns_3m = excluded.returns_3m,
			returns_1y = excluded.returns_1y,
			market_cap = excluded.market_cap,
			pe_ratio = excluded.pe_ratio
	`
	_, err := c.db.Exec(query, name, symbol, sector,
		data[models.MetricPrice],
		data[models.MetricReturns1D], data[models.MetricReturns1W], data[models.MetricReturns1M],
		data[models.MetricReturns3M], data[models.MetricReturns1Y],
		data[models.MetricMarketCap], data[models.MetricPERatio])
	if err != nil {
		return fmt.Errorf("failed to upsert stock: %w", err)
	}
	return nil
}

func (c *Client) UpsertFund(schemeName, category string, data map[string]float64) error {
	query := `
		INSERT INTO funds (scheme_name, category, nav, returns_1d, returns_1w, returns_1m, returns_3m, returns_1y, expense_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scheme_name) DO UPDATE SET
			nav = excluded.nav,
			returns_1d = excluded.returns_1d,
			returns_1w = excluded.returns_1w,
			returns_1m = excluded.returns_1m,
			returns_3m = excluded.returns_3m,
			returns_1y = excluded.returns_1y,
			expense_ratio = excluded.expense_ratio
	`
	_, err := c.db.Exec(query, schemeName, category,
		data[models.MetricNAV],
		data[models.MetricReturns1D], data[models.MetricReturns1W], data[models.MetricReturns1M],
		data[models.MetricReturns3M], data[models.MetricReturns1Y],
		data[models.MetricExpenseRatio])
	if err != nil {
		return fmt.Errorf("failed to upsert fund: %w", err)
	}
	return nil
}

func (c *Client) UpsertETF(name, symbol, category string, data map[string]float64) error {
	query := `
		INSERT INTO etfs (name, symbol, category, nav, returns_1d, returns_1w, returns_1m, returns_3m, returns_1y, expense_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			nav = excluded.nav,
			returns_1d = excluded.returns_1d,
			returns_1w = excluded.returns_1w,
			returns_1m = excluded.returns_1m,
			returns_3m = excluded.returns_3m,
			returns_1y = excluded.returns_1y,
			expense_ratio = excluded.expense_ratio
	`
	_, err := c.db.Exec(query, name, symbol, category,
		data[models.MetricNAV],
		data[models.MetricReturns1D], data[models.MetricReturns1W], data[models.MetricReturns1M],
		data[models.MetricReturns3M], data[models.MetricReturns1Y],
		data[models.MetricExpenseRatio])
	if err != nil {
		return fmt.Errorf("failed to upsert etf: %w", err)
	}
	return nil
}

func (c *Client) RecordQuery(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, session_id, query_text, answer, confidence, intent, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.SessionID,
		record.QueryText,
		record.Answer,
		record.Confidence,
		record.Intent,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Info("Query recorded",
		zap.String("query_id", record.ID),
		zap.String("intent", record.Intent),
		zap.Float64("confidence", record.Confidence),
	)

	return nil
}

func (c *Client) QueryHistory(sessionID string, limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, session_id, query_text, answer, confidence, intent, latency_ms, created_at
		FROM query_history
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var createdAt int64

		err := rows.Scan(&r.ID, &r.SessionID, &r.QueryText, &r.Answer, &r.Confidence, &r.Intent, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}
