package ingestion

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newswise/backend/internal/sentiment"
	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/pkg/logger"
)

// Fetcher pulls fresh articles from the outside world.
type Fetcher interface {
	FetchLatest(ctx context.Context) ([]models.NewsItem, error)
}

// Store persists processed articles. StoreNews must skip duplicates
// and report how many were actually new.
type Store interface {
	StoreNews(items []models.NewsItem) (int, error)
	EntityNames() ([]string, error)
}

// Tag vocabularies beyond instrument names. Index, sector and location
// mentions are tagged so sector and macro queries find these articles.
var (
	indexNames = []string{"Nifty", "Sensex", "Nifty 50", "Bank Nifty"}

	sectorNames = []string{
		"Technology", "Finance", "Healthcare", "Energy", "Consumer", "Banking",
	}

	locationNames = []string{"India", "US", "China", "Europe", "RBI", "Fed"}
)

// Result summarizes one refresh run.
type Result struct {
	Fetched int `json:"fetched"`
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
}

// Processor is the news ingestion pipeline: fetch, tag entities, score
// sentiment, store.
type Processor struct {
	fetcher  Fetcher
	store    Store
	analyzer sentiment.Analyzer
}

func NewProcessor(fetcher Fetcher, store Store, analyzer sentiment.Analyzer) *Processor {
	return &Processor{fetcher: fetcher, store: store, analyzer: analyzer}
}

// RefreshNews runs one full ingestion pass. Sentiment failures leave
// an article neutral rather than dropping it.
func (p *Processor) RefreshNews(ctx context.Context) (*Result, error) {
	start := time.Now()

	items, err := p.fetcher.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}

	knownEntities, err := p.store.EntityNames()
	if err != nil {
		logger.Warn("Entity names unavailable for tagging", zap.Error(err))
	}

	for i := range items {
		items[i].Entities = tagEntities(items[i], knownEntities)

		res, err := p.analyzer.Analyze(ctx, items[i].Title+". "+items[i].Summary)
		if err != nil {
			logger.Warn("Sentiment analysis failed",
				zap.String("title", items[i].Title),
				zap.Error(err),
			)
			res = sentiment.Result{Label: sentiment.LabelNeutral}
		}
		items[i].Sentiment = res.Label
		items[i].SentimentScore = res.Score
	}

	stored, err := p.store.StoreNews(items)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Fetched: len(items),
		Stored:  stored,
		Skipped: len(items) - stored,
	}

	logger.Info("News refresh completed",
		zap.Int("fetched", result.Fetched),
		zap.Int("stored", result.Stored),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// Process tags and scores a batch from an external search before it is
// stored, used when handler paths pull news on demand.
func (p *Processor) Process(ctx context.Context, items []models.NewsItem) []models.NewsItem {
	knownEntities, _ := p.store.EntityNames()

	for i := range items {
		items[i].Entities = tagEntities(items[i], knownEntities)

		res, err := p.analyzer.Analyze(ctx, items[i].Title+". "+items[i].Summary)
		if err != nil {
			res = sentiment.Result{Label: sentiment.LabelNeutral}
		}
		items[i].Sentiment = res.Label
		items[i].SentimentScore = res.Score
	}
	return items
}

func tagEntities(item models.NewsItem, knownEntities []string) []string {
	text := strings.ToLower(item.Title + " " + item.Summary)

	seen := make(map[string]struct{}, len(item.Entities))
	tags := make([]string, 0, len(item.Entities))
	add := func(name string) {
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		tags = append(tags, name)
	}

	for _, e := range item.Entities {
		add(e)
	}
	for _, vocab := range [][]string{knownEntities, indexNames, sectorNames, locationNames} {
		for _, name := range vocab {
			if strings.Contains(text, strings.ToLower(name)) {
				add(name)
			}
		}
	}
	return tags
}
