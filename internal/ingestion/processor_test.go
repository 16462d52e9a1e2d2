package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswise/backend/internal/sentiment"
	"github.com/newswise/backend/internal/storage/models"
)

type fakeFetcher struct {
	items []models.NewsItem
	err   error
}

func (f *fakeFetcher) FetchLatest(_ context.Context) ([]models.NewsItem, error) {
	return f.items, f.err
}

type fakeStore struct {
	names     []string
	namesErr  error
	stored    []models.NewsItem
	storedNew int
	storeErr  error
}

func (s *fakeStore) StoreNews(items []models.NewsItem) (int, error) {
	if s.storeErr != nil {
		return 0, s.storeErr
	}
	s.stored = items
	return s.storedNew, nil
}

func (s *fakeStore) EntityNames() ([]string, error) { return s.names, s.namesErr }

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(_ context.Context, _ string) (sentiment.Result, error) {
	return sentiment.Result{}, errors.New("analyzer down")
}

func TestRefreshNewsTagsAndScores(t *testing.T) {
	fetcher := &fakeFetcher{items: []models.NewsItem{
		{Title: "HDFC Bank shares surge on record profit", Summary: "Banking stocks rally", Date: time.Now()},
		{Title: "Cricket world cup update", Summary: "Nothing financial here", Date: time.Now()},
	}}
	store := &fakeStore{names: []string{"HDFC Bank", "Infosys"}, storedNew: 2}

	p := NewProcessor(fetcher, store, sentiment.NewLexiconAnalyzer())
	result, err := p.RefreshNews(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 0, result.Skipped)

	require.Len(t, store.stored, 2)
	assert.Contains(t, store.stored[0].Entities, "HDFC Bank")
	assert.Contains(t, store.stored[0].Entities, "Banking")
	assert.Equal(t, sentiment.LabelPositive, store.stored[0].Sentiment)

	assert.Empty(t, store.stored[1].Entities)
	assert.Equal(t, sentiment.LabelNeutral, store.stored[1].Sentiment)
}

func TestRefreshNewsCountsSkipped(t *testing.T) {
	fetcher := &fakeFetcher{items: []models.NewsItem{
		{Title: "one"}, {Title: "two"}, {Title: "three"},
	}}
	store := &fakeStore{storedNew: 1}

	p := NewProcessor(fetcher, store, sentiment.NewLexiconAnalyzer())
	result, err := p.RefreshNews(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 2, result.Skipped)
}

func TestRefreshNewsPropagatesFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("all sources down")}
	p := NewProcessor(fetcher, &fakeStore{}, sentiment.NewLexiconAnalyzer())

	_, err := p.RefreshNews(context.Background())
	assert.Error(t, err)
}

func TestRefreshNewsSurvivesAnalyzerFailure(t *testing.T) {
	fetcher := &fakeFetcher{items: []models.NewsItem{
		{Title: "HDFC Bank surges", Date: time.Now()},
	}}
	store := &fakeStore{storedNew: 1}

	p := NewProcessor(fetcher, store, failingAnalyzer{})
	result, err := p.RefreshNews(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stored)
	require.Len(t, store.stored, 1)
	assert.Equal(t, sentiment.LabelNeutral, store.stored[0].Sentiment)
	assert.Zero(t, store.stored[0].SentimentScore)
}

func TestProcessKeepsExistingTags(t *testing.T) {
	store := &fakeStore{names: []string{"Infosys"}}
	p := NewProcessor(&fakeFetcher{}, store, sentiment.NewLexiconAnalyzer())

	items := p.Process(context.Background(), []models.NewsItem{
		{Title: "Infosys results beat estimates", Entities: []string{"Infosys"}},
	})

	require.Len(t, items, 1)
	// The pre-tagged name is not duplicated by vocabulary matching.
	count := 0
	for _, e := range items[0].Entities {
		if e == "Infosys" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestTagEntitiesMatchesIndexAndLocationVocab(t *testing.T) {
	tags := tagEntities(models.NewsItem{
		Title:   "Sensex slides as RBI holds rates",
		Summary: "Broader Nifty also closed lower",
	}, nil)

	assert.Contains(t, tags, "Sensex")
	assert.Contains(t, tags, "RBI")
	assert.Contains(t, tags, "Nifty")
}
