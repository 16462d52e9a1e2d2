package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/pkg/logger"
	"github.com/newswise/backend/pkg/retry"
)

// source describes one news site and the selectors that locate its
// headline list. Selectors break when sites redesign; parse failures
// are logged and skipped, never fatal.
type source struct {
	name         string
	listURL      string
	searchURL    string
	itemSel      string
	titleSel     string
	summarySel   string
	linkSel      string
	dateSel      string
}

var sources = []source{
	{
		name:       "MoneyControl",
		listURL:    "https://www.moneycontrol.com/news/business/markets/",
		searchURL:  "https://www.moneycontrol.com/news/tags/%s.html",
		itemSel:    "li.clearfix",
		titleSel:   "h2 a",
		summarySel: "p",
		linkSel:    "h2 a",
		dateSel:    "span",
	},
	{
		name:       "Economic Times",
		listURL:    "https://economictimes.indiatimes.com/markets/stocks/news",
		searchURL:  "https://economictimes.indiatimes.com/topic/%s",
		itemSel:    "div.eachStory",
		titleSel:   "h3 a",
		summarySel: "p",
		linkSel:    "h3 a",
		dateSel:    "time",
	},
	{
		name:       "LiveMint",
		listURL:    "https://www.livemint.com/market",
		searchURL:  "https://www.livemint.com/Search/Link/Keyword/%s",
		itemSel:    "div.listingNew",
		titleSel:   "h2 a",
		summarySel: "p",
		linkSel:    "h2 a",
		dateSel:    "span",
	},
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

const itemsPerSource = 10

var dateFormats = []string{
	"02 Jan 2006",
	"Jan 02, 2006",
	"2006-01-02",
	time.RFC3339,
}

// Client fetches financial news from public sites and, when a NewsAPI
// key is configured, from the NewsAPI search endpoint.
type Client struct {
	httpClient *http.Client
	newsAPIKey string
	maxResults int
	retryCfg   retry.Config
	uaCounter  atomic.Uint64
}

func NewClient(newsAPIKey string, maxResults int, timeout time.Duration) *Client {
	if maxResults <= 0 {
		maxResults = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		newsAPIKey: newsAPIKey,
		maxResults: maxResults,
		retryCfg: retry.Config{
			MaxAttempts:  2,
			InitialDelay: 300 * time.Millisecond,
			Logger:       logger.GetLogger(),
		},
	}
}

func (c *Client) userAgent() string {
	n := c.uaCounter.Add(1)
	return userAgents[int(n)%len(userAgents)]
}

// FetchLatest pulls the front-page headlines from every configured
// source. A source that fails or returns nothing is skipped.
func (c *Client) FetchLatest(ctx context.Context) ([]models.NewsItem, error) {
	var items []models.NewsItem
	for _, src := range sources {
		parsed, err := c.fetchSource(ctx, src, src.listURL)
		if err != nil {
			logger.Warn("News source fetch failed",
				zap.String("source", src.name),
				zap.Error(err),
			)
			continue
		}
		items = append(items, parsed...)
	}

	logger.Info("Latest news fetched", zap.Int("items", len(items)))
	return items, nil
}

// SearchCompanyNews queries each source's search page for one company.
func (c *Client) SearchCompanyNews(ctx context.Context, company string) ([]models.NewsItem, error) {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(company), " ", "-"))

	var items []models.NewsItem
	for _, src := range sources {
		searchURL := fmt.Sprintf(src.searchURL, url.PathEscape(slug))
		parsed, err := c.fetchSource(ctx, src, searchURL)
		if err != nil {
			logger.Warn("Company news search failed",
				zap.String("source", src.name),
				zap.String("company", company),
				zap.Error(err),
			)
			continue
		}
		for i := range parsed {
			parsed[i].Entities = append(parsed[i].Entities, company)
		}
		items = append(items, parsed...)
	}

	return items, nil
}

func (c *Client) fetchSource(ctx context.Context, src source, pageURL string) ([]models.NewsItem, error) {
	return retry.DoWithResult(ctx, c.retryCfg, func() ([]models.NewsItem, error) {
		return c.fetchOnce(ctx, src, pageURL)
	})
}

func (c *Client) fetchOnce(ctx context.Context, src source, pageURL string) ([]models.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return c.parseSource(doc, src), nil
}

func (c *Client) parseSource(doc *goquery.Document, src source) []models.NewsItem {
	var items []models.NewsItem
	doc.Find(src.itemSel).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(items) >= itemsPerSource {
			return false
		}

		title := strings.TrimSpace(s.Find(src.titleSel).First().Text())
		if title == "" {
			return true
		}

		link, _ := s.Find(src.linkSel).First().Attr("href")
		summary := strings.TrimSpace(s.Find(src.summarySel).First().Text())
		dateText := strings.TrimSpace(s.Find(src.dateSel).First().Text())

		items = append(items, models.NewsItem{
			Title:   title,
			Summary: summary,
			Source:  src.name,
			URL:     link,
			Date:    parseDate(dateText),
		})
		return true
	})
	return items
}

// parseDate tries the formats seen across the sources and falls back
// to now, keeping undated articles in the recency window rather than
// dropping them.
func parseDate(text string) time.Time {
	text = strings.TrimSpace(text)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, text); err == nil {
			return t
		}
	}
	return time.Now()
}

// Search runs a keyword search through NewsAPI when a key is set. With
// no key it returns nothing so callers fall back to stored articles.
func (c *Client) Search(ctx context.Context, query string) ([]models.NewsItem, error) {
	if c.newsAPIKey == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", fmt.Sprintf("%d", c.maxResults))
	params.Set("apiKey", c.newsAPIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://newsapi.org/v2/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var searchResp struct {
		Articles []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	items := make([]models.NewsItem, 0, len(searchResp.Articles))
	for _, a := range searchResp.Articles {
		if a.Title == "" {
			continue
		}
		items = append(items, models.NewsItem{
			Title:   a.Title,
			Summary: a.Description,
			Source:  a.Source.Name,
			URL:     a.URL,
			Date:    parseDate(a.PublishedAt),
		})
	}

	logger.Info("External news search completed",
		zap.String("query", query),
		zap.Int("results", len(items)),
	)
	return items, nil
}
