package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moneyControlPage = `
<html><body><ul>
<li class="clearfix">
  <h2><a href="https://example.com/hdfc">HDFC Bank posts record profit</a></h2>
  <p>The lender beat estimates for the quarter.</p>
  <span>02 Jan 2006</span>
</li>
<li class="clearfix">
  <h2><a href="https://example.com/markets">Markets end higher</a></h2>
  <p>Indices closed in the green.</p>
  <span>not a date</span>
</li>
<li class="clearfix">
  <p>Stray item with no headline</p>
</li>
</ul></body></html>`

func TestFetchSourceParsesHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, moneyControlPage)
	}))
	defer srv.Close()

	c := NewClient("", 5, 10*time.Second)
	items, err := c.fetchSource(context.Background(), sources[0], srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "HDFC Bank posts record profit", items[0].Title)
	assert.Equal(t, "The lender beat estimates for the quarter.", items[0].Summary)
	assert.Equal(t, "MoneyControl", items[0].Source)
	assert.Equal(t, "https://example.com/hdfc", items[0].URL)
	assert.Equal(t, 2006, items[0].Date.Year())

	// Unparseable dates fall back to now instead of dropping the item.
	assert.WithinDuration(t, time.Now(), items[1].Date, time.Minute)
}

func TestFetchSourceRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("", 5, 10*time.Second)
	_, err := c.fetchSource(context.Background(), sources[0], srv.URL)
	assert.Error(t, err)
}

func TestParseSourceCapsItemCount(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i := 0; i < itemsPerSource+5; i++ {
		fmt.Fprintf(&b, `<li class="clearfix"><h2><a href="/a%d">Headline %d</a></h2></li>`, i, i)
	}
	b.WriteString("</ul></body></html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)

	c := NewClient("", 5, 10*time.Second)
	items := c.parseSource(doc, sources[0])
	assert.Len(t, items, itemsPerSource)
}

func TestParseDateFormats(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"02 Jan 2006", "2006-01-02"},
		{"Jan 02, 2006", "2006-01-02"},
		{"2006-01-02", "2006-01-02"},
		{"2006-01-02T15:04:05Z", "2006-01-02"},
	}
	for _, tt := range tests {
		got := parseDate(tt.text)
		assert.Equal(t, tt.want, got.Format("2006-01-02"), "text=%q", tt.text)
	}

	// Garbage falls back to now.
	assert.WithinDuration(t, time.Now(), parseDate("yesterday evening"), time.Minute)
}

func TestSearchWithoutKeyReturnsNothing(t *testing.T) {
	c := NewClient("", 5, 10*time.Second)

	items, err := c.Search(context.Background(), "hdfc bank")
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestUserAgentRotates(t *testing.T) {
	c := NewClient("", 5, 10*time.Second)

	seen := map[string]bool{}
	for i := 0; i < len(userAgents); i++ {
		seen[c.userAgent()] = true
	}
	assert.Len(t, seen, len(userAgents))
}
