package catalog

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/newswise/backend/pkg/logger"
)

// Source supplies instrument names, normally the sqlite store.
type Source interface {
	EntityNames() ([]string, error)
}

// wellKnown covers institutions users mention that may be missing from
// the loaded dataset. They are merged in so disambiguation still works
// on a thin or partially loaded catalog.
var wellKnown = []string{
	"HDFC Bank",
	"ICICI Bank",
	"SBI",
	"State Bank of India",
	"Axis Bank",
	"Kotak Mahindra Bank",
	"Infosys",
	"TCS",
	"Reliance Industries",
	"Tata Motors",
	"Wipro",
	"Bajaj Finance",
}

// Catalog is the set of known entity names used for extraction and
// lookup. Loading is lazy and failures degrade to the well-known set
// rather than blocking query processing.
type Catalog struct {
	source Source

	mu     sync.RWMutex
	loaded bool
	names  []string
	index  map[string]string
}

func New(source Source) *Catalog {
	return &Catalog{source: source}
}

// EnsureLoaded populates the catalog on first use. A source failure is
// logged and leaves the well-known names in place; the next call tries
// again.
func (c *Catalog) EnsureLoaded() {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return
	}

	merged := make(map[string]string)
	for _, name := range wellKnown {
		merged[strings.ToLower(name)] = name
	}

	fromSource := 0
	if c.source != nil {
		names, err := c.source.EntityNames()
		if err != nil {
			logger.Warn("Catalog load failed, using well-known names only", zap.Error(err))
			c.rebuild(merged)
			return
		}
		for _, name := range names {
			merged[strings.ToLower(name)] = name
			fromSource++
		}
	}

	c.rebuild(merged)
	c.loaded = true
	logger.Info("Entity catalog loaded",
		zap.Int("from_source", fromSource),
		zap.Int("total", len(c.names)),
	)
}

// rebuild sorts names longest-first so extraction prefers the most
// specific match ("HDFC Bank" over "HDFC").
func (c *Catalog) rebuild(index map[string]string) {
	names := make([]string, 0, len(index))
	for _, name := range index {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	c.names = names
	c.index = index
}

// Names returns the known entity names, longest first.
func (c *Catalog) Names() []string {
	c.EnsureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Canonical resolves a case-insensitive name to its catalog spelling.
func (c *Catalog) Canonical(name string) (string, bool) {
	c.EnsureLoaded()
	c.mu.RLock()
	defer c.mu.RUnlock()
	canonical, ok := c.index[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Refresh drops the loaded set so the next use reloads from the source.
// Called after ingestion adds instruments.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}
