package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubSource struct {
	names []string
	err   error
}

func (s *stubSource) EntityNames() ([]string, error) { return s.names, s.err }

func TestLoadMergesSourceAndWellKnownNames(t *testing.T) {
	cat := New(&stubSource{names: []string{"Acme Industries", "HDFC Bank"}})

	names := cat.Names()

	assert.Contains(t, names, "Acme Industries")
	// Well-known institutions are merged in without duplication.
	assert.Contains(t, names, "ICICI Bank")
	count := 0
	for _, n := range names {
		if n == "HDFC Bank" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestNamesSortedLongestFirst(t *testing.T) {
	cat := New(&stubSource{names: []string{"AB", "A Very Long Company Name Indeed"}})

	names := cat.Names()

	assert.Equal(t, "A Very Long Company Name Indeed", names[0])
}

func TestCanonicalIsCaseInsensitive(t *testing.T) {
	cat := New(&stubSource{names: []string{"Tata Motors"}})

	got, ok := cat.Canonical("  tata motors ")
	assert.True(t, ok)
	assert.Equal(t, "Tata Motors", got)

	_, ok = cat.Canonical("unknown co")
	assert.False(t, ok)
}

func TestLoadFailureDegradesToWellKnown(t *testing.T) {
	src := &stubSource{err: errors.New("source down")}
	cat := New(src)

	names := cat.Names()
	assert.Contains(t, names, "HDFC Bank")

	// The next use retries the source once it recovers.
	src.err = nil
	src.names = []string{"Fresh Name"}
	assert.Contains(t, cat.Names(), "Fresh Name")
}

func TestRefreshReloads(t *testing.T) {
	src := &stubSource{names: []string{"Old Name"}}
	cat := New(src)
	assert.Contains(t, cat.Names(), "Old Name")

	src.names = []string{"New Name"}
	cat.Refresh()
	assert.Contains(t, cat.Names(), "New Name")
}
