// Package watchlist holds the user's pinned tickers and the ticker search
// used by the console and API.
package watchlist

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// List is a mutable set of ticker symbols.
type List interface {
	Symbols(ctx context.Context) ([]string, error)
	Add(ctx context.Context, symbol string) error
	Remove(ctx context.Context, symbol string) error
}

// Normalize upper-cases and trims a ticker symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Memory is an in-process List.
type Memory struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

var _ List = (*Memory)(nil)

// NewMemory creates a Memory list seeded with symbols.
func NewMemory(symbols ...string) *Memory {
	m := &Memory{symbols: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		if s = Normalize(s); s != "" {
			m.symbols[s] = struct{}{}
		}
	}
	return m
}

// Symbols returns the list sorted alphabetically.
func (m *Memory) Symbols(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.symbols))
	for s := range m.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Add(_ context.Context, symbol string) error {
	if symbol = Normalize(symbol); symbol == "" {
		return nil
	}
	m.mu.Lock()
	m.symbols[symbol] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, symbol string) error {
	m.mu.Lock()
	delete(m.symbols, Normalize(symbol))
	m.mu.Unlock()
	return nil
}

// Search returns up to limit tickers from universe matching q. Prefix
// matches come first, then substring matches, each group alphabetical. An
// empty query returns the first limit tickers.
func Search(universe []string, q string, limit int) []string {
	q = Normalize(q)
	var prefix, contains []string
	for _, t := range universe {
		u := strings.ToUpper(t)
		switch {
		case q == "" || strings.HasPrefix(u, q):
			prefix = append(prefix, t)
		case strings.Contains(u, q):
			contains = append(contains, t)
		}
	}
	sort.Strings(prefix)
	sort.Strings(contains)
	out := append(prefix, contains...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []string{}
	}
	return out
}
