package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"galaxy/internal/util"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("nvda", " aapl ", "")

	got, err := m.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "NVDA"}, got)

	require.NoError(t, m.Add(ctx, "msft"))
	require.NoError(t, m.Remove(ctx, "Nvda"))
	got, _ = m.Symbols(ctx)
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestSearch(t *testing.T) {
	universe := []string{"AMD", "AMZN", "GOOGL", "SPY", "META", "MA"}

	assert.Equal(t, []string{"MA", "META", "AMD", "AMZN"}, Search(universe, "m", 0))
	assert.Equal(t, []string{"MA", "META"}, Search(universe, "m", 2))
	assert.Equal(t, []string{"AMD", "AMZN", "GOOGL", "MA", "META", "SPY"}, Search(universe, "", 0))
	assert.Equal(t, []string{}, Search(universe, "zzz", 5))
}

func TestAlpacaNotReady(t *testing.T) {
	a := NewAlpaca("k", "s", "http://127.0.0.1:0", "", util.Discard())
	_, err := a.Symbols(context.Background())
	assert.True(t, errors.Is(err, ErrNotReady))
	assert.ErrorIs(t, a.Add(context.Background(), "AAPL"), ErrNotReady)
}

// fakeAlpaca serves the watchlist subset of the Alpaca trading API.
type fakeAlpaca struct {
	mu      sync.Mutex
	lists   map[string][]string // id -> symbols
	names   map[string]string   // id -> name
	creates int
}

type fakeAsset struct {
	Symbol string `json:"symbol"`
}

type fakeWatchlist struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Assets []fakeAsset `json:"assets"`
}

func (f *fakeAlpaca) view(id string) fakeWatchlist {
	w := fakeWatchlist{ID: id, Name: f.names[id], Assets: []fakeAsset{}}
	for _, s := range f.lists[id] {
		w.Assets = append(w.Assets, fakeAsset{Symbol: s})
	}
	return w
}

func (f *fakeAlpaca) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeAlpaca) handler() http.Handler {
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("APCA-API-KEY-ID") != "key" {
				http.Error(w, `{"code":40110000,"message":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			f.mu.Lock()
			defer f.mu.Unlock()
			next(w, r)
		}
	}
	mux.HandleFunc("GET /v2/watchlists", auth(func(w http.ResponseWriter, r *http.Request) {
		out := []fakeWatchlist{}
		for id := range f.lists {
			out = append(out, f.view(id))
		}
		reply(w, out)
	}))
	mux.HandleFunc("POST /v2/watchlists", auth(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		f.creates++
		id := "wl-" + req.Name
		f.lists[id] = nil
		f.names[id] = req.Name
		reply(w, f.view(id))
	}))
	mux.HandleFunc("GET /v2/watchlists/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		reply(w, f.view(r.PathValue("id")))
	}))
	mux.HandleFunc("POST /v2/watchlists/{id}", auth(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Symbol string `json:"symbol"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		id := r.PathValue("id")
		f.lists[id] = append(f.lists[id], req.Symbol)
		reply(w, f.view(id))
	}))
	mux.HandleFunc("DELETE /v2/watchlists/{id}/{symbol}", auth(func(w http.ResponseWriter, r *http.Request) {
		id, sym := r.PathValue("id"), r.PathValue("symbol")
		kept := f.lists[id][:0]
		for _, s := range f.lists[id] {
			if s != sym {
				kept = append(kept, s)
			}
		}
		f.lists[id] = kept
		w.WriteHeader(http.StatusNoContent)
	}))
	return mux
}

func TestAlpacaRoundTrip(t *testing.T) {
	fake := &fakeAlpaca{lists: map[string][]string{}, names: map[string]string{}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()
	ctx := context.Background()

	a := NewAlpaca("key", "secret", srv.URL, "", util.Discard())
	require.NoError(t, a.Init(ctx))
	assert.Equal(t, 1, fake.created())

	got, err := a.Symbols(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, a.Add(ctx, "nvda"))
	require.NoError(t, a.Add(ctx, " aapl"))
	got, err = a.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "NVDA"}, got)

	require.NoError(t, a.Remove(ctx, "Nvda"))
	got, err = a.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, got)

	// A second client finds the existing list by name instead of creating one.
	b := NewAlpaca("key", "secret", srv.URL, "", util.Discard())
	require.NoError(t, b.Init(ctx))
	assert.Equal(t, 1, fake.created())
	got, err = b.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, got)
}

func TestAlpacaInitError(t *testing.T) {
	fake := &fakeAlpaca{lists: map[string][]string{}, names: map[string]string{}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	a := NewAlpaca("wrong", "secret", srv.URL, "", util.Discard())
	assert.Error(t, a.Init(context.Background()))
	_, err := a.Symbols(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}
