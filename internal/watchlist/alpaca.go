package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"galaxy/internal/util"
)

// DefaultName is the Alpaca watchlist used when none is configured by id.
const DefaultName = "galaxy"

// ErrNotReady is returned before the remote watchlist has been resolved.
var ErrNotReady = errors.New("watchlist not configured")

// Alpaca is a List backed by an Alpaca account watchlist.
type Alpaca struct {
	client  *alpacaapi.Client
	name    string
	limiter *util.RateLimiter
	log     *slog.Logger

	mu sync.RWMutex
	id string
}

var _ List = (*Alpaca)(nil)

// NewAlpaca creates an Alpaca-backed list. id may be empty, in which case
// Init finds or creates the watchlist named DefaultName.
func NewAlpaca(apiKey, apiSecret, baseURL, id string, log *slog.Logger) *Alpaca {
	client := alpacaapi.NewClient(alpacaapi.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})
	return &Alpaca{
		client: client,
		name:   DefaultName,
		// Alpaca allows 200 requests per minute per account.
		limiter: util.NewBurstLimiter(180, 10),
		log:     log,
		id:      id,
	}
}

// Init resolves the watchlist id, creating the list if it does not exist.
func (a *Alpaca) Init(ctx context.Context) error {
	a.mu.RLock()
	have := a.id != ""
	a.mu.RUnlock()
	if have {
		return nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}
	lists, err := a.client.GetWatchlists()
	if err != nil {
		return fmt.Errorf("listing watchlists: %w", err)
	}
	for _, w := range lists {
		if w.Name == a.name {
			a.setID(w.ID)
			a.log.Info("watchlist found", "id", w.ID)
			return nil
		}
	}

	w, err := a.client.CreateWatchlist(alpacaapi.CreateWatchlistRequest{Name: a.name})
	if err != nil {
		return fmt.Errorf("creating watchlist: %w", err)
	}
	a.setID(w.ID)
	a.log.Info("watchlist created", "id", w.ID)
	return nil
}

func (a *Alpaca) setID(id string) {
	a.mu.Lock()
	a.id = id
	a.mu.Unlock()
}

func (a *Alpaca) ready(ctx context.Context) (string, error) {
	a.mu.RLock()
	id := a.id
	a.mu.RUnlock()
	if id == "" {
		return "", ErrNotReady
	}
	return id, a.limiter.Wait(ctx)
}

func (a *Alpaca) Symbols(ctx context.Context) ([]string, error) {
	id, err := a.ready(ctx)
	if err != nil {
		return nil, err
	}
	wl, err := a.client.GetWatchlist(id)
	if err != nil {
		return nil, fmt.Errorf("getting watchlist: %w", err)
	}
	symbols := make([]string, 0, len(wl.Assets))
	for _, asset := range wl.Assets {
		symbols = append(symbols, asset.Symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (a *Alpaca) Add(ctx context.Context, symbol string) error {
	id, err := a.ready(ctx)
	if err != nil {
		return err
	}
	symbol = Normalize(symbol)
	if _, err := a.client.AddSymbolToWatchlist(id, alpacaapi.AddSymbolToWatchlistRequest{Symbol: symbol}); err != nil {
		return fmt.Errorf("adding %s: %w", symbol, err)
	}
	return nil
}

func (a *Alpaca) Remove(ctx context.Context, symbol string) error {
	id, err := a.ready(ctx)
	if err != nil {
		return err
	}
	symbol = Normalize(symbol)
	if err := a.client.RemoveSymbolFromWatchlist(id, alpacaapi.RemoveSymbolFromWatchlistRequest{Symbol: symbol}); err != nil {
		return fmt.Errorf("removing %s: %w", symbol, err)
	}
	return nil
}
