package physics

import (
	"sort"

	"galaxy/internal/domain"
)

// DefaultTrailLookback is how many previous frames a trail covers.
const DefaultTrailLookback = 5

// Trail is the recent path of one ticker, oldest point first.
type Trail struct {
	Ticker    string       `json:"ticker" msgpack:"ticker"`
	Path      [][2]float64 `json:"path" msgpack:"path"`
	Sentiment float64      `json:"sentiment" msgpack:"sentiment"`
}

// Trails returns per-ticker paths over frames [index-lookback, index]. The
// sentiment of each trail is taken from frame index. No trails are produced
// at index 0.
func Trails(timeline []domain.Frame, index, lookback int) []Trail {
	if index <= 0 || index >= len(timeline) {
		return nil
	}
	if lookback <= 0 {
		lookback = DefaultTrailLookback
	}
	start := max(0, index-lookback)
	current := &timeline[index]

	paths := make(map[string][][2]float64)
	for i := start; i <= index; i++ {
		for _, n := range timeline[i].Nodes {
			paths[n.Ticker] = append(paths[n.Ticker], [2]float64{n.X, n.Y})
		}
	}

	out := make([]Trail, 0, len(paths))
	for ticker, path := range paths {
		tr := Trail{Ticker: ticker, Path: path}
		if n, ok := current.Node(ticker); ok {
			tr.Sentiment = n.Sentiment
		}
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// HistoryPoint is one ticker's hydrated state on one date.
type HistoryPoint struct {
	Date string              `json:"date"`
	Node domain.HydratedNode `json:"node"`
}

// History returns every hydrated node for ticker in chronological order.
func History(timeline []domain.Frame, ticker string) []HistoryPoint {
	var out []HistoryPoint
	for i := range timeline {
		if n, ok := timeline[i].Node(ticker); ok {
			out = append(out, HistoryPoint{Date: timeline[i].Date, Node: n})
		}
	}
	return out
}
