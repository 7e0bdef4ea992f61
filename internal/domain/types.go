// Package domain defines the core value types shared across the galaxy
// engine: raw snapshot samples, hydrated frames, and the transient display
// frame handed to renderers.
package domain

import (
	"sort"
)

// RawSample is one (date, ticker) row of a precomputed market snapshot.
// Malformed is set by decoders when the coordinates could not be read as
// numbers; such samples are dropped during hydration.
type RawSample struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Ticker    string  `json:"ticker"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Headline  string  `json:"headline"`
	Sentiment float64 `json:"sentiment"` // [-1, 1]
	Malformed bool    `json:"-"`
}

// HydratedNode is a RawSample after scaling, with derived velocity, energy
// and sector. On a display frame X, Y, VX, VY hold spline-interpolated values.
type HydratedNode struct {
	Ticker    string  `json:"ticker" msgpack:"ticker"`
	X         float64 `json:"x" msgpack:"x"`
	Y         float64 `json:"y" msgpack:"y"`
	VX        float64 `json:"vx" msgpack:"vx"`
	VY        float64 `json:"vy" msgpack:"vy"`
	Energy    float64 `json:"energy" msgpack:"energy"`
	Headline  string  `json:"headline" msgpack:"headline"`
	Sentiment float64 `json:"sentiment" msgpack:"sentiment"`
	Sector    string  `json:"sector" msgpack:"sector"`
}

// SectorAggregate is the energy-weighted summary of one sector on one date.
type SectorAggregate struct {
	Sector string  `json:"sector" msgpack:"sector"`
	Label  string  `json:"label" msgpack:"label"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	VX     float64 `json:"vx" msgpack:"vx"`
	VY     float64 `json:"vy" msgpack:"vy"`
	Energy float64 `json:"energy" msgpack:"energy"`
	Count  int     `json:"count" msgpack:"count"`
}

// Frame is the hydrated state of every ticker on one trading date. Frames
// are shared read-only once the timeline is built.
type Frame struct {
	Date    string
	Nodes   []HydratedNode
	Sectors []SectorAggregate
	NodeMap map[string]int // ticker → index into Nodes
}

// Node returns the node for ticker on this frame.
func (f *Frame) Node(ticker string) (HydratedNode, bool) {
	i, ok := f.NodeMap[ticker]
	if !ok {
		return HydratedNode{}, false
	}
	return f.Nodes[i], true
}

// MaxEnergy returns the largest node energy on the frame (0 when empty).
func (f *Frame) MaxEnergy() float64 {
	maxE := 0.0
	for i := range f.Nodes {
		if f.Nodes[i].Energy > maxE {
			maxE = f.Nodes[i].Energy
		}
	}
	return maxE
}

// DisplayFrame is the filtered, interpolated view at one progress value.
type DisplayFrame struct {
	DateLabel  string            `json:"dateLabel" msgpack:"dateLabel"`
	Index      int               `json:"index" msgpack:"index"`
	T          float64           `json:"t" msgpack:"t"`
	Progress   float64           `json:"progress" msgpack:"progress"`
	Playing    bool              `json:"playing" msgpack:"playing"`
	Nodes      []HydratedNode    `json:"nodes" msgpack:"nodes"`
	Sectors    []SectorAggregate `json:"sectors" msgpack:"sectors"`
	SectorsAll []SectorAggregate `json:"sectorsAll" msgpack:"sectorsAll"`
}

// ---------------------------------------------------------------------------
// Sentiment
// ---------------------------------------------------------------------------

// SentimentClass buckets a sentiment score for filtering and colouring.
type SentimentClass string

const (
	SentimentPositive SentimentClass = "positive"
	SentimentNeutral  SentimentClass = "neutral"
	SentimentNegative SentimentClass = "negative"
)

// SentimentThreshold is the absolute score beyond which a node is no longer
// neutral.
const SentimentThreshold = 0.1

// Classify returns the sentiment class of s.
func Classify(s float64) SentimentClass {
	switch {
	case s > SentimentThreshold:
		return SentimentPositive
	case s < -SentimentThreshold:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// ---------------------------------------------------------------------------
// Anchors
// ---------------------------------------------------------------------------

// DefaultAnchors are the index and mega-cap tickers that stay visible as
// reference points regardless of filters.
var DefaultAnchors = []string{
	"SPY", "QQQ", "IWM", "DIA",
	"AAPL", "MSFT", "NVDA", "GOOGL",
	"AMZN", "META", "TSLA",
	"JPM", "V", "UNH", "XOM",
	"AMD", "GME",
}

// AnchorSet is a set of tickers exempt from view filters.
type AnchorSet map[string]struct{}

// NewAnchorSet builds an AnchorSet from tickers.
func NewAnchorSet(tickers []string) AnchorSet {
	s := make(AnchorSet, len(tickers))
	for _, t := range tickers {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether ticker is an anchor.
func (a AnchorSet) Has(ticker string) bool {
	_, ok := a[ticker]
	return ok
}

// ---------------------------------------------------------------------------
// View kinds
// ---------------------------------------------------------------------------

// ViewKind tags what a renderer should draw for the current display frame.
type ViewKind int

const (
	ViewScatter ViewKind = iota
	ViewTable
	ViewCustom
)

func (k ViewKind) String() string {
	switch k {
	case ViewScatter:
		return "scatter"
	case ViewTable:
		return "table"
	case ViewCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// SortedTickers returns the tickers of nodes in ascending order.
func SortedTickers(nodes []HydratedNode) []string {
	out := make([]string, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Ticker
	}
	sort.Strings(out)
	return out
}
