// Package picker maps pointer positions to particles for hover and click.
package picker

import (
	"math"

	"galaxy/internal/domain"
)

// DefaultRadius is the hit radius in screen pixels.
const DefaultRadius = 20.0

// Transform is an orthographic world-to-screen mapping. The screen origin
// is the top-left corner and world Y points up.
type Transform struct {
	Zoom      float64 `json:"zoom"`
	CenterX   float64 `json:"centerX"`
	CenterY   float64 `json:"centerY"`
	ViewportW float64 `json:"viewportW"`
	ViewportH float64 `json:"viewportH"`
}

// Scale returns pixels per world unit.
func (tr Transform) Scale() float64 { return math.Exp2(tr.Zoom) }

func (tr Transform) WorldToScreen(x, y float64) (float64, float64) {
	s := tr.Scale()
	return tr.ViewportW/2 + (x-tr.CenterX)*s, tr.ViewportH/2 - (y-tr.CenterY)*s
}

func (tr Transform) ScreenToWorld(px, py float64) (float64, float64) {
	s := tr.Scale()
	return tr.CenterX + (px-tr.ViewportW/2)/s, tr.CenterY - (py-tr.ViewportH/2)/s
}

// Nearest returns the node closest to screen point (px, py) if it lies
// within radius pixels. Among equally close nodes the first one wins.
func Nearest(px, py float64, nodes []domain.HydratedNode, tr Transform, radius float64) (domain.HydratedNode, bool) {
	best := -1
	bestDist := radius
	for i, n := range nodes {
		sx, sy := tr.WorldToScreen(n.X, n.Y)
		d := math.Hypot(sx-px, sy-py)
		if d > radius {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return domain.HydratedNode{}, false
	}
	return nodes[best], true
}

// Selection tracks the hovered and pinned tickers of one viewer.
type Selection struct {
	Hovered string  `json:"hovered,omitempty"`
	Pinned  string  `json:"pinned,omitempty"`
	Radius  float64 `json:"radius"`
}

// NewSelection returns an empty selection; a non-positive radius selects
// DefaultRadius.
func NewSelection(radius float64) *Selection {
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &Selection{Radius: radius}
}

// Hover updates the hovered ticker and returns the node under the pointer.
func (s *Selection) Hover(px, py float64, nodes []domain.HydratedNode, tr Transform) (domain.HydratedNode, bool) {
	n, ok := Nearest(px, py, nodes, tr, s.Radius)
	s.Hovered = n.Ticker
	return n, ok
}

// Click pins the node under the pointer. A click on empty background
// clears the pinned selection.
func (s *Selection) Click(px, py float64, nodes []domain.HydratedNode, tr Transform) (domain.HydratedNode, bool) {
	n, ok := Nearest(px, py, nodes, tr, s.Radius)
	s.Pinned = n.Ticker
	return n, ok
}

// Pin selects ticker directly, as from a search result.
func (s *Selection) Pin(ticker string) { s.Pinned = ticker }

// Clear drops both hover and pinned state.
func (s *Selection) Clear() {
	s.Hovered = ""
	s.Pinned = ""
}

// PinnedNode looks up the pinned ticker among nodes.
func (s *Selection) PinnedNode(nodes []domain.HydratedNode) (domain.HydratedNode, bool) {
	if s.Pinned == "" {
		return domain.HydratedNode{}, false
	}
	for _, n := range nodes {
		if n.Ticker == s.Pinned {
			return n, true
		}
	}
	return domain.HydratedNode{}, false
}
