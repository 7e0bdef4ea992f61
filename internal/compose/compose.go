// Package compose produces the display frame shown at a given timeline
// progress: it selects spline control frames, applies the view filters and
// interpolates the surviving particles.
package compose

import (
	"math"

	"galaxy/internal/domain"
	"galaxy/internal/physics"
	"galaxy/internal/spline"
)

// InitializingLabel is the date label of a display frame built from an
// empty timeline.
const InitializingLabel = "INITIALIZING..."

// progressEpsilon keeps the base index strictly below the last frame so a
// segment always has a successor.
const progressEpsilon = 1e-4

// Compose builds the display frame for progress over timeline. It never
// modifies timeline.
func Compose(timeline []domain.Frame, progress float64, filters domain.FilterSet, anchors domain.AnchorSet) domain.DisplayFrame {
	if len(timeline) == 0 {
		return domain.DisplayFrame{DateLabel: InitializingLabel, Nodes: []domain.HydratedNode{}}
	}

	last := len(timeline) - 1
	if math.IsNaN(progress) {
		progress = 0
	}
	safe := math.Max(0, math.Min(progress, float64(last)-progressEpsilon))
	index := int(math.Floor(safe))
	t := safe - float64(index)

	i0, i1, i2, i3 := spline.ControlIndices(index, last)
	f0, f1, f2, f3 := &timeline[i0], &timeline[i1], &timeline[i2], &timeline[i3]

	maxEnergy := math.Max(f1.MaxEnergy(), 1)

	nodes := make([]domain.HydratedNode, 0, len(f1.Nodes))
	for _, node := range f1.Nodes {
		if !Visible(node, filters, anchors, maxEnergy) {
			continue
		}

		p1 := node
		p0, ok := f0.Node(node.Ticker)
		if !ok {
			p0 = node
		}
		p2, ok := f2.Node(node.Ticker)
		if !ok {
			p2 = node
		}
		p3, ok := f3.Node(node.Ticker)
		if !ok {
			p3 = p2
		}

		pos, vel := spline.Interpolate2(
			spline.Vec2{X: p0.X, Y: p0.Y},
			spline.Vec2{X: p1.X, Y: p1.Y},
			spline.Vec2{X: p2.X, Y: p2.Y},
			spline.Vec2{X: p3.X, Y: p3.Y},
			t,
		)
		node.X, node.Y = pos.X, pos.Y
		node.VX, node.VY = vel.X, vel.Y
		nodes = append(nodes, node)
	}

	return domain.DisplayFrame{
		DateLabel:  f1.Date,
		Index:      index,
		T:          t,
		Progress:   safe,
		Nodes:      nodes,
		Sectors:    physics.Aggregate(nodes),
		SectorsAll: f1.Sectors,
	}
}

// Visible applies the filter predicates to one base-frame node. maxEnergy
// is the frame's maximum energy, already floored at 1.
func Visible(node domain.HydratedNode, f domain.FilterSet, anchors domain.AnchorSet, maxEnergy float64) bool {
	if anchors.Has(node.Ticker) {
		return true
	}
	if !f.SectorVisible(node.Sector) {
		return false
	}
	if !f.SentimentVisible(node.Sentiment) {
		return false
	}
	if f.MinEnergyPercent > 0 && node.Energy/maxEnergy*100 < f.MinEnergyPercent {
		return false
	}
	return true
}
