package physics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"galaxy/internal/domain"
	"galaxy/internal/sector"
)

// MinAggregateWeight keeps quiet days (all energies zero) from producing a
// zero total weight.
const MinAggregateWeight = 1e-6

// Aggregate computes energy-weighted sector centroids and mean velocities
// for nodes, sorted by sector id. Each node weighs max(energy, MinAggregateWeight).
func Aggregate(nodes []domain.HydratedNode) []domain.SectorAggregate {
	type cols struct {
		x, y, vx, vy, w, e []float64
	}
	groups := make(map[string]*cols)
	for i := range nodes {
		n := &nodes[i]
		id := n.Sector
		if id == "" {
			id = sector.Resolve(n.Ticker)
		}
		c, ok := groups[id]
		if !ok {
			c = &cols{}
			groups[id] = c
		}
		c.x = append(c.x, n.X)
		c.y = append(c.y, n.Y)
		c.vx = append(c.vx, n.VX)
		c.vy = append(c.vy, n.VY)
		c.w = append(c.w, math.Max(n.Energy, MinAggregateWeight))
		c.e = append(c.e, n.Energy)
	}

	out := make([]domain.SectorAggregate, 0, len(groups))
	for id, c := range groups {
		out = append(out, domain.SectorAggregate{
			Sector: id,
			Label:  sector.Label(id),
			X:      stat.Mean(c.x, c.w),
			Y:      stat.Mean(c.y, c.w),
			VX:     stat.Mean(c.vx, c.w),
			VY:     stat.Mean(c.vy, c.w),
			Energy: floats.Sum(c.e),
			Count:  len(c.x),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out
}

// Sectors returns the distinct sector ids present anywhere in the timeline.
func Sectors(timeline []domain.Frame) []string {
	seen := make(map[string]struct{})
	for i := range timeline {
		for _, a := range timeline[i].Sectors {
			seen[a.Sector] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
