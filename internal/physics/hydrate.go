// Package physics turns raw daily snapshot samples into the hydrated
// timeline: normalized coordinates, forward-difference velocity, energy and
// per-sector aggregates.
package physics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"galaxy/internal/domain"
	"galaxy/internal/sector"
)

// TargetWorldSize is the span, in world units, of the larger side of the
// normalized bounding box (-400..400).
const TargetWorldSize = 800.0

// Stats describes one hydration run.
type Stats struct {
	Input   int     `json:"input"`   // samples received
	Dropped int     `json:"dropped"` // samples discarded for malformed coordinates
	Frames  int     `json:"frames"`  // distinct dates
	Tickers int     `json:"tickers"` // distinct tickers across all dates
	Scale   float64 `json:"scale"`   // raw → world multiplier
	CenterX float64 `json:"centerX"` // raw bounding-box midpoint
	CenterY float64 `json:"centerY"`
}

// Hydrate builds the chronologically ordered timeline from samples.
func Hydrate(samples []domain.RawSample) []domain.Frame {
	frames, _ := HydrateWithStats(samples)
	return frames
}

// HydrateWithStats is Hydrate plus a summary of what was kept and dropped.
func HydrateWithStats(samples []domain.RawSample) ([]domain.Frame, Stats) {
	st := Stats{Input: len(samples), Scale: 1}

	valid := make([]domain.RawSample, 0, len(samples))
	for _, s := range samples {
		if !usable(s) {
			st.Dropped++
			continue
		}
		if math.IsNaN(s.Sentiment) || math.IsInf(s.Sentiment, 0) {
			s.Sentiment = 0
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return []domain.Frame{}, st
	}

	// Global bounds over every retained sample.
	xs := make([]float64, len(valid))
	ys := make([]float64, len(valid))
	for i := range valid {
		xs[i] = valid[i].X
		ys[i] = valid[i].Y
	}
	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)

	st.Scale = TargetWorldSize / math.Max(math.Max(maxX-minX, maxY-minY), 1)
	st.CenterX = (minX + maxX) / 2
	st.CenterY = (minY + maxY) / 2

	// Group by date. A repeated (date, ticker) row replaces the earlier one.
	type dayRows struct {
		rows  []domain.RawSample
		index map[string]int
	}
	byDate := make(map[string]*dayRows)
	tickers := make(map[string]struct{})
	for _, s := range valid {
		s.X = (s.X - st.CenterX) * st.Scale
		s.Y = (s.Y - st.CenterY) * st.Scale

		d, ok := byDate[s.Date]
		if !ok {
			d = &dayRows{index: make(map[string]int)}
			byDate[s.Date] = d
		}
		if i, dup := d.index[s.Ticker]; dup {
			d.rows[i] = s
		} else {
			d.index[s.Ticker] = len(d.rows)
			d.rows = append(d.rows, s)
		}
		tickers[s.Ticker] = struct{}{}
	}

	// YYYY-MM-DD sorts lexicographically in chronological order.
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	frames := make([]domain.Frame, len(dates))
	for i, date := range dates {
		today := byDate[date]
		var next *dayRows
		if i+1 < len(dates) {
			next = byDate[dates[i+1]]
		}

		nodes := make([]domain.HydratedNode, len(today.rows))
		nodeMap := make(map[string]int, len(today.rows))
		for j, s := range today.rows {
			var vx, vy float64
			if next != nil {
				if k, ok := next.index[s.Ticker]; ok {
					vx = next.rows[k].X - s.X
					vy = next.rows[k].Y - s.Y
				}
			}
			nodes[j] = domain.HydratedNode{
				Ticker:    s.Ticker,
				X:         s.X,
				Y:         s.Y,
				VX:        vx,
				VY:        vy,
				Energy:    Energy(vx, vy, s.Sentiment),
				Headline:  s.Headline,
				Sentiment: s.Sentiment,
				Sector:    sector.Resolve(s.Ticker),
			}
			nodeMap[s.Ticker] = j
		}

		frames[i] = domain.Frame{
			Date:    date,
			Nodes:   nodes,
			Sectors: Aggregate(nodes),
			NodeMap: nodeMap,
		}
	}

	st.Frames = len(frames)
	st.Tickers = len(tickers)
	return frames, st
}

// Energy is the motion magnitude (L1) amplified by sentiment magnitude,
// rounded to four decimals.
func Energy(vx, vy, sentiment float64) float64 {
	e := (math.Abs(vx) + math.Abs(vy)) * (1 + math.Abs(sentiment))
	return math.Round(e*1e4) / 1e4
}

func usable(s domain.RawSample) bool {
	if s.Malformed {
		return false
	}
	for _, v := range [2]float64{s.X, s.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
