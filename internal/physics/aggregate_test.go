package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"galaxy/internal/domain"
	"galaxy/internal/sector"
)

func TestAggregateEnergyWeighted(t *testing.T) {
	nodes := []domain.HydratedNode{
		{Ticker: "AAPL", X: 0, Y: 0, VX: 1, Energy: 1, Sector: sector.Technology},
		{Ticker: "MSFT", X: 30, Y: 30, VX: 4, Energy: 3, Sector: sector.Technology},
		{Ticker: "XOM", X: -5, Y: 5, Energy: 0, Sector: sector.Energy},
	}
	aggs := Aggregate(nodes)
	require.Len(t, aggs, 2)

	// Sorted by sector id.
	assert.Equal(t, sector.Energy, aggs[0].Sector)
	assert.Equal(t, sector.Technology, aggs[1].Sector)

	tech := aggs[1]
	assert.Equal(t, 2, tech.Count)
	assert.Equal(t, "Technology", tech.Label)
	assert.InDelta(t, 22.5, tech.X, 1e-9)
	assert.InDelta(t, 22.5, tech.Y, 1e-9)
	assert.InDelta(t, 3.25, tech.VX, 1e-9)
	assert.InDelta(t, 4, tech.Energy, 1e-9)

	// A quiet sector still gets a centroid rather than NaN.
	en := aggs[0]
	assert.Equal(t, 1, en.Count)
	assert.InDelta(t, -5, en.X, 1e-9)
	assert.InDelta(t, 5, en.Y, 1e-9)
	assert.Zero(t, en.Energy)
}

func TestAggregateResolvesMissingSector(t *testing.T) {
	aggs := Aggregate([]domain.HydratedNode{{Ticker: "SPY"}, {Ticker: "UNKNOWN1"}})
	require.Len(t, aggs, 2)
	assert.Equal(t, sector.Indices, aggs[0].Sector)
	assert.Equal(t, sector.Other, aggs[1].Sector)
}

func TestSectorsAcrossTimeline(t *testing.T) {
	frames := Hydrate([]domain.RawSample{
		sample("2024-01-02", "AAPL", 0, 0, 0),
		sample("2024-01-03", "XOM", 1, 1, 0),
		sample("2024-01-03", "SPY", 2, 2, 0),
	})
	assert.Equal(t, []string{sector.Energy, sector.Indices, sector.Technology}, Sectors(frames))
}

func TestTrails(t *testing.T) {
	var raw []domain.RawSample
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08", "2024-01-09", "2024-01-10"}
	for i, d := range dates {
		raw = append(raw, sample(d, "AAPL", float64(i), 0, 0.3))
	}
	raw = append(raw, sample("2024-01-10", "NEW", 3, 0, -0.4))
	frames := Hydrate(raw)
	require.Len(t, frames, len(dates))

	assert.Nil(t, Trails(frames, 0, 5))
	assert.Nil(t, Trails(frames, len(frames), 5))

	trails := Trails(frames, 7, 5)
	require.Len(t, trails, 2)
	assert.Equal(t, "AAPL", trails[0].Ticker)
	assert.Len(t, trails[0].Path, 6)
	assert.Equal(t, 0.3, trails[0].Sentiment)
	assert.Less(t, trails[0].Path[0][0], trails[0].Path[5][0])

	assert.Equal(t, "NEW", trails[1].Ticker)
	assert.Len(t, trails[1].Path, 1)

	// Default lookback applies for non-positive values.
	assert.Len(t, Trails(frames, 7, 0)[0].Path, DefaultTrailLookback+1)
}

func TestHistory(t *testing.T) {
	frames := Hydrate([]domain.RawSample{
		sample("2024-01-02", "AAPL", 0, 0, 0.1),
		sample("2024-01-03", "MSFT", 1, 1, 0),
		sample("2024-01-04", "AAPL", 2, 2, 0.2),
	})
	h := History(frames, "AAPL")
	require.Len(t, h, 2)
	assert.Equal(t, "2024-01-02", h[0].Date)
	assert.Equal(t, "2024-01-04", h[1].Date)
	assert.Empty(t, History(frames, "TSLA"))
}
