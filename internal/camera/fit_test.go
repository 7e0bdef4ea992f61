package camera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"galaxy/internal/domain"
)

func TestFitWeightedCentroid(t *testing.T) {
	nodes := []domain.HydratedNode{
		{Ticker: "A", X: -400, Y: 0, Energy: 0},
		{Ticker: "B", X: 400, Y: 0, Energy: 2},
	}
	fit := Fit(nodes, Viewport{W: 1920, H: 1080}, DesktopBounds)

	assert.InDelta(t, 200, fit.CenterX, 1e-9)
	assert.InDelta(t, 0, fit.CenterY, 1e-9)
	assert.Equal(t, -400.0, fit.MinX)
	assert.Equal(t, 400.0, fit.MaxX)
	// padded width 960, height floored at 100: min(2, 10.8) = 2.
	assert.InDelta(t, 1, fit.Zoom, 1e-9)
}

func TestFitClampsPerDeviceClass(t *testing.T) {
	nodes := []domain.HydratedNode{
		{Ticker: "A", X: -400},
		{Ticker: "B", X: 400},
	}
	vp := Viewport{W: 240, H: 800}

	// ratio 0.25 → log2 = -2
	assert.InDelta(t, -2, Fit(nodes, vp, BoundsFor(vp.W)).Zoom, 1e-9)
	assert.InDelta(t, -1, Fit(nodes, vp, DesktopBounds).Zoom, 1e-9)

	single := []domain.HydratedNode{{Ticker: "A", X: 3, Y: 4}}
	fit := Fit(single, Viewport{W: 1e6, H: 1e6}, DesktopBounds)
	assert.Equal(t, 10.0, fit.Zoom)
	assert.Equal(t, 3.0, fit.CenterX)
	assert.Equal(t, 4.0, fit.CenterY)
}

func TestFitFramesFullWorldOnDesktop(t *testing.T) {
	nodes := []domain.HydratedNode{
		{Ticker: "A", X: -400, Y: -400},
		{Ticker: "B", X: 400, Y: 400},
	}
	vp := Viewport{W: 1280, H: 800}
	fit := Fit(nodes, vp, BoundsFor(vp.W))

	// padded span 960 in an 800px-high viewport is not clamped.
	assert.InDelta(t, math.Log2(800.0/960), fit.Zoom, 1e-9)
	assert.LessOrEqual(t, 960*math.Exp2(fit.Zoom), vp.H+1e-9)
}

func TestFitEmpty(t *testing.T) {
	fit := Fit(nil, Viewport{W: 800, H: 400}, DesktopBounds)
	assert.Zero(t, fit.CenterX)
	assert.Zero(t, fit.CenterY)
	assert.InDelta(t, 2, fit.Zoom, 1e-9)

	assert.Equal(t, DesktopBounds.Min, Fit(nil, Viewport{}, DesktopBounds).Zoom)
}

func TestBoundsFor(t *testing.T) {
	assert.Equal(t, MobileBounds, BoundsFor(767))
	assert.Equal(t, DesktopBounds, BoundsFor(768))
}
