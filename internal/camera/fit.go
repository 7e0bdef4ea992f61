// Package camera computes the view that frames a particle set: an
// energy-weighted centroid plus a zoom level clamped per device class.
package camera

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"galaxy/internal/domain"
)

const (
	// MinSpan is the smallest padded data span in world units.
	MinSpan = 100.0

	// MobileBreakpoint is the viewport width below which MobileBounds apply.
	MobileBreakpoint = 768
)

// Viewport is the drawable area in pixels.
type Viewport struct {
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Bounds limits the zoom level and sets the fraction of each data span
// added as padding on both sides.
type Bounds struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Padding float64 `json:"padding" yaml:"padding"`
}

// A hydrated dataset spans 800 world units, 960 once padded, so the desktop
// floor of -1 frames it in any viewport at least 480px on its short side.
var (
	DesktopBounds = Bounds{Min: -1, Max: 10, Padding: 0.1}
	MobileBounds  = Bounds{Min: -2, Max: 10, Padding: 0.1}
)

// BoundsFor picks the device-class bounds for a viewport width.
func BoundsFor(width float64) Bounds {
	if width < MobileBreakpoint {
		return MobileBounds
	}
	return DesktopBounds
}

// CameraFit is the computed view. Zoom is a log2 scale factor: one world
// unit spans 2^Zoom pixels.
type CameraFit struct {
	CenterX float64 `json:"centerX" msgpack:"centerX"`
	CenterY float64 `json:"centerY" msgpack:"centerY"`
	MinX    float64 `json:"minX" msgpack:"minX"`
	MinY    float64 `json:"minY" msgpack:"minY"`
	MaxX    float64 `json:"maxX" msgpack:"maxX"`
	MaxY    float64 `json:"maxY" msgpack:"maxY"`
	Zoom    float64 `json:"zoom" msgpack:"zoom"`
}

// Fit frames nodes in vp. With no nodes the view is centred on the origin
// and zoomed as if the data spanned MinSpan.
func Fit(nodes []domain.HydratedNode, vp Viewport, b Bounds) CameraFit {
	if len(nodes) == 0 {
		return CameraFit{Zoom: zoomFor(vp, MinSpan, MinSpan, b)}
	}

	xs := make([]float64, len(nodes))
	ys := make([]float64, len(nodes))
	ws := make([]float64, len(nodes))
	for i, n := range nodes {
		xs[i], ys[i] = n.X, n.Y
		ws[i] = math.Max(n.Energy, 0) + 1
	}

	fit := CameraFit{
		CenterX: stat.Mean(xs, ws),
		CenterY: stat.Mean(ys, ws),
		MinX:    floats.Min(xs),
		MinY:    floats.Min(ys),
		MaxX:    floats.Max(xs),
		MaxY:    floats.Max(ys),
	}

	dataW := padded(fit.MaxX-fit.MinX, b.Padding)
	dataH := padded(fit.MaxY-fit.MinY, b.Padding)
	fit.Zoom = zoomFor(vp, dataW, dataH, b)
	return fit
}

func padded(span, padding float64) float64 {
	return math.Max(span*(1+2*padding), MinSpan)
}

func zoomFor(vp Viewport, dataW, dataH float64, b Bounds) float64 {
	if vp.W <= 0 || vp.H <= 0 {
		return b.Min
	}
	z := math.Log2(math.Min(vp.W/dataW, vp.H/dataH))
	return math.Max(b.Min, math.Min(z, b.Max))
}
