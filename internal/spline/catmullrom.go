// Package spline implements the Catmull-Rom cubic used to move particles
// smoothly between daily frames.
package spline

// Position evaluates the Catmull-Rom segment between p1 and p2 at t in [0,1),
// using tangents v0=(p2-p0)/2 and v1=(p3-p1)/2.
func Position(p0, p1, p2, p3, t float64) float64 {
	v0 := (p2 - p0) * 0.5
	v1 := (p3 - p1) * 0.5
	t2 := t * t
	t3 := t2 * t

	return (2*p1-2*p2+v0+v1)*t3 +
		(-3*p1+3*p2-2*v0-v1)*t2 +
		v0*t +
		p1
}

// Velocity is the analytic derivative of Position with respect to t.
func Velocity(p0, p1, p2, p3, t float64) float64 {
	v0 := (p2 - p0) * 0.5
	v1 := (p3 - p1) * 0.5
	t2 := t * t

	return 3*(2*p1-2*p2+v0+v1)*t2 +
		2*(-3*p1+3*p2-2*v0-v1)*t +
		v0
}

// ControlIndices returns the four frame indices around segment i for a
// timeline whose last index is last. Boundary frames are repeated rather
// than extrapolated.
func ControlIndices(i, last int) (i0, i1, i2, i3 int) {
	if last < 0 {
		return 0, 0, 0, 0
	}
	if i < 0 {
		i = 0
	}
	if i > last {
		i = last
	}
	i0 = max(0, i-1)
	i1 = i
	i2 = min(last, i+1)
	i3 = min(last, i+2)
	return
}

// Vec2 is a 2D point or velocity.
type Vec2 struct {
	X, Y float64
}

// Interpolate2 applies Position and Velocity to both axes.
func Interpolate2(p0, p1, p2, p3 Vec2, t float64) (pos, vel Vec2) {
	pos = Vec2{
		X: Position(p0.X, p1.X, p2.X, p3.X, t),
		Y: Position(p0.Y, p1.Y, p2.Y, p3.Y, t),
	}
	vel = Vec2{
		X: Velocity(p0.X, p1.X, p2.X, p3.X, t),
		Y: Velocity(p0.Y, p1.Y, p2.Y, p3.Y, t),
	}
	return pos, vel
}
