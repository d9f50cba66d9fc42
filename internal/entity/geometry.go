package entity

import "math"

// Vec2 represents a 2D point or direction in arena units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v scaled by f.
func (v Vec2) Scale(f float64) Vec2 { return Vec2{X: v.X * f, Y: v.Y * f} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Len returns the magnitude of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist returns the distance between two points.
func Dist(a, b Vec2) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// CircleOverlap returns the penetration depth of two circles: the sum of the
// radii minus the centre distance. Positive values mean geometric contact.
func CircleOverlap(a Vec2, ra float64, b Vec2, rb float64) float64 {
	return ra + rb - Dist(a, b)
}
