// Package arena models the static square the combatants bounce around in.
package arena

import "spinarena/server/internal/entity"

// DefaultSize is the side length of the standard arena.
const DefaultSize = 600.0

// Arena is an immutable axis-aligned square.
type Arena struct {
	Origin entity.Vec2
	Size   float64
}

// Default returns the standard arena anchored at the origin.
func Default() Arena {
	return Arena{Size: DefaultSize}
}

// Center returns the arena midpoint.
func (a Arena) Center() entity.Vec2 {
	return entity.Vec2{X: a.Origin.X + a.Size/2, Y: a.Origin.Y + a.Size/2}
}

// Contains reports whether a circle of radius r at p lies fully inside.
func (a Arena) Contains(p entity.Vec2, r float64) bool {
	return p.X-r >= a.Origin.X && p.X+r <= a.Origin.X+a.Size &&
		p.Y-r >= a.Origin.Y && p.Y+r <= a.Origin.Y+a.Size
}

// BounceCircle clamps a circle back inside the arena and reflects the velocity
// component along every axis where it penetrated a wall. Only the sign flips,
// so speed is preserved. It reports whether anything changed; applying it to a
// valid position and velocity is a no-op.
func (a Arena) BounceCircle(p, v *entity.Vec2, r float64) bool {
	if p == nil || v == nil {
		return false
	}
	minX, maxX := a.Origin.X+r, a.Origin.X+a.Size-r
	minY, maxY := a.Origin.Y+r, a.Origin.Y+a.Size-r
	bounced := false

	if p.X < minX {
		p.X = minX
		if v.X < 0 {
			v.X = -v.X
		}
		bounced = true
	} else if p.X > maxX {
		p.X = maxX
		if v.X > 0 {
			v.X = -v.X
		}
		bounced = true
	}

	if p.Y < minY {
		p.Y = minY
		if v.Y < 0 {
			v.Y = -v.Y
		}
		bounced = true
	} else if p.Y > maxY {
		p.Y = maxY
		if v.Y > 0 {
			v.Y = -v.Y
		}
		bounced = true
	}

	return bounced
}
