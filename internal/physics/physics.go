// Package physics advances combatants through the arena and resolves
// body-to-body contact.
package physics

import (
	"math"

	"spinarena/server/internal/arena"
	"spinarena/server/internal/entity"
)

// Pair references two combatants whose bodies overlapped during a step.
type Pair struct {
	A *entity.Combatant
	B *entity.Combatant
}

// IntegrateMotion Euler-integrates position and rotation for every active
// combatant and refreshes the weapon hitbox.
func IntegrateMotion(combatants []*entity.Combatant, dt float64) {
	for _, c := range combatants {
		if !c.Active() {
			continue
		}
		c.Pos.X += c.Vel.X * dt
		c.Pos.Y += c.Vel.Y * dt
		c.Rotation += c.Spin * dt
		c.UpdateWeapon()
	}
}

// ResolveWalls bounces every active combatant off the arena walls.
func ResolveWalls(a arena.Arena, combatants []*entity.Combatant) {
	for _, c := range combatants {
		if !c.Active() {
			continue
		}
		if a.BounceCircle(&c.Pos, &c.Vel, entity.BodyRadius) {
			c.Normalize()
			c.UpdateWeapon()
		}
	}
}

// ResolveCollisions checks every pair of active combatants, separates
// overlapping bodies, exchanges their normal velocity components and returns
// the colliding pairs in evaluation order.
func ResolveCollisions(combatants []*entity.Combatant) []Pair {
	var pairs []Pair
	minDist := 2 * entity.BodyRadius
	for i := 0; i < len(combatants); i++ {
		a := combatants[i]
		if !a.Active() {
			continue
		}
		for j := i + 1; j < len(combatants); j++ {
			b := combatants[j]
			if !b.Active() {
				continue
			}
			dx := b.Pos.X - a.Pos.X
			dy := b.Pos.Y - a.Pos.Y
			dist := math.Hypot(dx, dy)
			if dist >= minDist {
				continue
			}
			pairs = append(pairs, Pair{A: a, B: b})
			separate(a, b, dx, dy, dist, minDist)
		}
	}
	return pairs
}

func separate(a, b *entity.Combatant, dx, dy, dist, minDist float64) {
	var nx, ny float64
	if dist < entity.MinSeparation {
		// Coincident centres: push apart along x.
		dist = entity.MinSeparation
		nx, ny = 1, 0
	} else {
		nx, ny = dx/dist, dy/dist
	}

	half := (minDist - dist) / 2
	a.Pos.X -= nx * half
	a.Pos.Y -= ny * half
	b.Pos.X += nx * half
	b.Pos.Y += ny * half

	va := a.Vel.X*nx + a.Vel.Y*ny
	vb := b.Vel.X*nx + b.Vel.Y*ny
	a.Vel.X += (vb - va) * nx
	a.Vel.Y += (vb - va) * ny
	b.Vel.X += (va - vb) * nx
	b.Vel.Y += (va - vb) * ny

	a.Normalize()
	b.Normalize()
	a.UpdateWeapon()
	b.UpdateWeapon()
}

// Step runs one physics sub-step: motion, walls, then body collisions.
func Step(a arena.Arena, combatants []*entity.Combatant, dt float64) []Pair {
	IntegrateMotion(combatants, dt)
	ResolveWalls(a, combatants)
	pairs := ResolveCollisions(combatants)
	ResolveWalls(a, combatants)
	return pairs
}
