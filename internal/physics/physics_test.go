package physics

import (
	"math"
	"testing"

	"pgregory.net/rapid"

	"spinarena/server/internal/arena"
	"spinarena/server/internal/entity"
)

const speedTolerance = 1e-6

func newCombatant(id int, x, y, heading float64) *entity.Combatant {
	return entity.New(id, entity.Colors[id%len(entity.Colors)], id == 0, entity.Vec2{X: x, Y: y}, heading, entity.DefaultSpeed, 0, entity.SpinRate)
}

func TestIntegrateMotionSkipsInactive(t *testing.T) {
	moving := newCombatant(0, 100, 100, 0)
	dying := newCombatant(1, 200, 200, 0)
	dying.TakeDamage(entity.MaxHealth)

	IntegrateMotion([]*entity.Combatant{moving, dying}, 0.5)

	if math.Abs(moving.Pos.X-(100+entity.DefaultSpeed*0.5)) > 1e-9 {
		t.Fatalf("expected moving combatant to advance, got %+v", moving.Pos)
	}
	if dying.Pos.X != 200 {
		t.Fatalf("expected dying combatant to stay put, got %+v", dying.Pos)
	}
	wantRot := entity.SpinRate * 0.5
	if math.Abs(moving.Rotation-wantRot) > 1e-9 {
		t.Fatalf("expected rotation %f, got %f", wantRot, moving.Rotation)
	}
	if math.Abs(entity.Dist(moving.Pos, moving.Weapon)-entity.WeaponOffset) > 1e-9 {
		t.Fatalf("expected weapon refreshed after integrate")
	}
}

func TestRotationAdvancesWithoutWrapping(t *testing.T) {
	c := newCombatant(0, 300, 300, 0)
	const dt = 1.0 / 120
	prev := c.Rotation
	for i := 0; i < 240; i++ {
		IntegrateMotion([]*entity.Combatant{c}, dt)
		if c.Rotation <= prev {
			t.Fatalf("rotation went from %f to %f at step %d", prev, c.Rotation, i)
		}
		prev = c.Rotation
	}
	if want := entity.SpinRate * 2; math.Abs(c.Rotation-want) > 1e-9 {
		t.Fatalf("expected rotation %f after two seconds, got %f", want, c.Rotation)
	}
	wantWeapon := entity.Vec2{
		X: c.Pos.X + math.Cos(c.Rotation)*entity.WeaponOffset,
		Y: c.Pos.Y + math.Sin(c.Rotation)*entity.WeaponOffset,
	}
	if entity.Dist(c.Weapon, wantWeapon) > 1e-9 {
		t.Fatalf("weapon %+v does not follow rotation, want %+v", c.Weapon, wantWeapon)
	}
}

func TestResolveCollisionsSeparatesAndExchanges(t *testing.T) {
	a := newCombatant(0, 300, 300, 0)
	b := newCombatant(1, 340, 300, math.Pi)

	pairs := ResolveCollisions([]*entity.Combatant{a, b})
	if len(pairs) != 1 || pairs[0].A != a || pairs[0].B != b {
		t.Fatalf("expected a single a-b pair, got %+v", pairs)
	}
	if d := entity.Dist(a.Pos, b.Pos); math.Abs(d-2*entity.BodyRadius) > 1e-9 {
		t.Fatalf("expected bodies separated to touching distance, got %f", d)
	}
	if a.Pos.X != 292 || b.Pos.X != 348 {
		t.Fatalf("expected equal separation, got a=%+v b=%+v", a.Pos, b.Pos)
	}
	if a.Vel.X >= 0 || b.Vel.X <= 0 {
		t.Fatalf("expected head-on velocities exchanged, got a=%+v b=%+v", a.Vel, b.Vel)
	}
	for _, c := range []*entity.Combatant{a, b} {
		if math.Abs(c.Vel.Len()-c.Speed) > speedTolerance {
			t.Fatalf("speed not conserved: %f", c.Vel.Len())
		}
	}
}

func TestResolveCollisionsPreservesTangentialComponent(t *testing.T) {
	a := newCombatant(0, 300, 300, 0)
	b := newCombatant(1, 340, 300, 0)
	a.Vel = entity.Vec2{X: 0, Y: entity.DefaultSpeed}
	b.Vel = entity.Vec2{X: 0, Y: -entity.DefaultSpeed}

	ResolveCollisions([]*entity.Combatant{a, b})

	if a.Vel.Y != entity.DefaultSpeed || b.Vel.Y != -entity.DefaultSpeed {
		t.Fatalf("tangential velocity must be untouched, got a=%+v b=%+v", a.Vel, b.Vel)
	}
}

func TestResolveCollisionsHandlesCoincidentCentres(t *testing.T) {
	a := newCombatant(0, 300, 300, 0)
	b := newCombatant(1, 300, 300, math.Pi/2)

	pairs := ResolveCollisions([]*entity.Combatant{a, b})
	if len(pairs) != 1 {
		t.Fatalf("expected coincident bodies to collide")
	}
	for _, c := range []*entity.Combatant{a, b} {
		if math.IsNaN(c.Pos.X) || math.IsNaN(c.Pos.Y) || math.IsNaN(c.Vel.X) || math.IsNaN(c.Vel.Y) {
			t.Fatalf("non-finite state after coincident collision: %+v", c)
		}
	}
	if d := entity.Dist(a.Pos, b.Pos); d < 2*entity.BodyRadius-1e-3 {
		t.Fatalf("expected coincident bodies to be pushed apart, got %f", d)
	}
}

func TestResolveCollisionsIgnoresDying(t *testing.T) {
	a := newCombatant(0, 300, 300, 0)
	b := newCombatant(1, 310, 300, math.Pi)
	b.TakeDamage(entity.MaxHealth)
	if pairs := ResolveCollisions([]*entity.Combatant{a, b}); len(pairs) != 0 {
		t.Fatalf("expected dying combatant to be excluded, got %d pairs", len(pairs))
	}
}

func TestStepConservesSpeedAndKeepsBodiesApart(t *testing.T) {
	a := arena.Default()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 4).Draw(t, "n")
		combatants := make([]*entity.Combatant, n)
		for i := range combatants {
			x := rapid.Float64Range(entity.BodyRadius, a.Size-entity.BodyRadius).Draw(t, "x")
			y := rapid.Float64Range(entity.BodyRadius, a.Size-entity.BodyRadius).Draw(t, "y")
			heading := rapid.Float64Range(0, 2*math.Pi).Draw(t, "heading")
			combatants[i] = newCombatant(i, x, y, heading)
		}
		dt := 1.0 / 120
		worst := math.Inf(1)
		for step := 0; step < 240; step++ {
			Step(a, combatants, dt)
			for _, c := range combatants {
				if math.Abs(c.Vel.Len()-c.Speed) > speedTolerance {
					t.Fatalf("speed drifted to %f at step %d", c.Vel.Len(), step)
				}
				if !a.Contains(c.Pos, entity.BodyRadius-1e-9) {
					t.Fatalf("combatant escaped the arena at %+v", c.Pos)
				}
			}
			if step < 120 {
				continue
			}
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					if d := entity.Dist(combatants[i].Pos, combatants[j].Pos); d < worst {
						worst = d
					}
				}
			}
		}
		// Residual penetration is bounded by one sub-step of closing travel
		// per body in the chain; it must never grow beyond that.
		limit := 2*entity.BodyRadius - 2*entity.DefaultSpeed*dt*float64(n)
		if worst < limit {
			t.Fatalf("bodies interpenetrated to %f (limit %f)", worst, limit)
		}
	})
}
