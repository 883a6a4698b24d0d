package game

import (
	"math"
	"testing"

	"arena/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

// vecNear compares componentwise with an absolute tolerance; mgl64's
// ApproxEqual is relative and fails against exact zeros.
func vecNear(got, want mgl64.Vec2, tol float64) bool {
	return math.Abs(got[0]-want[0]) < tol && math.Abs(got[1]-want[1]) < tol
}

func newTestShip(sim physics.Simulation, angle float64) *Ship {
	s := &Ship{ID: "p1", Health: 5, radius: 15}
	s.handle = sim.AddCircle(physics.CircleSpec{
		Category: KindShip.category(),
		Position: mgl64.Vec2{400, 300},
		Angle:    angle,
		Radius:   15,
		Mass:     1,
	})
	return s
}

// TestProtectedShipTakesNoDamage tests the spawn protection window
func TestProtectedShipTakesNoDamage(t *testing.T) {
	s := &Ship{Health: 5, ProtectedUntil: 3}

	for i := 0; i < 10; i++ {
		applied, destroyed := s.TakeDamage(1, 1.5)
		if applied || destroyed {
			t.Fatalf("Protected ship took damage on call %d", i)
		}
	}
	if s.Health != 5 {
		t.Errorf("Expected health 5, got %d", s.Health)
	}

	// Protection ends exactly at ProtectedUntil
	if applied, _ := s.TakeDamage(1, 3); !applied {
		t.Error("Expected damage once protection expired")
	}
	if s.Health != 4 {
		t.Errorf("Expected health 4, got %d", s.Health)
	}
}

// TestTakeDamage tests health bookkeeping
func TestTakeDamage(t *testing.T) {
	tests := []struct {
		name          string
		health        int
		damage        int
		wantHealth    int
		wantDestroyed bool
	}{
		{"single hit", 5, 1, 4, false},
		{"exact kill", 1, 1, 0, true},
		{"overkill clamps", 2, 5, 0, true},
		{"zero damage ignored", 3, 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Ship{Health: tt.health}
			_, destroyed := s.TakeDamage(tt.damage, 0)
			if s.Health != tt.wantHealth {
				t.Errorf("Expected health %d, got %d", tt.wantHealth, s.Health)
			}
			if destroyed != tt.wantDestroyed {
				t.Errorf("Expected destroyed=%v, got %v", tt.wantDestroyed, destroyed)
			}
			if s.Health < 0 {
				t.Errorf("Health went negative: %d", s.Health)
			}
		})
	}
}

// TestThrust tests impulse along and against the facing
func TestThrust(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		dv    float64
		want  mgl64.Vec2
	}{
		{"forward east", 0, 5, mgl64.Vec2{5, 0}},
		{"backward east", 0, -5, mgl64.Vec2{-5, 0}},
		{"forward north", math.Pi / 2, 5, mgl64.Vec2{0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := physics.NewSpace()
			s := newTestShip(sim, tt.angle)

			s.thrust(sim, tt.dv)

			got := sim.Velocity(s.handle)
			if !vecNear(got, tt.want, 1e-9) {
				t.Errorf("Expected velocity %v, got %v", tt.want, got)
			}
			if w := sim.AngularVelocity(s.handle); w != 0 {
				t.Errorf("Thrust should not spin the ship, got ω=%f", w)
			}
		})
	}
}

// TestSpinDampsToZero tests that spin settles without any input
func TestSpinDampsToZero(t *testing.T) {
	sim := physics.NewSpace()
	s := newTestShip(sim, 0)
	const dt = 1.0 / 60.0

	s.spin(sim, 0.5)
	s.spin(sim, 0.5)
	prev := math.Abs(sim.AngularVelocity(s.handle))
	if prev != 1 {
		t.Fatalf("Expected ω=1 after two spins, got %f", prev)
	}

	settled := -1
	for tick := 0; tick < 20000; tick++ {
		sim.Step(dt)
		s.dampSpin(sim, 0.1, dt, 1e-4)

		cur := math.Abs(sim.AngularVelocity(s.handle))
		if settled >= 0 {
			if cur != 0 {
				t.Fatalf("Spin resumed after settling at tick %d", settled)
			}
			continue
		}
		if cur >= prev {
			t.Fatalf("Tick %d: |ω| did not decrease (%g → %g)", tick, prev, cur)
		}
		if cur == 0 {
			settled = tick
		}
		prev = cur
	}

	if settled < 0 {
		t.Fatal("Spin never settled")
	}
}

// TestRotationTurnsShip tests that orientation follows angular velocity
func TestRotationTurnsShip(t *testing.T) {
	sim := physics.NewSpace()
	s := newTestShip(sim, 0)

	s.spin(sim, 1)
	sim.Step(0.1)

	if a := sim.Angle(s.handle); math.Abs(a-0.1) > 1e-9 {
		t.Errorf("Expected angle 0.1, got %f", a)
	}
}
