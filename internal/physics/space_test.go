package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	catA Category = 1
	catB Category = 2
	dt            = 1.0 / 60.0
)

func ball(cat Category, pos, vel mgl64.Vec2) CircleSpec {
	return CircleSpec{
		Category:   cat,
		Position:   pos,
		Velocity:   vel,
		Radius:     10,
		Mass:       1,
		Elasticity: 1,
	}
}

// TestZeroGravity verifies a resting body stays put
func TestZeroGravity(t *testing.T) {
	s := NewSpace()
	h := s.AddCircle(ball(catA, mgl64.Vec2{100, 100}, mgl64.Vec2{}))

	for i := 0; i < 120; i++ {
		s.Step(dt)
	}

	if !s.Position(h).ApproxEqual(mgl64.Vec2{100, 100}) {
		t.Errorf("Expected body at rest, got %v", s.Position(h))
	}
	if s.Velocity(h).Len() != 0 {
		t.Errorf("Expected zero velocity, got %v", s.Velocity(h))
	}
}

// TestStepReportsContactOnce verifies a bounce produces a single begin contact
func TestStepReportsContactOnce(t *testing.T) {
	s := NewSpace()
	left := s.AddCircle(ball(catA, mgl64.Vec2{0, 0}, mgl64.Vec2{100, 0}))
	right := s.AddCircle(ball(catB, mgl64.Vec2{50, 0}, mgl64.Vec2{-100, 0}))

	var contacts []Contact
	for i := 0; i < 60; i++ {
		contacts = append(contacts, s.Step(dt)...)
	}

	if len(contacts) != 1 {
		t.Fatalf("Expected 1 contact, got %d", len(contacts))
	}
	c := contacts[0]
	if c.A != left || c.B != right {
		t.Errorf("Expected ordered pair (%d,%d), got (%d,%d)", left, right, c.A, c.B)
	}
	if c.CategoryA != catA || c.CategoryB != catB {
		t.Errorf("Categories not carried with handles: %+v", c)
	}
	if !c.Physical {
		t.Error("Contact should be physical without a filter")
	}
	if s.Velocity(left).X() >= 0 {
		t.Errorf("Left ball should bounce back, velocity %v", s.Velocity(left))
	}
}

// TestContactFilterPassThrough verifies a rejected pair is reported but not resolved
func TestContactFilterPassThrough(t *testing.T) {
	s := NewSpace()
	left := s.AddCircle(ball(catA, mgl64.Vec2{0, 0}, mgl64.Vec2{100, 0}))
	s.AddCircle(ball(catB, mgl64.Vec2{50, 0}, mgl64.Vec2{-100, 0}))
	s.SetContactFilter(func(a, b Handle) bool { return false })

	var contacts []Contact
	for i := 0; i < 60; i++ {
		contacts = append(contacts, s.Step(dt)...)
	}

	if len(contacts) != 1 {
		t.Fatalf("Expected 1 contact, got %d", len(contacts))
	}
	if contacts[0].Physical {
		t.Error("Filtered contact should not be physical")
	}
	if s.Position(left).X() <= 50 {
		t.Errorf("Left ball should pass through, x=%.2f", s.Position(left).X())
	}
	if v := s.Velocity(left); !v.ApproxEqual(mgl64.Vec2{100, 0}) {
		t.Errorf("Velocity should be untouched, got %v", v)
	}
}

// TestQueryOverlap tests overlap queries with category filtering
func TestQueryOverlap(t *testing.T) {
	s := NewSpace()
	rock := s.AddCircle(CircleSpec{Category: catA, Static: true, Position: mgl64.Vec2{100, 100}, Radius: 30})
	s.AddCircle(ball(catB, mgl64.Vec2{300, 300}, mgl64.Vec2{}))

	tests := []struct {
		name       string
		center     mgl64.Vec2
		radius     float64
		categories []Category
		want       int
	}{
		{"overlaps static", mgl64.Vec2{110, 100}, 15, nil, 1},
		{"filtered out", mgl64.Vec2{110, 100}, 15, []Category{catB}, 0},
		{"empty area", mgl64.Vec2{500, 500}, 15, nil, 0},
		{"covers both", mgl64.Vec2{200, 200}, 150, nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := s.QueryOverlap(tt.center, tt.radius, tt.categories...)
			if len(hits) != tt.want {
				t.Fatalf("Expected %d hits, got %d", tt.want, len(hits))
			}
			if tt.want == 1 && hits[0] != rock {
				t.Errorf("Expected rock handle %d, got %d", rock, hits[0])
			}
		})
	}
}

// TestNearestPointOnSegment tests interior and endpoint projections
func TestNearestPointOnSegment(t *testing.T) {
	s := NewSpace()
	a, b := mgl64.Vec2{0, 0}, mgl64.Vec2{10, 0}

	tests := []struct {
		name  string
		p     mgl64.Vec2
		point mgl64.Vec2
		dist  float64
	}{
		{"interior", mgl64.Vec2{5, 5}, mgl64.Vec2{5, 0}, 5},
		{"before start", mgl64.Vec2{-3, 4}, mgl64.Vec2{0, 0}, 5},
		{"past end", mgl64.Vec2{13, -4}, mgl64.Vec2{10, 0}, 5},
		{"on segment", mgl64.Vec2{7, 0}, mgl64.Vec2{7, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point, dist := s.NearestPointOnSegment(tt.p, a, b)
			if !point.ApproxEqual(tt.point) {
				t.Errorf("Expected point %v, got %v", tt.point, point)
			}
			if math.Abs(dist-tt.dist) > 1e-9 {
				t.Errorf("Expected distance %.2f, got %.2f", tt.dist, dist)
			}
		})
	}
}

// TestSpeedCap verifies the per-body linear speed limit
func TestSpeedCap(t *testing.T) {
	s := NewSpace()
	spec := ball(catA, mgl64.Vec2{0, 0}, mgl64.Vec2{})
	spec.MaxSpeed = 40
	h := s.AddCircle(spec)

	s.ApplyImpulse(h, mgl64.Vec2{1000, 0})
	s.Step(dt)

	if speed := s.Velocity(h).Len(); speed > 40+1e-9 {
		t.Errorf("Expected speed <= 40, got %.2f", speed)
	}
	if s.AngularVelocity(h) != 0 {
		t.Errorf("Central impulse should not spin the body, got %.4f", s.AngularVelocity(h))
	}
}

// TestAngularVelocityIntegrates verifies orientation follows angular velocity
func TestAngularVelocityIntegrates(t *testing.T) {
	s := NewSpace()
	h := s.AddCircle(ball(catA, mgl64.Vec2{0, 0}, mgl64.Vec2{}))
	s.SetAngularVelocity(h, 1)

	for i := 0; i < 60; i++ {
		s.Step(dt)
	}

	if math.Abs(s.Angle(h)-1) > 1e-6 {
		t.Errorf("Expected angle ~1 rad, got %.6f", s.Angle(h))
	}
}

// TestRemove tests body removal and invariant panics
func TestRemove(t *testing.T) {
	s := NewSpace()
	h := s.AddCircle(ball(catA, mgl64.Vec2{0, 0}, mgl64.Vec2{}))
	seg := s.AddSegment(SegmentSpec{Category: catB, A: mgl64.Vec2{0, 50}, B: mgl64.Vec2{100, 50}, Radius: 1})

	if s.Len() != 2 {
		t.Fatalf("Expected 2 bodies, got %d", s.Len())
	}

	s.Remove(h)
	s.Remove(h) // unknown handles are ignored

	if s.Has(h) {
		t.Error("Removed handle should not be live")
	}
	if !s.Has(seg) || s.Len() != 1 {
		t.Errorf("Segment should remain, len=%d", s.Len())
	}

	defer func() {
		if recover() == nil {
			t.Error("Accessing a removed handle should panic")
		}
	}()
	s.Position(h)
}
