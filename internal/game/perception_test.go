package game

import (
	"math"
	"testing"

	"arena/internal/config"
	"arena/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

func quietScan(radius float64) config.ScanConfig {
	return config.ScanConfig{Radius: radius, GridCellSize: radius}
}

func addObstacle(sim physics.Simulation, x, y, r float64) *Obstacle {
	o := &Obstacle{Position: mgl64.Vec2{x, y}, radius: r}
	o.handle = sim.AddCircle(physics.CircleSpec{
		Category: KindObstacle.category(),
		Static:   true,
		Position: o.Position,
		Radius:   r,
	})
	return o
}

// TestScanRadiusCutoff tests inclusion on exact distance regardless of noise
func TestScanRadiusCutoff(t *testing.T) {
	sim := physics.NewSpace()
	self := newTestShip(sim, 0) // at (400, 300), radius 15

	inside := addObstacle(sim, 400+15+10+99, 300, 10) // surface distance 99
	outside := addObstacle(sim, 400-15-10-101, 300, 10)

	cfg := config.ScanConfig{
		Radius:         100,
		PositionNoise:  5,
		VelocityNoise:  1,
		DistanceJitter: 0.5,
		GridCellSize:   100,
	}
	p := NewPerception(cfg, config.DefaultArena(), 16, 3)
	circles := []Entity{self, inside, outside}

	for i := 0; i < 200; i++ {
		res := p.Scan(sim, self, circles, nil)
		if len(res.NearbyObjects) != 1 {
			t.Fatalf("Scan %d: expected exactly 1 entry, got %d", i, len(res.NearbyObjects))
		}
		e := res.NearbyObjects[0]
		if e.Type != "obstacle" {
			t.Fatalf("Expected obstacle, got %s", e.Type)
		}
		if e.Distance < 99*0.5-1e-9 || e.Distance > 99*1.5+1e-9 {
			t.Fatalf("Distance %f outside jitter bounds", e.Distance)
		}
		if math.Abs(e.RelativePosition.Y()) > 5+1e-9 {
			t.Fatalf("Position noise exceeded bound: %v", e.RelativePosition)
		}
	}
}

// TestScanHeadingFrame tests rotation into the scanner's frame without noise
func TestScanHeadingFrame(t *testing.T) {
	sim := physics.NewSpace()
	self := newTestShip(sim, math.Pi/2) // facing +Y
	sim.SetVelocity(self.handle, mgl64.Vec2{0, 10})

	ahead := addObstacle(sim, 400, 350, 10)

	p := NewPerception(quietScan(150), config.DefaultArena(), 16, 1)
	res := p.Scan(sim, self, []Entity{self, ahead}, nil)

	if len(res.NearbyObjects) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(res.NearbyObjects))
	}
	e := res.NearbyObjects[0]

	if !vecNear(e.RelativePosition, mgl64.Vec2{50, 0}, 1e-9) {
		t.Errorf("Object ahead should be on +X, got %v", e.RelativePosition)
	}
	if e.RelativeVelocity == nil {
		t.Fatal("Expected relative velocity for an obstacle")
	}
	if !vecNear(*e.RelativeVelocity, mgl64.Vec2{-10, 0}, 1e-9) {
		t.Errorf("Expected closing velocity (-10, 0), got %v", *e.RelativeVelocity)
	}
	if math.Abs(e.Distance-25) > 1e-9 {
		t.Errorf("Expected surface distance 25, got %f", e.Distance)
	}
}

// TestScanTypesAndBorders tests tags, self exclusion and border entries
func TestScanTypesAndBorders(t *testing.T) {
	arena := config.DefaultArena()
	sim := physics.NewSpace()
	borders := buildBorders(sim, arena)

	self := &Ship{ID: "me", radius: 15}
	self.handle = sim.AddCircle(physics.CircleSpec{
		Category: KindShip.category(),
		Position: mgl64.Vec2{30, 300},
		Radius:   15,
		Mass:     1,
	})
	enemy := &Ship{ID: "them", Color: "#ff6b6b", radius: 15}
	enemy.handle = sim.AddCircle(physics.CircleSpec{
		Category: KindShip.category(),
		Position: mgl64.Vec2{90, 300},
		Radius:   15,
		Mass:     1,
	})

	p := NewPerception(quietScan(100), arena, 16, 1)
	res := p.Scan(sim, self, []Entity{self, enemy}, borders)

	var sawEnemy, sawLeftWall bool
	for _, e := range res.NearbyObjects {
		switch e.Type {
		case "other_player":
			sawEnemy = true
			if e.Color != "#ff6b6b" {
				t.Errorf("Expected enemy color, got %q", e.Color)
			}
			if math.Abs(e.Distance-30) > 1e-9 {
				t.Errorf("Expected enemy distance 30, got %f", e.Distance)
			}
		case "border":
			if e.RelativeVelocity != nil {
				t.Error("Border entries carry no velocity")
			}
			if vecNear(e.RelativePosition, mgl64.Vec2{-30, 0}, 1e-9) {
				sawLeftWall = true
				if math.Abs(e.Distance-14) > 1e-9 {
					t.Errorf("Expected wall distance 14, got %f", e.Distance)
				}
			}
		case "ship":
			t.Error("Ships must be reported as other_player")
		}
	}
	if !sawEnemy {
		t.Error("Enemy ship missing from scan")
	}
	if !sawLeftWall {
		t.Errorf("Left wall missing from scan: %+v", res.NearbyObjects)
	}
	if len(res.NearbyObjects) != 2 {
		t.Errorf("Expected enemy and one wall only, got %d entries", len(res.NearbyObjects))
	}
}

// TestScanOverlapClampsDistance tests that overlapping bodies report zero
func TestScanOverlapClampsDistance(t *testing.T) {
	p := NewPerception(quietScan(100), config.DefaultArena(), 4, 1)
	if d := p.noisyDistance(-3); d != 0 {
		t.Errorf("Expected 0, got %f", d)
	}
}
