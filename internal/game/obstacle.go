package game

import (
	"arena/internal/config"
	"arena/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

// Obstacle is a static circular hazard.
type Obstacle struct {
	Position mgl64.Vec2
	radius   float64
	handle   physics.Handle
}

func (o *Obstacle) Kind() Kind             { return KindObstacle }
func (o *Obstacle) Handle() physics.Handle { return o.handle }
func (o *Obstacle) Radius() float64        { return o.radius }
func (o *Obstacle) Tag() string            { return "" }

// Border is one of the four static segments enclosing the arena.
type Border struct {
	A, B   mgl64.Vec2
	radius float64
	handle physics.Handle
}

func (b *Border) Kind() Kind             { return KindBorder }
func (b *Border) Handle() physics.Handle { return b.handle }
func (b *Border) Radius() float64        { return b.radius }
func (b *Border) Tag() string            { return "" }

// buildObstacles adds one static body per configured obstacle.
func buildObstacles(sim physics.Simulation, arena config.ArenaConfig) []*Obstacle {
	obstacles := make([]*Obstacle, 0, len(arena.Obstacles))
	for _, spec := range arena.Obstacles {
		o := &Obstacle{
			Position: mgl64.Vec2{spec.X, spec.Y},
			radius:   spec.Radius,
		}
		o.handle = sim.AddCircle(physics.CircleSpec{
			Category:   KindObstacle.category(),
			Static:     true,
			Position:   o.Position,
			Radius:     spec.Radius,
			Elasticity: arena.ObstacleBounce,
		})
		obstacles = append(obstacles, o)
	}
	return obstacles
}

// buildBorders adds the top, right, bottom and left walls.
func buildBorders(sim physics.Simulation, arena config.ArenaConfig) []*Border {
	w, h := arena.Width, arena.Height
	corners := []mgl64.Vec2{{0, 0}, {w, 0}, {w, h}, {0, h}}

	borders := make([]*Border, 0, 4)
	for i := range corners {
		b := &Border{
			A:      corners[i],
			B:      corners[(i+1)%len(corners)],
			radius: arena.BorderRadius,
		}
		b.handle = sim.AddSegment(physics.SegmentSpec{
			Category:   KindBorder.category(),
			A:          b.A,
			B:          b.B,
			Radius:     arena.BorderRadius,
			Elasticity: arena.BorderElasticity,
		})
		borders = append(borders, b)
	}
	return borders
}
