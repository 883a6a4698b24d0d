package game

import (
	"math"

	"arena/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

// Kind is the closed set of entity types living in the world.
type Kind uint8

const (
	KindShip Kind = iota + 1
	KindObstacle
	KindProjectile
	KindBorder
)

// String returns the wire name of the kind
func (k Kind) String() string {
	switch k {
	case KindShip:
		return "ship"
	case KindObstacle:
		return "obstacle"
	case KindProjectile:
		return "projectile"
	case KindBorder:
		return "border"
	default:
		return "unknown"
	}
}

func (k Kind) category() physics.Category {
	return physics.Category(k)
}

// Entity is implemented by every world object backed by a physics body.
type Entity interface {
	Kind() Kind
	Handle() physics.Handle
	Radius() float64
	Tag() string // display color, empty when the entity has none
}

// heading returns the unit facing vector for an orientation.
func heading(angle float64) mgl64.Vec2 {
	sin, cos := math.Sincos(angle)
	return mgl64.Vec2{cos, sin}
}
