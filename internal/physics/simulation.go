// Package physics hides the 2-D rigid-body engine behind a small interface.
//
// The game package only sees opaque Handles and Category tags; it never
// touches engine types, so the backend can be swapped without changing
// entity or collision code.
package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Handle identifies one body/shape pair inside a Simulation.
type Handle uint64

// Category tags a body for collision dispatch. Values are chosen by the caller.
type Category uint8

// Contact is a collision-begin event between two bodies, reported after the
// step that produced it. A is always the lower handle.
type Contact struct {
	A, B      Handle
	CategoryA Category
	CategoryB Category
	Point     mgl64.Vec2
	Physical  bool // false when the contact filter rejected resolution
}

// ContactFilter decides at collision begin whether the pair is resolved
// physically. Returning false makes the bodies pass through each other
// until they separate. The contact is reported either way.
type ContactFilter func(a, b Handle) bool

// CircleSpec describes a circular body.
type CircleSpec struct {
	Category   Category
	Static     bool
	Position   mgl64.Vec2
	Angle      float64
	Velocity   mgl64.Vec2
	Radius     float64
	Mass       float64
	Elasticity float64
	Friction   float64
	MaxSpeed   float64 // 0 disables the speed cap
}

// SegmentSpec describes a static line segment with rounded ends.
type SegmentSpec struct {
	Category   Category
	A, B       mgl64.Vec2
	Radius     float64
	Elasticity float64
	Friction   float64
}

// Simulation is the rigid-body contract used by the game world.
// Implementations are not safe for concurrent use; the caller serializes.
type Simulation interface {
	AddCircle(spec CircleSpec) Handle
	AddSegment(spec SegmentSpec) Handle
	Remove(h Handle)
	Has(h Handle) bool
	Len() int

	// Step advances all bodies by dt with zero gravity and returns the
	// collision-begin contacts collected during the step.
	Step(dt float64) []Contact

	SetContactFilter(f ContactFilter)

	// QueryOverlap returns the bodies overlapping a circle. With no
	// categories given every body is considered.
	QueryOverlap(center mgl64.Vec2, radius float64, categories ...Category) []Handle

	// NearestPointOnSegment returns the closest point to p on segment ab
	// and its distance from p.
	NearestPointOnSegment(p, a, b mgl64.Vec2) (mgl64.Vec2, float64)

	Position(h Handle) mgl64.Vec2
	Velocity(h Handle) mgl64.Vec2
	Angle(h Handle) float64
	AngularVelocity(h Handle) float64
	SetAngularVelocity(h Handle, w float64)
	SetVelocity(h Handle, v mgl64.Vec2)
	ApplyImpulse(h Handle, impulse mgl64.Vec2)
	Mass(h Handle) float64
}
