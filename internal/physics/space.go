package physics

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
)

// body pairs a Chipmunk body with its single shape.
type body struct {
	handle   Handle
	category Category
	body     *cp.Body
	shape    *cp.Shape
	static   bool
}

// Space is the Chipmunk2D-backed Simulation.
type Space struct {
	space  *cp.Space
	bodies map[Handle]*body
	next   Handle

	// collision handlers are registered per category pair on first use
	categories map[Category]bool
	filter     ContactFilter

	// contacts collected by begin callbacks during the current step
	pending  []Contact
	stepping bool
}

// NewSpace creates an empty zero-gravity space.
func NewSpace() *Space {
	s := cp.NewSpace()
	s.SetGravity(cp.Vector{})

	return &Space{
		space:      s,
		bodies:     make(map[Handle]*body),
		categories: make(map[Category]bool),
	}
}

// SetContactFilter installs the predicate consulted at collision begin.
func (s *Space) SetContactFilter(f ContactFilter) {
	s.filter = f
}

// AddCircle adds a circular body and returns its handle.
func (s *Space) AddCircle(spec CircleSpec) Handle {
	s.mustBeUnlocked("AddCircle")

	var b *cp.Body
	if spec.Static {
		b = cp.NewStaticBody()
	} else {
		moment := cp.MomentForCircle(spec.Mass, 0, spec.Radius, cp.Vector{})
		b = cp.NewBody(spec.Mass, moment)
	}
	b.SetPosition(toCP(spec.Position))
	b.SetAngle(spec.Angle)
	if !spec.Static {
		b.SetVelocityVector(toCP(spec.Velocity))
		if spec.MaxSpeed > 0 {
			b.SetVelocityUpdateFunc(speedCap(spec.MaxSpeed))
		}
	}

	shape := cp.NewCircle(b, spec.Radius, cp.Vector{})
	shape.SetElasticity(spec.Elasticity)
	shape.SetFriction(spec.Friction)

	return s.insert(spec.Category, b, shape, spec.Static)
}

// AddSegment adds a static segment and returns its handle.
func (s *Space) AddSegment(spec SegmentSpec) Handle {
	s.mustBeUnlocked("AddSegment")

	b := cp.NewStaticBody()
	shape := cp.NewSegment(b, toCP(spec.A), toCP(spec.B), spec.Radius)
	shape.SetElasticity(spec.Elasticity)
	shape.SetFriction(spec.Friction)

	return s.insert(spec.Category, b, shape, true)
}

func (s *Space) insert(category Category, b *cp.Body, shape *cp.Shape, static bool) Handle {
	s.registerCategory(category)

	s.next++
	h := s.next

	shape.SetCollisionType(cp.CollisionType(category))
	shape.UserData = h
	b.UserData = h

	s.space.AddBody(b)
	s.space.AddShape(shape)

	s.bodies[h] = &body{
		handle:   h,
		category: category,
		body:     b,
		shape:    shape,
		static:   static,
	}
	return h
}

// Remove deletes a body and its shape. Unknown handles are ignored.
func (s *Space) Remove(h Handle) {
	s.mustBeUnlocked("Remove")

	b, ok := s.bodies[h]
	if !ok {
		return
	}
	s.space.RemoveShape(b.shape)
	s.space.RemoveBody(b.body)
	delete(s.bodies, h)
}

// Has reports whether the handle refers to a live body.
func (s *Space) Has(h Handle) bool {
	_, ok := s.bodies[h]
	return ok
}

// Len returns the number of live bodies.
func (s *Space) Len() int {
	return len(s.bodies)
}

// Step advances the space by dt and returns the contacts that began during it,
// ordered by handle pair so callers see a stable sequence.
func (s *Space) Step(dt float64) []Contact {
	s.pending = s.pending[:0]

	s.stepping = true
	s.space.Step(dt)
	s.stepping = false

	contacts := make([]Contact, len(s.pending))
	copy(contacts, s.pending)
	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].A != contacts[j].A {
			return contacts[i].A < contacts[j].A
		}
		return contacts[i].B < contacts[j].B
	})
	return contacts
}

// registerCategory wires begin handlers between a new category and every
// category seen so far, itself included.
func (s *Space) registerCategory(c Category) {
	if s.categories[c] {
		return
	}
	s.categories[c] = true

	for other := range s.categories {
		handler := s.space.NewCollisionHandler(cp.CollisionType(c), cp.CollisionType(other))
		handler.BeginFunc = s.begin
	}
}

// begin records the contact and asks the filter whether to resolve it.
func (s *Space) begin(arb *cp.Arbiter, _ *cp.Space, _ interface{}) bool {
	shapeA, shapeB := arb.Shapes()
	ha, okA := shapeA.UserData.(Handle)
	hb, okB := shapeB.UserData.(Handle)
	if !okA || !okB {
		return true
	}

	physical := true
	if s.filter != nil {
		physical = s.filter(ha, hb)
	}

	c := Contact{
		A:         ha,
		B:         hb,
		CategoryA: s.bodies[ha].category,
		CategoryB: s.bodies[hb].category,
		Physical:  physical,
	}
	if set := arb.ContactPointSet(); set.Count > 0 {
		c.Point = fromCP(set.Points[0].PointA)
	}
	if c.A > c.B {
		c.A, c.B = c.B, c.A
		c.CategoryA, c.CategoryB = c.CategoryB, c.CategoryA
	}
	s.pending = append(s.pending, c)

	return physical
}

// QueryOverlap returns handles of bodies overlapping the circle, in handle order.
func (s *Space) QueryOverlap(center mgl64.Vec2, radius float64, categories ...Category) []Handle {
	s.mustBeUnlocked("QueryOverlap")

	probe := cp.NewKinematicBody()
	probe.SetPosition(toCP(center))
	shape := cp.NewCircle(probe, radius, cp.Vector{})

	var hits []Handle
	s.space.ShapeQuery(shape, func(other *cp.Shape, _ *cp.ContactPointSet) {
		h, ok := other.UserData.(Handle)
		if !ok {
			return
		}
		if len(categories) > 0 && !containsCategory(categories, s.bodies[h].category) {
			return
		}
		hits = append(hits, h)
	})

	sort.Slice(hits, func(i, j int) bool { return hits[i] < hits[j] })
	return hits
}

// NearestPointOnSegment returns the closest point to p on segment ab.
func (s *Space) NearestPointOnSegment(p, a, b mgl64.Vec2) (mgl64.Vec2, float64) {
	return NearestPointOnSegment(p, a, b)
}

// NearestPointOnSegment is the engine-backed closest-point helper.
func NearestPointOnSegment(p, a, b mgl64.Vec2) (mgl64.Vec2, float64) {
	closest := fromCP(toCP(p).ClosestPointOnSegment(toCP(a), toCP(b)))
	return closest, closest.Sub(p).Len()
}

func (s *Space) Position(h Handle) mgl64.Vec2 {
	return fromCP(s.mustGet(h).body.Position())
}

func (s *Space) Velocity(h Handle) mgl64.Vec2 {
	return fromCP(s.mustGet(h).body.Velocity())
}

func (s *Space) Angle(h Handle) float64 {
	return s.mustGet(h).body.Angle()
}

func (s *Space) AngularVelocity(h Handle) float64 {
	return s.mustGet(h).body.AngularVelocity()
}

func (s *Space) SetAngularVelocity(h Handle, w float64) {
	s.mustGet(h).body.SetAngularVelocity(w)
}

func (s *Space) SetVelocity(h Handle, v mgl64.Vec2) {
	s.mustGet(h).body.SetVelocityVector(toCP(v))
}

// ApplyImpulse applies an impulse through the center of mass, so it never
// induces spin.
func (s *Space) ApplyImpulse(h Handle, impulse mgl64.Vec2) {
	b := s.mustGet(h).body
	b.ApplyImpulseAtWorldPoint(toCP(impulse), b.Position())
}

func (s *Space) Mass(h Handle) float64 {
	return s.mustGet(h).body.Mass()
}

// mustGet panics on an unknown handle: a live entity without a body is a
// programming error.
func (s *Space) mustGet(h Handle) *body {
	b, ok := s.bodies[h]
	if !ok {
		panic(fmt.Sprintf("physics: no body for handle %d", h))
	}
	return b
}

func (s *Space) mustBeUnlocked(op string) {
	if s.stepping {
		panic(fmt.Sprintf("physics: %s called during Step", op))
	}
}

// speedCap integrates velocity normally, then clamps linear speed.
func speedCap(limit float64) cp.BodyVelocityFunc {
	return func(b *cp.Body, gravity cp.Vector, damping, dt float64) {
		cp.BodyUpdateVelocity(b, gravity, damping, dt)
		v := b.Velocity()
		if speed := v.Length(); speed > limit && !math.IsInf(speed, 0) {
			b.SetVelocityVector(v.Mult(limit / speed))
		}
	}
}

func containsCategory(list []Category, c Category) bool {
	for _, x := range list {
		if x == c {
			return true
		}
	}
	return false
}

func toCP(v mgl64.Vec2) cp.Vector {
	return cp.Vector{X: v[0], Y: v[1]}
}

func fromCP(v cp.Vector) mgl64.Vec2 {
	return mgl64.Vec2{v.X, v.Y}
}

var _ Simulation = (*Space)(nil)
