package game

// collisionEffects is what collision rules may do to the world.
// World implements it; tests substitute a recorder.
type collisionEffects interface {
	damageShip(s *Ship, amount int, cause string)
	removeProjectile(p *Projectile)
	countCollision()
}

// pairKey is an unordered kind pair, stored with the lower kind first.
type pairKey struct {
	a, b Kind
}

func keyOf(x, y Kind) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{x, y}
}

// pairRule describes one row of the collision table. Both callbacks receive
// the entities ordered to match the key. A nil physical means always
// resolve; a nil effect means bounce only.
type pairRule struct {
	physical func(p *CollisionPolicy, x, y Entity) bool
	effect   func(p *CollisionPolicy, fx collisionEffects, x, y Entity)
}

// CollisionPolicy maps kind pairs to game effects.
type CollisionPolicy struct {
	friendlyFire   bool
	obstacleDamage int
	shotDamage     int
	rules          map[pairKey]pairRule
}

// NewCollisionPolicy builds the standard collision table.
func NewCollisionPolicy(friendlyFire bool, obstacleDamage, shotDamage int) *CollisionPolicy {
	return &CollisionPolicy{
		friendlyFire:   friendlyFire,
		obstacleDamage: obstacleDamage,
		shotDamage:     shotDamage,
		rules: map[pairKey]pairRule{
			keyOf(KindShip, KindObstacle): {
				effect: shipHitsObstacle,
			},
			keyOf(KindShip, KindBorder):           {},
			keyOf(KindShip, KindShip):             {},
			keyOf(KindObstacle, KindProjectile):   {},
			keyOf(KindProjectile, KindProjectile): {},
			keyOf(KindProjectile, KindBorder): {
				physical: never,
				effect:   projectileHitsBorder,
			},
			keyOf(KindShip, KindProjectile): {
				physical: shotLands,
				effect:   projectileHitsShip,
			},
		},
	}
}

// Physical reports whether the engine should resolve the contact.
func (p *CollisionPolicy) Physical(x, y Entity) bool {
	rule, x, y, ok := p.lookup(x, y)
	if !ok || rule.physical == nil {
		return true
	}
	return rule.physical(p, x, y)
}

// Resolve applies the game effect of a contact.
func (p *CollisionPolicy) Resolve(fx collisionEffects, x, y Entity) {
	rule, x, y, ok := p.lookup(x, y)
	if !ok || rule.effect == nil {
		return
	}
	rule.effect(p, fx, x, y)
}

func (p *CollisionPolicy) lookup(x, y Entity) (pairRule, Entity, Entity, bool) {
	if x.Kind() > y.Kind() {
		x, y = y, x
	}
	rule, ok := p.rules[keyOf(x.Kind(), y.Kind())]
	return rule, x, y, ok
}

// ownShot reports whether a ship was hit by its own projectile with
// friendly fire disabled.
func (p *CollisionPolicy) ownShot(ship *Ship, shot *Projectile) bool {
	return !p.friendlyFire && shot.Owner == ship.ID
}

func never(*CollisionPolicy, Entity, Entity) bool { return false }

func shotLands(p *CollisionPolicy, x, y Entity) bool {
	return !p.ownShot(x.(*Ship), y.(*Projectile))
}

func shipHitsObstacle(p *CollisionPolicy, fx collisionEffects, x, _ Entity) {
	fx.countCollision()
	fx.damageShip(x.(*Ship), p.obstacleDamage, "obstacle")
}

func projectileHitsBorder(_ *CollisionPolicy, fx collisionEffects, x, _ Entity) {
	fx.removeProjectile(x.(*Projectile))
}

func projectileHitsShip(p *CollisionPolicy, fx collisionEffects, x, y Entity) {
	ship, shot := x.(*Ship), y.(*Projectile)
	if p.ownShot(ship, shot) {
		return
	}
	fx.removeProjectile(shot)
	fx.damageShip(ship, p.shotDamage, "projectile:"+shot.Owner)
}
