package game

import (
	"testing"
)

// effectRecorder captures what collision rules ask the world to do
type effectRecorder struct {
	damage     map[string]int
	causes     []string
	removed    []*Projectile
	collisions int
}

func newEffectRecorder() *effectRecorder {
	return &effectRecorder{damage: make(map[string]int)}
}

func (r *effectRecorder) damageShip(s *Ship, amount int, cause string) {
	r.damage[s.ID] += amount
	r.causes = append(r.causes, cause)
}

func (r *effectRecorder) removeProjectile(p *Projectile) {
	r.removed = append(r.removed, p)
}

func (r *effectRecorder) countCollision() {
	r.collisions++
}

// TestCollisionTable tests every pair in both argument orders
func TestCollisionTable(t *testing.T) {
	ship := &Ship{ID: "a"}
	other := &Ship{ID: "b"}
	ownShot := &Projectile{Owner: "a"}
	enemyShot := &Projectile{Owner: "b"}
	rock := &Obstacle{}
	wall := &Border{}

	tests := []struct {
		name         string
		x, y         Entity
		physical     bool
		wantDamage   int
		wantRemoved  bool
		wantCollided bool
	}{
		{"ship obstacle", ship, rock, true, 1, false, true},
		{"ship border", ship, wall, true, 0, false, false},
		{"ship ship", ship, other, true, 0, false, false},
		{"projectile obstacle ricochets", enemyShot, rock, true, 0, false, false},
		{"projectile border despawns", enemyShot, wall, false, 0, true, false},
		{"projectile projectile", ownShot, enemyShot, true, 0, false, false},
		{"enemy shot hits", enemyShot, ship, true, 2, true, false},
		{"own shot passes through", ownShot, ship, false, 0, false, false},
	}

	for _, tt := range tests {
		for _, swap := range []bool{false, true} {
			x, y := tt.x, tt.y
			name := tt.name
			if swap {
				x, y = y, x
				name += " swapped"
			}
			t.Run(name, func(t *testing.T) {
				policy := NewCollisionPolicy(false, 1, 2)
				fx := newEffectRecorder()

				if got := policy.Physical(x, y); got != tt.physical {
					t.Errorf("Expected physical=%v, got %v", tt.physical, got)
				}
				policy.Resolve(fx, x, y)

				if fx.damage["a"] != tt.wantDamage {
					t.Errorf("Expected damage %d to a, got %d", tt.wantDamage, fx.damage["a"])
				}
				if (len(fx.removed) == 1) != tt.wantRemoved {
					t.Errorf("Expected removed=%v, got %d removals", tt.wantRemoved, len(fx.removed))
				}
				if (fx.collisions > 0) != tt.wantCollided {
					t.Errorf("Expected collision count=%v, got %d", tt.wantCollided, fx.collisions)
				}
			})
		}
	}
}

// TestFriendlyFireEnabled tests that own shots land when friendly fire is on
func TestFriendlyFireEnabled(t *testing.T) {
	policy := NewCollisionPolicy(true, 1, 1)
	ship := &Ship{ID: "a"}
	shot := &Projectile{Owner: "a"}
	fx := newEffectRecorder()

	if !policy.Physical(shot, ship) {
		t.Error("Own shot should resolve physically with friendly fire on")
	}
	policy.Resolve(fx, shot, ship)

	if fx.damage["a"] != 1 {
		t.Errorf("Expected 1 damage, got %d", fx.damage["a"])
	}
	if len(fx.removed) != 1 || fx.removed[0] != shot {
		t.Errorf("Expected the shot removed, got %v", fx.removed)
	}
	if len(fx.causes) != 1 || fx.causes[0] != "projectile:a" {
		t.Errorf("Unexpected damage causes %v", fx.causes)
	}
}

// TestPairLabel tests the metric label is order independent
func TestPairLabel(t *testing.T) {
	if pairLabel(KindProjectile, KindShip) != "ship_projectile" {
		t.Errorf("Unexpected label %q", pairLabel(KindProjectile, KindShip))
	}
	if pairLabel(KindShip, KindProjectile) != pairLabel(KindProjectile, KindShip) {
		t.Error("Label depends on argument order")
	}
}
