package game

import (
	"math/rand"

	"arena/internal/config"
	"arena/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
)

// findSpawn searches for a position where a new ship would overlap no
// ship and no obstacle. The first candidate is the arena center; the rest
// are uniform inside the border inset by the spawn margin. It returns the
// number of candidates tried, which never exceeds the configured budget.
func findSpawn(sim physics.Simulation, arena config.ArenaConfig, ship config.ShipConfig, rng *rand.Rand) (mgl64.Vec2, int, bool) {
	blocking := []physics.Category{KindShip.category(), KindObstacle.category()}

	for attempt := 0; attempt < ship.SpawnAttempts; attempt++ {
		candidate := spawnCandidate(arena, ship.SpawnMargin, attempt, rng)
		if len(sim.QueryOverlap(candidate, ship.Radius, blocking...)) == 0 {
			return candidate, attempt + 1, true
		}
	}
	return mgl64.Vec2{}, ship.SpawnAttempts, false
}

func spawnCandidate(arena config.ArenaConfig, margin float64, attempt int, rng *rand.Rand) mgl64.Vec2 {
	center := mgl64.Vec2{arena.Width / 2, arena.Height / 2}
	if attempt == 0 {
		return center
	}
	return mgl64.Vec2{
		spanBetween(rng, margin, arena.Width-margin, center.X()),
		spanBetween(rng, margin, arena.Height-margin, center.Y()),
	}
}

// spanBetween draws uniformly from [lo, hi], or returns fallback when the
// margin leaves no room.
func spanBetween(rng *rand.Rand, lo, hi, fallback float64) float64 {
	if hi <= lo {
		return fallback
	}
	return lo + rng.Float64()*(hi-lo)
}
