package config

import (
	"testing"
	"time"
)

// TestDefaultGame verifies the built-in match constants
func TestDefaultGame(t *testing.T) {
	cfg := DefaultGame()

	if cfg.Arena.Width != 800 || cfg.Arena.Height != 600 {
		t.Errorf("Expected 800x600 arena, got %.0fx%.0f", cfg.Arena.Width, cfg.Arena.Height)
	}
	if len(cfg.Arena.Obstacles) != 3 {
		t.Errorf("Expected 3 obstacles, got %d", len(cfg.Arena.Obstacles))
	}
	if cfg.Ship.MaxHealth != 5 {
		t.Errorf("Expected max health 5, got %d", cfg.Ship.MaxHealth)
	}
	if cfg.Projectile.FriendlyFire {
		t.Error("Friendly fire should default to off")
	}
	if cfg.Physics.Dt() != 1.0/60.0 {
		t.Errorf("Expected dt 1/60, got %f", cfg.Physics.Dt())
	}
}

// TestFromEnvOverrides tests environment variable overrides
func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("TICK_RATE", "30")
	t.Setenv("FRIENDLY_FIRE", "true")
	t.Setenv("COUNTDOWN_SECONDS", "0")
	t.Setenv("SCAN_RADIUS", "200")
	t.Setenv("SHOOT_COOLDOWN", "250ms")
	t.Setenv("ARENA_NO_OBSTACLES", "true")
	t.Setenv("GAME_SEED", "42")

	cfg := Load()

	if cfg.Server.Port != 9001 {
		t.Errorf("Expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Game.Physics.TickRate != 30 {
		t.Errorf("Expected tick rate 30, got %d", cfg.Game.Physics.TickRate)
	}
	if !cfg.Game.Projectile.FriendlyFire {
		t.Error("Expected friendly fire enabled")
	}
	if cfg.Game.Session.Countdown != 0 {
		t.Errorf("Expected zero countdown, got %f", cfg.Game.Session.Countdown)
	}
	if cfg.Game.Scan.Radius != 200 || cfg.Game.Scan.GridCellSize != 200 {
		t.Errorf("Expected scan radius 200, got %+v", cfg.Game.Scan)
	}
	if cfg.RateLimit.Cooldowns["shoot"] != 250*time.Millisecond {
		t.Errorf("Expected 250ms shoot cooldown, got %v", cfg.RateLimit.Cooldowns["shoot"])
	}
	if len(cfg.Game.Arena.Obstacles) != 0 {
		t.Errorf("Expected no obstacles, got %d", len(cfg.Game.Arena.Obstacles))
	}
	if cfg.Game.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Game.Seed)
	}
}

// TestInvalidEnvFallsBack verifies malformed values keep defaults
func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("FRIENDLY_FIRE", "maybe")
	t.Setenv("SCAN_COOLDOWN", "soon")

	cfg := Load()

	if cfg.Server.Port != DefaultServer().Port {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Game.Projectile.FriendlyFire {
		t.Error("Malformed bool should keep default")
	}
	if cfg.RateLimit.Cooldowns["scan"] != DefaultRateLimit().Cooldowns["scan"] {
		t.Errorf("Malformed duration should keep default, got %v", cfg.RateLimit.Cooldowns["scan"])
	}
}
