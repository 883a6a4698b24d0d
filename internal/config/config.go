// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for arena, physics and server settings.
//
// Every section has a Default* constructor; sections that operators tune
// in production also have a *FromEnv variant layering environment
// overrides on top of the defaults.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ObstacleSpec places one static circular obstacle.
type ObstacleSpec struct {
	X, Y   float64
	Radius float64
}

// ArenaConfig describes the playing field.
type ArenaConfig struct {
	Width            float64
	Height           float64
	BorderRadius     float64 // Thickness of the four border segments
	BorderElasticity float64
	Obstacles        []ObstacleSpec
	ObstacleDamage   int     // Damage dealt to a ship per obstacle contact
	ObstacleBounce   float64 // Obstacle elasticity
}

// DefaultArena returns the standard 800x600 arena with three obstacles.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		Width:            800,
		Height:           600,
		BorderRadius:     1,
		BorderElasticity: 0.5,
		Obstacles: []ObstacleSpec{
			{X: 200, Y: 200, Radius: 30},
			{X: 600, Y: 400, Radius: 50},
			{X: 600, Y: 300, Radius: 70},
		},
		ObstacleDamage: 1,
		ObstacleBounce: 1.0,
	}
}

// ArenaFromEnv returns arena configuration with environment overrides.
func ArenaFromEnv() ArenaConfig {
	cfg := DefaultArena()

	if w := getEnvFloat("ARENA_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvFloat("ARENA_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if os.Getenv("ARENA_NO_OBSTACLES") == "true" {
		cfg.Obstacles = nil
	}

	return cfg
}

// =============================================================================
// PHYSICS CONFIGURATION
// =============================================================================

// PhysicsConfig holds simulation stepping settings.
type PhysicsConfig struct {
	TickRate       int     // Fixed ticks per second; dt = 1/TickRate
	AngularDamping float64 // k in ω ← ω·(1 − k·dt)
	SpinEpsilon    float64 // |ω| below this snaps to zero
}

// DefaultPhysics returns the default physics configuration.
func DefaultPhysics() PhysicsConfig {
	return PhysicsConfig{
		TickRate:       60,
		AngularDamping: 0.1,
		SpinEpsilon:    1e-4,
	}
}

// PhysicsFromEnv returns physics configuration with environment overrides.
func PhysicsFromEnv() PhysicsConfig {
	cfg := DefaultPhysics()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}

	return cfg
}

// Dt returns the fixed timestep in seconds.
func (p PhysicsConfig) Dt() float64 {
	if p.TickRate <= 0 {
		return 1.0 / 60.0
	}
	return 1.0 / float64(p.TickRate)
}

// =============================================================================
// SHIP CONFIGURATION
// =============================================================================

// ShipConfig holds per-ship constants.
type ShipConfig struct {
	Radius          float64
	Mass            float64
	Thrust          float64 // Velocity change per thrust command
	RotationStep    float64 // Angular velocity change per rotate command
	MaxSpeed        float64
	MaxHealth       int
	Elasticity      float64
	SpawnProtection float64 // Seconds of invulnerability after (re)spawn
	SpawnAttempts   int     // Candidate positions tried before giving up
	SpawnMargin     float64 // Inset from the border for random candidates
}

// DefaultShip returns the default ship configuration.
func DefaultShip() ShipConfig {
	return ShipConfig{
		Radius:          15,
		Mass:            1,
		Thrust:          5,
		RotationStep:    0.05,
		MaxSpeed:        40,
		MaxHealth:       5,
		Elasticity:      0.5,
		SpawnProtection: 3,
		SpawnAttempts:   20,
		SpawnMargin:     50,
	}
}

// ShipFromEnv returns ship configuration with environment overrides.
func ShipFromEnv() ShipConfig {
	cfg := DefaultShip()

	if sp := getEnvFloat("SPAWN_PROTECTION_SECONDS", -1); sp >= 0 {
		cfg.SpawnProtection = sp
	}
	if hp := getEnvInt("SHIP_MAX_HEALTH", 0); hp > 0 {
		cfg.MaxHealth = hp
	}

	return cfg
}

// =============================================================================
// PROJECTILE CONFIGURATION
// =============================================================================

// ProjectileConfig holds projectile constants.
type ProjectileConfig struct {
	Speed        float64
	Radius       float64
	Mass         float64
	Lifetime     float64 // Seconds
	Damage       int
	SpawnMargin  float64 // Gap between firer surface and projectile surface
	Elasticity   float64
	FriendlyFire bool
}

// DefaultProjectile returns the default projectile configuration.
func DefaultProjectile() ProjectileConfig {
	return ProjectileConfig{
		Speed:       200,
		Radius:      4,
		Mass:        0.1,
		Lifetime:    3,
		Damage:      1,
		SpawnMargin: 2,
		Elasticity:  1.0,
	}
}

// ProjectileFromEnv returns projectile configuration with environment overrides.
func ProjectileFromEnv() ProjectileConfig {
	cfg := DefaultProjectile()

	cfg.FriendlyFire = getEnvBool("FRIENDLY_FIRE", cfg.FriendlyFire)

	return cfg
}

// =============================================================================
// SESSION & SCAN CONFIGURATION
// =============================================================================

// SessionConfig holds match lifecycle settings.
type SessionConfig struct {
	Countdown float64 // Seconds between all-ready and match start
}

// DefaultSession returns the default session configuration.
func DefaultSession() SessionConfig {
	return SessionConfig{Countdown: 3}
}

// SessionFromEnv returns session configuration with environment overrides.
func SessionFromEnv() SessionConfig {
	cfg := DefaultSession()

	if c := getEnvFloat("COUNTDOWN_SECONDS", -1); c >= 0 {
		cfg.Countdown = c
	}

	return cfg
}

// ScanConfig holds perception range and sensor noise.
type ScanConfig struct {
	Radius         float64
	PositionNoise  float64 // ± bound per relative-position component
	VelocityNoise  float64 // ± bound per relative-velocity component
	DistanceJitter float64 // ± fraction multiplied into distance
	GridCellSize   float64 // Broad-phase cell size, ideally ≈ Radius
}

// DefaultScan returns the default scan configuration.
func DefaultScan() ScanConfig {
	return ScanConfig{
		Radius:         150,
		PositionNoise:  2.0,
		VelocityNoise:  0.5,
		DistanceJitter: 0.02,
		GridCellSize:   150,
	}
}

// ScanFromEnv returns scan configuration with environment overrides.
func ScanFromEnv() ScanConfig {
	cfg := DefaultScan()

	if r := getEnvFloat("SCAN_RADIUS", 0); r > 0 {
		cfg.Radius = r
		cfg.GridCellSize = r
	}

	return cfg
}

// =============================================================================
// GAME RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxPlayers     int // Hard cap on connected ships
	MaxProjectiles int // Hard cap on live projectiles
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxPlayers:     64,
		MaxProjectiles: 256,
	}
}

// LimitsFromEnv returns resource limits with environment overrides.
func LimitsFromEnv() ResourceLimits {
	cfg := DefaultLimits()

	if mp := getEnvInt("MAX_PLAYERS", 0); mp > 0 {
		cfg.MaxPlayers = mp
	}

	return cfg
}

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig is everything the world needs to run a match.
type GameConfig struct {
	Arena      ArenaConfig
	Physics    PhysicsConfig
	Ship       ShipConfig
	Projectile ProjectileConfig
	Session    SessionConfig
	Scan       ScanConfig
	Limits     ResourceLimits
	Seed       int64 // 0 picks a time-based seed
}

// DefaultGame returns the default game configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		Arena:      DefaultArena(),
		Physics:    DefaultPhysics(),
		Ship:       DefaultShip(),
		Projectile: DefaultProjectile(),
		Session:    DefaultSession(),
		Scan:       DefaultScan(),
		Limits:     DefaultLimits(),
	}
}

// GameFromEnv returns game configuration with environment overrides.
func GameFromEnv() GameConfig {
	return GameConfig{
		Arena:      ArenaFromEnv(),
		Physics:    PhysicsFromEnv(),
		Ship:       ShipFromEnv(),
		Projectile: ProjectileFromEnv(),
		Session:    SessionFromEnv(),
		Scan:       ScanFromEnv(),
		Limits:     LimitsFromEnv(),
		Seed:       int64(getEnvInt("GAME_SEED", 0)),
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int
	CORSOrigins       []string
	BroadcastInterval time.Duration // Visualizer snapshot push interval
	ShutdownTimeout   time.Duration
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 8000,
		CORSOrigins: []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		},
		BroadcastInterval: 100 * time.Millisecond,
		ShutdownTimeout:   5 * time.Second,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	cfg.BroadcastInterval = getEnvDuration("BROADCAST_INTERVAL", cfg.BroadcastInterval)

	return cfg
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// RateLimitConfig holds the per-IP limiter and per-(player, action) cooldowns.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
	Cooldowns         map[string]time.Duration // Keyed by action name
}

// DefaultRateLimit returns the default rate limiting configuration.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		Burst:             100,
		CleanupInterval:   5 * time.Minute,
		Cooldowns: map[string]time.Duration{
			"thrust_forward":  50 * time.Millisecond,
			"thrust_backward": 50 * time.Millisecond,
			"rotate_left":     50 * time.Millisecond,
			"rotate_right":    50 * time.Millisecond,
			"shoot":           500 * time.Millisecond,
			"scan":            100 * time.Millisecond,
			"state":           50 * time.Millisecond,
			"game_state":      100 * time.Millisecond,
		},
	}
}

// RateLimitFromEnv returns rate limiting configuration with environment overrides.
func RateLimitFromEnv() RateLimitConfig {
	cfg := DefaultRateLimit()

	if rps := getEnvFloat("RATE_LIMIT_RPS", 0); rps > 0 {
		cfg.RequestsPerSecond = rps
	}
	if b := getEnvInt("RATE_LIMIT_BURST", 0); b > 0 {
		cfg.Burst = b
	}
	cfg.Cooldowns["shoot"] = getEnvDuration("SHOOT_COOLDOWN", cfg.Cooldowns["shoot"])
	cfg.Cooldowns["scan"] = getEnvDuration("SCAN_COOLDOWN", cfg.Cooldowns["scan"])

	return cfg
}

// =============================================================================
// OBSERVABILITY & EVENT LOG
// =============================================================================

// DebugConfig configures the pprof/metrics listener.
type DebugConfig struct {
	Enabled    bool
	ListenAddr string // MUST stay on localhost in production
}

// DefaultDebug returns safe defaults.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns debug configuration with environment overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	cfg.Enabled = getEnvBool("DEBUG_ENABLED", cfg.Enabled)
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	return cfg
}

// EventLogConfig controls the JSONL match journal.
type EventLogConfig struct {
	Path string // Empty keeps events in memory only
}

// EventLogFromEnv returns event log configuration from the environment.
func EventLogFromEnv() EventLogConfig {
	return EventLogConfig{Path: os.Getenv("EVENT_LOG_PATH")}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game      GameConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
	Debug     DebugConfig
	EventLog  EventLogConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:      GameFromEnv(),
		Server:    ServerFromEnv(),
		RateLimit: RateLimitFromEnv(),
		Debug:     DebugFromEnv(),
		EventLog:  EventLogFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
