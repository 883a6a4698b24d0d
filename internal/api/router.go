package api

import (
	"net/http"
	"time"

	"arena/internal/config"
	"arena/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// WorldInterface defines the world methods used by the API.
// This interface enables mocking for tests without spinning up the tick loop.
// Keep this minimal - only include methods the API layer actually calls.
type WorldInterface interface {
	Connect() (string, error)
	Disconnect(id string) error
	SetReady(id string) error

	ThrustForward(id string) error
	ThrustBackward(id string) error
	RotateLeft(id string) error
	RotateRight(id string) error
	Shoot(id string) error

	Scan(id string) (game.ScanResult, error)
	PlayerState(id string) (game.PlayerState, error)
	SessionState(id string) (game.SessionState, error)

	// Snapshot builds a fresh snapshot under the world lock
	Snapshot() game.WorldSnapshot
	// LatestSnapshot returns the snapshot published by the last tick
	LatestSnapshot() *game.WorldSnapshot

	Restart()
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    World: mockWorld,
//	    RateLimitConfig: &config.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// World is the arena (required)
	World WorldInterface

	// RateLimiter is an optional pre-configured per-IP limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// Cooldowns is an optional pre-configured per-player action limiter.
	// If nil, a new one will be created using RateLimitConfig.
	Cooldowns *ActionCooldowns

	// RateLimitConfig is used for whichever limiter is nil.
	// If nil, uses config.DefaultRateLimit().
	RateLimitConfig *config.RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses config.DefaultServer().CORSOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	world     WorldInterface
	cooldowns *ActionCooldowns
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the limiters' cleanup
// goroutines when it has to create them. Pass limiters in RouterConfig to
// own their lifetime.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	rateLimitCfg := config.DefaultRateLimit()
	if cfg.RateLimitConfig != nil {
		rateLimitCfg = *cfg.RateLimitConfig
	}

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = config.DefaultServer().CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	cooldowns := cfg.Cooldowns
	if cooldowns == nil {
		cooldowns = NewActionCooldowns(rateLimitCfg)
	}

	h := &routerHandlers{
		world:     cfg.World,
		cooldowns: cooldowns,
	}

	// Lifecycle
	r.Post("/connect", h.handleConnect)
	r.Post("/disconnect/{id}", h.handleDisconnect)
	r.Post("/player/ready/{id}", h.handleReady)

	// Commands and queries
	r.Route("/player/{id}", func(r chi.Router) {
		r.Post("/thrust_forward", h.command("thrust_forward", h.world.ThrustForward))
		r.Post("/thrust_backward", h.command("thrust_backward", h.world.ThrustBackward))
		r.Post("/rotate_left", h.command("rotate_left", h.world.RotateLeft))
		r.Post("/rotate_right", h.command("rotate_right", h.world.RotateRight))
		r.Post("/shoot", h.command("shoot", h.world.Shoot))

		r.Get("/scan", h.handleScan)
		r.Get("/state", h.handlePlayerState)
		r.Get("/game-state", h.handleSessionState)
	})

	// Match
	r.Get("/game/snapshot", h.handleSnapshot)
	r.Post("/game/restart", h.handleRestart)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

// metricsMiddleware records latency keyed by route pattern so player ids
// never become label values.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
