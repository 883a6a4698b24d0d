package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"arena/internal/config"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with the visualizer WebSocket feed.
type Server struct {
	world       WorldInterface
	cfg         config.ServerConfig
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	cooldowns   *ActionCooldowns
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// IMPORTANT: The hub and broadcast loop do NOT start until Start() is called.
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(world WorldInterface, cfg config.ServerConfig, rateCfg config.RateLimitConfig) *Server {
	s := &Server{
		world:       world,
		cfg:         cfg,
		wsHub:       NewWebSocketHub(NewOriginPolicy(cfg.CORSOrigins)),
		rateLimiter: NewIPRateLimiter(rateCfg),
		cooldowns:   NewActionCooldowns(rateCfg),
	}

	s.router = NewRouter(RouterConfig{
		World:           world,
		RateLimiter:     s.rateLimiter,
		Cooldowns:       s.cooldowns,
		RateLimitConfig: &rateCfg,
		CORSOrigins:     cfg.CORSOrigins,
	})

	// The feed needs the hub instance, so it is not part of NewRouter
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start runs the hub and serves HTTP until Shutdown.
// It returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.world, s.cfg.BroadcastInterval)

	log.Printf("🌐 API server starting on %s", s.httpServer.Addr)
	log.Printf("🛰️ Visualizer feed: ws://localhost%s/ws", s.httpServer.Addr)

	return s.httpServer.ListenAndServe()
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Shutdown stops accepting requests, closes visualizer connections and
// stops the limiter cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	err := s.httpServer.Shutdown(ctx)
	s.rateLimiter.Stop()
	s.cooldowns.Stop()
	return err
}
