package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"arena/internal/config"
	"arena/internal/game"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player labels to prevent DoS)
var (
	// World metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in world tick",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_player_count",
		Help: "Current number of ships",
	})

	projectileCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_projectile_count",
		Help: "Current number of live projectiles",
	})

	sessionPhase = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_session_phase",
		Help: "Session phase (0 waiting, 1 countdown, 2 running)",
	})

	contactsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_contacts_total",
		Help: "Contacts resolved by entity pair",
	}, []string{"pair"}) // Bounded: one label per kind pair

	eliminationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_eliminations_total",
		Help: "Ships removed at zero health",
	})

	commandRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_command_rejected_total",
		Help: "Commands refused by the world",
	}, []string{"reason"}) // Bounded: "not_found", "invalid_state", "spawn", "full", "cooldown"

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// StartDebugServer starts the internal observability server.
// It binds to loopback unless ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg config.DebugConfig, journal *game.EventLog) *http.Server {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !isLoopback(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost for security")
		cfg.ListenAddr = config.DefaultDebug().ListenAddr
	}

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Tail of the match journal
	mux.HandleFunc("/debug/events", func(w http.ResponseWriter, r *http.Request) {
		if journal == nil {
			writeJSON(w, []game.Event{})
			return
		}
		writeJSON(w, map[string]interface{}{
			"stats":  journal.GetStats(),
			"events": journal.Recent(100),
		})
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)
		log.Printf("   - events:  http://%s/debug/events", cfg.ListenAddr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return srv
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// RecordTick records per-tick world metrics
func RecordTick(stats game.TickStats) {
	tickDuration.Observe(stats.Duration.Seconds())
	playerCount.Set(float64(stats.Players))
	projectileCount.Set(float64(stats.Projectiles))
	sessionPhase.Set(float64(stats.Phase))
	for pair, n := range stats.Contacts {
		contactsTotal.WithLabelValues(pair).Add(float64(n))
	}
	if stats.Eliminations > 0 {
		eliminationsTotal.Add(float64(stats.Eliminations))
	}
}

// TickRecorder returns a tick observer that records world metrics and
// samples the journal counters once per interval ticks.
func TickRecorder(journal *game.EventLog, interval uint64) func(game.TickStats) {
	if interval == 0 {
		interval = 1
	}
	return func(stats game.TickStats) {
		RecordTick(stats)
		if journal != nil && stats.Tick%interval == 0 {
			UpdateEventLogStats(journal.GetTotalCount(), journal.GetDroppedCount())
		}
	}
}

// UpdateEventLogStats updates event log metrics
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordCommandRejected increments the world rejection counter
func RecordCommandRejected(reason string) {
	commandRejected.WithLabelValues(reason).Inc()
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "ws_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
