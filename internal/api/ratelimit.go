package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"arena/internal/config"

	"golang.org/x/time/rate"
)

// limiterEntry tracks one limiter and when it was last used
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano
}

func newLimiterEntry(l *rate.Limiter, now time.Time) *limiterEntry {
	e := &limiterEntry{limiter: l}
	e.lastSeen.Store(now.UnixNano())
	return e
}

// sweep deletes entries idle since before cutoff
func sweep(m *sync.Map, cutoff time.Time) {
	m.Range(func(key, value interface{}) bool {
		if value.(*limiterEntry).lastSeen.Load() < cutoff.UnixNano() {
			m.Delete(key)
		}
		return true
	})
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests
type IPRateLimiter struct {
	limiters sync.Map // map[string]*limiterEntry
	config   config.RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	// Stats for monitoring
	rejectedCount uint64 // atomic
	allowedCount  uint64 // atomic
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(cfg config.RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}

	// Start cleanup goroutine to prevent memory leak from abandoned IPs
	go cleanupLoop(&rl.limiters, cfg.CleanupInterval, rl.stopChan)

	return rl
}

// Stop stops the rate limiter cleanup goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// getLimiter returns or creates a rate limiter for the given IP
func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now()

	if entry, ok := rl.limiters.Load(ip); ok {
		e := entry.(*limiterEntry)
		e.lastSeen.Store(now.UnixNano())
		return e.limiter
	}

	entry := newLimiterEntry(rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst), now)
	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*limiterEntry).limiter
}

// cleanupLoop periodically removes limiters idle for two intervals
func cleanupLoop(m *sync.Map, interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sweep(m, time.Now().Add(-interval*2))
		}
	}
}

// Allow checks if a request from the given IP should be allowed
func (rl *IPRateLimiter) Allow(ip string) bool {
	limiter := rl.getLimiter(ip)
	if limiter.Allow() {
		atomic.AddUint64(&rl.allowedCount, 1)
		return true
	}
	atomic.AddUint64(&rl.rejectedCount, 1)
	return false
}

// Middleware returns an HTTP middleware for rate limiting
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)
		if !rl.Allow(ip) {
			RecordConnectionRejected("rate_limit")
			writeRateLimited(w, time.Second)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns rate limiter statistics
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  atomic.LoadUint64(&rl.allowedCount),
		"rejected": atomic.LoadUint64(&rl.rejectedCount),
	}
}

// ActionCooldowns enforces a minimum interval between calls of the same
// action by the same player. Premature calls are rejected, never queued.
// Idle entries expire so churned players do not accumulate.
type ActionCooldowns struct {
	limiters  sync.Map // map[string]*limiterEntry keyed "player|action"
	cooldowns map[string]time.Duration
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewActionCooldowns creates a cooldown tracker. Actions missing from the
// map are never limited.
func NewActionCooldowns(cfg config.RateLimitConfig) *ActionCooldowns {
	ac := &ActionCooldowns{
		cooldowns: cfg.Cooldowns,
		stopChan:  make(chan struct{}),
	}
	go cleanupLoop(&ac.limiters, cfg.CleanupInterval, ac.stopChan)
	return ac
}

// Stop stops the cleanup goroutine
func (ac *ActionCooldowns) Stop() {
	ac.stopOnce.Do(func() {
		close(ac.stopChan)
	})
}

// Allow reports whether the player may perform action now. When it may
// not, retryAfter is how long until it can.
func (ac *ActionCooldowns) Allow(playerID, action string) (ok bool, retryAfter time.Duration) {
	return ac.AllowAt(playerID, action, time.Now())
}

// AllowAt is Allow with an explicit clock
func (ac *ActionCooldowns) AllowAt(playerID, action string, now time.Time) (bool, time.Duration) {
	cooldown, limited := ac.cooldowns[action]
	if !limited || cooldown <= 0 {
		return true, 0
	}

	key := playerID + "|" + action
	entry, ok := ac.limiters.Load(key)
	if !ok {
		entry, _ = ac.limiters.LoadOrStore(key, newLimiterEntry(rate.NewLimiter(rate.Every(cooldown), 1), now))
	}
	e := entry.(*limiterEntry)
	e.lastSeen.Store(now.UnixNano())

	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Forget drops every cooldown held for a player
func (ac *ActionCooldowns) Forget(playerID string) {
	prefix := playerID + "|"
	ac.limiters.Range(func(key, _ interface{}) bool {
		if strings.HasPrefix(key.(string), prefix) {
			ac.limiters.Delete(key)
		}
		return true
	})
}

// Len returns the number of tracked (player, action) pairs
func (ac *ActionCooldowns) Len() int {
	n := 0
	ac.limiters.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// sweepBefore removes entries idle since before cutoff
func (ac *ActionCooldowns) sweepBefore(cutoff time.Time) {
	sweep(&ac.limiters, cutoff)
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, "rate limited", http.StatusTooManyRequests)
}

// GetClientIP extracts the client IP from an HTTP request
// Handles X-Forwarded-For header for proxied requests
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For for proxied requests
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take first IP (original client IP)
		// CAUTION: This can be spoofed if not behind a trusted proxy
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter limits concurrent WebSocket connections per IP
type WebSocketRateLimiter struct {
	connections sync.Map // map[string]*int32 (atomic counter)
	maxPerIP    int

	rejectedCount uint64 // atomic
}

// NewWebSocketRateLimiter creates a WebSocket connection limiter
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP}
}

// Allow reserves a connection slot for this IP
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	actual, _ := wrl.connections.LoadOrStore(ip, new(int32))
	counter := actual.(*int32)

	for {
		current := atomic.LoadInt32(counter)
		if int(current) >= wrl.maxPerIP {
			atomic.AddUint64(&wrl.rejectedCount, 1)
			return false
		}
		if atomic.CompareAndSwapInt32(counter, current, current+1) {
			return true
		}
	}
}

// Release decrements the connection count for this IP
func (wrl *WebSocketRateLimiter) Release(ip string) {
	if val, ok := wrl.connections.Load(ip); ok {
		atomic.AddInt32(val.(*int32), -1)
	}
}

// GetConnectionCount returns current connection count for an IP
func (wrl *WebSocketRateLimiter) GetConnectionCount(ip string) int {
	if val, ok := wrl.connections.Load(ip); ok {
		return int(atomic.LoadInt32(val.(*int32)))
	}
	return 0
}

// OriginPolicy decides which browser origins may open the visualizer feed.
// Patterns are exact origins, or end in ":*" to allow any port.
type OriginPolicy struct {
	patterns []string
}

// NewOriginPolicy builds a policy from CORS-style origin patterns
func NewOriginPolicy(patterns []string) *OriginPolicy {
	return &OriginPolicy{patterns: patterns}
}

// Allowed reports whether origin matches a pattern. Requests without an
// Origin header come from non-browser clients and are allowed.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, pattern := range p.patterns {
		if pattern == "*" || pattern == origin {
			return true
		}
		if host, ok := strings.CutSuffix(pattern, ":*"); ok {
			if origin == host || strings.HasPrefix(origin, host+":") {
				return true
			}
		}
	}
	return false
}
