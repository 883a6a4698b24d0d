package api

import (
	"encoding/json"
	"log"
	"net/http"

	"arena/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// Handler methods for routerHandlers
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleConnect(w http.ResponseWriter, r *http.Request) {
	id, err := h.world.Connect()
	if err != nil {
		writeWorldError(w, err)
		return
	}

	writeJSON(w, map[string]interface{}{
		"player_id":     id,
		"initial_state": h.world.Snapshot(),
	})
}

func (h *routerHandlers) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.world.Disconnect(id); err != nil {
		writeWorldError(w, err)
		return
	}
	h.cooldowns.Forget(id)
	writeSuccess(w)
}

func (h *routerHandlers) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.world.SetReady(chi.URLParam(r, "id")); err != nil {
		writeWorldError(w, err)
		return
	}
	writeSuccess(w)
}

// command adapts a world command to a handler guarded by its cooldown
func (h *routerHandlers) command(action string, fn func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !h.allow(w, id, action) {
			return
		}
		if err := fn(id); err != nil {
			h.reject(w, id, err)
			return
		}
		writeSuccess(w)
	}
}

func (h *routerHandlers) handleScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.allow(w, id, "scan") {
		return
	}
	res, err := h.world.Scan(id)
	if err != nil {
		h.reject(w, id, err)
		return
	}
	if res.NearbyObjects == nil {
		res.NearbyObjects = []game.ScanEntry{}
	}
	writeJSON(w, res)
}

func (h *routerHandlers) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.allow(w, id, "state") {
		return
	}
	state, err := h.world.PlayerState(id)
	if err != nil {
		h.reject(w, id, err)
		return
	}
	writeJSON(w, state)
}

func (h *routerHandlers) handleSessionState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.allow(w, id, "game_state") {
		return
	}
	state, err := h.world.SessionState(id)
	if err != nil {
		h.reject(w, id, err)
		return
	}
	writeJSON(w, state)
}

func (h *routerHandlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.world.Snapshot())
}

func (h *routerHandlers) handleRestart(w http.ResponseWriter, r *http.Request) {
	h.world.Restart()
	log.Printf("🔄 Restart requested from %s", GetClientIP(r))
	writeSuccess(w)
}

// allow applies the per-player cooldown, writing the 429 itself on rejection
func (h *routerHandlers) allow(w http.ResponseWriter, id, action string) bool {
	ok, retryAfter := h.cooldowns.Allow(id, action)
	if !ok {
		RecordCommandRejected("cooldown")
		writeRateLimited(w, retryAfter)
	}
	return ok
}

// reject writes a world error for a cooldown-gated call. Cooldowns consumed
// by ids the world does not know are released so they cannot pile up.
func (h *routerHandlers) reject(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, game.ErrNotFound) {
		h.cooldowns.Forget(id)
	}
	writeWorldError(w, err)
}

// writeWorldError maps world errors to status codes
func writeWorldError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound):
		RecordCommandRejected("not_found")
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, game.ErrInvalidState):
		RecordCommandRejected("invalid_state")
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, game.ErrSpawnExhausted):
		RecordCommandRejected("spawn")
		writeError(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, game.ErrWorldFull):
		RecordCommandRejected("full")
		writeError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Printf("⚠️ Unexpected world error: %v", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, map[string]bool{"success": true})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
