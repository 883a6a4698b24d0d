package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeConnect
	EventTypeDisconnect
	EventTypeReady
	EventTypeShot
	EventTypeDamage
	EventTypeEliminated
	EventTypePhase
	EventTypeRestart
	EventTypeSpawnFailed
)

// EventVersion for backwards compatibility of the journal format
const EventVersion uint8 = 1

// Event is one journal record
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	TickNum   uint64    `json:"tickNum"`   // Tick this occurred in
	PlayerID  string    `json:"playerId"`  // Source player (for rate limiting)
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeConnect:
		return "player_connect"
	case EventTypeDisconnect:
		return "player_disconnect"
	case EventTypeReady:
		return "player_ready"
	case EventTypeShot:
		return "shot"
	case EventTypeDamage:
		return "damage"
	case EventTypeEliminated:
		return "eliminated"
	case EventTypePhase:
		return "session_phase"
	case EventTypeRestart:
		return "restart"
	case EventTypeSpawnFailed:
		return "spawn_failed"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// ConnectPayload records where a ship entered the arena
type ConnectPayload struct {
	PlayerID string  `json:"playerId"`
	SpawnX   float64 `json:"spawnX"`
	SpawnY   float64 `json:"spawnY"`
	Color    string  `json:"color"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	VictimID string `json:"victimId"`
	Cause    string `json:"cause"`
	Damage   int    `json:"damage"`
	VictimHP int    `json:"victimHp"`
}

// ShotPayload records a projectile launch
type ShotPayload struct {
	PlayerID string  `json:"playerId"`
	Angle    float64 `json:"angle"`
}

// PhasePayload records a session transition
type PhasePayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Players int    `json:"players"`
}

// RestartPayload records the outcome of a restart
type RestartPayload struct {
	Respawned int `json:"respawned"`
	Dropped   int `json:"dropped"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, playerID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
