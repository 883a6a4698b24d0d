package game

import (
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// PlayerState is a ship's own kinematic view.
type PlayerState struct {
	Velocity        mgl64.Vec2 `json:"velocity" msgpack:"velocity"`
	Angle           float64    `json:"angle" msgpack:"angle"`
	Health          int        `json:"health" msgpack:"health"`
	AngularVelocity float64    `json:"angular_velocity" msgpack:"angular_velocity"`
}

// SessionState is the lifecycle view for one player.
type SessionState struct {
	GameStarted               bool    `json:"game_started" msgpack:"game_started"`
	WaitingForPlayers         bool    `json:"waiting_for_players" msgpack:"waiting_for_players"`
	CountdownActive           bool    `json:"countdown_active" msgpack:"countdown_active"`
	CountdownSecondsRemaining float64 `json:"countdown_seconds_remaining" msgpack:"countdown_seconds_remaining"`
	Ready                     bool    `json:"ready" msgpack:"ready"`
}

// PlayerSnapshot is an immutable copy of one ship for the visualizer
type PlayerSnapshot struct {
	ID        string     `json:"id" msgpack:"id"`
	Position  mgl64.Vec2 `json:"position" msgpack:"position"`
	Velocity  mgl64.Vec2 `json:"velocity" msgpack:"velocity"`
	Angle     float64    `json:"angle" msgpack:"angle"`
	Health    int        `json:"health" msgpack:"health"`
	Ready     bool       `json:"ready" msgpack:"ready"`
	Color     string     `json:"color" msgpack:"color"`
	Protected bool       `json:"protected" msgpack:"protected"`
}

// ObjectSnapshot is a non-player entity. Borders carry Start/End instead
// of a velocity.
type ObjectSnapshot struct {
	Type     string      `json:"type" msgpack:"type"`
	Position mgl64.Vec2  `json:"position" msgpack:"position"`
	Radius   float64     `json:"radius" msgpack:"radius"`
	Velocity *mgl64.Vec2 `json:"velocity,omitempty" msgpack:"velocity,omitempty"`
	Start    *mgl64.Vec2 `json:"start,omitempty" msgpack:"start,omitempty"`
	End      *mgl64.Vec2 `json:"end,omitempty" msgpack:"end,omitempty"`
	Owner    string      `json:"owner,omitempty" msgpack:"owner,omitempty"`
	Color    string      `json:"color,omitempty" msgpack:"color,omitempty"`
}

// WorldSnapshot is a complete copy of the world at one tick.
// Nothing in it aliases live world state.
type WorldSnapshot struct {
	Sequence  uint64 `json:"sequence" msgpack:"sequence"`
	Tick      uint64 `json:"tick" msgpack:"tick"`
	Timestamp int64  `json:"timestamp" msgpack:"timestamp"` // Unix millis

	GameStarted               bool    `json:"game_started" msgpack:"game_started"`
	WaitingForPlayers         bool    `json:"waiting_for_players" msgpack:"waiting_for_players"`
	CountdownActive           bool    `json:"countdown_active" msgpack:"countdown_active"`
	CountdownSecondsRemaining float64 `json:"countdown_seconds_remaining" msgpack:"countdown_seconds_remaining"`

	Players []PlayerSnapshot `json:"players" msgpack:"players"`
	Objects []ObjectSnapshot `json:"objects" msgpack:"objects"`

	ShotsFired int `json:"shots_fired" msgpack:"shots_fired"`
	Collisions int `json:"collisions" msgpack:"collisions"`
}

// SnapshotStore publishes the latest snapshot for lock-free readers.
// The producer builds a fresh snapshot every tick and swaps the pointer,
// so readers never see a half-written copy.
type SnapshotStore struct {
	latest   atomic.Pointer[WorldSnapshot]
	sequence uint64 // atomic
}

// NewSnapshotStore creates an empty store
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Publish stamps the snapshot with the next sequence number and makes it
// current. The caller must not modify it afterwards.
func (s *SnapshotStore) Publish(snap *WorldSnapshot) {
	snap.Sequence = atomic.AddUint64(&s.sequence, 1)
	snap.Timestamp = time.Now().UnixMilli()
	s.latest.Store(snap)
}

// Latest returns the most recently published snapshot, or nil.
func (s *SnapshotStore) Latest() *WorldSnapshot {
	return s.latest.Load()
}

func vecPtr(v mgl64.Vec2) *mgl64.Vec2 {
	return &v
}
