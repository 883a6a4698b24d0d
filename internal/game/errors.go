package game

import (
	"github.com/pkg/errors"
)

// Caller-triggerable outcomes. They are returned, never panicked, and the
// world is left unchanged whenever one is returned.
var (
	ErrNotFound       = errors.New("player not found")
	ErrSpawnExhausted = errors.New("no collision-free spawn position")
	ErrInvalidState   = errors.New("invalid session state")
	ErrWorldFull      = errors.New("world is full")

	ErrNotRunning      = errors.Wrap(ErrInvalidState, "match is not running")
	ErrSpawnProtected  = errors.Wrap(ErrInvalidState, "ship is spawn protected")
	ErrSessionLocked   = errors.Wrap(ErrInvalidState, "match in progress")
	ErrProjectileLimit = errors.Wrap(ErrInvalidState, "projectile limit reached")
)

// invariantf reports a broken internal invariant. These are programming
// errors and are never recovered.
func invariantf(format string, args ...interface{}) {
	panic(errors.Errorf("invariant violated: "+format, args...))
}
