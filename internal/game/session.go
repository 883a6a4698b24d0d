package game

// Phase is the match lifecycle state.
type Phase uint8

const (
	PhaseWaiting Phase = iota
	PhaseCountdown
	PhaseRunning
)

// String returns human-readable phase
func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseCountdown:
		return "countdown"
	case PhaseRunning:
		return "running"
	default:
		return "unknown"
	}
}

// countdownEpsilon absorbs float drift from summing fixed timesteps.
const countdownEpsilon = 1e-9

// Session is the waiting → countdown → running state machine.
// It knows nothing about ships; callers pass the readiness verdict in.
type Session struct {
	phase     Phase
	duration  float64
	remaining float64
}

// NewSession creates a session in the waiting phase.
func NewSession(countdown float64) *Session {
	return &Session{duration: countdown}
}

func (s *Session) Phase() Phase { return s.phase }

// Remaining returns countdown seconds left, zero outside the countdown.
func (s *Session) Remaining() float64 {
	if s.phase != PhaseCountdown {
		return 0
	}
	return s.remaining
}

func (s *Session) Running() bool { return s.phase == PhaseRunning }

// Sync reconciles the phase with readiness without advancing time.
// allReady must be false when nobody is connected.
// It returns the phase before the call and whether it changed.
func (s *Session) Sync(allReady bool) (Phase, bool) {
	from := s.phase
	switch s.phase {
	case PhaseWaiting:
		if allReady {
			s.phase = PhaseCountdown
			s.remaining = s.duration
		}
	case PhaseCountdown:
		if !allReady {
			s.Reset()
		}
	}
	return from, s.phase != from
}

// Advance runs the countdown by dt. The final readiness check happens
// when the timer expires.
func (s *Session) Advance(dt float64, allReady bool) (Phase, bool) {
	from := s.phase
	if s.phase != PhaseCountdown {
		return from, false
	}
	if !allReady {
		s.Reset()
		return from, true
	}

	s.remaining -= dt
	if s.remaining <= countdownEpsilon {
		s.remaining = 0
		s.phase = PhaseRunning
	}
	return from, s.phase != from
}

// Abort drops an active countdown back to waiting.
func (s *Session) Abort() bool {
	if s.phase != PhaseCountdown {
		return false
	}
	s.Reset()
	return true
}

// Reset returns to waiting with the timer cleared.
func (s *Session) Reset() {
	s.phase = PhaseWaiting
	s.remaining = 0
}
