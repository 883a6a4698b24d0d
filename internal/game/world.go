package game

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"arena/internal/config"
	"arena/internal/physics"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TickStats summarizes one tick for metrics
type TickStats struct {
	Tick         uint64
	Duration     time.Duration
	Phase        Phase
	Players      int
	Projectiles  int
	Contacts     map[string]int // keyed by pair label, e.g. "ship_obstacle"
	Eliminations int
}

// World is the authoritative arena. A single lock serializes commands and
// ticks; readers of PlayerState, SessionState and Snapshot share it.
type World struct {
	mu  sync.RWMutex
	cfg config.GameConfig
	dt  float64

	sim        physics.Simulation
	policy     *CollisionPolicy
	perception *Perception
	session    *Session

	entities    map[physics.Handle]Entity
	ships       map[string]*Ship
	order       []string // connection order, for stable iteration
	obstacles   []*Obstacle
	borders     []*Border
	projectiles []*Projectile
	circles     []Entity // scratch for perception rebuilds

	// Simulated clock in seconds; protection and countdown run on it
	now       float64
	tickCount uint64

	// Match counters, cleared on restart
	shotsFired int
	collisions int

	rng      *rand.Rand
	seed     int64
	colorIdx int

	eventLog  *EventLog
	snapshots *SnapshotStore
	onTick    func(TickStats)
	inFlight  *TickStats // stats of the tick in progress

	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWorld builds an arena with its borders and obstacles in place
func NewWorld(cfg config.GameConfig) *World {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	w := &World{
		cfg:      cfg,
		dt:       cfg.Physics.Dt(),
		sim:      physics.NewSpace(),
		policy:   NewCollisionPolicy(cfg.Projectile.FriendlyFire, cfg.Arena.ObstacleDamage, cfg.Projectile.Damage),
		session:  NewSession(cfg.Session.Countdown),
		entities: make(map[physics.Handle]Entity),
		ships:    make(map[string]*Ship),
		order:    make([]string, 0, cfg.Limits.MaxPlayers),
		rng:      rand.New(rand.NewSource(seed)),
		seed:     seed,
		eventLog: NewEventLog(),

		snapshots: NewSnapshotStore(),
	}
	w.perception = NewPerception(cfg.Scan, cfg.Arena, cfg.Limits.MaxPlayers+cfg.Limits.MaxProjectiles, seed+1)
	w.sim.SetContactFilter(w.physicalContact)

	w.borders = buildBorders(w.sim, cfg.Arena)
	for _, b := range w.borders {
		w.entities[b.handle] = b
	}
	w.placeObstacles()

	w.snapshots.Publish(w.buildSnapshot())
	return w
}

// Seed returns the RNG seed, for reproducing a run
func (w *World) Seed() int64 {
	return w.seed
}

// EventLog returns the match journal
func (w *World) EventLog() *EventLog {
	return w.eventLog
}

// SetTickObserver installs a callback invoked after every tick, outside the lock
func (w *World) SetTickObserver(fn func(TickStats)) {
	w.mu.Lock()
	w.onTick = fn
	w.mu.Unlock()
}

// LatestSnapshot returns the snapshot published by the last tick without locking
func (w *World) LatestSnapshot() *WorldSnapshot {
	return w.snapshots.Latest()
}

// Start begins the fixed-rate game loop
func (w *World) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.doneChan = make(chan struct{})
	stop, done := w.stopChan, w.doneChan
	w.mu.Unlock()

	interval := time.Second / time.Duration(w.cfg.Physics.TickRate)
	go w.loop(interval, stop, done)

	log.Printf("🎮 Arena started at %d TPS (seed %d)", w.cfg.Physics.TickRate, w.seed)
}

// Stop halts the loop. It returns once the in-flight tick has finished.
func (w *World) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.doneChan
	w.mu.Unlock()

	<-done
	log.Println("🛑 Arena stopped")
}

func (w *World) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Tick(w.dt)
		case <-stop:
			return
		}
	}
}

// =============================================================================
// PLAYER LIFECYCLE
// =============================================================================

// Connect spawns a new ship and returns its id
func (w *World) Connect() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.Running() {
		return "", ErrSessionLocked
	}
	if len(w.ships) >= w.cfg.Limits.MaxPlayers {
		return "", errors.Wrapf(ErrWorldFull, "%d players", len(w.ships))
	}

	pos, attempts, ok := findSpawn(w.sim, w.cfg.Arena, w.cfg.Ship, w.rng)
	if !ok {
		log.Printf("⚠️ No spawn position after %d attempts", attempts)
		w.eventLog.EmitSimple(EventTypeSpawnFailed, w.tickCount, "", nil)
		return "", errors.Wrapf(ErrSpawnExhausted, "after %d attempts", attempts)
	}

	id := uuid.NewString()
	color := shipColors[w.colorIdx%len(shipColors)]
	w.colorIdx++

	w.spawnShip(id, color, pos)
	w.order = append(w.order, id)

	log.Printf("👤 Player %s joined at (%.0f, %.0f)", id, pos.X(), pos.Y())
	w.eventLog.EmitSimple(EventTypeConnect, w.tickCount, id, ConnectPayload{
		PlayerID: id,
		SpawnX:   pos.X(),
		SpawnY:   pos.Y(),
		Color:    color,
	})

	// A fresh unready ship aborts any countdown in progress
	w.syncSession()
	return id, nil
}

// Disconnect removes a ship. Its projectiles stay in flight.
func (w *World) Disconnect(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, err := w.ship(id)
	if err != nil {
		return err
	}

	w.removeShip(ship)
	log.Printf("👋 Player %s left", id)
	w.eventLog.EmitSimple(EventTypeDisconnect, w.tickCount, id, nil)

	w.afterRosterChange()
	return nil
}

// SetReady marks a player ready. Repeated calls are harmless.
func (w *World) SetReady(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, err := w.ship(id)
	if err != nil {
		return err
	}
	if ship.Ready {
		return nil
	}

	ship.Ready = true
	w.eventLog.EmitSimple(EventTypeReady, w.tickCount, id, nil)
	w.syncSession()
	return nil
}

func (w *World) spawnShip(id, color string, pos mgl64.Vec2) *Ship {
	ship := &Ship{
		ID:             id,
		Color:          color,
		Health:         w.cfg.Ship.MaxHealth,
		ProtectedUntil: w.now + w.cfg.Ship.SpawnProtection,
		radius:         w.cfg.Ship.Radius,
	}
	ship.handle = w.sim.AddCircle(physics.CircleSpec{
		Category:   KindShip.category(),
		Position:   pos,
		Radius:     w.cfg.Ship.Radius,
		Mass:       w.cfg.Ship.Mass,
		Elasticity: w.cfg.Ship.Elasticity,
		MaxSpeed:   w.cfg.Ship.MaxSpeed,
	})
	w.entities[ship.handle] = ship
	w.ships[id] = ship
	w.perception.Invalidate()
	return ship
}

// removeShip drops the ship and its body together.
func (w *World) removeShip(ship *Ship) {
	w.sim.Remove(ship.handle)
	delete(w.entities, ship.handle)
	delete(w.ships, ship.ID)
	for i, id := range w.order {
		if id == ship.ID {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.perception.Invalidate()
}

// afterRosterChange runs after a ship leaves for any reason. Losing a
// player mid-countdown always aborts; the next tick may start a fresh
// countdown if everyone left is ready.
func (w *World) afterRosterChange() {
	if len(w.ships) > 0 {
		from := w.session.Phase()
		if w.session.Abort() {
			w.phaseChanged(from)
			return
		}
		w.syncSession()
		return
	}

	from := w.session.Phase()
	w.session.Reset()
	w.shotsFired = 0
	w.collisions = 0
	if from != PhaseWaiting {
		w.phaseChanged(from)
	}
}

// ship looks up a live ship by id.
func (w *World) ship(id string) (*Ship, error) {
	ship, ok := w.ships[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "player %s", id)
	}
	if !w.sim.Has(ship.handle) {
		invariantf("ship %s has no body", id)
	}
	return ship, nil
}

// =============================================================================
// SESSION
// =============================================================================

func (w *World) allReady() bool {
	if len(w.ships) == 0 {
		return false
	}
	for _, ship := range w.ships {
		if !ship.Ready {
			return false
		}
	}
	return true
}

func (w *World) syncSession() {
	if from, changed := w.session.Sync(w.allReady()); changed {
		w.phaseChanged(from)
	}
}

func (w *World) advanceSession(dt float64) {
	ready := w.allReady()
	from, changed := w.session.Advance(dt, ready)
	if !changed {
		from, changed = w.session.Sync(ready)
	}
	if changed {
		w.phaseChanged(from)
	}
}

func (w *World) phaseChanged(from Phase) {
	to := w.session.Phase()

	if to == PhaseCountdown {
		// Protection covers the countdown plus the normal window
		until := w.now + w.cfg.Session.Countdown + w.cfg.Ship.SpawnProtection
		for _, ship := range w.ships {
			ship.ProtectedUntil = math.Max(ship.ProtectedUntil, until)
		}
	}

	log.Printf("📊 Session %s → %s (%d players)", from, to, len(w.ships))
	w.eventLog.EmitSimple(EventTypePhase, w.tickCount, "", PhasePayload{
		From:    from.String(),
		To:      to.String(),
		Players: len(w.ships),
	})
}

// Restart resets the match: projectiles cleared, obstacles rebuilt and
// every connected player respawned with the same id. A player that cannot
// be placed is dropped.
func (w *World) Restart() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range w.projectiles {
		w.sim.Remove(p.handle)
		delete(w.entities, p.handle)
	}
	w.projectiles = w.projectiles[:0]

	for _, o := range w.obstacles {
		w.sim.Remove(o.handle)
		delete(w.entities, o.handle)
	}
	w.placeObstacles()

	// Clear every ship body first so respawns only see obstacles and
	// ships already placed this round
	previous := make([]*Ship, 0, len(w.order))
	for _, id := range w.order {
		previous = append(previous, w.ships[id])
	}
	for _, ship := range previous {
		w.removeShip(ship)
	}

	from := w.session.Phase()
	w.session.Reset()
	w.shotsFired = 0
	w.collisions = 0

	dropped := 0
	for _, old := range previous {
		pos, attempts, ok := findSpawn(w.sim, w.cfg.Arena, w.cfg.Ship, w.rng)
		if !ok {
			dropped++
			log.Printf("⚠️ Dropping %s on restart: no spawn after %d attempts", old.ID, attempts)
			w.eventLog.EmitSimple(EventTypeSpawnFailed, w.tickCount, old.ID, nil)
			continue
		}
		w.spawnShip(old.ID, old.Color, pos)
		w.order = append(w.order, old.ID)
	}

	log.Printf("🔄 Match restarted: %d respawned, %d dropped", len(w.ships), dropped)
	w.eventLog.EmitSimple(EventTypeRestart, w.tickCount, "", RestartPayload{
		Respawned: len(w.ships),
		Dropped:   dropped,
	})
	if from != PhaseWaiting {
		w.phaseChanged(from)
	}
}

func (w *World) placeObstacles() {
	w.obstacles = buildObstacles(w.sim, w.cfg.Arena)
	for _, o := range w.obstacles {
		w.entities[o.handle] = o
	}
	w.perception.Invalidate()
}

// =============================================================================
// COMMANDS
// =============================================================================

// command runs fn for a live ship while the match is running.
func (w *World) command(id string, fn func(*Ship) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, err := w.ship(id)
	if err != nil {
		return err
	}
	if !w.session.Running() {
		return errors.Wrapf(ErrNotRunning, "session is %s", w.session.Phase())
	}
	return fn(ship)
}

// ThrustForward pushes the ship along its facing
func (w *World) ThrustForward(id string) error {
	return w.command(id, func(s *Ship) error {
		s.thrust(w.sim, w.cfg.Ship.Thrust)
		return nil
	})
}

// ThrustBackward pushes the ship against its facing
func (w *World) ThrustBackward(id string) error {
	return w.command(id, func(s *Ship) error {
		s.thrust(w.sim, -w.cfg.Ship.Thrust)
		return nil
	})
}

// RotateLeft adds counter-clockwise spin
func (w *World) RotateLeft(id string) error {
	return w.command(id, func(s *Ship) error {
		s.spin(w.sim, w.cfg.Ship.RotationStep)
		return nil
	})
}

// RotateRight adds clockwise spin
func (w *World) RotateRight(id string) error {
	return w.command(id, func(s *Ship) error {
		s.spin(w.sim, -w.cfg.Ship.RotationStep)
		return nil
	})
}

// Shoot fires a projectile along the ship's facing
func (w *World) Shoot(id string) error {
	return w.command(id, func(s *Ship) error {
		if s.Protected(w.now) {
			return ErrSpawnProtected
		}
		if len(w.projectiles) >= w.cfg.Limits.MaxProjectiles {
			return ErrProjectileLimit
		}

		p := fireFrom(w.sim, s, w.cfg.Projectile)
		w.entities[p.handle] = p
		w.projectiles = append(w.projectiles, p)
		w.shotsFired++
		w.perception.Invalidate()

		w.eventLog.EmitSimple(EventTypeShot, w.tickCount, s.ID, ShotPayload{
			PlayerID: s.ID,
			Angle:    w.sim.Angle(s.handle),
		})
		return nil
	})
}

// =============================================================================
// QUERIES
// =============================================================================

// Scan returns the ship's noisy view of its surroundings. It takes the
// write lock because it draws noise and may rebuild the broad phase.
func (w *World) Scan(id string) (ScanResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ship, err := w.ship(id)
	if err != nil {
		return ScanResult{}, err
	}

	w.circles = w.circles[:0]
	for _, sid := range w.order {
		w.circles = append(w.circles, w.ships[sid])
	}
	for _, o := range w.obstacles {
		w.circles = append(w.circles, o)
	}
	for _, p := range w.projectiles {
		w.circles = append(w.circles, p)
	}

	return w.perception.Scan(w.sim, ship, w.circles, w.borders), nil
}

// PlayerState returns a ship's kinematics and health
func (w *World) PlayerState(id string) (PlayerState, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ship, err := w.ship(id)
	if err != nil {
		return PlayerState{}, err
	}
	return PlayerState{
		Velocity:        w.sim.Velocity(ship.handle),
		Angle:           w.sim.Angle(ship.handle),
		Health:          ship.Health,
		AngularVelocity: w.sim.AngularVelocity(ship.handle),
	}, nil
}

// SessionState returns the lifecycle view for a player
func (w *World) SessionState(id string) (SessionState, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ship, err := w.ship(id)
	if err != nil {
		return SessionState{}, err
	}
	phase := w.session.Phase()
	return SessionState{
		GameStarted:               phase == PhaseRunning,
		WaitingForPlayers:         phase == PhaseWaiting,
		CountdownActive:           phase == PhaseCountdown,
		CountdownSecondsRemaining: w.session.Remaining(),
		Ready:                     ship.Ready,
	}, nil
}

// Phase returns the current session phase
func (w *World) Phase() Phase {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.session.Phase()
}

// Snapshot builds a fresh copy of the whole world
func (w *World) Snapshot() WorldSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return *w.buildSnapshot()
}

func (w *World) buildSnapshot() *WorldSnapshot {
	phase := w.session.Phase()
	snap := &WorldSnapshot{
		Tick:                      w.tickCount,
		GameStarted:               phase == PhaseRunning,
		WaitingForPlayers:         phase == PhaseWaiting,
		CountdownActive:           phase == PhaseCountdown,
		CountdownSecondsRemaining: w.session.Remaining(),
		Players:                   make([]PlayerSnapshot, 0, len(w.ships)),
		Objects:                   make([]ObjectSnapshot, 0, len(w.obstacles)+len(w.projectiles)+len(w.borders)),
		ShotsFired:                w.shotsFired,
		Collisions:                w.collisions,
	}

	for _, id := range w.order {
		s := w.ships[id]
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:        s.ID,
			Position:  w.sim.Position(s.handle),
			Velocity:  w.sim.Velocity(s.handle),
			Angle:     w.sim.Angle(s.handle),
			Health:    s.Health,
			Ready:     s.Ready,
			Color:     s.Color,
			Protected: s.Protected(w.now),
		})
	}
	for _, o := range w.obstacles {
		snap.Objects = append(snap.Objects, ObjectSnapshot{
			Type:     KindObstacle.String(),
			Position: o.Position,
			Radius:   o.radius,
		})
	}
	for _, p := range w.projectiles {
		snap.Objects = append(snap.Objects, ObjectSnapshot{
			Type:     KindProjectile.String(),
			Position: w.sim.Position(p.handle),
			Radius:   p.radius,
			Velocity: vecPtr(w.sim.Velocity(p.handle)),
			Owner:    p.Owner,
			Color:    p.Color,
		})
	}
	for _, b := range w.borders {
		snap.Objects = append(snap.Objects, ObjectSnapshot{
			Type:     KindBorder.String(),
			Position: b.A.Add(b.B).Mul(0.5),
			Radius:   b.radius,
			Start:    vecPtr(b.A),
			End:      vecPtr(b.B),
		})
	}
	return snap
}

// =============================================================================
// TICK
// =============================================================================

// Tick advances the world by dt: physics step, spin damping, collision
// effects, projectile lifetimes and the session timer, in that order.
func (w *World) Tick(dt float64) {
	stats, observer := w.advance(dt)
	if observer != nil {
		observer(stats)
	}
}

func (w *World) advance(dt float64) (TickStats, func(TickStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	w.tickCount++
	stats := TickStats{Tick: w.tickCount}
	w.inFlight = &stats
	defer func() { w.inFlight = nil }()

	contacts := w.sim.Step(dt)
	w.now += dt

	for _, id := range w.order {
		w.ships[id].dampSpin(w.sim, w.cfg.Physics.AngularDamping, dt, w.cfg.Physics.SpinEpsilon)
	}

	for _, c := range contacts {
		x, okX := w.entities[c.A]
		y, okY := w.entities[c.B]
		if !okX || !okY {
			// One side was removed by an earlier contact this tick
			continue
		}
		if stats.Contacts == nil {
			stats.Contacts = make(map[string]int)
		}
		stats.Contacts[pairLabel(x.Kind(), y.Kind())]++
		w.policy.Resolve(w, x, y)
	}

	w.expireProjectiles(dt)
	w.advanceSession(dt)
	w.perception.Invalidate()

	w.snapshots.Publish(w.buildSnapshot())

	stats.Duration = time.Since(start)
	stats.Phase = w.session.Phase()
	stats.Players = len(w.ships)
	stats.Projectiles = len(w.projectiles)
	return stats, w.onTick
}

func (w *World) expireProjectiles(dt float64) {
	live := w.projectiles[:0]
	for _, p := range w.projectiles {
		p.Remaining -= dt
		if p.Expired() {
			w.sim.Remove(p.handle)
			delete(w.entities, p.handle)
			continue
		}
		live = append(live, p)
	}
	for i := len(live); i < len(w.projectiles); i++ {
		w.projectiles[i] = nil
	}
	w.projectiles = live
}

// physicalContact is the simulation's contact filter. It runs inside Step
// and must only read.
func (w *World) physicalContact(a, b physics.Handle) bool {
	x, okX := w.entities[a]
	y, okY := w.entities[b]
	if !okX || !okY {
		return true
	}
	return w.policy.Physical(x, y)
}

func pairLabel(x, y Kind) string {
	k := keyOf(x, y)
	return k.a.String() + "_" + k.b.String()
}

// collisionEffects implementation

func (w *World) damageShip(s *Ship, amount int, cause string) {
	if w.ships[s.ID] != s {
		return
	}
	applied, destroyed := s.TakeDamage(amount, w.now)
	if !applied {
		return
	}

	w.eventLog.EmitSimple(EventTypeDamage, w.tickCount, s.ID, DamagePayload{
		VictimID: s.ID,
		Cause:    cause,
		Damage:   amount,
		VictimHP: s.Health,
	})
	if !destroyed {
		return
	}

	w.removeShip(s)
	if w.inFlight != nil {
		w.inFlight.Eliminations++
	}
	log.Printf("💀 Player %s eliminated (%s)", s.ID, cause)
	w.eventLog.EmitSimple(EventTypeEliminated, w.tickCount, s.ID, nil)
	w.afterRosterChange()
}

func (w *World) removeProjectile(p *Projectile) {
	if w.entities[p.handle] != Entity(p) {
		return
	}
	w.sim.Remove(p.handle)
	delete(w.entities, p.handle)
	for i, live := range w.projectiles {
		if live == p {
			w.projectiles = append(w.projectiles[:i], w.projectiles[i+1:]...)
			break
		}
	}
	w.perception.Invalidate()
}

func (w *World) countCollision() {
	w.collisions++
}
