package lifecycle

import (
	"sync"
	"time"

	"LTPCoach/internal/domain/models"
)

// Config tunes the state machine thresholds and timing.
type Config struct {
	FormingFloor   float64 `yaml:"forming_floor"`   // none -> forming
	ReadyThreshold float64 `yaml:"ready_threshold"` // forming -> ready
	HysteresisBand float64 `yaml:"hysteresis_band"` // ready tolerates dips to ReadyThreshold-band

	DetectionWindow  time.Duration `yaml:"detection_window"`  // from first forming to forced expiry
	ReentryCooldown  time.Duration `yaml:"reentry_cooldown"`  // expired -> eligible for forming again
	ExpiredRetention time.Duration `yaml:"expired_retention"` // how long an expired setup stays visible

	StopBufferPercent float64 `yaml:"stop_buffer_percent"` // stop distance beyond the primary level
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		FormingFloor:      50,
		ReadyThreshold:    70,
		HysteresisBand:    5,
		DetectionWindow:   30 * time.Minute,
		ReentryCooldown:   5 * time.Minute,
		ExpiredRetention:  2 * time.Minute,
		StopBufferPercent: 0.25,
	}
}

type key struct {
	symbol    string
	direction models.Direction
}

type tracked struct {
	setup       *models.DetectedSetup
	windowTimer *time.Timer
	purgeTimer  *time.Timer
}

// Observation is one scoring pass fed into the engine.
type Observation struct {
	Score         models.ConfluenceScore
	Price         float64
	PrimaryLevel  models.KeyLevel
	PatienceCount int
}

// Engine runs the per-symbol, per-direction setup state machine. It is the
// sole writer of DetectedSetup.Stage. Every transition emits a stream event
// through the emit callback.
type Engine struct {
	cfg  Config
	emit func(models.StreamEvent)
	now  func() time.Time

	mu       sync.Mutex
	track    map[key]*tracked
	cooldown map[key]time.Time // earliest time a fresh forming is allowed
}

func NewEngine(cfg Config, emit func(models.StreamEvent)) *Engine {
	if cfg.FormingFloor <= 0 {
		cfg = DefaultConfig()
	}
	if emit == nil {
		emit = func(models.StreamEvent) {}
	}
	return &Engine{
		cfg:      cfg,
		emit:     emit,
		now:      time.Now,
		track:    make(map[key]*tracked),
		cooldown: make(map[key]time.Time),
	}
}

// Evaluate advances the state machine for one symbol and direction and
// returns a copy of the tracked setup, or nil when nothing is tracked.
// Callers serialize invocations per symbol; distinct symbols may run
// concurrently.
func (e *Engine) Evaluate(symbol string, dir models.Direction, obs Observation) *models.DetectedSetup {
	symbol = models.NormalizeSymbol(symbol)
	k := key{symbol: symbol, direction: dir}
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	tr := e.track[k]
	if tr == nil {
		if obs.Score.Total < e.cfg.FormingFloor {
			return nil
		}
		if until, held := e.cooldown[k]; held && now.Before(until) {
			return nil
		}
		tr = e.enterForming(k, obs, now)
	}

	s := tr.setup
	switch s.Stage {
	case models.StageForming:
		if now.Sub(s.DetectedAt) >= e.cfg.DetectionWindow {
			e.expireLocked(k, tr, now)
			break
		}
		s.Score = obs.Score
		s.PatienceCandleCount = obs.PatienceCount
		if obs.Score.Total >= e.cfg.ReadyThreshold && obs.PrimaryLevel.Price > 0 {
			e.enterReady(k, tr, obs, now)
		}

	case models.StageReady:
		switch {
		case e.stopCrossed(s, obs.Price):
			e.expireLocked(k, tr, now)
		case now.Sub(s.DetectedAt) >= e.cfg.DetectionWindow:
			e.expireLocked(k, tr, now)
		case obs.Score.Total < e.cfg.ReadyThreshold-e.cfg.HysteresisBand:
			e.expireLocked(k, tr, now)
		default:
			s.Score = obs.Score
			s.PatienceCandleCount = obs.PatienceCount
		}

	case models.StageExpired:
		// Retained for display until the purge timer fires.
	}

	cp := *tr.setup
	return &cp
}

// Active returns copies of all tracked setups, expired ones included while
// they are retained.
func (e *Engine) Active() []models.DetectedSetup {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.DetectedSetup, 0, len(e.track))
	for _, tr := range e.track {
		out = append(out, *tr.setup)
	}
	return out
}

// Get returns a copy of the tracked setup for a symbol and direction, or nil.
func (e *Engine) Get(symbol string, dir models.Direction) *models.DetectedSetup {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr := e.track[key{symbol: models.NormalizeSymbol(symbol), direction: dir}]
	if tr == nil {
		return nil
	}
	cp := *tr.setup
	return &cp
}

// Drop removes all tracking for a symbol, cancelling its timers. Used when
// the symbol leaves the watchlist mid-window.
func (e *Engine) Drop(symbol string) {
	symbol = models.NormalizeSymbol(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, tr := range e.track {
		if k.symbol != symbol {
			continue
		}
		stopTimer(tr.windowTimer)
		stopTimer(tr.purgeTimer)
		delete(e.track, k)
	}
	for k := range e.cooldown {
		if k.symbol == symbol {
			delete(e.cooldown, k)
		}
	}
}

// Close cancels every outstanding timer.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, tr := range e.track {
		stopTimer(tr.windowTimer)
		stopTimer(tr.purgeTimer)
		delete(e.track, k)
	}
}

func (e *Engine) enterForming(k key, obs Observation, now time.Time) *tracked {
	s := &models.DetectedSetup{
		Symbol:              k.symbol,
		Direction:           k.direction,
		Stage:               models.StageForming,
		Score:               obs.Score,
		PrimaryLevel:        obs.PrimaryLevel,
		PatienceCandleCount: obs.PatienceCount,
		DetectedAt:          now,
	}
	tr := &tracked{setup: s}
	// Safety net for symbols that stop ticking mid-window.
	tr.windowTimer = time.AfterFunc(e.cfg.DetectionWindow, func() { e.forceExpire(k) })
	e.track[k] = tr
	e.emit(models.NewSetupEvent(s))
	return tr
}

func (e *Engine) enterReady(k key, tr *tracked, obs Observation, now time.Time) {
	s := tr.setup
	s.Stage = models.StageReady
	s.ReadyAt = now
	s.PrimaryLevel = obs.PrimaryLevel
	s.Entry, s.Stop, s.Target1, s.Target2, s.Target3, s.RiskReward = Plan(e.cfg, k.direction, obs.Price, obs.PrimaryLevel)
	e.emit(models.NewSetupEvent(s))
}

// Plan derives the suggested trade around the primary level: entry at the
// observed price, stop beyond the level by the configured buffer, targets
// at one, two and three risk units. The on-demand analyzer uses the same
// derivation for previews.
func Plan(cfg Config, dir models.Direction, price float64, level models.KeyLevel) (entry, stop, t1, t2, t3, rr float64) {
	entry = price
	buffer := level.Price * cfg.StopBufferPercent / 100
	if dir == models.DirectionBullish {
		stop = level.Price - buffer
		if stop >= entry {
			stop = entry - buffer
		}
	} else {
		stop = level.Price + buffer
		if stop <= entry {
			stop = entry + buffer
		}
	}
	risk := entry - stop
	if dir == models.DirectionBearish {
		risk = stop - entry
	}
	if dir == models.DirectionBullish {
		t1, t2, t3 = entry+risk, entry+2*risk, entry+3*risk
	} else {
		t1, t2, t3 = entry-risk, entry-2*risk, entry-3*risk
	}
	rr = 2.0 // measured to the second target
	return
}

func (e *Engine) stopCrossed(s *models.DetectedSetup, price float64) bool {
	if s.Stop <= 0 || price <= 0 {
		return false
	}
	if s.Direction == models.DirectionBullish {
		return price < s.Stop
	}
	return price > s.Stop
}

// expireLocked transitions to expired exactly once, schedules the purge and
// arms the re-entry cooldown. Caller holds e.mu.
func (e *Engine) expireLocked(k key, tr *tracked, now time.Time) {
	s := tr.setup
	if s.Stage == models.StageExpired {
		return
	}
	s.Stage = models.StageExpired
	s.ExpiredAt = now
	stopTimer(tr.windowTimer)
	tr.windowTimer = nil
	tr.purgeTimer = time.AfterFunc(e.cfg.ExpiredRetention, func() { e.purge(k) })
	e.cooldown[k] = now.Add(e.cfg.ReentryCooldown)
	e.emit(models.NewSetupEvent(s))
}

func (e *Engine) forceExpire(k key) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tr := e.track[k]; tr != nil {
		e.expireLocked(k, tr, e.now())
	}
}

func (e *Engine) purge(k key) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tr := e.track[k]; tr != nil && tr.setup.Stage == models.StageExpired {
		stopTimer(tr.purgeTimer)
		delete(e.track, k)
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}
