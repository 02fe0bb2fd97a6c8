package alerts

import (
	"fmt"
	"sync"
	"time"

	"LTPCoach/internal/domain/models"
)

// Category is one independently cooled-down alert class. One category
// re-firing never suppresses another.
type Category string

const (
	CategoryScore     Category = "score"
	CategoryCallWall  Category = "call_wall"
	CategoryPutWall   Category = "put_wall"
	CategoryZeroGamma Category = "zero_gamma"
	CategoryVWAPCross Category = "vwap_cross"
)

// Alert is one spoken-alert request handed to the sink.
type Alert struct {
	Symbol   string    `json:"symbol"`
	Category Category  `json:"category"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// DefaultCooldown is how long a category stays quiet after firing.
const DefaultCooldown = 30 * time.Second

type alertKey struct {
	symbol   string
	category Category
}

// Trigger converts evaluation deltas into rate-limited alerts. State is
// session-scoped: Reset clears it when the session ends so a new session
// starts with no cooldowns armed.
type Trigger struct {
	cooldown time.Duration
	sink     func(Alert)
	now      func() time.Time

	mu       sync.Mutex
	lastSent map[alertKey]time.Time
	grade    map[string]models.Grade
	aboveVW  map[string]bool
}

// NewTrigger wires a trigger to a sink. A nil sink discards alerts, which
// keeps the edge bookkeeping usable on its own.
func NewTrigger(cooldown time.Duration, sink func(Alert)) *Trigger {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if sink == nil {
		sink = func(Alert) {}
	}
	return &Trigger{
		cooldown: cooldown,
		sink:     sink,
		now:      time.Now,
		lastSent: make(map[alertKey]time.Time),
		grade:    make(map[string]models.Grade),
		aboveVW:  make(map[string]bool),
	}
}

// OnEvaluation inspects one evaluation pass for alertable deltas: a grade
// upgrade to sniper, gamma proximity edges, and a VWAP cross. Returns the
// alerts that actually fired after the per-category cooldown gate.
func (t *Trigger) OnEvaluation(symbol string, sc *models.ConfluenceScore, g *models.GammaExposure, price, vwap float64) []Alert {
	symbol = models.NormalizeSymbol(symbol)
	t.mu.Lock()
	defer t.mu.Unlock()

	var fired []Alert
	emit := func(cat Category, msg string) {
		if a, ok := t.fireLocked(symbol, cat, msg); ok {
			fired = append(fired, a)
		}
	}

	if sc != nil {
		prev, seen := t.grade[symbol]
		t.grade[symbol] = sc.Grade
		if seen && prev != models.GradeSniper && sc.Grade == models.GradeSniper {
			emit(CategoryScore, fmt.Sprintf("%s is now grading sniper at %.0f", symbol, sc.Total))
		}
	}

	if g != nil {
		if g.NearCallWall {
			emit(CategoryCallWall, fmt.Sprintf("%s approaching the call wall at %.2f", symbol, g.CallWall))
		}
		if g.NearPutWall {
			emit(CategoryPutWall, fmt.Sprintf("%s approaching the put wall at %.2f", symbol, g.PutWall))
		}
		if g.CrossedZeroGamma {
			emit(CategoryZeroGamma, fmt.Sprintf("%s crossed the gamma flip at %.2f", symbol, g.GammaFlip))
		}
	}

	if price > 0 && vwap > 0 {
		above := price > vwap
		prev, seen := t.aboveVW[symbol]
		t.aboveVW[symbol] = above
		if seen && prev != above {
			side := "above"
			if !above {
				side = "below"
			}
			emit(CategoryVWAPCross, fmt.Sprintf("%s crossed %s VWAP", symbol, side))
		}
	}

	return fired
}

// Fire requests one alert directly, subject to the category cooldown.
// Reports whether it was delivered.
func (t *Trigger) Fire(symbol string, cat Category, msg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.fireLocked(models.NormalizeSymbol(symbol), cat, msg)
	return ok
}

func (t *Trigger) fireLocked(symbol string, cat Category, msg string) (Alert, bool) {
	k := alertKey{symbol: symbol, category: cat}
	now := t.now()
	if last, ok := t.lastSent[k]; ok && now.Sub(last) < t.cooldown {
		return Alert{}, false
	}
	t.lastSent[k] = now
	a := Alert{Symbol: symbol, Category: cat, Message: msg, At: now}
	t.sink(a)
	return a, true
}

// Reset clears every cooldown and edge snapshot. Called when the owning
// session ends.
func (t *Trigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[alertKey]time.Time)
	t.grade = make(map[string]models.Grade)
	t.aboveVW = make(map[string]bool)
}
