package lifecycle

import (
	"testing"
	"time"

	"LTPCoach/internal/domain/models"
)

type eventLog struct {
	events []models.StreamEvent
}

func (l *eventLog) emit(ev models.StreamEvent) { l.events = append(l.events, ev) }

func (l *eventLog) types() []models.EventType {
	out := make([]models.EventType, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

func testEngine(t *testing.T) (*Engine, *eventLog, *time.Time) {
	t.Helper()
	log := &eventLog{}
	e := NewEngine(DefaultConfig(), log.emit)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return now }
	t.Cleanup(e.Close)
	return e, log, &now
}

func scored(total float64) Observation {
	return Observation{
		Score: models.ConfluenceScore{
			Symbol:    "SYM",
			Direction: models.DirectionBullish,
			Total:     total,
			Grade:     models.GradeFor(total),
		},
		Price:        100,
		PrimaryLevel: models.KeyLevel{Type: models.LevelPriorDayHigh, Price: 100.05, Strength: 90},
	}
}

func TestBelowFloorTracksNothing(t *testing.T) {
	e, log, _ := testEngine(t)
	if s := e.Evaluate("SYM", models.DirectionBullish, scored(40)); s != nil {
		t.Fatalf("setup tracked at total 40: %+v", s)
	}
	if len(log.events) != 0 {
		t.Fatalf("unexpected events: %v", log.types())
	}
}

func TestFormingAndReadyInOneCycle(t *testing.T) {
	e, log, _ := testEngine(t)

	s := e.Evaluate("SYM", models.DirectionBullish, scored(80))
	if s == nil || s.Stage != models.StageReady {
		t.Fatalf("setup = %+v, want ready", s)
	}
	if s.Entry != 100 || s.Stop >= s.Entry || s.Target1 <= s.Entry {
		t.Errorf("plan entry=%.2f stop=%.2f t1=%.2f, want stop below and target above entry", s.Entry, s.Stop, s.Target1)
	}
	got := log.types()
	want := []models.EventType{models.EventSetupForming, models.EventSetupReady}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestFormingHoldsBelowReadyThreshold(t *testing.T) {
	e, _, _ := testEngine(t)

	s := e.Evaluate("SYM", models.DirectionBullish, scored(60))
	if s == nil || s.Stage != models.StageForming {
		t.Fatalf("setup = %+v, want forming", s)
	}
	s = e.Evaluate("SYM", models.DirectionBullish, scored(65))
	if s.Stage != models.StageForming {
		t.Fatalf("stage = %s after sub-threshold update, want forming", s.Stage)
	}
	if s.Score.Total != 65 {
		t.Errorf("score not updated in place: %.0f", s.Score.Total)
	}
}

func TestHysteresisPreventsFlapping(t *testing.T) {
	e, log, _ := testEngine(t)

	e.Evaluate("SYM", models.DirectionBullish, scored(75))
	// Dip inside the band: stays ready, no transition events.
	s := e.Evaluate("SYM", models.DirectionBullish, scored(66))
	if s.Stage != models.StageReady {
		t.Fatalf("stage = %s on in-band dip, want ready", s.Stage)
	}
	if len(log.events) != 2 {
		t.Fatalf("events = %v, want only forming+ready", log.types())
	}

	// Dip below the band: expires, never back to forming directly.
	s = e.Evaluate("SYM", models.DirectionBullish, scored(55))
	if s.Stage != models.StageExpired {
		t.Fatalf("stage = %s below the band, want expired", s.Stage)
	}
	if last := log.events[len(log.events)-1].Type; last != models.EventSetupExpired {
		t.Fatalf("last event = %s, want setup_expired", last)
	}
}

func TestStopCrossExpires(t *testing.T) {
	e, log, _ := testEngine(t)

	s := e.Evaluate("SYM", models.DirectionBullish, scored(80))
	if s.Stage != models.StageReady {
		t.Fatalf("stage = %s, want ready", s.Stage)
	}

	obs := scored(80)
	obs.Price = s.Stop - 0.10
	s = e.Evaluate("SYM", models.DirectionBullish, obs)
	if s.Stage != models.StageExpired {
		t.Fatalf("stage = %s after stop cross, want expired", s.Stage)
	}
	if last := log.events[len(log.events)-1].Type; last != models.EventSetupExpired {
		t.Fatalf("last event = %s, want setup_expired", last)
	}
}

func TestWindowExpiryFiresExactlyOnce(t *testing.T) {
	e, log, now := testEngine(t)

	e.Evaluate("SYM", models.DirectionBullish, scored(80))
	*now = now.Add(31 * time.Minute)

	s := e.Evaluate("SYM", models.DirectionBullish, scored(80))
	if s.Stage != models.StageExpired {
		t.Fatalf("stage = %s after the window elapsed, want expired", s.Stage)
	}
	e.Evaluate("SYM", models.DirectionBullish, scored(80))

	expired := 0
	for _, ev := range log.events {
		if ev.Type == models.EventSetupExpired {
			expired++
		}
	}
	if expired != 1 {
		t.Fatalf("setup_expired emitted %d times, want exactly once", expired)
	}
}

func TestReentryBlockedDuringCooldown(t *testing.T) {
	e, _, now := testEngine(t)
	cfg := DefaultConfig()
	cfg.ExpiredRetention = time.Millisecond
	e.cfg = cfg

	e.Evaluate("SYM", models.DirectionBullish, scored(80))
	obs := scored(80)
	obs.Price = 90 // through the stop
	e.Evaluate("SYM", models.DirectionBullish, obs)

	time.Sleep(20 * time.Millisecond) // purge timer fires

	if s := e.Evaluate("SYM", models.DirectionBullish, scored(80)); s != nil {
		t.Fatalf("re-entered during cooldown: %+v", s)
	}

	*now = now.Add(6 * time.Minute)
	s := e.Evaluate("SYM", models.DirectionBullish, scored(80))
	if s == nil || s.Stage != models.StageReady {
		t.Fatalf("setup = %+v after cooldown, want a fresh ready setup", s)
	}
}

func TestDirectionsTrackIndependently(t *testing.T) {
	e, _, _ := testEngine(t)

	e.Evaluate("SYM", models.DirectionBullish, scored(80))
	bear := scored(60)
	bear.Score.Direction = models.DirectionBearish
	e.Evaluate("SYM", models.DirectionBearish, bear)

	if got := len(e.Active()); got != 2 {
		t.Fatalf("active setups = %d, want one per direction", got)
	}
	if s := e.Get("SYM", models.DirectionBearish); s == nil || s.Stage != models.StageForming {
		t.Fatalf("bearish setup = %+v, want forming", s)
	}
}

func TestDropRemovesTracking(t *testing.T) {
	e, _, _ := testEngine(t)

	e.Evaluate("SYM", models.DirectionBullish, scored(80))
	e.Drop("sym")
	if got := len(e.Active()); got != 0 {
		t.Fatalf("active setups = %d after drop, want 0", got)
	}
	if s := e.Evaluate("SYM", models.DirectionBullish, scored(80)); s == nil {
		t.Fatal("drop must also clear the re-entry cooldown")
	}
}
