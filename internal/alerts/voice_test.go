package alerts

import (
	"testing"
	"time"

	"LTPCoach/internal/domain/models"
)

func testTrigger(t *testing.T) (*Trigger, *[]Alert, *time.Time) {
	t.Helper()
	var sent []Alert
	tr := NewTrigger(30*time.Second, func(a Alert) { sent = append(sent, a) })
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }
	return tr, &sent, &now
}

func TestCooldownSuppressesRepeat(t *testing.T) {
	tr, sent, now := testTrigger(t)

	if !tr.Fire("SYM", CategoryCallWall, "wall") {
		t.Fatal("first fire suppressed")
	}
	*now = now.Add(10 * time.Second)
	if tr.Fire("SYM", CategoryCallWall, "wall") {
		t.Fatal("second fire inside the cooldown delivered")
	}
	*now = now.Add(25 * time.Second) // 35s after the first
	if !tr.Fire("SYM", CategoryCallWall, "wall") {
		t.Fatal("fire after the cooldown suppressed")
	}
	if len(*sent) != 2 {
		t.Fatalf("sink received %d alerts, want 2", len(*sent))
	}
}

func TestCategoriesCoolDownIndependently(t *testing.T) {
	tr, sent, _ := testTrigger(t)

	tr.Fire("SYM", CategoryCallWall, "wall")
	if !tr.Fire("SYM", CategoryVWAPCross, "vwap") {
		t.Fatal("call-wall cooldown suppressed the vwap category")
	}
	if !tr.Fire("SYM", CategoryZeroGamma, "flip") {
		t.Fatal("cooldowns leaked across categories")
	}
	if len(*sent) != 3 {
		t.Fatalf("sink received %d alerts, want 3", len(*sent))
	}
}

func TestSymbolsCoolDownIndependently(t *testing.T) {
	tr, _, _ := testTrigger(t)

	tr.Fire("AAPL", CategoryScore, "a")
	if !tr.Fire("MSFT", CategoryScore, "b") {
		t.Fatal("AAPL cooldown suppressed MSFT")
	}
}

func TestGradeUpgradeFiresOnce(t *testing.T) {
	tr, sent, _ := testTrigger(t)

	decent := &models.ConfluenceScore{Symbol: "SYM", Total: 60, Grade: models.GradeDecent}
	sniper := &models.ConfluenceScore{Symbol: "SYM", Total: 80, Grade: models.GradeSniper}

	// First evaluation only seeds the edge state.
	if got := tr.OnEvaluation("SYM", sniper, nil, 0, 0); len(got) != 0 {
		t.Fatalf("first evaluation fired %d alerts, want 0", len(got))
	}
	tr.Reset()

	tr.OnEvaluation("SYM", decent, nil, 0, 0)
	if got := tr.OnEvaluation("SYM", sniper, nil, 0, 0); len(got) != 1 || got[0].Category != CategoryScore {
		t.Fatalf("upgrade fired %v, want one score alert", got)
	}
	if len(*sent) != 1 {
		t.Fatalf("sink received %d alerts, want 1", len(*sent))
	}
}

func TestVWAPCrossEdge(t *testing.T) {
	tr, _, now := testTrigger(t)

	if got := tr.OnEvaluation("SYM", nil, nil, 101, 100); len(got) != 0 {
		t.Fatalf("seeding evaluation fired %v", got)
	}
	if got := tr.OnEvaluation("SYM", nil, nil, 102, 100); len(got) != 0 {
		t.Fatalf("same-side tick fired %v", got)
	}
	got := tr.OnEvaluation("SYM", nil, nil, 99, 100)
	if len(got) != 1 || got[0].Category != CategoryVWAPCross {
		t.Fatalf("cross fired %v, want one vwap_cross alert", got)
	}
	// Re-cross inside the cooldown stays quiet; after it, fires again.
	if got := tr.OnEvaluation("SYM", nil, nil, 101, 100); len(got) != 0 {
		t.Fatalf("re-cross inside cooldown fired %v", got)
	}
	*now = now.Add(time.Minute)
	if got := tr.OnEvaluation("SYM", nil, nil, 99, 100); len(got) != 1 {
		t.Fatalf("re-cross after cooldown fired %v, want one alert", got)
	}
}

func TestGammaEdgesFanOut(t *testing.T) {
	tr, _, _ := testTrigger(t)

	g := &models.GammaExposure{
		CallWall: 105, PutWall: 95, GammaFlip: 100,
		NearCallWall: true, CrossedZeroGamma: true,
	}
	got := tr.OnEvaluation("SYM", nil, g, 0, 0)
	if len(got) != 2 {
		t.Fatalf("fired %d alerts, want call-wall and zero-gamma", len(got))
	}
}

func TestResetReleasesCooldowns(t *testing.T) {
	tr, _, _ := testTrigger(t)

	tr.Fire("SYM", CategoryScore, "a")
	tr.Reset()
	if !tr.Fire("SYM", CategoryScore, "a") {
		t.Fatal("cooldown survived Reset")
	}
}
