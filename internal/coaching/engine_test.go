package coaching

import (
	"testing"
	"time"

	"LTPCoach/internal/domain/models"
)

func readyContext() models.CoachingContext {
	return models.CoachingContext{
		Symbol:       "SYM",
		CurrentPrice: 100,
		Score: &models.ConfluenceScore{
			Symbol: "SYM", Direction: models.DirectionBullish,
			Total: 78, Grade: models.GradeSniper,
		},
		Setup: &models.DetectedSetup{
			Symbol: "SYM", Direction: models.DirectionBullish,
			Stage: models.StageReady, PatienceCandleCount: 2,
			Entry: 100, Stop: 99.5, Target1: 100.5,
			Score: models.ConfluenceScore{Total: 78},
		},
		Mode:    models.ModeFocus,
		Session: models.SessionMidday,
	}
}

func TestReadySetupProducesOpportunity(t *testing.T) {
	e := NewEngine()
	msgs := e.Evaluate(readyContext())
	if len(msgs) == 0 {
		t.Fatal("no messages for a ready setup")
	}
	if msgs[0].Type != models.MessageOpportunity {
		t.Fatalf("top message type = %s, want opportunity", msgs[0].Type)
	}
	if msgs[0].Action == "" {
		t.Error("opportunity message should carry an entry action")
	}
}

func TestReadySetupSilencedWhenInTrade(t *testing.T) {
	e := NewEngine()
	ctx := readyContext()
	ctx.Trade = &models.ActiveTrade{
		Symbol: "SYM", Direction: models.DirectionBullish,
		EntryPrice: 99, StopLoss: 98.5,
	}
	for _, m := range e.Evaluate(ctx) {
		if m.Type == models.MessageOpportunity {
			t.Fatalf("opportunity emitted while a trade is open: %+v", m)
		}
	}
}

func TestStopWarningOutranksEverything(t *testing.T) {
	e := NewEngine()
	ctx := readyContext()
	ctx.Trade = &models.ActiveTrade{
		Symbol: "SYM", Direction: models.DirectionBullish,
		EntryPrice: 100.4, StopLoss: 99.9,
	}
	ctx.CurrentPrice = 99.95 // -0.9R

	msgs := e.Evaluate(ctx)
	if len(msgs) == 0 || msgs[0].Title != "Stop at risk" {
		t.Fatalf("top message = %+v, want the stop warning first", msgs)
	}
}

func TestPartialSuggestionAtTwoR(t *testing.T) {
	e := NewEngine()
	ctx := readyContext()
	ctx.Setup = nil
	ctx.Trade = &models.ActiveTrade{
		Symbol: "SYM", Direction: models.DirectionBullish,
		EntryPrice: 100, StopLoss: 99,
	}
	ctx.CurrentPrice = 102.5

	found := false
	for _, m := range e.Evaluate(ctx) {
		if m.Type == models.MessageTradeManagement {
			found = true
		}
	}
	if !found {
		t.Fatal("no trade_management message at +2.5R")
	}
}

func TestMessageCapAndOrdering(t *testing.T) {
	e := NewEngine()
	ctx := readyContext()
	ctx.Session = models.SessionPowerHour
	ctx.Trade = &models.ActiveTrade{
		Symbol: "SYM", Direction: models.DirectionBullish,
		EntryPrice: 100, StopLoss: 99,
	}
	ctx.CurrentPrice = 102.5
	ctx.Gamma = &models.GammaExposure{
		Regime: models.RegimeNegative, AtCallWall: true, CallWall: 102.6,
	}
	ctx.FVG = models.FVGPair{
		Bearish: &models.FVGZone{Direction: models.DirectionBearish, BottomPrice: 102.8, TopPrice: 103.2, MidPrice: 103},
	}

	msgs := e.Evaluate(ctx)
	if len(msgs) > 4 {
		t.Fatalf("got %d messages, cap is 4", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Priority > msgs[i-1].Priority {
			t.Fatalf("messages out of priority order: %+v", msgs)
		}
	}
}

func TestEvaluationIsPure(t *testing.T) {
	e := NewEngine()
	ctx := readyContext()
	first := e.Evaluate(ctx)
	for i := 0; i < 3; i++ {
		again := e.Evaluate(ctx)
		if len(again) != len(first) {
			t.Fatalf("call %d returned %d messages, first returned %d", i, len(again), len(first))
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("message %d differs between identical evaluations", j)
			}
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	m := NewManager()
	released := 0

	s := m.Start("sym", "", nil)
	if s.Symbol != "SYM" || s.Mode != models.ModeScan {
		t.Fatalf("session = %+v, want normalized symbol and scan mode", s)
	}
	if err := m.Attach(s.ID, func() { released++ }); err != nil {
		t.Fatal(err)
	}
	if err := m.SetTrade(s.ID, &models.ActiveTrade{Symbol: "SYM", EnteredAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	got, err := m.Get(s.ID)
	if err != nil || got.Mode != models.ModeTrade {
		t.Fatalf("session after SetTrade = %+v (err %v), want trade mode", got, err)
	}

	if err := m.End(s.ID); err != nil {
		t.Fatal(err)
	}
	if released != 1 {
		t.Fatalf("closers ran %d times, want 1", released)
	}
	if err := m.End(s.ID); err != ErrSessionNotFound {
		t.Fatalf("second End error = %v, want ErrSessionNotFound", err)
	}
}

func TestSessionBuckets(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		hour, min int
		want      models.MarketSession
	}{
		{8, 0, models.SessionPreMarket},
		{9, 45, models.SessionOpen},
		{12, 0, models.SessionMidday},
		{15, 30, models.SessionPowerHour},
		{17, 0, models.SessionAfterHours},
	}
	for _, c := range cases {
		at := time.Date(2026, 3, 2, c.hour, c.min, 0, 0, loc)
		if got := SessionFor(at, loc); got != c.want {
			t.Errorf("SessionFor(%02d:%02d) = %s, want %s", c.hour, c.min, got, c.want)
		}
	}
}
