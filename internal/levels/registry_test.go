package levels

import (
	"testing"

	"LTPCoach/internal/domain/models"
)

func intraday() []models.Candle {
	out := make([]models.Candle, 0, 30)
	price := 100.0
	for i := 0; i < 30; i++ {
		out = append(out, models.Candle{
			Open: price, High: price + 0.5, Low: price - 0.5, Close: price + 0.2, Volume: 1000,
		})
		price += 0.2
	}
	return out
}

func TestRefreshBuildsPriorDayAndOpeningRange(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	prior := &models.Candle{High: 107, Low: 99}
	ls := r.Refresh("SPY", intraday(), prior, nil, nil)

	var havePDH, havePDL, haveOR bool
	for _, l := range ls {
		switch l.Type {
		case models.LevelPriorDayHigh:
			havePDH = l.Price == 107 && l.Strength == 90
		case models.LevelPriorDayLow:
			havePDL = l.Price == 99
		case models.LevelOpeningRange:
			haveOR = true
		}
	}
	if !havePDH || !havePDL || !haveOR {
		t.Fatalf("missing expected levels: pdh=%v pdl=%v or=%v", havePDH, havePDL, haveOR)
	}
	if got := r.Levels("SPY"); len(got) != len(ls) {
		t.Fatalf("snapshot not stored")
	}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	r.Refresh("SPY", intraday(), &models.Candle{High: 107, Low: 99}, nil, nil)
	second := r.Refresh("SPY", nil, &models.Candle{High: 110, Low: 101}, nil, nil)
	if len(second) != 2 {
		t.Fatalf("expected only prior-day levels, got %d", len(second))
	}
	if got := r.Levels("SPY"); len(got) != 2 {
		t.Fatalf("stale snapshot survived refresh")
	}
}

func TestNearestRespectsDirection(t *testing.T) {
	ls := []models.KeyLevel{
		{Type: models.LevelPriorDayLow, Price: 98, Strength: 90},
		{Type: models.LevelMovingAverage, Price: 99.5, Strength: 60},
		{Type: models.LevelPriorDayHigh, Price: 101, Strength: 90},
	}
	l, ok := Nearest(ls, 100, models.DirectionBullish)
	if !ok || l.Price != 99.5 {
		t.Fatalf("bullish nearest = %v ok=%v, want 99.5", l.Price, ok)
	}
	l, ok = Nearest(ls, 100, models.DirectionBearish)
	if !ok || l.Price != 101 {
		t.Fatalf("bearish nearest = %v ok=%v, want 101", l.Price, ok)
	}
}

func TestNearestNoLevelOnSide(t *testing.T) {
	ls := []models.KeyLevel{{Type: models.LevelPriorDayHigh, Price: 101}}
	if _, ok := Nearest(ls, 100, models.DirectionBullish); ok {
		t.Fatalf("expected no support below price")
	}
}

func TestStrongestOpposing(t *testing.T) {
	ls := []models.KeyLevel{
		{Type: models.LevelMovingAverage, Price: 100.3, Strength: 60},
		{Type: models.LevelPriorDayHigh, Price: 100.6, Strength: 90},
		{Type: models.LevelMonthlyHigh, Price: 140, Strength: 95}, // too far
	}
	l, ok := StrongestOpposing(ls, 100, models.DirectionBullish, 1.0)
	if !ok || l.Type != models.LevelPriorDayHigh {
		t.Fatalf("opposing = %v ok=%v, want prior day high", l.Type, ok)
	}
}

func TestDrop(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	r.Refresh("SPY", intraday(), nil, nil, nil)
	r.Drop("SPY")
	if r.Levels("SPY") != nil {
		t.Fatalf("expected nil after drop")
	}
}
