package usecase

import (
	"context"
	"errors"
	"testing"

	"LTPCoach/internal/domain/models"
	drepo "LTPCoach/internal/domain/repository"
	"LTPCoach/internal/fvg"
	"LTPCoach/internal/levels"
	"LTPCoach/internal/lifecycle"
	"LTPCoach/internal/scoring"
)

func newAnalyzer(t *testing.T, data drepo.MarketData) *Analyzer {
	t.Helper()
	return NewAnalyzer(
		DefaultAnalyzerConfig(),
		lifecycle.DefaultConfig(),
		data,
		levels.NewRegistry(levels.DefaultConfig()),
		scoring.NewScorer(scoring.DefaultProfile()),
		fvg.NewDetector(0.1),
		testLogger(t),
	)
}

func TestAnalyzeNowReturnsPreview(t *testing.T) {
	data := &fakeData{
		quote: &models.MarketQuote{Last: 100, Volume: 5e6},
		bars:  breakoutBars(),
	}
	a := newAnalyzer(t, data)

	setup, err := a.AnalyzeNow(context.Background(), "sym", models.VariantLTP2)
	if err != nil {
		t.Fatal(err)
	}
	if setup == nil {
		t.Fatal("expected a preview setup at a strong level")
	}
	if !setup.Preview() {
		t.Errorf("stage = %s, a preview must never be tracked", setup.Stage)
	}
	if setup.Symbol != "SYM" {
		t.Errorf("symbol = %s, want normalized SYM", setup.Symbol)
	}
	if setup.Score.LevelScore < 20 {
		t.Errorf("level score = %.1f, want a strong read at the prior-day high", setup.Score.LevelScore)
	}
	if setup.Score.PatienceScore <= 0 {
		t.Errorf("patience score = %.1f, want > 0 with an inside bar printed", setup.Score.PatienceScore)
	}
	if setup.Entry != 100 || setup.Stop >= setup.Entry || setup.Target1 <= setup.Entry {
		t.Errorf("plan entry=%.2f stop=%.2f t1=%.2f looks wrong for a bullish preview", setup.Entry, setup.Stop, setup.Target1)
	}
}

func TestAnalyzeNowIsDeterministic(t *testing.T) {
	data := &fakeData{
		quote: &models.MarketQuote{Last: 100, Volume: 5e6},
		bars:  breakoutBars(),
	}
	a := newAnalyzer(t, data)

	first, err := a.AnalyzeNow(context.Background(), "SYM", models.VariantLTP2)
	if err != nil || first == nil {
		t.Fatalf("first call: setup=%v err=%v", first, err)
	}
	second, err := a.AnalyzeNow(context.Background(), "SYM", models.VariantLTP2)
	if err != nil || second == nil {
		t.Fatalf("second call: setup=%v err=%v", second, err)
	}
	if first.Score != second.Score {
		t.Fatalf("scores differ on identical data:\n%+v\n%+v", first.Score, second.Score)
	}
	if first.Score.Grade != second.Score.Grade {
		t.Fatalf("grades differ: %s vs %s", first.Score.Grade, second.Score.Grade)
	}
}

func TestAnalyzeNowNoDataIsNotAnError(t *testing.T) {
	data := &fakeData{quoteErr: drepo.ErrNoData}
	a := newAnalyzer(t, data)

	setup, err := a.AnalyzeNow(context.Background(), "XXXX", models.VariantLTP2)
	if err != nil {
		t.Fatalf("no-data must not be an error, got %v", err)
	}
	if setup != nil {
		t.Fatalf("setup = %+v, want nil for an unknown symbol", setup)
	}
}

func TestAnalyzeNowSurfacesDegradation(t *testing.T) {
	data := &fakeData{quoteErr: drepo.ErrDegraded}
	a := newAnalyzer(t, data)

	_, err := a.AnalyzeNow(context.Background(), "SYM", models.VariantLTP2)
	if !errors.Is(err, drepo.ErrDegraded) {
		t.Fatalf("err = %v, want ErrDegraded", err)
	}
}

func TestAnalyzeNowMissingGammaStillScores(t *testing.T) {
	data := &fakeData{
		quote:   &models.MarketQuote{Last: 100, Volume: 5e6},
		bars:    breakoutBars(),
		snapErr: drepo.ErrNoData,
	}
	a := newAnalyzer(t, data)

	setup, err := a.AnalyzeNow(context.Background(), "SYM", models.VariantLTP2)
	if err != nil || setup == nil {
		t.Fatalf("setup=%v err=%v, want a preview from the remaining components", setup, err)
	}
	if setup.Score.GammaWallScore != 0 || setup.Score.GammaRegimeScore != 0 {
		t.Errorf("gamma components = %.1f/%.1f, want 0/0 with no snapshot", setup.Score.GammaWallScore, setup.Score.GammaRegimeScore)
	}
}
