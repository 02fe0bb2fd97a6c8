package scoring

import (
	"testing"

	"LTPCoach/internal/domain/models"
)

func breakoutInput(variant models.ScoreVariant) Input {
	return Input{
		Symbol:    "SYM",
		Direction: models.DirectionBullish,
		Variant:   variant,
		Price:     100,
		Levels: []models.KeyLevel{
			{Type: models.LevelPriorDayHigh, Timeframe: "1d", Price: 100.05, Strength: 90},
		},
		Trend:    TrendInput{FastEMA: 101, SlowEMA: 99},
		Patience: PatienceInput{Count: 1, BiasMatches: true},
	}
}

func TestBreakoutAtPriorDayHigh(t *testing.T) {
	s := NewScorer(DefaultProfile())
	sc := s.Score(breakoutInput(models.VariantClassic))

	if sc.LevelScore < 30 {
		t.Errorf("level score = %.1f, want >= 30 at a strength-90 level 0.05%% away", sc.LevelScore)
	}
	if sc.PatienceScore <= 0 {
		t.Errorf("patience score = %.1f, want > 0 with a matching inside bar", sc.PatienceScore)
	}
	if sc.Total < 70 {
		t.Errorf("total = %.1f, want >= 70", sc.Total)
	}
	if sc.Grade == models.GradeWeak {
		t.Errorf("grade = %s, want decent or better", sc.Grade)
	}
}

func TestMissingGammaDegradesGracefully(t *testing.T) {
	s := NewScorer(DefaultProfile())
	in := breakoutInput(models.VariantLTP2)
	in.Gamma = nil

	sc := s.Score(in)
	if sc.GammaWallScore != 0 || sc.GammaRegimeScore != 0 {
		t.Errorf("gamma scores = %.1f/%.1f, want 0/0 with no snapshot", sc.GammaWallScore, sc.GammaRegimeScore)
	}
	if sc.Total <= 0 {
		t.Errorf("total = %.1f, want > 0 from the remaining components", sc.Total)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s := NewScorer(DefaultProfile())
	in := breakoutInput(models.VariantLTP2)
	in.Gamma = &models.GammaExposure{Regime: models.RegimePositive, AtPutWall: true}
	in.MTF = MTFInput{Checked: 2, Agree: 1}

	first := s.Score(in)
	for i := 0; i < 3; i++ {
		if got := s.Score(in); got != first {
			t.Fatalf("call %d produced %+v, want %+v", i, got, first)
		}
	}
}

func TestTotalStaysInRange(t *testing.T) {
	s := NewScorer(DefaultProfile())

	in := breakoutInput(models.VariantLTP2)
	in.Trend.VWAP = 99
	in.Patience.Count = 5
	in.MTF = MTFInput{Checked: 2, Agree: 2}
	in.Gamma = &models.GammaExposure{Regime: models.RegimeNegative, GammaFlip: 98, AtPutWall: true}
	sc := s.Score(in)
	if sc.Total < 0 || sc.Total > 100 {
		t.Errorf("total = %.1f, want within [0, 100]", sc.Total)
	}

	empty := s.Score(Input{Symbol: "SYM", Direction: models.DirectionBullish, Variant: models.VariantLTP2, Price: 100})
	if empty.Total != 0 {
		t.Errorf("empty input total = %.1f, want 0", empty.Total)
	}
	if empty.Grade != models.GradeWeak {
		t.Errorf("empty input grade = %s, want weak", empty.Grade)
	}
}

func TestTrendRequiresDirectionalStack(t *testing.T) {
	s := NewScorer(DefaultProfile())
	in := breakoutInput(models.VariantClassic)
	in.Direction = models.DirectionBearish
	in.Patience.BiasMatches = false

	sc := s.Score(in)
	if sc.TrendScore != 0 {
		t.Errorf("bearish trend score = %.1f with fast above slow, want 0", sc.TrendScore)
	}
}

func TestResistancePenaltyForOpposingLevel(t *testing.T) {
	s := NewScorer(DefaultProfile())
	in := Input{
		Symbol:    "SYM",
		Direction: models.DirectionBullish,
		Variant:   models.VariantLTP2,
		Price:     100,
		Levels: []models.KeyLevel{
			{Type: models.LevelPriorDayLow, Price: 99.95, Strength: 90},
			{Type: models.LevelMonthlyHigh, Price: 100.8, Strength: 95},
		},
		Trend: TrendInput{FastEMA: 101, SlowEMA: 99},
	}

	sc := s.Score(in)
	if sc.ResistancePenalty <= 0 {
		t.Fatalf("penalty = %.1f, want > 0 under a strength-95 ceiling", sc.ResistancePenalty)
	}

	in.Levels = in.Levels[:1]
	clear := s.Score(in)
	if clear.ResistancePenalty != 0 {
		t.Errorf("penalty = %.1f without an opposing level, want 0", clear.ResistancePenalty)
	}
	if clear.Total <= sc.Total {
		t.Errorf("clear total %.1f should exceed blocked total %.1f", clear.Total, sc.Total)
	}
}

func TestPrimaryLevelIsExemptFromPenalty(t *testing.T) {
	s := NewScorer(DefaultProfile())
	in := breakoutInput(models.VariantLTP2)

	sc := s.Score(in)
	if sc.ResistancePenalty != 0 {
		t.Errorf("penalty = %.1f, the level being traded must not count against itself", sc.ResistancePenalty)
	}
}

func TestClassicVariantIgnoresGammaAndMTF(t *testing.T) {
	s := NewScorer(DefaultProfile())
	in := breakoutInput(models.VariantClassic)
	in.Gamma = &models.GammaExposure{Regime: models.RegimePositive, AtPutWall: true}
	in.MTF = MTFInput{Checked: 2, Agree: 2}

	sc := s.Score(in)
	if sc.GammaWallScore != 0 || sc.GammaRegimeScore != 0 || sc.MTFScore != 0 {
		t.Errorf("classic variant produced gamma/mtf components: %+v", sc)
	}
}

func TestPatienceSaturates(t *testing.T) {
	s := NewScorer(DefaultProfile())
	in := breakoutInput(models.VariantClassic)

	in.Patience.Count = 3
	atCap := s.Score(in).PatienceScore
	in.Patience.Count = 10
	beyond := s.Score(in).PatienceScore
	if atCap != beyond {
		t.Errorf("patience at count 3 = %.1f, at count 10 = %.1f, want equal", atCap, beyond)
	}
	if atCap != DefaultProfile().Classic.Patience {
		t.Errorf("saturated patience = %.1f, want the full cap", atCap)
	}
}
