package gamma

import (
	"testing"

	"LTPCoach/internal/domain/models"
)

func snap() *models.OptionsSnapshot {
	return &models.OptionsSnapshot{
		Symbol:    "SPY",
		CallWall:  105,
		PutWall:   95,
		MaxPain:   100,
		ZeroGamma: 99,
		NetGamma:  1.5e9,
	}
}

func TestMissingSnapshotIsNeutral(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	exp := a.Evaluate("SPY", 100, nil)
	if exp.Regime != models.RegimeNeutral {
		t.Fatalf("regime = %s, want neutral", exp.Regime)
	}
	if exp.NearCallWall || exp.NearPutWall || exp.CrossedZeroGamma {
		t.Fatalf("proximity flags should all be false on missing data")
	}
}

func TestMalformedSnapshotIsNeutral(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	exp := a.Evaluate("SPY", 100, &models.OptionsSnapshot{CallWall: -1})
	if exp.Regime != models.RegimeNeutral {
		t.Fatalf("regime = %s, want neutral", exp.Regime)
	}
}

func TestRegimeClassification(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	exp := a.Evaluate("SPY", 102, snap())
	if exp.Regime != models.RegimePositive {
		t.Fatalf("positive net gamma: regime = %s", exp.Regime)
	}

	s := snap()
	s.NetGamma = -2e9
	exp = a.Evaluate("QQQ", 102, s)
	if exp.Regime != models.RegimeNegative {
		t.Fatalf("negative net gamma: regime = %s", exp.Regime)
	}

	// price inside the flip band overrides the sign
	exp = a.Evaluate("IWM", 99.2, snap())
	if exp.Regime != models.RegimeNeutral {
		t.Fatalf("near flip: regime = %s, want neutral", exp.Regime)
	}
}

func TestCallWallEdgeFiresOncePerApproach(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	// far from the wall
	exp := a.Evaluate("SPY", 100, snap())
	if exp.NearCallWall {
		t.Fatalf("should not fire far from wall")
	}

	// approach: within 1% of 105
	exp = a.Evaluate("SPY", 104.5, snap())
	if !exp.NearCallWall {
		t.Fatalf("expected edge on first approach")
	}

	// steady-state at the wall: no duplicate firing
	exp = a.Evaluate("SPY", 104.6, snap())
	if exp.NearCallWall {
		t.Fatalf("duplicate edge while steady-state at wall")
	}
	if !exp.AtCallWall {
		t.Fatalf("steady-state proximity should remain true")
	}

	// retreat, then re-approach fires again
	exp = a.Evaluate("SPY", 101, snap())
	if exp.NearCallWall || exp.AtCallWall {
		t.Fatalf("flags should clear on retreat")
	}
	exp = a.Evaluate("SPY", 104.7, snap())
	if !exp.NearCallWall {
		t.Fatalf("expected edge on re-approach")
	}
}

func TestZeroGammaCross(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	exp := a.Evaluate("SPY", 102, snap()) // first evaluation: no history, no cross
	if exp.CrossedZeroGamma {
		t.Fatalf("no cross on first evaluation")
	}
	exp = a.Evaluate("SPY", 97, snap()) // crosses below 99
	if !exp.CrossedZeroGamma {
		t.Fatalf("expected cross flag")
	}
	exp = a.Evaluate("SPY", 96.5, snap()) // stays below: no re-fire
	if exp.CrossedZeroGamma {
		t.Fatalf("cross should not re-fire while on the same side")
	}
}

func TestSymbolsAreIndependent(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	a.Evaluate("SPY", 104.5, snap())
	exp := a.Evaluate("QQQ", 104.5, snap())
	if !exp.NearCallWall {
		t.Fatalf("QQQ edge state should be independent of SPY")
	}
}
