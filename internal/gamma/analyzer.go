package gamma

import (
	"math"
	"sync"

	"LTPCoach/internal/domain/models"
)

// Config holds the proximity bands used for wall and flip classification.
type Config struct {
	WallBandPercent float64 // within this % of a wall counts as "at the wall"
	FlipBandPercent float64 // within this % of zero gamma counts as "at the flip"
}

func DefaultConfig() Config {
	return Config{WallBandPercent: 1.0, FlipBandPercent: 0.5}
}

// prevState is the previous evaluation retained per symbol for edge
// detection, per-symbol map rather than closures.
type prevState struct {
	atCallWall     bool
	atPutWall      bool
	aboveZeroGamma bool
	seen           bool
}

// Analyzer derives dealer-positioning context from options snapshots.
// Evaluate serializes per-analyzer; one analyzer instance is shared across
// symbols and keeps the previous evaluation for each.
type Analyzer struct {
	cfg Config

	mu   sync.Mutex
	prev map[string]prevState
}

func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.WallBandPercent <= 0 {
		cfg.WallBandPercent = 1.0
	}
	if cfg.FlipBandPercent <= 0 {
		cfg.FlipBandPercent = 0.5
	}
	return &Analyzer{cfg: cfg, prev: make(map[string]prevState)}
}

// Evaluate classifies the regime and computes edge-triggered proximity flags
// against the previous evaluation for the symbol. A missing or malformed
// snapshot degrades to a neutral regime with all flags false.
func (a *Analyzer) Evaluate(symbol string, price float64, snap *models.OptionsSnapshot) models.GammaExposure {
	exp := models.GammaExposure{Symbol: symbol, CurrentPrice: price, Regime: models.RegimeNeutral}
	if snap == nil || !snap.Valid() || price <= 0 {
		exp.DealerPositioning = "no options data; treating positioning as neutral"
		a.reset(symbol)
		return exp
	}

	exp.MaxPain = snap.MaxPain
	exp.GammaFlip = snap.ZeroGamma
	exp.CallWall = snap.CallWall
	exp.PutWall = snap.PutWall

	exp.Regime = classify(price, snap, a.cfg.FlipBandPercent)
	exp.DealerPositioning = positioningText(exp.Regime, price, snap)

	exp.AtCallWall = withinPercent(price, snap.CallWall, a.cfg.WallBandPercent)
	exp.AtPutWall = withinPercent(price, snap.PutWall, a.cfg.WallBandPercent)
	above := price > snap.ZeroGamma

	a.mu.Lock()
	p := a.prev[symbol]
	exp.NearCallWall = exp.AtCallWall && (!p.seen || !p.atCallWall)
	exp.NearPutWall = exp.AtPutWall && (!p.seen || !p.atPutWall)
	exp.CrossedZeroGamma = p.seen && above != p.aboveZeroGamma
	a.prev[symbol] = prevState{
		atCallWall:     exp.AtCallWall,
		atPutWall:      exp.AtPutWall,
		aboveZeroGamma: above,
		seen:           true,
	}
	a.mu.Unlock()

	return exp
}

// Classify derives a one-shot exposure without edge bookkeeping. The
// on-demand path uses it so ad-hoc requests never disturb the streaming
// loop's previous-evaluation state; edge flags stay false.
func Classify(cfg Config, symbol string, price float64, snap *models.OptionsSnapshot) models.GammaExposure {
	exp := models.GammaExposure{Symbol: symbol, CurrentPrice: price, Regime: models.RegimeNeutral}
	if snap == nil || !snap.Valid() || price <= 0 {
		exp.DealerPositioning = "no options data; treating positioning as neutral"
		return exp
	}
	exp.MaxPain = snap.MaxPain
	exp.GammaFlip = snap.ZeroGamma
	exp.CallWall = snap.CallWall
	exp.PutWall = snap.PutWall
	exp.Regime = classify(price, snap, cfg.FlipBandPercent)
	exp.DealerPositioning = positioningText(exp.Regime, price, snap)
	exp.AtCallWall = withinPercent(price, snap.CallWall, cfg.WallBandPercent)
	exp.AtPutWall = withinPercent(price, snap.PutWall, cfg.WallBandPercent)
	return exp
}

// Drop forgets a symbol's previous evaluation when it leaves the watchlist.
func (a *Analyzer) Drop(symbol string) {
	a.mu.Lock()
	delete(a.prev, symbol)
	a.mu.Unlock()
}

func (a *Analyzer) reset(symbol string) {
	a.mu.Lock()
	delete(a.prev, symbol)
	a.mu.Unlock()
}

func classify(price float64, snap *models.OptionsSnapshot, flipBand float64) models.GammaRegime {
	// Near the flip the sign is unreliable; call it neutral.
	if withinPercent(price, snap.ZeroGamma, flipBand) {
		return models.RegimeNeutral
	}
	if snap.NetGamma > 0 {
		return models.RegimePositive
	}
	if snap.NetGamma < 0 {
		return models.RegimeNegative
	}
	// Sign unknown: infer from which side of the flip price trades.
	if price > snap.ZeroGamma {
		return models.RegimePositive
	}
	return models.RegimeNegative
}

func positioningText(regime models.GammaRegime, price float64, snap *models.OptionsSnapshot) string {
	switch regime {
	case models.RegimePositive:
		return "dealers long gamma: hedging flows fade moves, mean-reversion bias"
	case models.RegimeNegative:
		return "dealers short gamma: hedging flows chase moves, expect amplification"
	default:
		if withinPercent(price, snap.ZeroGamma, 0.5) {
			return "price pinned near the gamma flip; regime unstable"
		}
		return "dealer positioning unclear"
	}
}

func withinPercent(price, level, pct float64) bool {
	if level <= 0 || price <= 0 {
		return false
	}
	return math.Abs(price-level)/level*100 <= pct
}
