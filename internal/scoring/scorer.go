package scoring

import (
	"LTPCoach/internal/domain/models"
	"LTPCoach/internal/indicators"
	"LTPCoach/internal/levels"
)

// TrendInput carries the trend reads for the evaluated timeframe.
type TrendInput struct {
	FastEMA float64
	SlowEMA float64
	VWAP    float64
}

// MTFInput summarizes higher-timeframe agreement: how many higher
// timeframes were checked and how many agree with the candidate direction.
type MTFInput struct {
	Checked int
	Agree   int
}

// PatienceInput is the inside-bar read for the evaluated timeframe.
type PatienceInput struct {
	Count       int  // consecutive inside bars ending at the latest candle
	BiasMatches bool // inside-bar close sits on the candidate's side of the mother bar
}

// Input bundles everything one scoring pass needs. The scorer never fetches
// anything itself; identical inputs always produce an identical score.
type Input struct {
	Symbol    string
	Direction models.Direction
	Variant   models.ScoreVariant

	Price    float64
	Levels   []models.KeyLevel
	Trend    TrendInput
	Patience PatienceInput
	MTF      MTFInput
	Gamma    *models.GammaExposure
	FVG      models.FVGPair
}

// Scorer computes confluence scores. Stateless apart from its profile.
type Scorer struct {
	profile Profile
}

func NewScorer(profile Profile) *Scorer {
	if profile.MaxPatienceCandles <= 0 {
		profile = DefaultProfile()
	}
	return &Scorer{profile: profile}
}

// Score runs one pass. Missing sub-inputs contribute zero rather than
// failing the whole score.
func (s *Scorer) Score(in Input) models.ConfluenceScore {
	caps := s.profile.caps(in.Variant)

	sc := models.ConfluenceScore{
		Symbol:    models.NormalizeSymbol(in.Symbol),
		Direction: in.Direction,
		Variant:   in.Variant,
	}

	sc.LevelScore = s.levelComponent(in, caps.Level)
	sc.TrendScore = s.trendComponent(in, caps.Trend)
	sc.PatienceScore = s.patienceComponent(in, caps.Patience)

	if in.Variant == models.VariantLTP2 {
		sc.MTFScore = s.mtfComponent(in, caps.MTF)
		sc.GammaWallScore = s.gammaWallComponent(in, caps.GammaWall)
		sc.GammaRegimeScore = s.gammaRegimeComponent(in, caps.GammaRegime)
		primary, _ := PrimaryLevel(in.Levels, in.Price)
		sc.ResistancePenalty = s.resistancePenalty(in, primary)
	}

	total := sc.LevelScore + sc.TrendScore + sc.PatienceScore +
		sc.MTFScore + sc.GammaWallScore + sc.GammaRegimeScore -
		sc.ResistancePenalty
	sc.Total = clamp(total, 0, 100)
	sc.Grade = models.GradeFor(sc.Total)
	return sc
}

// PrimaryLevel is the level a candidate setup is built around: the closest
// one to price on either side. The level sub-score and the suggested
// entry/stop both derive from it.
func PrimaryLevel(ls []models.KeyLevel, price float64) (models.KeyLevel, bool) {
	return levels.NearestAny(ls, price)
}

// levelComponent rewards trading at a high-strength level: closer and
// stronger both raise the sub-score.
func (s *Scorer) levelComponent(in Input, cap float64) float64 {
	lvl, ok := PrimaryLevel(in.Levels, in.Price)
	if !ok || in.Price <= 0 {
		return 0
	}
	dist := lvl.DistancePercent(in.Price)
	var prox float64
	switch {
	case dist <= s.profile.LevelFullBandPercent:
		prox = 1.0
	case dist <= s.profile.LevelHalfBandPercent:
		prox = 0.6
	case dist <= s.profile.LevelHalfBandPercent*3:
		prox = 0.25
	default:
		return 0
	}
	return cap * prox * (lvl.Strength / 100)
}

// trendComponent: EMA stack alignment carries most of the weight, price
// versus VWAP the rest.
func (s *Scorer) trendComponent(in Input, cap float64) float64 {
	t := in.Trend
	if t.FastEMA <= 0 || t.SlowEMA <= 0 {
		return 0
	}
	score := 0.0
	stacked := t.FastEMA > t.SlowEMA
	if in.Direction == models.DirectionBearish {
		stacked = t.FastEMA < t.SlowEMA
	}
	if stacked {
		score += cap * 0.6
	}
	if t.VWAP > 0 {
		dev := indicators.VWAPDeviation(in.Price, t.VWAP)
		if (in.Direction == models.DirectionBullish) == (dev > 0) {
			score += cap * 0.4
		}
	}
	return score
}

// patienceComponent rewards a run of inside bars whose bias matches the
// candidate. One matching candle already pays most of the cap; extra
// candles saturate the rest. A broken run contributes nothing.
func (s *Scorer) patienceComponent(in Input, cap float64) float64 {
	p := in.Patience
	if p.Count <= 0 || !p.BiasMatches {
		return 0
	}
	n := p.Count
	maxN := s.profile.MaxPatienceCandles
	if n > maxN {
		n = maxN
	}
	if maxN <= 1 {
		return cap
	}
	frac := 0.6 + 0.4*float64(n-1)/float64(maxN-1)
	return cap * frac
}

func (s *Scorer) mtfComponent(in Input, cap float64) float64 {
	if in.MTF.Checked <= 0 || in.MTF.Agree <= 0 {
		return 0
	}
	agree := in.MTF.Agree
	if agree > in.MTF.Checked {
		agree = in.MTF.Checked
	}
	return cap * float64(agree) / float64(in.MTF.Checked)
}

// gammaWallComponent rewards price sitting at the wall that backs the
// candidate. In a positive regime walls act as reversion magnets, so the
// put wall backs longs and the call wall backs shorts at full weight; in a
// negative regime a wall break amplifies, so the opposite wall still earns
// a reduced contribution.
func (s *Scorer) gammaWallComponent(in Input, cap float64) float64 {
	g := in.Gamma
	if g == nil || g.Regime == models.RegimeNeutral {
		return 0
	}
	backing := g.AtPutWall
	breaking := g.AtCallWall
	if in.Direction == models.DirectionBearish {
		backing, breaking = g.AtCallWall, g.AtPutWall
	}
	switch {
	case backing:
		return cap
	case breaking && g.Regime == models.RegimeNegative:
		return cap * 0.5
	default:
		return 0
	}
}

// gammaRegimeComponent rewards alignment between dealer positioning and the
// candidate. Negative gamma amplifies moves away from the flip, so it pays
// full weight only when price is already on the candidate's side of the
// flip; positive gamma is direction-agnostic and pays half weight.
func (s *Scorer) gammaRegimeComponent(in Input, cap float64) float64 {
	g := in.Gamma
	if g == nil {
		return 0
	}
	switch g.Regime {
	case models.RegimePositive:
		return cap * 0.5
	case models.RegimeNegative:
		if g.GammaFlip <= 0 {
			return 0
		}
		above := in.Price > g.GammaFlip
		if (in.Direction == models.DirectionBullish) == above {
			return cap
		}
	}
	return 0
}

// resistancePenalty subtracts when a strong opposing level, or an unfilled
// gap that the trade would have to fill against itself, sits in the way.
// Anything at the primary level's price is exempt: trading at that zone is
// what the level sub-score already rewards, even when a weekly or monthly
// extreme coincides with it.
func (s *Scorer) resistancePenalty(in Input, primary models.KeyLevel) float64 {
	penalty := 0.0
	if lvl, ok := levels.StrongestOpposing(in.Levels, in.Price, in.Direction, s.profile.OpposingBandPercent); ok {
		if lvl.Strength >= s.profile.OpposingMinStrength && lvl.Price != primary.Price {
			penalty += s.profile.PenaltyMax * 0.7 * (lvl.Strength / 100)
		}
	}
	if z := s.opposingZone(in); z != nil {
		penalty += s.profile.PenaltyMax * 0.3
	}
	return clamp(penalty, 0, s.profile.PenaltyMax)
}

// opposingZone returns the unfilled gap sitting between price and the
// candidate move, if it is within the configured band.
func (s *Scorer) opposingZone(in Input) *models.FVGZone {
	var z *models.FVGZone
	if in.Direction == models.DirectionBullish {
		z = in.FVG.Bearish
		if z == nil || z.BottomPrice <= in.Price {
			return nil
		}
	} else {
		z = in.FVG.Bullish
		if z == nil || z.TopPrice >= in.Price {
			return nil
		}
	}
	if in.Price <= 0 {
		return nil
	}
	dist := (z.MidPrice - in.Price) / in.Price * 100
	if dist < 0 {
		dist = -dist
	}
	if dist > s.profile.OpposingFVGBandPercent {
		return nil
	}
	return z
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
