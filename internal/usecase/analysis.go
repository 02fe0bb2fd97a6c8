package usecase

import (
	"LTPCoach/internal/domain/models"
	drepo "LTPCoach/internal/domain/repository"
	"LTPCoach/internal/indicators"
	"LTPCoach/internal/scoring"
)

// marketView is everything one evaluation pass reads: the candles and
// options snapshot it was built from, always paired with the price the
// derived analytics were computed against.
type marketView struct {
	price    float64
	intraday []models.Candle
	higher   map[drepo.Timeframe][]models.Candle
	levels   []models.KeyLevel
	snap     *models.OptionsSnapshot
}

// candidateDirection picks the side worth scoring from the EMA stack.
func candidateDirection(fast, slow float64) models.Direction {
	if fast < slow {
		return models.DirectionBearish
	}
	return models.DirectionBullish
}

// buildScoreInput derives every scoring sub-input from a market view. The
// gamma exposure and FVG pair are computed by their owning components and
// passed in so they stay paired with the same price.
func buildScoreInput(symbol string, dir models.Direction, variant models.ScoreVariant, v marketView, g *models.GammaExposure, pair models.FVGPair, fastPeriod, slowPeriod int) scoring.Input {
	closes := indicators.Closes(v.intraday)
	fast := indicators.LastEMA(closes, fastPeriod)
	slow := indicators.LastEMA(closes, slowPeriod)
	vwap := indicators.SessionVWAP(v.intraday)

	in := scoring.Input{
		Symbol:    symbol,
		Direction: dir,
		Variant:   variant,
		Price:     v.price,
		Levels:    v.levels,
		Gamma:     g,
		FVG:       pair,
	}
	if !isNaN(fast) && !isNaN(slow) {
		in.Trend.FastEMA = fast
		in.Trend.SlowEMA = slow
	}
	if !isNaN(vwap) {
		in.Trend.VWAP = vwap
	}

	run := indicators.PatienceRun(v.intraday)
	in.Patience.Count = run
	if run > 0 && len(v.intraday) >= 2 {
		n := len(v.intraday)
		in.Patience.BiasMatches = indicators.InsideBarBias(v.intraday[n-2], v.intraday[n-1]) == dir
	}

	for _, candles := range v.higher {
		hc := indicators.Closes(candles)
		hf := indicators.LastEMA(hc, fastPeriod)
		hs := indicators.LastEMA(hc, slowPeriod)
		if isNaN(hf) || isNaN(hs) {
			continue
		}
		in.MTF.Checked++
		if candidateDirection(hf, hs) == dir {
			in.MTF.Agree++
		}
	}
	return in
}

func isNaN(f float64) bool { return f != f }
