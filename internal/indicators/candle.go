package indicators

import "LTPCoach/internal/domain/models"

// IsInsideBar reports whether cur is a patience candle: its high/low range is
// fully contained within prev's range.
func IsInsideBar(prev, cur models.Candle) bool {
	return cur.High <= prev.High && cur.Low >= prev.Low
}

// PatienceRun counts consecutive inside bars ending at the most recent
// candle. Zero when the latest candle broke out of the prior range.
func PatienceRun(candles []models.Candle) int {
	n := len(candles)
	if n < 2 {
		return 0
	}
	run := 0
	for i := n - 1; i > 0; i-- {
		if !IsInsideBar(candles[i-1], candles[i]) {
			break
		}
		run++
	}
	return run
}

// InsideBarBias reports the direction an inside bar leans: a close in the
// upper half of the mother bar's range leans bullish, lower half bearish.
func InsideBarBias(prev, cur models.Candle) models.Direction {
	mid := (prev.High + prev.Low) / 2
	if cur.Close >= mid {
		return models.DirectionBullish
	}
	return models.DirectionBearish
}

// OpeningRange returns the high/low of the first n candles of a session.
// ok is false when fewer than n candles are available.
func OpeningRange(candles []models.Candle, n int) (high, low float64, ok bool) {
	if n <= 0 || len(candles) < n {
		return 0, 0, false
	}
	high = candles[0].High
	low = candles[0].Low
	for _, c := range candles[1:n] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low, true
}
