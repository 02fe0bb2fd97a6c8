package indicators

import (
	"math"

	"LTPCoach/internal/domain/models"
)

// EMA returns the series-aligned exponential moving average with smoothing
// 2/(p+1), seeded with SMA(p); NaNs for warmup.
func EMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	if len(x) < p {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	k := 2.0 / float64(p+1)
	var seed float64
	for i := 0; i < p; i++ {
		seed += x[i]
	}
	seed /= float64(p)
	for i := 0; i < p-1; i++ {
		out[i] = math.NaN()
	}
	out[p-1] = seed
	for i := p; i < len(x); i++ {
		out[i] = (x[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// LastEMA returns the final EMA value of the series, or NaN when there is
// not enough history.
func LastEMA(x []float64, p int) float64 {
	s := EMA(x, p)
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

// Closes extracts close prices from candles, oldest first.
func Closes(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
