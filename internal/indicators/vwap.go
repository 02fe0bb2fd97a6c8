package indicators

import (
	"math"

	"LTPCoach/internal/domain/models"
)

// SessionVWAP computes the volume-weighted average price over the given
// candles using typical price ((H+L+C)/3). Returns NaN when total volume is
// zero or no candles are supplied.
func SessionVWAP(candles []models.Candle) float64 {
	var sumPV, sumV float64
	for _, c := range candles {
		tp := (c.High + c.Low + c.Close) / 3.0
		sumPV += tp * c.Volume
		sumV += c.Volume
	}
	if sumV == 0 {
		return math.NaN()
	}
	return sumPV / sumV
}

// VWAPDeviation returns the percentage distance of price from vwap. Positive
// means price is above VWAP.
func VWAPDeviation(price, vwap float64) float64 {
	if vwap == 0 || math.IsNaN(vwap) {
		return 0
	}
	return (price - vwap) / vwap * 100
}
