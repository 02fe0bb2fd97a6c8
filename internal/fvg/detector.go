package fvg

import (
	"math"

	"LTPCoach/internal/domain/models"
)

// Detector finds unfilled fair-value gaps in candle sequences. Stateless; the
// pair it returns is always derived from the candles passed in, so a zone
// that price has traded through never survives a re-scan.
type Detector struct {
	minGapPercent float64
}

// NewDetector creates a detector; gaps smaller than minGapPercent of price
// are ignored as noise.
func NewDetector(minGapPercent float64) *Detector {
	if minGapPercent <= 0 {
		minGapPercent = 0.1
	}
	return &Detector{minGapPercent: minGapPercent}
}

// Scan walks the candles (oldest first), collects three-candle imbalances,
// drops any gap later candles filled, and returns the nearest unfilled zone
// on each side of price.
func (d *Detector) Scan(symbol string, candles []models.Candle, price float64) models.FVGPair {
	if len(candles) < 3 {
		return models.FVGPair{}
	}

	var zones []models.FVGZone
	for i := 0; i+2 < len(candles); i++ {
		c1, c2, c3 := candles[i], candles[i+1], candles[i+2]

		// Bullish imbalance: gap between c1 high and c3 low.
		if c1.High < c3.Low {
			gap := (c3.Low - c1.High) / c1.High * 100
			if gap >= d.minGapPercent {
				zones = append(zones, zone(symbol, models.DirectionBullish, c3.Low, c1.High, c2.Start))
			}
		}
		// Bearish imbalance: gap between c1 low and c3 high.
		if c1.Low > c3.High {
			gap := (c1.Low - c3.High) / c3.High * 100
			if gap >= d.minGapPercent {
				zones = append(zones, zone(symbol, models.DirectionBearish, c1.Low, c3.High, c2.Start))
			}
		}
	}

	var pair models.FVGPair
	for i := range zones {
		z := zones[i]
		if filled(z, candles) {
			continue
		}
		switch z.Direction {
		case models.DirectionBullish:
			if pair.Bullish == nil || distance(z, price) < distance(*pair.Bullish, price) {
				pair.Bullish = &zones[i]
			}
		case models.DirectionBearish:
			if pair.Bearish == nil || distance(z, price) < distance(*pair.Bearish, price) {
				pair.Bearish = &zones[i]
			}
		}
	}
	return pair
}

func zone(symbol string, dir models.Direction, top, bottom float64, at int64) models.FVGZone {
	return models.FVGZone{
		Symbol:      symbol,
		Direction:   dir,
		TopPrice:    top,
		BottomPrice: bottom,
		MidPrice:    (top + bottom) / 2,
		CreatedAt:   at,
	}
}

// filled reports whether any candle after the zone's creation traded through
// its full range.
func filled(z models.FVGZone, candles []models.Candle) bool {
	for _, c := range candles {
		if c.Start <= z.CreatedAt {
			continue
		}
		if c.Low <= z.BottomPrice && c.High >= z.TopPrice {
			return true
		}
		if z.Direction == models.DirectionBullish && c.Low < z.BottomPrice {
			return true
		}
		if z.Direction == models.DirectionBearish && c.High > z.TopPrice {
			return true
		}
	}
	return false
}

func distance(z models.FVGZone, price float64) float64 {
	return math.Abs(z.MidPrice - price)
}
