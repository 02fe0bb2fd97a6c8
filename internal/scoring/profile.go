package scoring

import "LTPCoach/internal/domain/models"

// ComponentCaps bounds the contribution of each sub-score. A variant's caps
// should sum to 100 so a perfect read lands on a perfect total.
type ComponentCaps struct {
	Level       float64 `yaml:"level"`
	Trend       float64 `yaml:"trend"`
	Patience    float64 `yaml:"patience"`
	MTF         float64 `yaml:"mtf"`
	GammaWall   float64 `yaml:"gamma_wall"`
	GammaRegime float64 `yaml:"gamma_regime"`
}

// Profile holds the tuned scoring constants. The defaults reproduce the
// original heuristic's cutoffs; they are a starting profile, not proven
// optimal, so every one of them is configurable.
type Profile struct {
	Classic ComponentCaps `yaml:"classic"`
	LTP2    ComponentCaps `yaml:"ltp2"`

	// Resistance penalty.
	PenaltyMax             float64 `yaml:"penalty_max"`
	OpposingBandPercent    float64 `yaml:"opposing_band_percent"`
	OpposingMinStrength    float64 `yaml:"opposing_min_strength"`
	OpposingFVGBandPercent float64 `yaml:"opposing_fvg_band_percent"`

	// Patience candles counted toward the cap before the reward saturates.
	MaxPatienceCandles int `yaml:"max_patience_candles"`

	// Level proximity bands, percent of price.
	LevelFullBandPercent float64 `yaml:"level_full_band_percent"`
	LevelHalfBandPercent float64 `yaml:"level_half_band_percent"`
}

// DefaultProfile returns the tuned default constants.
func DefaultProfile() Profile {
	return Profile{
		Classic: ComponentCaps{Level: 40, Trend: 35, Patience: 25},
		LTP2:    ComponentCaps{Level: 30, Trend: 25, Patience: 15, MTF: 10, GammaWall: 12, GammaRegime: 8},

		PenaltyMax:             20,
		OpposingBandPercent:    1.0,
		OpposingMinStrength:    70,
		OpposingFVGBandPercent: 1.0,

		MaxPatienceCandles: 3,

		LevelFullBandPercent: 0.1,
		LevelHalfBandPercent: 0.5,
	}
}

func (p Profile) caps(variant models.ScoreVariant) ComponentCaps {
	if variant == models.VariantClassic {
		return p.Classic
	}
	return p.LTP2
}
