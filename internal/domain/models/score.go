package models

// Direction is the candidate trade direction a score is computed for.
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
)

// Grade buckets a confluence total into a qualitative label.
type Grade string

const (
	GradeSniper Grade = "sniper" // total >= 75
	GradeDecent Grade = "decent" // total >= 50
	GradeWeak   Grade = "weak"
)

// ScoreVariant selects which scoring model produced a ConfluenceScore.
type ScoreVariant string

const (
	VariantClassic ScoreVariant = "ltp"     // level/trend/patience only
	VariantLTP2    ScoreVariant = "ltp-2.0" // adds gamma and multi-timeframe
)

// ConfluenceScore is an immutable snapshot of one scoring pass. Total is
// always the clamped sum of the components; it is never set independently.
type ConfluenceScore struct {
	Symbol    string       `json:"symbol"`
	Direction Direction    `json:"direction"`
	Variant   ScoreVariant `json:"variant"`

	LevelScore        float64 `json:"level_score"`
	TrendScore        float64 `json:"trend_score"`
	PatienceScore     float64 `json:"patience_score"`
	MTFScore          float64 `json:"mtf_score"`
	GammaWallScore    float64 `json:"gamma_wall_score"`
	GammaRegimeScore  float64 `json:"gamma_regime_score"`
	ResistancePenalty float64 `json:"resistance_penalty"` // subtracted

	Total float64 `json:"total"` // clamped [0, 100]
	Grade Grade   `json:"grade"`
}

// GradeFor maps a total to its grade using the fixed thresholds.
func GradeFor(total float64) Grade {
	switch {
	case total >= 75:
		return GradeSniper
	case total >= 50:
		return GradeDecent
	default:
		return GradeWeak
	}
}
