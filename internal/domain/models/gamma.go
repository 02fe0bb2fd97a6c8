package models

// GammaRegime describes aggregate dealer positioning.
type GammaRegime string

const (
	RegimePositive GammaRegime = "positive" // dealers long gamma, mean-reversion bias
	RegimeNegative GammaRegime = "negative" // dealers short gamma, trend amplification
	RegimeNeutral  GammaRegime = "neutral"  // insufficient signal or near the flip
)

// OptionsSnapshot is the raw options-derived input supplied by the external
// provider. The pricing model behind it is out of scope; the engine only
// consumes these outputs. A zero-value snapshot is treated as missing.
type OptionsSnapshot struct {
	Symbol    string  `json:"symbol"`
	CallWall  float64 `json:"call_wall"`
	PutWall   float64 `json:"put_wall"`
	MaxPain   float64 `json:"max_pain"`
	ZeroGamma float64 `json:"zero_gamma"`
	NetGamma  float64 `json:"net_gamma"` // sign decides the regime
	Timestamp int64   `json:"timestamp"`
}

// Valid reports whether the snapshot carries enough signal to classify.
func (s OptionsSnapshot) Valid() bool {
	return s.CallWall > 0 && s.PutWall > 0 && s.ZeroGamma > 0
}

// GammaExposure is the derived dealer-positioning view for a symbol, always
// paired with the price it was computed from.
type GammaExposure struct {
	Symbol            string      `json:"symbol"`
	CurrentPrice      float64     `json:"current_price"`
	MaxPain           float64     `json:"max_pain"`
	GammaFlip         float64     `json:"gamma_flip"`
	CallWall          float64     `json:"call_wall"`
	PutWall           float64     `json:"put_wall"`
	Regime            GammaRegime `json:"regime"`
	DealerPositioning string      `json:"dealer_positioning"`

	// Edge-triggered flags: true only on the evaluation where the condition
	// first became true compared to the previous evaluation.
	NearCallWall     bool `json:"near_call_wall"`
	NearPutWall      bool `json:"near_put_wall"`
	CrossedZeroGamma bool `json:"crossed_zero_gamma"`

	// Steady-state proximity, used by the scorer.
	AtCallWall bool `json:"at_call_wall"`
	AtPutWall  bool `json:"at_put_wall"`
}
