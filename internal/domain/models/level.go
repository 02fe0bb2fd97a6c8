package models

// LevelType identifies the origin of a key price level.
type LevelType string

const (
	LevelPriorDayHigh  LevelType = "prior_day_high"
	LevelPriorDayLow   LevelType = "prior_day_low"
	LevelOpeningRange  LevelType = "opening_range"
	LevelMovingAverage LevelType = "moving_average"
	LevelWeeklyHigh    LevelType = "weekly_high"
	LevelWeeklyLow     LevelType = "weekly_low"
	LevelMonthlyHigh   LevelType = "monthly_high"
	LevelMonthlyLow    LevelType = "monthly_low"
)

// LevelProximity classifies distance between price and a level.
type LevelProximity string

const (
	ProximityAt   LevelProximity = "at"   // within 0.1%
	ProximityNear LevelProximity = "near" // within 0.5%
	ProximityFar  LevelProximity = "far"
)

// KeyLevel is one price level tracked for a symbol. Immutable per snapshot;
// the registry replaces the whole set on refresh.
type KeyLevel struct {
	Type      LevelType `json:"type"`
	Timeframe string    `json:"timeframe"`
	Price     float64   `json:"price"`
	Strength  float64   `json:"strength"` // 0-100
	Notes     string    `json:"notes,omitempty"`
}

// DistancePercent returns the absolute distance from price to the level,
// as a percentage of price.
func (l KeyLevel) DistancePercent(price float64) float64 {
	if price == 0 {
		return 0
	}
	d := (l.Price - price) / price * 100
	if d < 0 {
		d = -d
	}
	return d
}

// Proximity classifies the level's distance to price.
func (l KeyLevel) Proximity(price float64) LevelProximity {
	d := l.DistancePercent(price)
	switch {
	case d <= 0.1:
		return ProximityAt
	case d <= 0.5:
		return ProximityNear
	default:
		return ProximityFar
	}
}
