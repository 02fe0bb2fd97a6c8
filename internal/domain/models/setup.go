package models

import "time"

// SetupStage is the lifecycle state of a detected trade opportunity.
type SetupStage string

const (
	StageNone    SetupStage = "none"
	StageForming SetupStage = "forming"
	StageReady   SetupStage = "ready"
	StageExpired SetupStage = "expired"
)

// DetectedSetup is a tracked trade opportunity for one symbol and direction.
// Created on the first forming transition; score fields are updated in place
// while tracked; the lifecycle engine is the sole writer of Stage.
type DetectedSetup struct {
	Symbol    string     `json:"symbol"`
	Direction Direction  `json:"direction"`
	Stage     SetupStage `json:"stage"`

	Score ConfluenceScore `json:"score"`

	PrimaryLevel KeyLevel `json:"primary_level"`
	Entry        float64  `json:"entry"`
	Stop         float64  `json:"stop"`
	Target1      float64  `json:"target1"`
	Target2      float64  `json:"target2"`
	Target3      float64  `json:"target3"`
	RiskReward   float64  `json:"risk_reward"`

	PatienceCandleCount int `json:"patience_candle_count"`

	DetectedAt time.Time `json:"detected_at"`
	ReadyAt    time.Time `json:"ready_at"`
	ExpiredAt  time.Time `json:"expired_at"`
}

// Preview reports whether the setup came from the on-demand analyzer rather
// than the lifecycle engine's tracking. Preview setups never expire because
// they are never tracked.
func (s *DetectedSetup) Preview() bool {
	return s.Stage == StageNone
}
