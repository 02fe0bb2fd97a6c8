package models

import "time"

// CoachMode is what the trader is currently doing; rules weigh messages
// differently per mode.
type CoachMode string

const (
	ModeScan  CoachMode = "scan"
	ModeFocus CoachMode = "focus"
	ModeTrade CoachMode = "trade"
)

// MarketSession buckets the trading day.
type MarketSession string

const (
	SessionPreMarket  MarketSession = "pre_market"
	SessionOpen       MarketSession = "open"       // first hour
	SessionMidday     MarketSession = "midday"
	SessionPowerHour  MarketSession = "power_hour" // last hour
	SessionAfterHours MarketSession = "after_hours"
)

// ActiveTrade is a position the coaching session is tracking. Owned by the
// session; used to compute the live R-multiple.
type ActiveTrade struct {
	Symbol       string
	Direction    Direction
	EntryPrice   float64
	StopLoss     float64
	Target1      float64
	Target2      float64
	Target3      float64
	PositionSize float64
	EnteredAt    time.Time
}

// RMultiple returns the current profit measured in initial-risk units.
func (t ActiveTrade) RMultiple(price float64) float64 {
	risk := t.EntryPrice - t.StopLoss
	if t.Direction == DirectionBearish {
		risk = t.StopLoss - t.EntryPrice
	}
	if risk <= 0 {
		return 0
	}
	if t.Direction == DirectionBearish {
		return (t.EntryPrice - price) / risk
	}
	return (price - t.EntryPrice) / risk
}

// CoachingContext is the ephemeral bundle a rule evaluation runs against.
// Constructed fresh per evaluation, never persisted.
type CoachingContext struct {
	Symbol       string
	CurrentPrice float64
	Score        *ConfluenceScore
	Setup        *DetectedSetup
	Gamma        *GammaExposure
	FVG          FVGPair
	Trade        *ActiveTrade
	Mode         CoachMode
	Session      MarketSession
}

// MessageType categorizes a coaching message.
type MessageType string

const (
	MessageOpportunity     MessageType = "opportunity"
	MessageWarning         MessageType = "warning"
	MessageGuidance        MessageType = "guidance"
	MessageEducation       MessageType = "education"
	MessageTradeManagement MessageType = "trade_management"
)

// CoachingMessage is one ranked output of the rule engine.
type CoachingMessage struct {
	Title    string      `json:"title"`
	Body     string      `json:"body"`
	Type     MessageType `json:"type"`
	Priority int         `json:"priority"`
	Action   string      `json:"action,omitempty"`
}
