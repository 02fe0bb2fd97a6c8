package models

// Requests for the setups/coaching HTTP endpoints. Defined in domain for
// consistency and reuse.

type ListSetupsRequest struct {
	Symbol   string  `query:"symbol" json:"symbol"`
	MinScore float64 `query:"min_score" json:"min_score" default:"0" validate:"gte=0,lte=100"`
	Limit    int     `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type AnalyzeRequest struct {
	Symbol  string `json:"symbol" validate:"required"`
	Variant string `json:"variant" default:"ltp-2.0" validate:"oneof=ltp ltp-2.0"`
}

type WatchlistAddRequest struct {
	Symbol string `json:"symbol" validate:"required,min=1,max=12"`
}

type SnapshotRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type SessionStartRequest struct {
	Mode  string             `json:"mode" default:"scan" validate:"oneof=scan focus trade"`
	Trade *SessionTradeInput `json:"trade,omitempty"`
}

// SessionTradeInput declares an already-open position for trade-mode coaching.
type SessionTradeInput struct {
	Symbol       string  `json:"symbol" validate:"required"`
	Direction    string  `json:"direction" validate:"oneof=bullish bearish"`
	EntryPrice   float64 `json:"entry_price" validate:"gt=0"`
	StopLoss     float64 `json:"stop_loss" validate:"gt=0"`
	Target1      float64 `json:"target1"`
	Target2      float64 `json:"target2"`
	Target3      float64 `json:"target3"`
	PositionSize float64 `json:"position_size" validate:"gte=0"`
}

type CoachRequest struct {
	Session string `query:"session" json:"session" validate:"required"`
	Symbol  string `query:"symbol" json:"symbol" validate:"required"`
}

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}
