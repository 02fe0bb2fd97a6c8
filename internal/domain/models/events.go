package models

import "time"

// EventType discriminates StreamEvent payloads.
type EventType string

const (
	EventPriceUpdate  EventType = "price_update"
	EventSetupForming EventType = "setup_forming"
	EventSetupReady   EventType = "setup_ready"
	EventSetupExpired EventType = "setup_expired"
	EventHeartbeat    EventType = "heartbeat"
)

// StreamEvent is the tagged union delivered to stream subscribers. Exactly
// one payload field is non-nil and it corresponds to Type; consumers switch
// on Type at the dispatcher boundary.
type StreamEvent struct {
	Type      EventType      `json:"type"`
	Symbol    string         `json:"symbol,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Price     *PricePayload  `json:"price,omitempty"`
	Setup     *DetectedSetup `json:"setup,omitempty"`
}

// PricePayload carries a tick fan-out frame.
type PricePayload struct {
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume"`
}

// NewPriceEvent builds a price_update event from a tick.
func NewPriceEvent(t *Tick) StreamEvent {
	return StreamEvent{
		Type:      EventPriceUpdate,
		Symbol:    t.Symbol,
		Timestamp: time.Unix(t.Timestamp, 0),
		Price: &PricePayload{
			Price:         t.Price,
			ChangePercent: t.ChangePercent,
			Volume:        t.Volume,
		},
	}
}

// NewSetupEvent builds a setup transition event. The stage decides the type.
func NewSetupEvent(s *DetectedSetup) StreamEvent {
	var et EventType
	switch s.Stage {
	case StageForming:
		et = EventSetupForming
	case StageReady:
		et = EventSetupReady
	default:
		et = EventSetupExpired
	}
	cp := *s
	return StreamEvent{
		Type:      et,
		Symbol:    s.Symbol,
		Timestamp: time.Now(),
		Setup:     &cp,
	}
}

// NewHeartbeat builds a keep-alive frame.
func NewHeartbeat() StreamEvent {
	return StreamEvent{Type: EventHeartbeat, Timestamp: time.Now()}
}
