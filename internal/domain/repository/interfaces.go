package repository

import (
	"context"
	"errors"
	"time"

	"LTPCoach/internal/domain/models"
)

// ErrNoData means the provider has nothing for the symbol right now. Callers
// treat it as "try later", not a failure worth logging loudly.
var ErrNoData = errors.New("market data: no data for symbol")

// ErrDegraded means the provider is unreachable; last-known state keeps
// serving while this is surfaced to callers.
var ErrDegraded = errors.New("market data: service degraded")

// MarketData is the external provider contract: synchronous fetches plus a
// push channel of ticks.
type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (*models.MarketQuote, error)
	GetBars(ctx context.Context, symbol string, tf Timeframe, count int) ([]models.Candle, error)
	GetOptionsSnapshot(ctx context.Context, symbol string) (*models.OptionsSnapshot, error)
}

// MarketStream is the provider's push channel.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Unsubscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// WatchlistStore persists the symbol set the engine reacts to. Persistence
// technology is external to the core.
type WatchlistStore interface {
	AddSymbol(ctx context.Context, symbol string) error
	RemoveSymbol(ctx context.Context, symbol string) error
	ListSymbols(ctx context.Context) ([]string, error)
}

// AuditStore records setup transitions for later display. Expired setups are
// retained here after the engine purges them.
type AuditStore interface {
	Record(ctx context.Context, s *models.DetectedSetup) error
	History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.DetectedSetup, error)
	Health(ctx context.Context) error
	Close() error
}

// EventSink mirrors domain events to an external bus for downstream
// consumers; the in-process dispatcher remains the live fan-out.
type EventSink interface {
	Publish(ctx context.Context, ev models.StreamEvent) error
	Close() error
}

type Metrics interface {
	RecordTick(symbol string)
	RecordScore(symbol string, direction string, total float64)
	RecordTransition(stage string)
	RecordSubscribers(n int)
	RecordDroppedEvents(reason string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
