package usecase

import (
	"context"
	"sync"
	"testing"

	"LTPCoach/internal/domain/models"
	drepo "LTPCoach/internal/domain/repository"
	"LTPCoach/pkg/logger"
)

type fakeData struct {
	mu       sync.Mutex
	quote    *models.MarketQuote
	quoteErr error
	bars     map[drepo.Timeframe][]models.Candle
	barsErr  error
	snap     *models.OptionsSnapshot
	snapErr  error
}

func (f *fakeData) GetQuote(ctx context.Context, symbol string) (*models.MarketQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	q := *f.quote
	q.Symbol = symbol
	return &q, nil
}

func (f *fakeData) GetBars(ctx context.Context, symbol string, tf drepo.Timeframe, count int) ([]models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.barsErr != nil {
		return nil, f.barsErr
	}
	bars, ok := f.bars[tf]
	if !ok {
		return nil, drepo.ErrNoData
	}
	return bars, nil
}

func (f *fakeData) GetOptionsSnapshot(ctx context.Context, symbol string) (*models.OptionsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	if f.snap == nil {
		return nil, drepo.ErrNoData
	}
	s := *f.snap
	return &s, nil
}

type fakeStream struct {
	mu        sync.Mutex
	ticks     chan *models.Tick
	errs      chan error
	connected bool
	symbols   []string
}

func newFakeStream() *fakeStream {
	return &fakeStream{ticks: make(chan *models.Tick, 64), errs: make(chan error, 1)}
}

func (f *fakeStream) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Subscribe(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	f.symbols = append(f.symbols, symbols...)
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Unsubscribe(ctx context.Context, symbols []string) error { return nil }

func (f *fakeStream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	return f.ticks, f.errs
}

func (f *fakeStream) Reconnect(ctx context.Context) error { return nil }

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

type fakeWatchlist struct {
	mu      sync.Mutex
	symbols []string
}

func (f *fakeWatchlist) AddSymbol(ctx context.Context, symbol string) error {
	f.mu.Lock()
	f.symbols = append(f.symbols, symbol)
	f.mu.Unlock()
	return nil
}

func (f *fakeWatchlist) RemoveSymbol(ctx context.Context, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.symbols[:0]
	for _, s := range f.symbols {
		if s != symbol {
			out = append(out, s)
		}
	}
	f.symbols = out
	return nil
}

func (f *fakeWatchlist) ListSymbols(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.symbols...), nil
}

type noopMetrics struct{}

func (noopMetrics) RecordTick(string)                  {}
func (noopMetrics) RecordScore(string, string, float64) {}
func (noopMetrics) RecordTransition(string)            {}
func (noopMetrics) RecordSubscribers(int)              {}
func (noopMetrics) RecordDroppedEvents(string)         {}
func (noopMetrics) RecordError(string)                 {}
func (noopMetrics) RecordLastPrice(string, float64)    {}
func (noopMetrics) RecordLatency(string, float64)      {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return log
}

// breakoutBars builds a rising tape ending in an inside bar whose bias is
// bullish, with the prior-day high a fraction above the last price.
func breakoutBars() map[drepo.Timeframe][]models.Candle {
	intraday := make([]models.Candle, 0, 30)
	for i := 0; i < 28; i++ {
		p := 90 + float64(i)*0.35
		intraday = append(intraday, models.Candle{
			Symbol: "SYM", Open: p - 0.2, High: p + 0.3, Low: p - 0.3, Close: p,
			Volume: 1000, Start: int64(1000 + i*300),
		})
	}
	// Mother bar then an inside bar closing in its upper half.
	intraday = append(intraday,
		models.Candle{Symbol: "SYM", Open: 99.0, High: 100.5, Low: 98.5, Close: 99.9, Volume: 1500, Start: 9400},
		models.Candle{Symbol: "SYM", Open: 99.8, High: 100.1, Low: 99.6, Close: 100.0, Volume: 900, Start: 9700},
	)

	daily := make([]models.Candle, 0, 40)
	for i := 0; i < 40; i++ {
		p := 96 + float64(i%3)
		c := models.Candle{
			Symbol: "SYM", Open: p - 0.5, High: p + 0.5, Low: p - 1, Close: p,
			Volume: 1e6, Start: int64(100000 + i*86400),
		}
		daily = append(daily, c)
	}
	daily[38].High = 100.05 // prior-day high just above the last price
	daily[38].Low = 97

	return map[drepo.Timeframe][]models.Candle{
		drepo.TF5m:  intraday,
		drepo.TF15m: intraday,
		drepo.TF1h:  intraday,
		drepo.TF1d:  daily,
	}
}
