package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"LTPCoach/internal/alerts"
	"LTPCoach/internal/domain/models"
	drepo "LTPCoach/internal/domain/repository"
	"LTPCoach/internal/fvg"
	"LTPCoach/internal/gamma"
	"LTPCoach/internal/indicators"
	"LTPCoach/internal/levels"
	"LTPCoach/internal/lifecycle"
	mid "LTPCoach/internal/middleware"
	"LTPCoach/internal/scoring"
	"LTPCoach/internal/stream"
	"LTPCoach/pkg/logger"
)

// MonitorConfig tunes the streaming evaluation loop.
type MonitorConfig struct {
	Timeframe       drepo.Timeframe `yaml:"timeframe"`
	BarCount        int             `yaml:"bar_count"`
	FastMA          int             `yaml:"fast_ma"`
	SlowMA          int             `yaml:"slow_ma"`
	RefreshInterval time.Duration   `yaml:"refresh_interval"`
	Variant         string          `yaml:"variant"`
	HigherTFLimit   int             `yaml:"higher_tf_limit"` // how many higher timeframes feed the MTF read
	MaxTicksPerSec  float64         `yaml:"max_ticks_per_sec"`
	PipelineBuffer  int             `yaml:"pipeline_buffer"`
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Timeframe:       drepo.DefaultTimeframe(),
		BarCount:        120,
		FastMA:          8,
		SlowMA:          21,
		RefreshInterval: time.Minute,
		Variant:         string(models.VariantLTP2),
		HigherTFLimit:   2,
		MaxTicksPerSec:  10,
		PipelineBuffer:  1000,
	}
}

// symbolState is everything the monitor knows about one symbol. Updates are
// serialized through mu; distinct symbols evaluate concurrently.
type symbolState struct {
	mu    sync.Mutex
	view  marketView
	quote models.MarketQuote
	gamma *models.GammaExposure
	fvg   models.FVGPair
	score *models.ConfluenceScore
	setup *models.DetectedSetup
}

// Snapshot is the idempotent poll-fallback view of one symbol, served to
// clients that lost the push channel.
type Snapshot struct {
	Symbol string                  `json:"symbol"`
	Quote  models.MarketQuote      `json:"quote"`
	Score  *models.ConfluenceScore `json:"score,omitempty"`
	Setup  *models.DetectedSetup   `json:"setup,omitempty"`
	Gamma  *models.GammaExposure   `json:"gamma,omitempty"`
	FVG    models.FVGPair          `json:"fvg"`
	At     time.Time               `json:"at"`
}

// Monitor drives the streaming loop: ticks come in from the provider
// stream through the pipeline, each one re-scores its symbol and advances
// the lifecycle engine, and the results fan out to the dispatcher, the
// alert trigger and the external sinks.
type Monitor struct {
	cfg MonitorConfig

	stream  drepo.MarketStream
	data    drepo.MarketData
	watch   drepo.WatchlistStore
	sink    drepo.EventSink
	audit   drepo.AuditStore
	metrics drepo.Metrics
	log     *logger.Logger

	registry   *levels.Registry
	gammaEval  *gamma.Analyzer
	fvgDetect  *fvg.Detector
	scorer     *scoring.Scorer
	lifecycles *lifecycle.Engine
	dispatch   *stream.Dispatcher
	trigger    *alerts.Trigger
	pipe       *mid.TickPipeline

	mu    sync.RWMutex
	state map[string]*symbolState

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// MonitorDeps groups the collaborators so the constructor stays readable.
type MonitorDeps struct {
	Stream     drepo.MarketStream
	Data       drepo.MarketData
	Watchlist  drepo.WatchlistStore
	Sink       drepo.EventSink
	Audit      drepo.AuditStore
	Metrics    drepo.Metrics
	Log        *logger.Logger
	Registry   *levels.Registry
	Gamma      *gamma.Analyzer
	FVG        *fvg.Detector
	Scorer     *scoring.Scorer
	Dispatcher *stream.Dispatcher
	Trigger    *alerts.Trigger
}

func NewMonitor(cfg MonitorConfig, lcCfg lifecycle.Config, deps MonitorDeps) *Monitor {
	if cfg.BarCount <= 0 {
		cfg = DefaultMonitorConfig()
	}
	m := &Monitor{
		cfg:       cfg,
		stream:    deps.Stream,
		data:      deps.Data,
		watch:     deps.Watchlist,
		sink:      deps.Sink,
		audit:     deps.Audit,
		metrics:   deps.Metrics,
		log:       deps.Log,
		registry:  deps.Registry,
		gammaEval: deps.Gamma,
		fvgDetect: deps.FVG,
		scorer:    deps.Scorer,
		dispatch:  deps.Dispatcher,
		trigger:   deps.Trigger,
		state:     make(map[string]*symbolState),
	}
	m.lifecycles = lifecycle.NewEngine(lcCfg, m.onTransition)
	m.pipe = mid.NewTickPipeline(m, deps.Metrics,
		mid.WithMaxTicksPerSecond(cfg.MaxTicksPerSec),
		mid.WithBufferSize(cfg.PipelineBuffer),
	)
	return m
}

// Lifecycle exposes the engine for read access (setup listings).
func (m *Monitor) Lifecycle() *lifecycle.Engine { return m.lifecycles }

// IsConnected reports provider stream health.
func (m *Monitor) IsConnected() bool { return m.stream.IsConnected() }

// Start connects the stream, subscribes the watchlist and launches the
// consume and refresh loops.
func (m *Monitor) Start(ctx context.Context) error {
	symbols, err := m.watch.ListSymbols(ctx)
	if err != nil {
		return err
	}
	if err := m.stream.Connect(ctx); err != nil {
		return err
	}
	if err := m.stream.Subscribe(ctx, symbols); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.refreshAll(runCtx, symbols)
	m.pipe.Start(runCtx)

	tickCh, errCh := m.stream.Read(runCtx)
	m.wg.Add(2)
	go m.consume(runCtx, tickCh, errCh)
	go m.refreshLoop(runCtx)

	m.log.Info("monitor: started", logger.Strings("symbols", symbols))
	return nil
}

// Stop shuts the loops down and releases lifecycle timers.
func (m *Monitor) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.pipe.Stop()
	err := m.stream.Close()
	m.wg.Wait()
	m.lifecycles.Close()
	return err
}

// Process feeds one validated tick into the evaluation path. Implements the
// pipeline's downstream contract.
func (m *Monitor) Process(ctx context.Context, t *models.Tick) error {
	m.evaluate(ctx, t)
	return nil
}

// AddSymbol persists, subscribes and primes a new watchlist symbol.
func (m *Monitor) AddSymbol(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if err := m.watch.AddSymbol(ctx, symbol); err != nil {
		return err
	}
	m.refreshSymbol(ctx, symbol)
	if m.stream.IsConnected() {
		return m.stream.Subscribe(ctx, []string{symbol})
	}
	return nil
}

// RemoveSymbol drops a symbol and every piece of per-symbol state,
// cancelling any mid-window lifecycle timers.
func (m *Monitor) RemoveSymbol(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if err := m.watch.RemoveSymbol(ctx, symbol); err != nil {
		return err
	}
	if m.stream.IsConnected() {
		_ = m.stream.Unsubscribe(ctx, []string{symbol})
	}
	m.mu.Lock()
	delete(m.state, symbol)
	m.mu.Unlock()
	m.registry.Drop(symbol)
	m.gammaEval.Drop(symbol)
	m.lifecycles.Drop(symbol)
	return nil
}

// ListSymbols returns the current watchlist.
func (m *Monitor) ListSymbols(ctx context.Context) ([]string, error) {
	return m.watch.ListSymbols(ctx)
}

// Setups lists tracked setups above a score floor, highest-scored first,
// newest breaking ties. symbol empty means all symbols.
func (m *Monitor) Setups(symbol string, minScore float64, limit int) []models.DetectedSetup {
	symbol = models.NormalizeSymbol(symbol)
	all := m.lifecycles.Active()
	out := make([]models.DetectedSetup, 0, len(all))
	for _, s := range all {
		if symbol != "" && s.Symbol != symbol {
			continue
		}
		if s.Score.Total < minScore {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score.Total != out[j].Score.Total {
			return out[i].Score.Total > out[j].Score.Total
		}
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Snapshot serves the poll fallback: the last evaluation of one symbol.
func (m *Monitor) Snapshot(symbol string) (*Snapshot, error) {
	symbol = models.NormalizeSymbol(symbol)
	m.mu.RLock()
	st := m.state[symbol]
	m.mu.RUnlock()
	if st == nil {
		return nil, drepo.ErrNoData
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.quote.Last <= 0 {
		return nil, drepo.ErrNoData
	}
	snap := &Snapshot{
		Symbol: symbol,
		Quote:  st.quote,
		Gamma:  st.gamma,
		FVG:    st.fvg,
		At:     time.Now(),
	}
	if st.score != nil {
		sc := *st.score
		snap.Score = &sc
	}
	if st.setup != nil {
		s := *st.setup
		snap.Setup = &s
	}
	return snap, nil
}

// Context returns the coaching context for one symbol, merged with the
// caller's session state.
func (m *Monitor) Context(symbol string, trade *models.ActiveTrade, mode models.CoachMode, session models.MarketSession) (models.CoachingContext, error) {
	snap, err := m.Snapshot(symbol)
	if err != nil {
		return models.CoachingContext{}, err
	}
	return models.CoachingContext{
		Symbol:       snap.Symbol,
		CurrentPrice: snap.Quote.Last,
		Score:        snap.Score,
		Setup:        snap.Setup,
		Gamma:        snap.Gamma,
		FVG:          snap.FVG,
		Trade:        trade,
		Mode:         mode,
		Session:      session,
	}, nil
}

func (m *Monitor) consume(ctx context.Context, tickCh <-chan *models.Tick, errCh <-chan error) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				m.metrics.RecordError("stream")
				m.log.Warn("monitor: stream error, reconnecting", logger.Error(err))
				if rerr := m.stream.Reconnect(ctx); rerr != nil {
					m.log.Error("monitor: reconnect failed", logger.Error(rerr))
					select {
					case <-ctx.Done():
						return
					case <-time.After(5 * time.Second):
					}
					continue
				}
				tickCh, errCh = m.stream.Read(ctx)
			}
		case t := <-tickCh:
			if t == nil {
				continue
			}
			m.metrics.RecordTick(t.Symbol)
			m.metrics.RecordLastPrice(t.Symbol, t.Price)
			_ = m.pipe.Process(ctx, t)
		}
	}
}

func (m *Monitor) refreshLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			symbols, err := m.watch.ListSymbols(ctx)
			if err != nil {
				m.metrics.RecordError("watchlist")
				continue
			}
			m.refreshAll(ctx, symbols)
			m.metrics.RecordSubscribers(m.dispatch.SubscriberCount())
		}
	}
}

func (m *Monitor) refreshAll(ctx context.Context, symbols []string) {
	for _, s := range symbols {
		m.refreshSymbol(ctx, s)
	}
}

// refreshSymbol rebuilds the slow-moving inputs: candles, levels and the
// options snapshot. Fetch failures keep the previous view serving.
func (m *Monitor) refreshSymbol(ctx context.Context, symbol string) {
	symbol = models.NormalizeSymbol(symbol)

	intraday, err := m.data.GetBars(ctx, symbol, m.cfg.Timeframe, m.cfg.BarCount)
	if err != nil {
		m.metrics.RecordError("refresh_bars")
		return
	}

	higher := make(map[drepo.Timeframe][]models.Candle)
	for i, tf := range drepo.HigherTimeframes(m.cfg.Timeframe) {
		if i >= m.cfg.HigherTFLimit {
			break
		}
		bars, err := m.data.GetBars(ctx, symbol, tf, m.cfg.SlowMA*2)
		if err != nil {
			continue
		}
		higher[tf] = bars
	}

	daily, err := m.data.GetBars(ctx, symbol, drepo.TF1d, 40)
	var priorDay *models.Candle
	var weekly, monthly []models.Candle
	if err == nil && len(daily) >= 2 {
		pd := daily[len(daily)-2]
		priorDay = &pd
		if len(daily) > 5 {
			weekly = daily[len(daily)-6 : len(daily)-1]
		}
		if len(daily) > 21 {
			monthly = daily[len(daily)-22 : len(daily)-1]
		}
	}

	ls := m.registry.Refresh(symbol, intraday, priorDay, weekly, monthly)

	snap, err := m.data.GetOptionsSnapshot(ctx, symbol)
	if err != nil {
		snap = nil // degrades to a neutral regime downstream
	}

	orHigh, orLow := openingRangeFrom(ls)

	st := m.stateFor(symbol)
	st.mu.Lock()
	st.view.intraday = intraday
	st.view.higher = higher
	st.view.levels = ls
	st.view.snap = snap
	st.quote.OpeningRangeHigh = orHigh
	st.quote.OpeningRangeLow = orLow
	st.mu.Unlock()
}

// openingRangeFrom reads the registry's opening-range levels back into the
// quote so Snapshot serves the same range the scorer sees.
func openingRangeFrom(ls []models.KeyLevel) (high, low float64) {
	for _, l := range ls {
		if l.Type != models.LevelOpeningRange {
			continue
		}
		if high == 0 || l.Price > high {
			high = l.Price
		}
		if low == 0 || l.Price < low {
			low = l.Price
		}
	}
	return high, low
}

// evaluate runs one full scoring pass for a tick. All per-symbol state
// mutations happen under the symbol lock; the dispatcher and sinks are fed
// outside of any cross-symbol synchronization.
func (m *Monitor) evaluate(ctx context.Context, t *models.Tick) {
	st := m.stateFor(t.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.quote.Symbol = t.Symbol
	st.quote.Last = t.Price
	st.quote.ChangePercent = t.ChangePercent
	st.quote.Volume += t.Volume
	st.quote.UpdatedAt = t.Timestamp
	st.view.price = t.Price

	if len(st.view.intraday) == 0 {
		// No refresh has succeeded yet; the tick still fans out.
		m.dispatch.Publish(models.NewPriceEvent(t))
		return
	}

	gv := m.gammaEval.Evaluate(t.Symbol, t.Price, st.view.snap)
	g := &gv
	pair := m.fvgDetect.Scan(t.Symbol, st.view.intraday, t.Price)

	closes := indicators.Closes(st.view.intraday)
	dir := candidateDirection(indicators.LastEMA(closes, m.cfg.FastMA), indicators.LastEMA(closes, m.cfg.SlowMA))

	variant := models.ScoreVariant(m.cfg.Variant)
	in := buildScoreInput(t.Symbol, dir, variant, st.view, g, pair, m.cfg.FastMA, m.cfg.SlowMA)
	score := m.scorer.Score(in)
	m.metrics.RecordScore(t.Symbol, string(dir), score.Total)

	primary, _ := scoring.PrimaryLevel(st.view.levels, t.Price)
	setup := m.lifecycles.Evaluate(t.Symbol, dir, lifecycle.Observation{
		Score:         score,
		Price:         t.Price,
		PrimaryLevel:  primary,
		PatienceCount: in.Patience.Count,
	})

	st.gamma = g
	st.fvg = pair
	st.score = &score
	st.setup = setup
	st.quote.VWAP = in.Trend.VWAP

	m.dispatch.Publish(models.NewPriceEvent(t))
	m.trigger.OnEvaluation(t.Symbol, &score, g, t.Price, in.Trend.VWAP)
}

// onTransition is the lifecycle engine's emit hook: every stage change goes
// to the live dispatcher, the external event sink and the audit store.
func (m *Monitor) onTransition(ev models.StreamEvent) {
	m.metrics.RecordTransition(string(ev.Type))
	m.dispatch.Publish(ev)

	if m.sink == nil && m.audit == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if m.sink != nil {
			if err := m.sink.Publish(ctx, ev); err != nil {
				m.metrics.RecordError("event_sink")
			}
		}
		if m.audit != nil && ev.Setup != nil {
			if err := m.audit.Record(ctx, ev.Setup); err != nil {
				m.metrics.RecordError("audit")
			}
		}
	}()
}

func (m *Monitor) stateFor(symbol string) *symbolState {
	symbol = models.NormalizeSymbol(symbol)
	m.mu.RLock()
	st := m.state[symbol]
	m.mu.RUnlock()
	if st != nil {
		return st
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if st = m.state[symbol]; st == nil {
		st = &symbolState{}
		m.state[symbol] = st
	}
	return st
}
