package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"LTPCoach/internal/domain/models"
	domrepo "LTPCoach/internal/domain/repository"
	"LTPCoach/internal/service/ratelimit"
)

// TickProc is the downstream consumer the pipeline feeds, normally the
// monitor's per-symbol evaluation loop.
type TickProc interface {
	Process(ctx context.Context, t *models.Tick) error
}

// TickPipeline sits between the provider stream and the evaluation loop.
// It validates ticks, throttles per symbol so one hot tape cannot starve
// the rest of the watchlist, and buffers when downstream stalls.
type TickPipeline struct {
	proc    TickProc
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter

	maxTPS  float64 // accepted ticks per second per symbol
	bufSize int
	bufCh   chan *models.Tick
	stopCh  chan struct{}

	mu      sync.Mutex
	started bool
}

type PipelineOption func(*TickPipeline)

// WithMaxTicksPerSecond caps accepted ticks per symbol per second.
func WithMaxTicksPerSecond(n float64) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.maxTPS = n
		}
	}
}

// WithBufferSize sets the holding buffer used while downstream errors.
func WithBufferSize(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewTickPipeline(proc TickProc, metrics domrepo.Metrics, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		proc:    proc,
		metrics: metrics,
		limiter: ratelimit.New(),
		maxTPS:  10,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Tick, p.bufSize)
	return p
}

// Start launches background flushing of buffered ticks with exponential
// backoff while downstream keeps failing.
func (p *TickPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case t := <-p.bufCh:
				if t == nil {
					continue
				}
				if err := p.proc.Process(ctx, t); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- t:
					default:
						p.metrics.RecordDroppedEvents("pipeline_buffer")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop halts background flushing.
func (p *TickPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Process validates and throttles one tick, then forwards it. A throttled
// tick is dropped silently; the next accepted one carries a fresher price
// anyway. Downstream failures park the tick in the buffer for the flusher.
func (p *TickPipeline) Process(ctx context.Context, t *models.Tick) error {
	start := time.Now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.limiter.Allow(t.Symbol, p.maxTPS, p.maxTPS) {
		p.metrics.RecordDroppedEvents("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- t:
		default:
			p.metrics.RecordDroppedEvents("pipeline_buffer")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price <= 0 || t.Volume < 0 {
		return fmt.Errorf("invalid price/volume")
	}
	return nil
}
