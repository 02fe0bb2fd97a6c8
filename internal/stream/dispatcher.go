package stream

import (
	"sync"
	"time"

	"LTPCoach/internal/domain/models"
)

// Config tunes the dispatcher.
type Config struct {
	QueueSize         int           `yaml:"queue_size"`         // per-subscriber buffer
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // keep-alive cadence
}

func DefaultConfig() Config {
	return Config{QueueSize: 64, HeartbeatInterval: 15 * time.Second}
}

// Subscription is the handle returned by Subscribe. Events arrive on the
// channel from Events; the channel closes when the subscription ends.
type Subscription struct {
	id      uint64
	symbols map[string]struct{}

	mu     sync.Mutex
	ch     chan models.StreamEvent
	closed bool
}

// Events is the subscriber's receive channel.
func (s *Subscription) Events() <-chan models.StreamEvent { return s.ch }

// push enqueues without ever blocking the publisher. When the buffer is
// full the oldest event is dropped: a fresh tick is worth more than a stale
// one, and transitions resynchronize via snapshot fetch.
func (s *Subscription) push(ev models.StreamEvent) (dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.ch <- ev:
			return dropped
		default:
		}
		select {
		case <-s.ch:
			dropped = true
		default:
		}
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *Subscription) wants(symbol string) bool {
	if symbol == "" || len(s.symbols) == 0 {
		return true // heartbeats and wildcard subscriptions
	}
	_, ok := s.symbols[symbol]
	return ok
}

// Dispatcher fans internal events out to live subscribers. It keeps no
// event history; a reconnecting client re-subscribes and resyncs from a
// snapshot. Publish never blocks on a slow consumer.
type Dispatcher struct {
	cfg    Config
	onDrop func(ev models.StreamEvent)

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewDispatcher starts the heartbeat loop immediately. onDrop, if non-nil,
// is invoked once per event dropped from a subscriber queue.
func NewDispatcher(cfg Config, onDrop func(ev models.StreamEvent)) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultConfig().HeartbeatInterval
	}
	d := &Dispatcher{
		cfg:    cfg,
		onDrop: onDrop,
		subs:   make(map[uint64]*Subscription),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go d.heartbeatLoop()
	return d
}

// Subscribe registers interest in a set of symbols. An empty set means
// every symbol.
func (d *Dispatcher) Subscribe(symbols []string) *Subscription {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[models.NormalizeSymbol(s)] = struct{}{}
	}
	d.mu.Lock()
	d.nextID++
	sub := &Subscription{
		id:      d.nextID,
		symbols: set,
		ch:      make(chan models.StreamEvent, d.cfg.QueueSize),
	}
	d.subs[sub.id] = sub
	d.mu.Unlock()
	return sub
}

// Unsubscribe releases a subscription. Idempotent; safe on a nil handle.
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	d.mu.Lock()
	_, live := d.subs[sub.id]
	delete(d.subs, sub.id)
	d.mu.Unlock()
	if live {
		sub.close()
	}
}

// Publish fans an event out to every subscriber interested in its symbol.
// Never blocks; slow subscribers lose their oldest queued events only.
func (d *Dispatcher) Publish(ev models.StreamEvent) {
	symbol := models.NormalizeSymbol(ev.Symbol)
	d.mu.RLock()
	targets := make([]*Subscription, 0, len(d.subs))
	for _, sub := range d.subs {
		if sub.wants(symbol) {
			targets = append(targets, sub)
		}
	}
	d.mu.RUnlock()
	for _, sub := range targets {
		if sub.push(ev) && d.onDrop != nil {
			d.onDrop(ev)
		}
	}
}

// SubscriberCount reports live subscriptions.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Close stops the heartbeat loop and ends every subscription.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
	d.mu.Lock()
	for id, sub := range d.subs {
		delete(d.subs, id)
		sub.close()
	}
	d.mu.Unlock()
}

func (d *Dispatcher) heartbeatLoop() {
	defer close(d.done)
	ticker := time.NewTicker(d.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.Publish(models.NewHeartbeat())
		}
	}
}
