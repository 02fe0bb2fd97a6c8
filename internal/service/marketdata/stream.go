package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"LTPCoach/internal/domain/models"
	drepo "LTPCoach/internal/domain/repository"
	"LTPCoach/pkg/logger"
)

// StreamConfig tunes the provider push connection.
type StreamConfig struct {
	URL            string        `yaml:"url"`
	APIKey         string        `yaml:"api_key"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

// StreamClient implements a MarketStream over the provider's WebSocket
// feed. Symbols can be added and removed while connected; the current set
// is replayed after a reconnect.
type StreamClient struct {
	cfg StreamConfig
	log *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	symbols   map[string]struct{}
	connected bool
}

// NewStreamClient creates an unconnected stream.
func NewStreamClient(cfg StreamConfig, log *logger.Logger) drepo.MarketStream {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}
	return &StreamClient{cfg: cfg, log: log, symbols: make(map[string]struct{})}
}

// Connect establishes the WebSocket connection.
func (c *StreamClient) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.cfg.URL, c.cfg.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("marketdata connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("marketdata: stream connected")
	return nil
}

// Subscribe adds symbols to the live feed.
func (c *StreamClient) Subscribe(ctx context.Context, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("marketdata stream not connected")
	}
	for _, s := range symbols {
		s = models.NormalizeSymbol(s)
		if err := c.conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		c.symbols[s] = struct{}{}
		c.log.Debug("marketdata: subscribed", logger.String("symbol", s))
	}
	return nil
}

// Unsubscribe removes symbols from the live feed.
func (c *StreamClient) Unsubscribe(ctx context.Context, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("marketdata stream not connected")
	}
	for _, s := range symbols {
		s = models.NormalizeSymbol(s)
		if err := c.conn.WriteJSON(map[string]string{"type": "unsubscribe", "symbol": s}); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", s, err)
		}
		delete(c.symbols, s)
	}
	return nil
}

type wireTick struct {
	S  string  `json:"s"`
	P  float64 `json:"p"`
	V  float64 `json:"v"`
	DP float64 `json:"dp"`
	T  int64   `json:"t"` // ms
}

type wireFrame struct {
	Type string     `json:"type"`
	Data []wireTick `json:"data"`
}

// Read streams ticks and errors until the connection drops or ctx ends.
// Ticks are dropped on backpressure; a fresh price supersedes a stale one.
func (c *StreamClient) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("marketdata stream: no connection")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("marketdata read: %w", err)
				return
			}
			var frame wireFrame
			if err := json.Unmarshal(b, &frame); err != nil {
				continue // non-tick frame
			}
			if frame.Type != "trade" {
				continue
			}
			for _, d := range frame.Data {
				tick := &models.Tick{
					Symbol:        models.NormalizeSymbol(d.S),
					Price:         d.P,
					Volume:        d.V,
					ChangePercent: d.DP,
					Timestamp:     d.T / 1000,
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes, waits the configured delay, reconnects and replays the
// current symbol set.
func (c *StreamClient) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.cfg.ReconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	symbols := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		symbols = append(symbols, s)
	}
	c.mu.Unlock()
	return c.Subscribe(ctx, symbols)
}

// Close closes the connection. The symbol set survives for Reconnect.
func (c *StreamClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected reports connection status.
func (c *StreamClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
