package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"LTPCoach/internal/domain/models"
	drepo "LTPCoach/internal/domain/repository"
	"LTPCoach/internal/service/cache"
	pkghttp "LTPCoach/pkg/http"
	"LTPCoach/pkg/logger"
)

// RESTConfig tunes the synchronous provider client.
type RESTConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	QuoteTTL time.Duration `yaml:"quote_ttl"`
	BarsTTL  time.Duration `yaml:"bars_ttl"`
	GammaTTL time.Duration `yaml:"gamma_ttl"`
}

// RESTClient implements MarketData against the provider's HTTP API. Every
// fetch carries the request context and the configured timeout; a provider
// outage surfaces as ErrDegraded, an unknown symbol as ErrNoData.
type RESTClient struct {
	cfg    RESTConfig
	client *pkghttp.Client
	cache  *cache.TTLCache
	shared cache.BytesCache
	log    *logger.Logger
}

// Option customizes the REST client.
type Option func(*RESTClient)

// WithSharedCache adds a process-external cache behind the in-memory one.
// Only options snapshots go through it: they are the slowest fetch and the
// only payload other instances can reuse within its TTL.
func WithSharedCache(c cache.BytesCache) Option {
	return func(r *RESTClient) { r.shared = c }
}

func NewRESTClient(cfg RESTConfig, log *logger.Logger, opts ...Option) drepo.MarketData {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 2 * time.Second
	}
	if cfg.BarsTTL <= 0 {
		cfg.BarsTTL = 30 * time.Second
	}
	if cfg.GammaTTL <= 0 {
		cfg.GammaTTL = time.Minute
	}
	c := &RESTClient{
		cfg:    cfg,
		client: pkghttp.NewClient(pkghttp.WithTimeout(cfg.Timeout)),
		cache:  cache.NewTTLCache(),
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wireQuote struct {
	Current       float64 `json:"c"`
	ChangePercent float64 `json:"dp"`
	Volume        float64 `json:"v"`
	Timestamp     int64   `json:"t"`
}

// GetQuote fetches the latest quote. A zero current price means the
// provider has nothing for the symbol.
func (c *RESTClient) GetQuote(ctx context.Context, symbol string) (*models.MarketQuote, error) {
	symbol = models.NormalizeSymbol(symbol)
	key := "quote:" + symbol
	if v, ok := c.cache.Get(key); ok {
		q := v.(models.MarketQuote)
		return &q, nil
	}

	var wq wireQuote
	if err := c.get(ctx, "/quote", map[string][]string{"symbol": {symbol}}, &wq); err != nil {
		return nil, err
	}
	if wq.Current <= 0 {
		return nil, drepo.ErrNoData
	}
	q := models.MarketQuote{
		Symbol:        symbol,
		Last:          wq.Current,
		ChangePercent: wq.ChangePercent,
		Volume:        wq.Volume,
		UpdatedAt:     wq.Timestamp,
	}
	c.cache.Set(key, q, c.cfg.QuoteTTL)
	return &q, nil
}

type wireCandles struct {
	Status string    `json:"s"` // "ok" or "no_data"
	Open   []float64 `json:"o"`
	High   []float64 `json:"h"`
	Low    []float64 `json:"l"`
	Close  []float64 `json:"c"`
	Volume []float64 `json:"v"`
	Start  []int64   `json:"t"`
}

// GetBars fetches up to count bars for a timeframe, oldest first.
func (c *RESTClient) GetBars(ctx context.Context, symbol string, tf drepo.Timeframe, count int) ([]models.Candle, error) {
	symbol = models.NormalizeSymbol(symbol)
	if count <= 0 {
		count = 100
	}
	key := fmt.Sprintf("bars:%s:%s:%d", symbol, tf, count)
	if v, ok := c.cache.Get(key); ok {
		return v.([]models.Candle), nil
	}

	to := time.Now().Unix()
	from := to - int64(count)*int64(tf.Duration().Seconds())
	var wc wireCandles
	err := c.get(ctx, "/stock/candle", map[string][]string{
		"symbol":     {symbol},
		"resolution": {resolution(tf)},
		"from":       {fmt.Sprintf("%d", from)},
		"to":         {fmt.Sprintf("%d", to)},
	}, &wc)
	if err != nil {
		return nil, err
	}
	if wc.Status != "ok" || len(wc.Close) == 0 {
		return nil, drepo.ErrNoData
	}

	n := len(wc.Close)
	candles := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		candles = append(candles, models.Candle{
			Symbol: symbol,
			Open:   wc.Open[i],
			High:   wc.High[i],
			Low:    wc.Low[i],
			Close:  wc.Close[i],
			Volume: wc.Volume[i],
			Start:  wc.Start[i],
		})
	}
	c.cache.Set(key, candles, c.cfg.BarsTTL)
	return candles, nil
}

type wireGamma struct {
	CallWall  float64 `json:"callWall"`
	PutWall   float64 `json:"putWall"`
	MaxPain   float64 `json:"maxPain"`
	ZeroGamma float64 `json:"zeroGamma"`
	NetGamma  float64 `json:"netGamma"`
	Timestamp int64   `json:"t"`
}

// GetOptionsSnapshot fetches the options-derived gamma inputs. Symbols with
// no listed options return ErrNoData; downstream treats that as a neutral
// regime, not a failure.
func (c *RESTClient) GetOptionsSnapshot(ctx context.Context, symbol string) (*models.OptionsSnapshot, error) {
	symbol = models.NormalizeSymbol(symbol)
	key := "gamma:" + symbol
	if v, ok := c.cache.Get(key); ok {
		s := v.(models.OptionsSnapshot)
		return &s, nil
	}
	if snap, ok := c.sharedGet(key); ok {
		c.cache.Set(key, *snap, c.cfg.GammaTTL)
		return snap, nil
	}

	var wg wireGamma
	if err := c.get(ctx, "/options/gamma", map[string][]string{"symbol": {symbol}}, &wg); err != nil {
		return nil, err
	}
	snap := models.OptionsSnapshot{
		Symbol:    symbol,
		CallWall:  wg.CallWall,
		PutWall:   wg.PutWall,
		MaxPain:   wg.MaxPain,
		ZeroGamma: wg.ZeroGamma,
		NetGamma:  wg.NetGamma,
		Timestamp: wg.Timestamp,
	}
	if !snap.Valid() {
		return nil, drepo.ErrNoData
	}
	c.cache.Set(key, snap, c.cfg.GammaTTL)
	c.sharedSet(key, snap)
	return &snap, nil
}

func (c *RESTClient) sharedGet(key string) (*models.OptionsSnapshot, bool) {
	if c.shared == nil {
		return nil, false
	}
	b, ok, err := c.shared.GetBytes(key)
	if err != nil || !ok {
		return nil, false
	}
	var snap models.OptionsSnapshot
	if err := json.Unmarshal(b, &snap); err != nil || !snap.Valid() {
		return nil, false
	}
	return &snap, true
}

func (c *RESTClient) sharedSet(key string, snap models.OptionsSnapshot) {
	if c.shared == nil {
		return
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.shared.SetBytes(key, b, c.cfg.GammaTTL); err != nil {
		c.log.Debug("marketdata: shared cache write failed", logger.Error(err))
	}
}

// get performs one provider call and decodes the JSON body into dest.
func (c *RESTClient) get(ctx context.Context, path string, query map[string][]string, dest any) error {
	query["token"] = []string{c.cfg.APIKey}
	resp, err := c.client.SendRequest(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.cfg.BaseURL + path,
		QueryParams: query,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", drepo.ErrDegraded, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return drepo.ErrNoData
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.log.Warn("marketdata: provider error",
			logger.String("path", path), logger.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", drepo.ErrDegraded, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode: %v", drepo.ErrDegraded, err)
	}
	return nil
}

func resolution(tf drepo.Timeframe) string {
	switch tf {
	case drepo.TF1m:
		return "1"
	case drepo.TF5m:
		return "5"
	case drepo.TF15m:
		return "15"
	case drepo.TF1h:
		return "60"
	case drepo.TF4h:
		return "240"
	case drepo.TF1d:
		return "D"
	default:
		return "5"
	}
}
