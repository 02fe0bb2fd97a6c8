package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"LTPCoach/internal/alerts"
	"LTPCoach/internal/coaching"
	"LTPCoach/internal/domain/models"
	"LTPCoach/internal/domain/repository"
	"LTPCoach/internal/fvg"
	"LTPCoach/internal/gamma"
	"LTPCoach/internal/handler/api"
	"LTPCoach/internal/levels"
	"LTPCoach/internal/lifecycle"
	internalrepo "LTPCoach/internal/repository"
	"LTPCoach/internal/scoring"
	svccache "LTPCoach/internal/service/cache"
	"LTPCoach/internal/service/marketdata"
	"LTPCoach/internal/stream"
	"LTPCoach/internal/usecase"
	pkgch "LTPCoach/pkg/clickhouse"
	"LTPCoach/pkg/config"
	xhttp "LTPCoach/pkg/http"
	pkgkafka "LTPCoach/pkg/kafka"
	applogger "LTPCoach/pkg/logger"
	"LTPCoach/pkg/metrics"
	"LTPCoach/pkg/server"
)

// ProvideLogger creates the application logger. Production environments log
// JSON; everything else gets console output.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "console"
	level := "debug"
	if cfg.Environment == "production" {
		format = "json"
		level = "info"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the audit
// schema. Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.AuditSchema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideAuditStore creates the ClickHouse audit store, or nil when
// ClickHouse is disabled.
func ProvideAuditStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.AuditStore {
	if chClient == nil {
		return nil
	}
	store := internalrepo.NewCHAuditStore(chClient, cfg.ClickHouse.AuditTable)
	store.SetLogger(l)
	return store
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventSink mirrors lifecycle events onto Kafka, or nil when Kafka
// is disabled.
func ProvideEventSink(producer *pkgkafka.Producer, cfg *config.Config) repository.EventSink {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventSink(producer, cfg.Kafka.EventsTopic)
}

// ProvideKafkaConsumer creates the optional tick-replay consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled || cfg.Kafka.TicksTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideKafkaTicksHandler feeds replayed ticks into the monitor.
func ProvideKafkaTicksHandler(monitor *usecase.Monitor, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if cfg.Kafka.TicksTopic == "" {
		return nil
	}
	return usecase.NewKafkaTicksHandler(cfg.Kafka.TicksTopic, monitor, m)
}

// ProvideRedisClient creates the shared Redis client, or nil when Redis is
// disabled.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideWatchlist persists symbols in Redis when available, otherwise in
// process memory seeded from config. The Redis set is seeded too so a first
// boot starts tracking immediately.
func ProvideWatchlist(cfg *config.Config, rdb *redis.Client) (repository.WatchlistStore, error) {
	if rdb == nil {
		return internalrepo.NewMemoryWatchlist(cfg.Watchlist.Symbols), nil
	}
	store := internalrepo.NewRedisWatchlist(rdb, cfg.Redis.WatchlistKey)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, s := range cfg.Watchlist.Symbols {
		if err := store.AddSymbol(ctx, s); err != nil {
			return nil, fmt.Errorf("seed watchlist: %w", err)
		}
	}
	return store, nil
}

// ProvideMarketStream creates the provider WebSocket stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return marketdata.NewStreamClient(marketdata.StreamConfig{
		URL:            cfg.MarketData.WebSocketURL,
		APIKey:         cfg.MarketData.APIKey,
		ReconnectDelay: cfg.MarketData.ReconnectDelay,
		PingInterval:   cfg.MarketData.PingInterval,
	}, l)
}

// ProvideMarketData creates the provider REST client. With Redis available
// the options snapshots go through a shared cache so instances on the same
// watchlist do not each hit the provider.
func ProvideMarketData(cfg *config.Config, l *applogger.Logger, rdb *redis.Client) repository.MarketData {
	restCfg := marketdata.RESTConfig{
		BaseURL:  cfg.MarketData.BaseURL,
		APIKey:   cfg.MarketData.APIKey,
		Timeout:  cfg.MarketData.RequestTimeout,
		QuoteTTL: cfg.MarketData.QuoteTTL,
		BarsTTL:  cfg.MarketData.BarsTTL,
		GammaTTL: cfg.MarketData.GammaTTL,
	}
	if rdb != nil {
		return marketdata.NewRESTClient(restCfg, l, marketdata.WithSharedCache(svccache.NewRedisCache(rdb)))
	}
	return marketdata.NewRESTClient(restCfg, l)
}

// ProvideDispatcher creates the live event fan-out.
func ProvideDispatcher(cfg *config.Config, m repository.Metrics) *stream.Dispatcher {
	return stream.NewDispatcher(stream.Config{
		QueueSize:         cfg.Stream.QueueSize,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
	}, func(models.StreamEvent) {
		m.RecordDroppedEvents("subscriber_queue")
	})
}

// ProvideTrigger creates the voice alert trigger; fired alerts go to the
// structured log, where the desktop shell picks them up.
func ProvideTrigger(cfg *config.Config, l *applogger.Logger) *alerts.Trigger {
	return alerts.NewTrigger(cfg.Alerts.Cooldown, func(a alerts.Alert) {
		l.Info("voice alert",
			applogger.String("symbol", a.Symbol),
			applogger.String("category", string(a.Category)),
			applogger.String("message", a.Message),
		)
	})
}

// ProvideScorer builds the scorer from config, falling back to the tuned
// defaults for any zero cap.
func ProvideScorer(cfg *config.Config) *scoring.Scorer {
	p := scoring.DefaultProfile()
	if c := cfg.Scoring.Classic; c.Level > 0 {
		p.Classic = scoring.ComponentCaps{Level: c.Level, Trend: c.Trend, Patience: c.Patience}
	}
	if c := cfg.Scoring.LTP2; c.Level > 0 {
		p.LTP2 = scoring.ComponentCaps{
			Level: c.Level, Trend: c.Trend, Patience: c.Patience,
			MTF: c.MTF, GammaWall: c.GammaWall, GammaRegime: c.GammaRegime,
		}
	}
	if cfg.Scoring.PenaltyMax > 0 {
		p.PenaltyMax = cfg.Scoring.PenaltyMax
	}
	return scoring.NewScorer(p)
}

// ProvideLifecycleConfig maps config onto the state machine tuning.
func ProvideLifecycleConfig(cfg *config.Config) lifecycle.Config {
	lc := lifecycle.DefaultConfig()
	if cfg.Lifecycle.FormingFloor > 0 {
		lc.FormingFloor = cfg.Lifecycle.FormingFloor
	}
	if cfg.Lifecycle.ReadyThreshold > 0 {
		lc.ReadyThreshold = cfg.Lifecycle.ReadyThreshold
	}
	if cfg.Lifecycle.HysteresisBand > 0 {
		lc.HysteresisBand = cfg.Lifecycle.HysteresisBand
	}
	if cfg.Lifecycle.Window > 0 {
		lc.DetectionWindow = cfg.Lifecycle.Window
	}
	if cfg.Lifecycle.ReentryCooldown > 0 {
		lc.ReentryCooldown = cfg.Lifecycle.ReentryCooldown
	}
	if cfg.Lifecycle.ExpiredRetention > 0 {
		lc.ExpiredRetention = cfg.Lifecycle.ExpiredRetention
	}
	if cfg.Lifecycle.StopBufferPercent > 0 {
		lc.StopBufferPercent = cfg.Lifecycle.StopBufferPercent
	}
	return lc
}

// ProvideMonitorConfig maps config onto the streaming loop tuning.
func ProvideMonitorConfig(cfg *config.Config) usecase.MonitorConfig {
	mc := usecase.DefaultMonitorConfig()
	mc.Timeframe = repository.NormalizeTimeframe(cfg.Engine.Timeframe)
	if cfg.Engine.Variant != "" {
		mc.Variant = cfg.Engine.Variant
	}
	if cfg.Engine.BarCount > 0 {
		mc.BarCount = cfg.Engine.BarCount
	}
	if cfg.Engine.FastMA > 0 {
		mc.FastMA = cfg.Engine.FastMA
	}
	if cfg.Engine.SlowMA > 0 {
		mc.SlowMA = cfg.Engine.SlowMA
	}
	if cfg.Engine.RefreshInterval > 0 {
		mc.RefreshInterval = cfg.Engine.RefreshInterval
	}
	if cfg.Engine.HigherTFLimit > 0 {
		mc.HigherTFLimit = cfg.Engine.HigherTFLimit
	}
	if cfg.Engine.MaxTicksPerSec > 0 {
		mc.MaxTicksPerSec = cfg.Engine.MaxTicksPerSec
	}
	if cfg.Engine.PipelineBuffer > 0 {
		mc.PipelineBuffer = cfg.Engine.PipelineBuffer
	}
	return mc
}

// ProvideMonitor assembles the streaming evaluation loop.
func ProvideMonitor(
	mc usecase.MonitorConfig,
	lc lifecycle.Config,
	marketStream repository.MarketStream,
	data repository.MarketData,
	watch repository.WatchlistStore,
	sink repository.EventSink,
	audit repository.AuditStore,
	m repository.Metrics,
	l *applogger.Logger,
	dispatch *stream.Dispatcher,
	trigger *alerts.Trigger,
	scorer *scoring.Scorer,
) *usecase.Monitor {
	return usecase.NewMonitor(mc, lc, usecase.MonitorDeps{
		Stream:     marketStream,
		Data:       data,
		Watchlist:  watch,
		Sink:       sink,
		Audit:      audit,
		Metrics:    m,
		Log:        l,
		Registry:   levels.NewRegistry(levels.DefaultConfig()),
		Gamma:      gamma.NewAnalyzer(gamma.DefaultConfig()),
		FVG:        fvg.NewDetector(0.1),
		Scorer:     scorer,
		Dispatcher: dispatch,
		Trigger:    trigger,
	})
}

// ProvideAnalyzer assembles the on-demand analysis path. It gets its own
// level registry so ad-hoc symbols never disturb streaming state.
func ProvideAnalyzer(
	cfg *config.Config,
	lc lifecycle.Config,
	data repository.MarketData,
	l *applogger.Logger,
) *usecase.Analyzer {
	ac := usecase.DefaultAnalyzerConfig()
	ac.Timeframe = repository.NormalizeTimeframe(cfg.Engine.Timeframe)
	if cfg.Engine.BarCount > 0 {
		ac.BarCount = cfg.Engine.BarCount
	}
	if cfg.Engine.FastMA > 0 {
		ac.FastMA = cfg.Engine.FastMA
	}
	if cfg.Engine.SlowMA > 0 {
		ac.SlowMA = cfg.Engine.SlowMA
	}
	return usecase.NewAnalyzer(ac, lc, data,
		levels.NewRegistry(levels.DefaultConfig()),
		ProvideScorer(cfg),
		fvg.NewDetector(0.1),
		l,
	)
}

// ProvideSessions creates the coaching session manager.
func ProvideSessions() *coaching.Manager {
	return coaching.NewManager()
}

// ProvideCoach creates the rule engine.
func ProvideCoach() *coaching.Engine {
	return coaching.NewEngine()
}

// ProvideHTTPHandler bundles the REST and WebSocket surfaces.
func ProvideHTTPHandler(
	l *applogger.Logger,
	monitor *usecase.Monitor,
	analyzer *usecase.Analyzer,
	coach *coaching.Engine,
	sessions *coaching.Manager,
	audit repository.AuditStore,
	trigger *alerts.Trigger,
	dispatch *stream.Dispatcher,
) xhttp.Handler {
	rest := api.NewSetupsEchoHandler(l, monitor, analyzer, coach, sessions, audit, trigger)
	ws := api.NewStreamWSHandler(l, dispatch)
	return api.NewRouter(rest, ws)
}

// kafkaLogPublisher lets the log collector flush aggregated error logs
// through the shared producer.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server. With Kafka available, repeated
// error logs are aggregated and shipped to a topic instead of flooding
// stdout line by line.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	monitor *usecase.Monitor,
	dispatch *stream.Dispatcher,
	sessions *coaching.Manager,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	handler xhttp.Handler,
) *server.App {
	if producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          "ltpcoach.error_logs",
			Publisher:      kafkaLogPublisher{producer: producer},
		})
	}
	app := server.New(cfg, l, monitor, dispatch, sessions, consumer, kh, chClient)
	app.SetHTTPHandler(handler)
	return app
}
