package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	MarketData struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		BaseURL        string        `yaml:"base_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		QuoteTTL       time.Duration `yaml:"quote_ttl"`
		BarsTTL        time.Duration `yaml:"bars_ttl"`
		GammaTTL       time.Duration `yaml:"gamma_ttl"`
	} `yaml:"market_data"`
	Watchlist struct {
		Symbols []string `yaml:"symbols"`
	} `yaml:"watchlist"`
	Engine struct {
		Variant         string        `yaml:"variant"`
		Timeframe       string        `yaml:"timeframe"`
		BarCount        int           `yaml:"bar_count"`
		FastMA          int           `yaml:"fast_ma"`
		SlowMA          int           `yaml:"slow_ma"`
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		HigherTFLimit   int           `yaml:"higher_tf_limit"`
		MaxTicksPerSec  float64       `yaml:"max_ticks_per_sec"`
		PipelineBuffer  int           `yaml:"pipeline_buffer"`
	} `yaml:"engine"`
	Scoring struct {
		Classic struct {
			Level    float64 `yaml:"level"`
			Trend    float64 `yaml:"trend"`
			Patience float64 `yaml:"patience"`
		} `yaml:"classic"`
		LTP2 struct {
			Level       float64 `yaml:"level"`
			Trend       float64 `yaml:"trend"`
			Patience    float64 `yaml:"patience"`
			MTF         float64 `yaml:"mtf"`
			GammaWall   float64 `yaml:"gamma_wall"`
			GammaRegime float64 `yaml:"gamma_regime"`
		} `yaml:"ltp2"`
		PenaltyMax float64 `yaml:"penalty_max"`
	} `yaml:"scoring"`
	Lifecycle struct {
		FormingFloor      float64       `yaml:"forming_floor"`
		ReadyThreshold    float64       `yaml:"ready_threshold"`
		HysteresisBand    float64       `yaml:"hysteresis_band"`
		Window            time.Duration `yaml:"window"`
		ReentryCooldown   time.Duration `yaml:"reentry_cooldown"`
		ExpiredRetention  time.Duration `yaml:"expired_retention"`
		StopBufferPercent float64       `yaml:"stop_buffer_percent"`
	} `yaml:"lifecycle"`
	Stream struct {
		QueueSize         int           `yaml:"queue_size"`
		HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	} `yaml:"stream"`
	Alerts struct {
		Cooldown time.Duration `yaml:"cooldown"`
	} `yaml:"alerts"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		EventsTopic  string   `yaml:"events_topic"`
		TicksTopic   string   `yaml:"ticks_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			BatchTimeout time.Duration `yaml:"batch_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		AuditTable       string        `yaml:"audit_table"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled      bool   `yaml:"enabled"`
		Addr         string `yaml:"addr"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		WatchlistKey string `yaml:"watchlist_key"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MARKET_DATA_API_KEY"); v != "" {
		c.MarketData.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Watchlist.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Watchlist.Symbols) == 0 {
		return fmt.Errorf("watchlist.symbols cannot be empty")
	}
	if c.MarketData.APIKey == "" {
		return fmt.Errorf("market_data.api_key is required")
	}
	if c.Engine.Variant != "" && c.Engine.Variant != "ltp" && c.Engine.Variant != "ltp-2.0" {
		return fmt.Errorf("engine.variant must be 'ltp' or 'ltp-2.0', got '%s'", c.Engine.Variant)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
