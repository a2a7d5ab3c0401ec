package domain

import (
	"os"
	"strconv"
	"time"
)

// Config holds the complete Kestrel configuration.
type Config struct {
	Server ServerConfig `json:"server"`

	// Tier determines backing services: community runs on in-process
	// infrastructure, pro on Redis + PostgreSQL + NATS.
	Tier Tier `json:"tier"`

	Store      StoreConfig      `json:"store"`
	Producer   ProducerConfig   `json:"producer"`
	Scoring    ScoringConfig    `json:"scoring"`
	Drift      DriftConfig      `json:"drift"`
	Profile    ProfileConfig    `json:"profile"`
	Policy     PolicyConfig     `json:"policy"`
	Repository RepositoryConfig `json:"repository"`
	EventBus   EventBusConfig   `json:"eventBus"`

	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// StoreConfig holds ring store settings.
type StoreConfig struct {
	// Capacity bounds the recent-transaction window.
	Capacity int `json:"capacity"`
}

// ProducerConfig holds the background transaction producer settings.
type ProducerConfig struct {
	Enabled     bool          `json:"enabled"`
	MinInterval time.Duration `json:"minInterval"`
	MaxInterval time.Duration `json:"maxInterval"`
	Preload     int           `json:"preload"`
}

// ScoringConfig holds ensemble weighting and degradation settings.
type ScoringConfig struct {
	AnomalyWeight    float64 `json:"anomalyWeight"`
	SupervisedWeight float64 `json:"supervisedWeight"`
	GraphWeight      float64 `json:"graphWeight"`

	// NeutralScore substitutes for an unavailable oracle.
	NeutralScore float64 `json:"neutralScore"`

	// OracleTimeout bounds each oracle call.
	OracleTimeout time.Duration `json:"oracleTimeout"`

	// ExplanationLimit caps ranked explanation items.
	ExplanationLimit int `json:"explanationLimit"`

	// RemoteOracleURL, when set, replaces the builtin supervised
	// oracle with a remote predict endpoint.
	RemoteOracleURL string `json:"remoteOracleUrl,omitempty"`
}

// DriftConfig holds drift monitor settings.
type DriftConfig struct {
	// Window is the reference/rolling window size in observations.
	Window int `json:"window"`

	// Threshold is the normalized mean-distance above which drift is
	// recorded.
	Threshold float64 `json:"threshold"`
}

// ProfileConfig holds profile store settings.
type ProfileConfig struct {
	// Backend is "memory" or "redis".
	Backend string `json:"backend"`

	RedisAddr     string `json:"redisAddr,omitempty"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redisDb,omitempty"`
}

// PolicyConfig holds the CEL verdict policy.
type PolicyConfig struct {
	// Expression decides whether an evaluation is flagged. It sees
	// composite_score, anomaly_score, supervised_probability,
	// graph_probability, customer_risk, drift_detected and amount.
	Expression string `json:"expression"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + in-process bus + memory profiles.
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis.
	TierPro Tier = "pro"
)

// DefaultConfig returns the community-tier configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Store: StoreConfig{
			Capacity: 20,
		},
		Producer: ProducerConfig{
			Enabled:     true,
			MinInterval: 2 * time.Minute,
			MaxInterval: 5 * time.Minute,
			Preload:     5,
		},
		Scoring: ScoringConfig{
			AnomalyWeight:    0.4,
			SupervisedWeight: 0.4,
			GraphWeight:      0.2,
			NeutralScore:     0.5,
			OracleTimeout:    2 * time.Second,
			ExplanationLimit: 5,
		},
		Drift: DriftConfig{
			Window:    30,
			Threshold: 3.0,
		},
		Profile: ProfileConfig{
			Backend: "memory",
		},
		Policy: PolicyConfig{
			Expression: "composite_score >= 1.05 || (drift_detected && composite_score >= 0.9)",
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns the pro-tier configuration.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Profile = ProfileConfig{
		Backend:   "redis",
		RedisAddr: "localhost:6379",
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// ApplyEnv overlays KESTREL_* environment variables onto the config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("KESTREL_HOST"); v != "" {
		c.Server.Host = v
	}
	if v, ok := envInt("KESTREL_PORT"); ok {
		c.Server.Port = v
	}
	if v, ok := envInt("KESTREL_RING_CAPACITY"); ok && v > 0 {
		c.Store.Capacity = v
	}
	if v := os.Getenv("KESTREL_PRODUCER"); v == "false" {
		c.Producer.Enabled = false
	}
	if v, ok := envInt("KESTREL_PRODUCER_MIN_SECS"); ok && v > 0 {
		c.Producer.MinInterval = time.Duration(v) * time.Second
	}
	if v, ok := envInt("KESTREL_PRODUCER_MAX_SECS"); ok && v > 0 {
		c.Producer.MaxInterval = time.Duration(v) * time.Second
	}
	if v, ok := envInt("KESTREL_ORACLE_TIMEOUT_MS"); ok && v > 0 {
		c.Scoring.OracleTimeout = time.Duration(v) * time.Millisecond
	}
	if v := os.Getenv("KESTREL_REMOTE_ORACLE_URL"); v != "" {
		c.Scoring.RemoteOracleURL = v
	}
	if v := os.Getenv("KESTREL_POLICY"); v != "" {
		c.Policy.Expression = v
	}
	if v := os.Getenv("KESTREL_DB_DRIVER"); v != "" {
		c.Repository.Driver = v
	}
	if v := os.Getenv("KESTREL_SQLITE_PATH"); v != "" {
		c.Repository.SQLitePath = v
	}
	if v := os.Getenv("KESTREL_PG_HOST"); v != "" {
		c.Repository.PostgresHost = v
	}
	if v, ok := envInt("KESTREL_PG_PORT"); ok {
		c.Repository.PostgresPort = v
	}
	if v := os.Getenv("KESTREL_PG_USER"); v != "" {
		c.Repository.PostgresUser = v
	}
	if v := os.Getenv("KESTREL_PG_PASSWORD"); v != "" {
		c.Repository.PostgresPassword = v
	}
	if v := os.Getenv("KESTREL_PG_DB"); v != "" {
		c.Repository.PostgresDB = v
	}
	if v := os.Getenv("KESTREL_REDIS_ADDR"); v != "" {
		c.Profile.Backend = "redis"
		c.Profile.RedisAddr = v
	}
	if v := os.Getenv("KESTREL_REDIS_PASSWORD"); v != "" {
		c.Profile.RedisPassword = v
	}
	if v := os.Getenv("KESTREL_NATS_URL"); v != "" {
		c.EventBus.Type = "nats"
		c.EventBus.NATSUrl = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
