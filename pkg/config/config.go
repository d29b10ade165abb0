// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Source, Postgres, Kafka, Redis, Search, Crawler, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds understood by SourceConfig.Kind.
const (
	SourceDirectory = "directory"
	SourcePostgres  = "postgres"
	SourceKafka     = "kafka"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is requests per second allowed per client; 0 disables it.
	RateLimit float64 `yaml:"rateLimit"`
	RateBurst int     `yaml:"rateBurst"`
}

// SourceConfig selects where the corpus is read from.
type SourceConfig struct {
	Kind     string   `yaml:"kind"`
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	// ReadAttempts bounds per-document read retries for the directory source.
	ReadAttempts int `yaml:"readAttempts"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings for the corpus topic.
type KafkaConfig struct {
	Brokers   []string      `yaml:"brokers"`
	Topic     string        `yaml:"topic"`
	Partition int           `yaml:"partition"`
	MaxWait   time.Duration `yaml:"maxWait"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// BreakerThreshold consecutive Redis failures open the cache breaker for
	// BreakerCooldown.
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerCooldown  time.Duration `yaml:"breakerCooldown"`
}

// IndexerConfig controls how the corpus is built.
type IndexerConfig struct {
	// Workers > 1 tokenizes documents concurrently; the merge stays in
	// source order.
	Workers int `yaml:"workers"`
}

// SearchConfig controls query execution limits and timeouts.
type SearchConfig struct {
	MaxResults     int           `yaml:"maxResults"`
	DefaultLimit   int           `yaml:"defaultLimit"`
	ScoringWorkers int           `yaml:"scoringWorkers"`
	QueryTimeout   time.Duration `yaml:"queryTimeout"`
}

// CrawlerConfig bounds the link-discovery crawler.
type CrawlerConfig struct {
	MaxPages          int           `yaml:"maxPages"`
	MaxDepth          int           `yaml:"maxDepth"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"userAgent"`
	RespectRobots     bool          `yaml:"respectRobots"`
	SameHost          bool          `yaml:"sameHost"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations no component can run with.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceDirectory:
		if c.Source.Dir == "" {
			return fmt.Errorf("source.dir is required for the %s source", SourceDirectory)
		}
	case SourcePostgres:
		if c.Postgres.Table == "" {
			return fmt.Errorf("postgres.table is required for the %s source", SourcePostgres)
		}
	case SourceKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.brokers and kafka.topic are required for the %s source", SourceKafka)
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults < 0 {
		return fmt.Errorf("search limits must not be negative")
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local use.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateBurst:       20,
		},
		Source: SourceConfig{
			Kind:         SourceDirectory,
			Dir:          "./files",
			Includes:     []string{"*.txt"},
			ReadAttempts: 3,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "corpus",
			User:            "corpus",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "documents",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "corpus-documents",
			MaxWait: 500 * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,

			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Indexer: IndexerConfig{
			Workers: 1,
		},
		Search: SearchConfig{
			MaxResults:     100,
			DefaultLimit:   10,
			ScoringWorkers: 1,
			QueryTimeout:   5 * time.Second,
		},
		Crawler: CrawlerConfig{
			MaxPages:          100,
			MaxDepth:          3,
			RequestsPerSecond: 2,
			Timeout:           10 * time.Second,
			UserAgent:         "cosine-search-crawler/1.0",
			RespectRobots:     true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CS_SERVER_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = rps
		}
	}
	if v := os.Getenv("CS_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("CS_SOURCE_DIR"); v != "" {
		cfg.Source.Dir = v
	}
	if v := os.Getenv("CS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CS_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("CS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("CS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
