// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Index, Ingest, Search, Redis, Kafka, Postgres, etc.).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given explicitly.
const DefaultPath = "textsearch.yaml"

// Config is the top-level application configuration.
type Config struct {
	Index    IndexConfig    `yaml:"index"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Search   SearchConfig   `yaml:"search"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// IndexConfig controls where the index lives, which content language it is
// analyzed with, and the segment merge policy applied at commit.
type IndexConfig struct {
	DataDir                string `yaml:"dataDir"`
	Language               string `yaml:"language"`
	MaxSegmentsBeforeMerge int    `yaml:"maxSegmentsBeforeMerge"`
	MaxDocumentSize        int    `yaml:"maxDocumentSize"`
}

// IngestConfig selects the document source and how the directory source
// scans and reads files.
type IngestConfig struct {
	Source        string        `yaml:"source"`
	DocsDir       string        `yaml:"docsDir"`
	Include       string        `yaml:"include"`
	Workers       int           `yaml:"workers"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
}

// SearchConfig controls result limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit"`
	MaxResults   int `yaml:"maxResults"`
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

// RedisConfig holds Redis connection and query caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings for the kafka source.
type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	IdleTimeout   time.Duration `yaml:"idleTimeout"`
	Topics        KafkaTopics   `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
}

// PostgresConfig holds PostgreSQL connection parameters and the query the
// postgres source reads documents with.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	DocumentsQuery  string        `yaml:"documentsQuery"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. A missing DefaultPath is not an error; any other missing path is.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Index.DataDir) == "" {
		problems = append(problems, "index.dataDir is required")
	}
	switch c.Index.Language {
	case "italian", "english":
	default:
		problems = append(problems, fmt.Sprintf("index.language %q is not supported (italian, english)", c.Index.Language))
	}
	switch c.Ingest.Source {
	case "dir", "kafka", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("ingest.source %q is not supported (dir, kafka, postgres)", c.Ingest.Source))
	}
	if c.Ingest.Workers < 1 {
		problems = append(problems, "ingest.workers must be at least 1")
	}
	if c.Search.DefaultLimit < 1 {
		problems = append(problems, "search.defaultLimit must be at least 1")
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		problems = append(problems, "search.maxResults must not be below search.defaultLimit")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// defaultConfig returns a Config matching the layout of a local checkout:
// documents under ./documents, the index under ./index.
func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			DataDir:                "index",
			Language:               "italian",
			MaxSegmentsBeforeMerge: 10,
			MaxDocumentSize:        16 << 20,
		},
		Ingest: IngestConfig{
			Source:        "dir",
			DocsDir:       "documents",
			Include:       "*.txt",
			Workers:       4,
			WatchDebounce: 500 * time.Millisecond,
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "textsearch-indexer",
			IdleTimeout:   5 * time.Second,
			Topics: KafkaTopics{
				DocumentIngest: "document-ingest",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "textsearch",
			User:            "textsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			DocumentsQuery:  "SELECT filename, content FROM documents ORDER BY filename",
		},
	}
}

// applyEnvOverrides reads FTS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FTS_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("FTS_INDEX_LANGUAGE"); v != "" {
		cfg.Index.Language = strings.ToLower(v)
	}
	if v := os.Getenv("FTS_INDEX_MAX_SEGMENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.MaxSegmentsBeforeMerge = n
		}
	}
	if v := os.Getenv("FTS_INGEST_SOURCE"); v != "" {
		cfg.Ingest.Source = v
	}
	if v := os.Getenv("FTS_INGEST_DOCS_DIR"); v != "" {
		cfg.Ingest.DocsDir = v
	}
	if v := os.Getenv("FTS_INGEST_INCLUDE"); v != "" {
		cfg.Ingest.Include = v
	}
	if v := os.Getenv("FTS_INGEST_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.Workers = n
		}
	}
	if v := os.Getenv("FTS_SEARCH_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("FTS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FTS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FTS_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("FTS_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("FTS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FTS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FTS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FTS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FTS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FTS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FTS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FTS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
}
