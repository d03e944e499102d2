// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Storage, Postgres, Mongo, Redis, Kafka, Crawler, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Storage backends accepted by StorageConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendSQLite   = "sqlite"
)

// Term lock modes accepted by IndexerConfig.Lock.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Crawler sinks accepted by CrawlerConfig.Sink.
const (
	SinkHTTP  = "http"
	SinkKafka = "kafka"
)

// MaxSearchResults is the hard cap on the number of urls a search returns.
const MaxSearchResults = 25

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Memory    MemoryConfig    `yaml:"memory"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Mongo     MongoConfig     `yaml:"mongo"`
	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Search    SearchConfig    `yaml:"search"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
	Client    ClientConfig    `yaml:"client"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StorageConfig selects the posting store backend. Timeout bounds every
// individual storage call; zero leaves only the caller's deadline.
type StorageConfig struct {
	Backend string        `yaml:"backend"`
	Timeout time.Duration `yaml:"timeout"`
}

// MemoryConfig holds the optional snapshot file of the in-memory backend.
// An empty SnapshotPath keeps the index purely in memory.
type MemoryConfig struct {
	SnapshotPath string `yaml:"snapshotPath"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// MongoConfig holds MongoDB connection parameters and collection names.
type MongoConfig struct {
	URI                 string        `yaml:"uri"`
	Database            string        `yaml:"database"`
	IndexCollection     string        `yaml:"indexCollection"`
	DocumentsCollection string        `yaml:"documentsCollection"`
	ConnectTimeout      time.Duration `yaml:"connectTimeout"`
}

// SQLiteConfig holds the on-disk location of the SQLite posting store.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis connection and term-lock parameters.
type RedisConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"poolSize"`
	LockTTL      time.Duration `yaml:"lockTTL"`
	LockRetry    time.Duration `yaml:"lockRetry"`
	LockKeySpace string        `yaml:"lockKeySpace"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest  string `yaml:"documentIngest"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// IndexerConfig controls how the index updater serializes and fans out term
// upserts.
type IndexerConfig struct {
	TermConcurrency int    `yaml:"termConcurrency"`
	Lock            string `yaml:"lock"`
}

// SearchConfig controls the searcher service: its listen ports and query
// execution limits. Server.Port belongs to the indexer.
type SearchConfig struct {
	Port             int `yaml:"port"`
	MetricsPort      int `yaml:"metricsPort"`
	MaxResults       int `yaml:"maxResults"`
	FetchConcurrency int `yaml:"fetchConcurrency"`
}

// CrawlerConfig controls the seed list, schedule and politeness of the
// crawler, and where crawled documents are delivered.
type CrawlerConfig struct {
	Seeds         []string      `yaml:"seeds"`
	Interval      time.Duration `yaml:"interval"`
	Workers       int           `yaml:"workers"`
	RatePerSecond float64       `yaml:"ratePerSecond"`
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`
	FetchAttempts int           `yaml:"fetchAttempts"`
	UserAgent     string        `yaml:"userAgent"`
	Sink          string        `yaml:"sink"`
}

// ClientConfig holds the base URLs used by the crawler and searchctl to reach
// the indexer and searcher services.
type ClientConfig struct {
	IndexerURL  string        `yaml:"indexerUrl"`
	SearcherURL string        `yaml:"searcherUrl"`
	Timeout     time.Duration `yaml:"timeout"`
}

// AnalyticsConfig controls search/index event collection.
type AnalyticsConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"bufferSize"`
	// Port is used by the standalone analytics service only.
	Port int `yaml:"port"`
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
// missing values. A missing file at path is not an error so services can run
// from defaults and SP_* variables alone.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var err error
	switch c.Storage.Backend {
	case BackendMemory, BackendPostgres, BackendMongo, BackendSQLite:
	default:
		err = multierror.Append(err, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Storage.Backend == BackendSQLite && c.SQLite.Path == "" {
		err = multierror.Append(err, errors.New("sqlite path has not been specified"))
	}
	if c.Storage.Backend == BackendMongo && c.Mongo.URI == "" {
		err = multierror.Append(err, errors.New("mongo uri has not been specified"))
	}
	switch c.Indexer.Lock {
	case LockLocal:
	case LockRedis:
		if !c.Redis.Enabled {
			err = multierror.Append(err, errors.New("redis term lock requires redis.enabled"))
		}
		// A term's critical section is one read and one write, each bounded
		// by storage.timeout.
		if c.Redis.LockTTL <= 2*c.Storage.Timeout {
			err = multierror.Append(err, fmt.Errorf("redis lockTTL %s must exceed twice storage.timeout (%s)", c.Redis.LockTTL, 2*c.Storage.Timeout))
		}
	default:
		err = multierror.Append(err, fmt.Errorf("unknown indexer lock %q", c.Indexer.Lock))
	}
	if c.Indexer.TermConcurrency < 1 {
		err = multierror.Append(err, errors.New("indexer termConcurrency must be at least 1"))
	}
	if c.Search.MaxResults < 1 || c.Search.MaxResults > MaxSearchResults {
		err = multierror.Append(err, fmt.Errorf("search maxResults must be between 1 and %d", MaxSearchResults))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		err = multierror.Append(err, errors.New("kafka enabled without brokers"))
	}
	switch c.Crawler.Sink {
	case SinkHTTP:
	case SinkKafka:
		if !c.Kafka.Enabled {
			err = multierror.Append(err, errors.New("kafka crawler sink requires kafka.enabled"))
		}
	default:
		err = multierror.Append(err, fmt.Errorf("unknown crawler sink %q", c.Crawler.Sink))
	}
	if c.Crawler.Workers < 1 {
		err = multierror.Append(err, errors.New("crawler workers must be at least 1"))
	}
	return err
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            7001,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			Timeout: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "asuracrow",
			User:            "asuracrow",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Mongo: MongoConfig{
			URI:                 "mongodb://localhost:27017",
			Database:            "AsuraCrow_DB",
			IndexCollection:     "index",
			DocumentsCollection: "websites",
			ConnectTimeout:      10 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "data/index.db",
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			LockTTL:      30 * time.Second,
			LockRetry:    10 * time.Millisecond,
			LockKeySpace: "asuracrow:termlock:",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "asuracrow-indexer",
			Topics: KafkaTopics{
				DocumentIngest:  "document-ingest",
				AnalyticsEvents: "analytics-events",
			},
		},
		Indexer: IndexerConfig{
			TermConcurrency: 8,
			Lock:            LockLocal,
		},
		Search: SearchConfig{
			Port:             7002,
			MetricsPort:      9091,
			MaxResults:       MaxSearchResults,
			FetchConcurrency: 4,
		},
		Crawler: CrawlerConfig{
			Interval:      5 * time.Minute,
			Workers:       16,
			RatePerSecond: 2,
			FetchTimeout:  15 * time.Second,
			FetchAttempts: 3,
			UserAgent:     "AsuraCrow/1.0",
			Sink:          SinkHTTP,
		},
		Client: ClientConfig{
			IndexerURL:  "http://localhost:7001",
			SearcherURL: "http://localhost:7002",
			Timeout:     30 * time.Second,
		},
		Analytics: AnalyticsConfig{
			BufferSize: 10000,
			Port:       7003,
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

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_SEARCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Search.Port = port
		}
	}
	if v := os.Getenv("SP_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("SP_STORAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Storage.Timeout = d
		}
	}
	if v := os.Getenv("SP_MEMORY_SNAPSHOT_PATH"); v != "" {
		cfg.Memory.SnapshotPath = v
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SP_MONGO_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("SP_MONGO_DATABASE"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("SP_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("SP_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_INDEXER_LOCK"); v != "" {
		cfg.Indexer.Lock = v
	}
	if v := os.Getenv("SP_CRAWLER_SEEDS"); v != "" {
		cfg.Crawler.Seeds = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_CRAWLER_SINK"); v != "" {
		cfg.Crawler.Sink = v
	}
	if v := os.Getenv("SP_CLIENT_INDEXER_URL"); v != "" {
		cfg.Client.IndexerURL = v
	}
	if v := os.Getenv("SP_CLIENT_SEARCHER_URL"); v != "" {
		cfg.Client.SearcherURL = v
	}
	if v := os.Getenv("SP_ANALYTICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
