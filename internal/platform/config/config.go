// Package config loads service configuration from the environment, optionally
// overlaid on a YAML file named by EVIDEX_CONFIG. Environment values win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Content store modes.
const (
	ContentStoreMemory = "memory"
	ContentStoreGCS    = "gcs"
)

// Config is the complete service configuration.
type Config struct {
	Server     Server           `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Content    ContentConfig    `yaml:"content"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Production ProductionConfig `yaml:"production"`
	// Cases seeds the read-only case directory.
	Cases []CaseEntry `yaml:"cases"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects the store. An empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
}

// RedisConfig configures the Bates allocation lease. An empty URL uses the
// in-process lock.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LeaseTTL     time.Duration `yaml:"lease_ttl"`
}

// KafkaConfig configures custody event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

// Enabled reports whether custody events should be published.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// ContentConfig selects where evidence bytes live and how text is extracted.
type ContentConfig struct {
	Mode            string `yaml:"mode"`
	Bucket          string `yaml:"bucket"`
	Project         string `yaml:"project"`
	Location        string `yaml:"location"`
	Processor       string `yaml:"processor"`
	CredentialsFile string `yaml:"credentials_file"`
}

// PipelineConfig bounds the processing fan-out.
type PipelineConfig struct {
	Concurrency int           `yaml:"concurrency"`
	ItemTimeout time.Duration `yaml:"item_timeout"`
}

// ProductionConfig holds Bates defaults.
type ProductionConfig struct {
	DefaultPadWidth int `yaml:"default_pad_width"`
}

// CaseEntry is a display-only case directory record.
type CaseEntry struct {
	ID     string `yaml:"id"`
	Title  string `yaml:"title"`
	Client string `yaml:"client"`
}

// Default returns a Config with development defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			LogLevel:        "info",
			LogFormat:       "json",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 20,
			MaxIdleConns: 5,
			TxTimeout:    5 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			LeaseTTL:     10 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:    "evidex.custody",
			ClientID: "evidex",
		},
		Content: ContentConfig{
			Mode:     ContentStoreMemory,
			Location: "us",
		},
		Pipeline: PipelineConfig{
			Concurrency: 8,
			ItemTimeout: 30 * time.Second,
		},
		Production: ProductionConfig{
			DefaultPadWidth: 7,
		},
	}
}

// FromEnv builds the config: defaults, then the YAML file at EVIDEX_CONFIG if
// set, then individual environment variables.
func FromEnv() (Config, error) {
	cfg := Default()

	if path := os.Getenv("EVIDEX_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "EVIDEX_ADDR")
	setString(&c.Server.LogLevel, "LOG_LEVEL")
	setString(&c.Server.LogFormat, "LOG_FORMAT")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Redis.URL, "REDIS_URL")
	setDuration(&c.Redis.LeaseTTL, "BATES_LEASE_TTL")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	setString(&c.Kafka.Topic, "KAFKA_CUSTODY_TOPIC")
	setString(&c.Content.Mode, "CONTENT_STORE")
	setString(&c.Content.Bucket, "GCS_BUCKET")
	setString(&c.Content.Project, "GCP_PROJECT")
	setString(&c.Content.Location, "DOCUMENTAI_LOCATION")
	setString(&c.Content.Processor, "DOCUMENTAI_PROCESSOR")
	setString(&c.Content.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	setInt(&c.Pipeline.Concurrency, "PIPELINE_CONCURRENCY")
	setDuration(&c.Pipeline.ItemTimeout, "PIPELINE_ITEM_TIMEOUT")
	setInt(&c.Production.DefaultPadWidth, "BATES_PAD_WIDTH")
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Content.Mode {
	case ContentStoreMemory:
	case ContentStoreGCS:
		if c.Content.Bucket == "" {
			return fmt.Errorf("content.bucket is required when content.mode is %q", ContentStoreGCS)
		}
	default:
		return fmt.Errorf("unknown content.mode %q", c.Content.Mode)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1")
	}
	if c.Pipeline.ItemTimeout <= 0 {
		return fmt.Errorf("pipeline.item_timeout must be positive")
	}
	if c.Production.DefaultPadWidth < 1 || c.Production.DefaultPadWidth > 12 {
		return fmt.Errorf("production.default_pad_width must be between 1 and 12")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Malformed numeric values are ignored so a typo falls back to the file/default.
func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
