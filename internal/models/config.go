package models

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr     string         `yaml:"server_addr"`
	LogMode        string         `yaml:"log_mode"`
	MaxUploadBytes int64          `yaml:"max_upload_bytes"`
	Storage        StorageConfig  `yaml:"storage"`
	Blobs          BlobConfig     `yaml:"blobs"`
	Queue          QueueConfig    `yaml:"queue"`
	Caption        CaptionConfig  `yaml:"caption"`
	Publish        PublishConfig  `yaml:"publish"`
	Workflow       WorkflowConfig `yaml:"workflow"`
	Tracing        TracingConfig  `yaml:"tracing"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory, file, postgres, redis
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type BlobConfig struct {
	Driver string `yaml:"driver"` // local, gcs
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type QueueConfig struct {
	Driver       string   `yaml:"driver"` // memory, kafka
	Workers      int      `yaml:"workers"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	KafkaGroup   string   `yaml:"kafka_group"`
}

type CaptionConfig struct {
	Provider string        `yaml:"provider"` // static, openai, gemini
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	BaseURL  string        `yaml:"base_url"`
	Text     string        `yaml:"text"`
	Timeout  time.Duration `yaml:"timeout"`
}

type PublishConfig struct {
	Network string `yaml:"network"`
}

type WorkflowConfig struct {
	RequireApproval   bool `yaml:"require_approval"`
	GenerationWorkers int  `yaml:"generation_workers"`
	// MaxUploadPixels caps width*height of an upload; zero means
	// DefaultMaxUploadPixels.
	MaxUploadPixels int64 `yaml:"max_upload_pixels"`
}

const DefaultMaxUploadPixels = 40_000_000

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // otlp, stdout
	ServiceName string `yaml:"service_name"`
}

// DefaultConfig is an in-memory setup suitable for local runs and tests.
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:     ":8080",
		LogMode:        "development",
		MaxUploadBytes: 10 << 20,
		Storage: StorageConfig{
			Driver:      "memory",
			Path:        "./data/records",
			RedisPrefix: "photocurate",
		},
		Blobs: BlobConfig{
			Driver: "local",
			Path:   "./data/files",
		},
		Queue: QueueConfig{
			Driver:     "memory",
			Workers:    2,
			KafkaTopic: "photo-variations",
			KafkaGroup: "variation-generator-group",
		},
		Caption: CaptionConfig{
			Provider: "static",
			Model:    "gpt-4o-mini",
			Timeout:  15 * time.Second,
		},
		Publish: PublishConfig{
			Network: "mock",
		},
		Workflow: WorkflowConfig{
			GenerationWorkers: 5,
			MaxUploadPixels:   DefaultMaxUploadPixels,
		},
		Tracing: TracingConfig{
			Exporter:    "otlp",
			ServiceName: "photocurate",
		},
	}
}

// LoadConfig reads a YAML file over the defaults and applies environment
// overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	const op = "models.LoadConfig"

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ServerAddr, "SERVER_ADDR")
	setString(&c.LogMode, "LOG_MODE")
	setString(&c.Storage.Driver, "STORAGE_DRIVER")
	setString(&c.Storage.DatabaseURL, "DATABASE_URL")
	setString(&c.Storage.RedisAddr, "REDIS_ADDR")
	setString(&c.Blobs.Driver, "BLOB_DRIVER")
	setString(&c.Blobs.Bucket, "GCS_BUCKET_NAME")
	setString(&c.Queue.Driver, "QUEUE_DRIVER")
	setString(&c.Caption.Provider, "CAPTION_PROVIDER")
	setString(&c.Caption.APIKey, "CAPTION_API_KEY")
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		c.Queue.KafkaBrokers = strings.Split(v, ",")
	}
	if v := strings.TrimSpace(os.Getenv("MAX_UPLOAD_BYTES")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxUploadBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_UPLOAD_PIXELS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Workflow.MaxUploadPixels = n
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory", "file":
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for postgres"))
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("storage.redis_addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	switch c.Blobs.Driver {
	case "local":
	case "gcs":
		if c.Blobs.Bucket == "" {
			errs = append(errs, errors.New("blobs.bucket is required for gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blobs.Driver))
	}
	switch c.Queue.Driver {
	case "memory":
	case "kafka":
		if len(c.Queue.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("queue.kafka_brokers is required for kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue driver %q", c.Queue.Driver))
	}
	if c.Tracing.Enabled && c.Tracing.Exporter != "otlp" && c.Tracing.Exporter != "stdout" {
		errs = append(errs, fmt.Errorf("unknown tracing exporter %q", c.Tracing.Exporter))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be positive"))
	}
	if c.Workflow.MaxUploadPixels < 0 {
		errs = append(errs, errors.New("workflow.max_upload_pixels must not be negative"))
	}
	return errors.Join(errs...)
}
