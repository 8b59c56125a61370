package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/wb-go/wbf/retry"
)

const defaultConfigPath = "config/local.yaml"

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	Server    ServerConfig    `yaml:"server"`
	Scratch   ScratchConfig   `yaml:"scratch"`
	Converter ConverterConfig `yaml:"converter"`
	Upload    UploadConfig    `yaml:"upload"`
	Session   SessionConfig   `yaml:"session"`
	Retry     RetryConfig     `yaml:"retry"`
	Storage   StorageConfig   `yaml:"storage"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	DB        DBConfig        `yaml:"db"`
	Worker    WorkerConfig    `yaml:"worker"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"10m"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type ScratchConfig struct {
	Dir string `yaml:"dir" env:"SCRATCH_DIR" env-default:"temp"`
}

type ConverterConfig struct {
	Binary        string        `yaml:"binary" env:"CONVERTER_BINARY" env-default:"pdf2docx"`
	BasicZoom     float64       `yaml:"basic_zoom" env:"CONVERTER_BASIC_ZOOM" env-default:"1.0"`
	FormattedZoom float64       `yaml:"formatted_zoom" env:"CONVERTER_FORMATTED_ZOOM" env-default:"1.5"`
	Timeout       time.Duration `yaml:"timeout" env:"CONVERTER_TIMEOUT" env-default:"0s"`
}

type UploadConfig struct {
	MaxFileSize  int64 `yaml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE" env-default:"10485760"`
	MaxBatchSize int64 `yaml:"max_batch_size" env:"UPLOAD_MAX_BATCH_SIZE" env-default:"104857600"`
	HistoryLimit int   `yaml:"history_limit" env:"UPLOAD_HISTORY_LIMIT" env-default:"5"`
}

type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"pdfrocket_session"`
	TTL           time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"30m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
}

type RetryConfig struct {
	Attempts int           `yaml:"attempts" env:"RETRY_ATTEMPTS" env-default:"3"`
	Delay    time.Duration `yaml:"delay" env:"RETRY_DELAY" env-default:"200ms"`
	Backoff  float64       `yaml:"backoff" env:"RETRY_BACKOFF" env-default:"2"`
}

type StorageConfig struct {
	Enabled   bool   `yaml:"enabled" env:"STORAGE_ENABLED" env-default:"false"`
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"converted"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers     []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	EventsTopic string   `yaml:"events_topic" env:"KAFKA_EVENTS_TOPIC" env-default:"pdf-conversions"`
	GroupID     string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"pdf-rocket-recorder"`
}

type DBConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"DB_PASSWORD" env-default:"postgres"`
	Name            string        `yaml:"name" env:"DB_NAME" env-default:"pdf_rocket"`
	SSLMode         string        `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"2"`
}

// MustLoad reads the YAML file named by CONFIG_PATH (config/local.yaml when unset).
// A missing file is not an error: environment variables and defaults are used instead.
func MustLoad() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from env: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Upload.MaxFileSize <= 0 {
		return errors.New("upload.max_file_size must be positive")
	}
	if c.Upload.HistoryLimit <= 0 {
		return errors.New("upload.history_limit must be positive")
	}
	if c.Converter.BasicZoom <= 0 || c.Converter.FormattedZoom <= 0 {
		return errors.New("converter zoom factors must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	return nil
}

func (c *Config) DefaultRetryStrategy() retry.Strategy {
	return retry.Strategy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
		Backoff:  c.Retry.Backoff,
	}
}

func (c *Config) DBDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
