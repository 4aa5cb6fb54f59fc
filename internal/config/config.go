package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Inference InferenceConfig
	Database  DatabaseConfig
	S3        S3Config
	Archive   ArchiveConfig
	App       AppConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type InferenceConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
}

type ArchiveConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type AppConfig struct {
	MaxUploadSize int64
	LogLevel      string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("SERVER_HOST", "127.0.0.1")
	v.SetDefault("SERVER_PORT", "8001")
	v.SetDefault("ML_SERVICE", "http://127.0.0.1:8000")
	v.SetDefault("INFERENCE_TIMEOUT", 30*time.Second)
	v.SetDefault("INFERENCE_MAX_RETRIES", 2)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_QUERY_TIMEOUT", 5*time.Second)
	v.SetDefault("S3_ENDPOINT", "localhost:9000")
	v.SetDefault("S3_ACCESS_KEY_ID", "minioadmin")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("S3_BUCKET_NAME", "images")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("ARCHIVE_WORKERS", 4)
	v.SetDefault("ARCHIVE_QUEUE_SIZE", 64)
	v.SetDefault("ARCHIVE_TIMEOUT", 30*time.Second)
	v.SetDefault("APP_MAX_UPLOAD_SIZE", 10*1024*1024) // 10MB
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetString("SERVER_PORT"),
		},
		Inference: InferenceConfig{
			BaseURL:    v.GetString("ML_SERVICE"),
			Timeout:    v.GetDuration("INFERENCE_TIMEOUT"),
			MaxRetries: v.GetInt("INFERENCE_MAX_RETRIES"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			QueryTimeout:    v.GetDuration("DB_QUERY_TIMEOUT"),
		},
		S3: S3Config{
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UseSSL:          v.GetBool("S3_USE_SSL"),
			BucketName:      v.GetString("S3_BUCKET_NAME"),
			Region:          v.GetString("S3_REGION"),
		},
		Archive: ArchiveConfig{
			Workers:   v.GetInt("ARCHIVE_WORKERS"),
			QueueSize: v.GetInt("ARCHIVE_QUEUE_SIZE"),
			Timeout:   v.GetDuration("ARCHIVE_TIMEOUT"),
		},
		App: AppConfig{
			MaxUploadSize: v.GetInt64("APP_MAX_UPLOAD_SIZE"),
			LogLevel:      v.GetString("LOG_LEVEL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Inference.BaseURL == "" {
		errs = append(errs, errors.New("ML_SERVICE is required"))
	}
	if c.Inference.Timeout <= 0 {
		errs = append(errs, errors.New("INFERENCE_TIMEOUT must be positive"))
	}
	if c.Inference.MaxRetries < 0 {
		errs = append(errs, errors.New("INFERENCE_MAX_RETRIES must not be negative"))
	}
	if c.Database.QueryTimeout <= 0 {
		errs = append(errs, errors.New("DB_QUERY_TIMEOUT must be positive"))
	}
	if c.S3.BucketName == "" {
		errs = append(errs, errors.New("S3_BUCKET_NAME is required"))
	}
	if c.Archive.Workers <= 0 {
		errs = append(errs, errors.New("ARCHIVE_WORKERS must be positive"))
	}
	if c.Archive.QueueSize <= 0 {
		errs = append(errs, errors.New("ARCHIVE_QUEUE_SIZE must be positive"))
	}
	if c.Archive.Timeout <= 0 {
		errs = append(errs, errors.New("ARCHIVE_TIMEOUT must be positive"))
	}
	if c.App.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("APP_MAX_UPLOAD_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
