package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Database  Database  `yaml:"database"`
	Queue     Queue     `yaml:"queue"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Facebook  Facebook  `yaml:"facebook"`
	Instagram Instagram `yaml:"instagram"`
	S3        S3        `yaml:"s3"`
}

// Server holds HTTP server configuration
type Server struct {
	Host         string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// Address returns the full server address
func (s Server) Address() string {
	return s.Host + ":" + s.Port
}

// Database holds database configuration
type Database struct {
	PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`

	MaxConns int           `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"25"`
	MinConns int           `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"5"`
	Lifetime time.Duration `yaml:"conn_lifetime" env:"DB_CONN_LIFETIME" env-default:"5m"`
}

// Queue holds publishing queue configuration
type Queue struct {
	Enabled    bool          `yaml:"enabled" env:"QUEUE_ENABLED" env-default:"true"`
	Interval   time.Duration `yaml:"interval" env:"QUEUE_INTERVAL" env-default:"30s"`
	BatchSize  int           `yaml:"batch_size" env:"QUEUE_BATCH_SIZE" env-default:"10"`
	StaleAfter time.Duration `yaml:"stale_after" env:"QUEUE_STALE_AFTER" env-default:"10m"`
}

// RateLimit holds per-platform outbound request limits
type RateLimit struct {
	FacebookMaxRequests  int           `yaml:"facebook_max_requests" env:"RATE_FACEBOOK_MAX" env-default:"200"`
	FacebookWindow       time.Duration `yaml:"facebook_window" env:"RATE_FACEBOOK_WINDOW" env-default:"1h"`
	InstagramMaxRequests int           `yaml:"instagram_max_requests" env:"RATE_INSTAGRAM_MAX" env-default:"100"`
	InstagramWindow      time.Duration `yaml:"instagram_window" env:"RATE_INSTAGRAM_WINDOW" env-default:"1h"`
}

// Facebook holds Facebook Graph API configuration
type Facebook struct {
	BaseURL    string `yaml:"base_url" env:"FACEBOOK_BASE_URL" env-default:"https://graph.facebook.com"`
	APIVersion string `yaml:"api_version" env:"FACEBOOK_API_VERSION" env-default:"v21.0"`
}

// Instagram holds Instagram API configuration
type Instagram struct {
	BaseURL    string `yaml:"base_url" env:"INSTAGRAM_BASE_URL" env-default:"https://graph.instagram.com"`
	APIVersion string `yaml:"api_version" env:"INSTAGRAM_API_VERSION" env-default:"v21.0"`
}

// S3 holds S3/MinIO storage configuration
type S3 struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:"http://localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET" env-default:"media"`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	PublicURL       string `yaml:"public_url" env:"S3_PUBLIC_URL" env-default:"http://localhost:9000/media"`
}

// MustLoad loads configuration from environment and panics on error
func MustLoad() Config {
	// Load .env file if exists (for development)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
