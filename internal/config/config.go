package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/Codewithkaranja/Unipro-RealEstate/internal/adapter/messaging/nats"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/adapter/repository/cache"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/adapter/repository/mongodb"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/adapter/storage/minio"
	"github.com/Codewithkaranja/Unipro-RealEstate/internal/platform/logger"
)

type HTTPServer struct {
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
	// MaxBodyBytes caps request bodies; defaults leave room for a full
	// ten-image multipart upload.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" env-default:"62914560"`
}

type Media struct {
	Folder        string        `yaml:"folder" env:"MEDIA_FOLDER" env-default:"listings"`
	UploadTimeout time.Duration `yaml:"upload_timeout" env:"MEDIA_UPLOAD_TIMEOUT" env-default:"30s"`
}

type RateLimit struct {
	Max          int           `yaml:"max" env:"RATE_LIMIT_MAX" env-default:"100"`
	Window       time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	UploadMax    int           `yaml:"upload_max" env:"RATE_LIMIT_UPLOAD_MAX" env-default:"20"`
	UploadWindow time.Duration `yaml:"upload_window" env:"RATE_LIMIT_UPLOAD_WINDOW" env-default:"1m"`
}

type Listing struct {
	DefaultWhatsapp string `yaml:"default_whatsapp" env:"LISTING_DEFAULT_WHATSAPP" env-default:"254705917383"`
}

type Config struct {
	Env        string         `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTPServer HTTPServer     `yaml:"http_server"`
	Mongo      mongodb.Config `yaml:"mongo"`
	Redis      cache.Config   `yaml:"redis"`
	NATS       nats.Config    `yaml:"nats"`
	Minio      minio.Config   `yaml:"minio"`
	Media      Media          `yaml:"media"`
	RateLimit  RateLimit      `yaml:"rate_limit"`
	Listing    Listing        `yaml:"listing"`
	Logger     logger.Config  `yaml:"logger"`
}

// Load reads an optional .env file, then an optional yaml config named by
// CONFIG_PATH, and finally the environment on top.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load with a fatal exit, for use from main.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	return cfg
}
