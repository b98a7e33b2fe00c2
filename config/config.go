package config

import (
	"errors"
	"net"
	"os"
	"time"

	"catalogadmin/images"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port           string        `envconfig:"PORT"                    default:"8000"`
	BackendURL     string        `envconfig:"CATALOG_BACKEND_URL"     default:"http://localhost:3000"`
	BackendTimeout time.Duration `envconfig:"CATALOG_BACKEND_TIMEOUT" default:"10s"`
	LogLevel       string        `envconfig:"LOG_LEVEL"               default:"info"`

	// audit journal is disabled when empty
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`

	// lookup names stay in memory when REDIS_HOST is empty
	RedisHost string        `envconfig:"REDIS_HOST"`
	RedisPort string        `envconfig:"REDIS_PORT" default:"6379"`
	LookupTTL time.Duration `envconfig:"LOOKUP_TTL" default:"30m"`

	ImageDriver   string          `envconfig:"IMAGE_DRIVER"    default:"memory"`
	ImageRoot     string          `envconfig:"IMAGE_FS_ROOT"   default:"./imagedata"`
	ImageMaxBytes int64           `envconfig:"IMAGE_MAX_BYTES" default:"5242880"`
	S3            images.S3Config `envconfig:"IMAGE_S3"`

	NoticeLimit int `envconfig:"NOTICE_LIMIT" default:"50"`
}

// Load reads .env when present, then the environment.
func Load(logger logrus.FieldLogger) (*Config, error) {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		logger.Warnf("Error loading .env file (but continuing): %v", err)
	} else if err == nil {
		logger.Info("Loaded configuration from .env file")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.BackendURL == "" {
		return nil, errors.New("CATALOG_BACKEND_URL is empty")
	}
	if cfg.BackendTimeout <= 0 {
		return nil, errors.New("CATALOG_BACKEND_TIMEOUT must be positive")
	}

	logger.Infof("Configuration loaded: Port=%s, Backend=%s, LogLevel=%s, ImageDriver=%s",
		cfg.Port, cfg.BackendURL, cfg.LogLevel, cfg.ImageDriver)
	return &cfg, nil
}

// RedisAddr is "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

func (c *Config) Images() images.Options {
	return images.Options{
		Driver: images.Driver(c.ImageDriver),
		Root:   c.ImageRoot,
		S3:     c.S3,
	}
}

func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
