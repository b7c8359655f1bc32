package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Environment       string         `mapstructure:"ENV"`
	LogLevel          string         `mapstructure:"LOG_LEVEL"`
	AppPort           string         `mapstructure:"APP_PORT"`
	DBDSN             string         `mapstructure:"DB_DSN"`
	SessionStore      string         `mapstructure:"SESSION_STORE"`
	MongoURI          string         `mapstructure:"MONGO_URI"`
	MongoDatabase     string         `mapstructure:"MONGO_DATABASE"`
	RedisAddr         string         `mapstructure:"REDIS_ADDR"`
	RedisPassword     string         `mapstructure:"REDIS_PASSWORD"`
	RedisDB           int            `mapstructure:"REDIS_DB"`
	TelegramToken     string         `mapstructure:"TELEGRAM_TOKEN"`
	JWTSecret         string         `mapstructure:"JWT_SECRET"`
	MaxRequestsPerMin int            `mapstructure:"MAX_REQUESTS_PER_MIN"`
	Timezone          string         `mapstructure:"TIMEZONE"`
	CompletionEvery   time.Duration  `mapstructure:"COMPLETION_INTERVAL"`
	PendingCacheTTL   time.Duration  `mapstructure:"PENDING_CACHE_TTL"`
	CORSOrigins       []string       `mapstructure:"CORS_ORIGINS"`
	Studios           []model.Studio `mapstructure:"studios"`
}

// Load reads .env (if present), then config.yaml (if present) and the
// environment. Environment variables win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return load(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("SESSION_STORE", StorePostgres)
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "studio_scheduler")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TELEGRAM_TOKEN", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("COMPLETION_INTERVAL", "1h")
	v.SetDefault("PENDING_CACHE_TTL", "10m")
	v.SetDefault("CORS_ORIGINS", []string{"*"})
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreMemory:
	case StorePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case StoreMongo:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for SESSION_STORE=mongo")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.CompletionEvery <= 0 {
		return fmt.Errorf("COMPLETION_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location returns the configured time zone; Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}
