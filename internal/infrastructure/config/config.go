package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Port     string `env:"PORT,      default=5000"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// AllowedOrigins is a comma separated CORS allow-list.
	AllowedOrigins string `env:"ALLOWED_ORIGINS, default=*"`

	Auth       AuthConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Generation GenerationConfig
}

type AuthConfig struct {
	JWTSecret   string        `env:"JWT_SECRET"`
	RegisterTTL time.Duration `env:"REGISTER_TOKEN_TTL, default=24h"`
	LoginTTL    time.Duration `env:"LOGIN_TOKEN_TTL,    default=168h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=mini-ai-studio"`
}

// RedisConfig is optional: an empty Addr disables the recent cache.
type RedisConfig struct {
	Addr      string        `env:"REDIS_ADDR"`
	Password  string        `env:"REDIS_PASSWORD"`
	DB        int           `env:"REDIS_DB,         default=0"`
	RecentTTL time.Duration `env:"RECENT_CACHE_TTL, default=60s"`
}

type StorageConfig struct {
	Driver         string `env:"STORAGE_DRIVER,   default=local"`
	UploadDir      string `env:"UPLOAD_DIR,       default=uploads"`
	PublicBasePath string `env:"PUBLIC_BASE_PATH, default=/uploads"`
	MaxUploadBytes int64  `env:"UPLOAD_MAX_BYTES, default=5242880"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION, default=us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`
}

type GenerationConfig struct {
	Delay       time.Duration `env:"GENERATION_DELAY,        default=2s"`
	FailureRate float64       `env:"GENERATION_FAILURE_RATE, default=0"`
	Timeout     time.Duration `env:"GENERATION_TIMEOUT,      default=30s"`
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "test")
}

// Origins splits AllowedOrigins into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.Auth.JWTSecret = devJWTSecret
	}

	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if c.Generation.FailureRate < 0 || c.Generation.FailureRate > 1 {
		return errors.New("GENERATION_FAILURE_RATE must be between 0 and 1")
	}
	return nil
}
