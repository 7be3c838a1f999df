package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string `env:"DB_DRIVER"   env-default:"mysql"`
	DBHost     string `env:"DB_HOST"     env-default:"localhost"`
	DBPort     string `env:"DB_PORT"     env-default:"3306"`
	DBUser     string `env:"DB_USER"     env-default:"taskuser"`
	DBPassword string `env:"DB_PASSWORD" env-default:"taskpassword"`
	DBName     string `env:"DB_NAME"     env-default:"task_management"`

	RedisHost     string `env:"REDIS_HOST"     env-default:"localhost"`
	RedisPort     string `env:"REDIS_PORT"     env-default:"6379"`
	SessionSecret string `env:"SESSION_SECRET" env-default:"default-secret-key-change-me"`

	GinMode            string   `env:"GIN_MODE"             env-default:"debug"`
	ServerPort         string   `env:"SERVER_PORT"          env-default:"8080"`
	LogLevel           string   `env:"LOG_LEVEL"            env-default:"info"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000,http://localhost:5173" env-separator:","`

	// Membership snapshots older than AccessCacheTTL are refetched.
	AccessCacheSize   int           `env:"ACCESS_CACHE_SIZE"   env-default:"1024"`
	AccessCacheTTL    time.Duration `env:"ACCESS_CACHE_TTL"    env-default:"30s"`
	AccessLoadTimeout time.Duration `env:"ACCESS_LOAD_TIMEOUT" env-default:"5s"`

	InvitationTTL           time.Duration `env:"INVITATION_TTL"            env-default:"168h"`
	InvitationSweepSchedule string        `env:"INVITATION_SWEEP_SCHEDULE" env-default:"@hourly"`
}

// IsProduction reports whether the server runs in gin release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional; real deployments inject variables directly
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	switch cfg.DBDriver {
	case "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	return &cfg, nil
}
