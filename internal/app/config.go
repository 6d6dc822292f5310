package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"

	clientredis "github.com/lecternfm/lectern-backend/internal/clients/redis"
	"github.com/lecternfm/lectern-backend/internal/db"
	"github.com/lecternfm/lectern-backend/internal/middleware"
	"github.com/lecternfm/lectern-backend/internal/observability"
	"github.com/lecternfm/lectern-backend/internal/platform/s3"
	"github.com/lecternfm/lectern-backend/internal/services"
)

type Config struct {
	Env           string        `env:"APP_ENV" envDefault:"development"`
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"8080"`
	CORSOrigins   []string      `env:"HTTP_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
	ShutdownGrace time.Duration `env:"HTTP_SHUTDOWN_GRACE" envDefault:"15s"`

	DB     db.Config                  `envPrefix:"DB_"`
	S3     s3.Config                  `envPrefix:"S3_"`
	Auth   services.TokenConfig       `envPrefix:"AUTH_"`
	Stream services.DeliveryConfig    `envPrefix:"STREAM_"`
	Redis  clientredis.Config         `envPrefix:"REDIS_"`
	Rate   middleware.RateLimitConfig // field tags carry full names
	OTel   observability.Config       `envPrefix:"OTEL_"`
}

func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
