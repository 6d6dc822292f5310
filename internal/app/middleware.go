package app

import (
	"github.com/lecternfm/lectern-backend/internal/middleware"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
)

type Middleware struct {
	Auth        *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter
}

func wireMiddleware(log *logger.Logger, cfg Config, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:        middleware.NewAuthMiddleware(log, services.Tokens, services.Auth),
		RateLimiter: middleware.NewRateLimiter(log, cfg.Rate),
	}
}
