package app

import (
	"fmt"

	clientredis "github.com/lecternfm/lectern-backend/internal/clients/redis"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/platform/s3"
)

type Clients struct {
	Bucket   s3.BucketService
	URLCache clientredis.URLCache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := s3.NewBucketService(cfg.S3, log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	urlCache, err := clientredis.NewURLCache(cfg.Redis, log)
	if err != nil {
		// Redis is an optimization. Presigning works without it.
		log.Warn("redis unavailable, presign cache disabled", "error", err)
		urlCache = nil
	}

	return Clients{Bucket: bucket, URLCache: urlCache}, nil
}
