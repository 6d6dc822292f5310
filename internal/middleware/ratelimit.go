package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/lecternfm/lectern-backend/internal/handlers"
	"github.com/lecternfm/lectern-backend/internal/metrics"
	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
)

// Endpoint classes. Each carries its own refill rate and burst so a client
// hammering the stream endpoints cannot starve catalog browsing.
const (
	ClassCatalog = "catalog"
	ClassStream  = "stream"
	ClassMutate  = "mutate"
)

type RateLimitConfig struct {
	CatalogPerMin int           `env:"RATE_CATALOG_PER_MIN" envDefault:"120"`
	CatalogBurst  int           `env:"RATE_CATALOG_BURST" envDefault:"40"`
	StreamPerMin  int           `env:"RATE_STREAM_PER_MIN" envDefault:"30"`
	StreamBurst   int           `env:"RATE_STREAM_BURST" envDefault:"10"`
	MutatePerMin  int           `env:"RATE_MUTATE_PER_MIN" envDefault:"60"`
	MutateBurst   int           `env:"RATE_MUTATE_BURST" envDefault:"20"`
	IdleEviction  time.Duration `env:"RATE_IDLE_EVICTION" envDefault:"10m"`
	TrustProxy    bool          `env:"HTTP_TRUST_PROXY" envDefault:"false"`
}

type classLimits struct {
	rate  rate.Limit
	burst int
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP and endpoint class. Idle
// buckets are evicted by a janitor goroutine so the map stays bounded.
type RateLimiter struct {
	log         *logger.Logger
	cfg         RateLimitConfig
	classes     map[string]classLimits
	mu          sync.Mutex
	buckets     map[string]*bucketEntry
	stopJanitor chan struct{}
	stopOnce    sync.Once
}

func NewRateLimiter(baseLog *logger.Logger, cfg RateLimitConfig) *RateLimiter {
	limiterLog := baseLog.With("middleware", "RateLimiter")
	return &RateLimiter{
		log: limiterLog,
		cfg: cfg,
		classes: map[string]classLimits{
			ClassCatalog: {rate: perMinute(cfg.CatalogPerMin), burst: cfg.CatalogBurst},
			ClassStream:  {rate: perMinute(cfg.StreamPerMin), burst: cfg.StreamBurst},
			ClassMutate:  {rate: perMinute(cfg.MutatePerMin), burst: cfg.MutateBurst},
		},
		buckets:     make(map[string]*bucketEntry),
		stopJanitor: make(chan struct{}),
	}
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// Limit returns a handler enforcing the named class's budget for the caller's
// IP. Rejections get a Retry-After hint of one second, which matches the
// refill cadence of the slowest class.
func (rl *RateLimiter) Limit(class string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := rl.clientIP(c.Request)
		if !rl.allow(ip, class) {
			metrics.RateLimitRejections.WithLabelValues(class).Inc()
			c.Header("Retry-After", "1")
			handlers.RespondError(c, http.StatusTooManyRequests, apierr.CodeRateLimited, errors.New("rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip, class string) bool {
	limits, ok := rl.classes[class]
	if !ok {
		rl.log.Warn("unknown rate limit class", "class", class)
		return true
	}
	key := ip + "|" + class

	rl.mu.Lock()
	entry, exists := rl.buckets[key]
	if !exists {
		entry = &bucketEntry{limiter: rate.NewLimiter(limits.rate, limits.burst)}
		rl.buckets[key] = entry
	}
	entry.lastSeen = time.Now()
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// Start launches the janitor. Call Stop during shutdown.
func (rl *RateLimiter) Start() {
	go rl.janitor()
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopJanitor) })
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.stopJanitor:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	threshold := time.Now().Add(-rl.cfg.IdleEviction)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, entry := range rl.buckets {
		if entry.lastSeen.Before(threshold) {
			delete(rl.buckets, key)
		}
	}
}

// clientIP resolves the address to throttle on. Behind a trusted proxy the
// first X-Forwarded-For hop is the client; otherwise the socket peer is.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if rl.cfg.TrustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first := fwd
			if idx := strings.IndexByte(fwd, ','); idx >= 0 {
				first = fwd[:idx]
			}
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
