package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	clientredis "github.com/lecternfm/lectern-backend/internal/clients/redis"
	"github.com/lecternfm/lectern-backend/internal/metrics"
	"github.com/lecternfm/lectern-backend/internal/platform/apierr"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/platform/s3"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/types"
)

// DeliveryConfig bounds the ranged proxy. MaxChunkBytes caps how much a
// single 206 response may carry regardless of the requested range.
type DeliveryConfig struct {
	MaxChunkBytes int64         `env:"MAX_CHUNK" envDefault:"1048576"`
	PresignSlack  time.Duration `env:"PRESIGN_SLACK" envDefault:"60s"`
}

// AudioLink is the audio-url endpoint's payload.
type AudioLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StreamResult carries everything the handler needs to write a full or
// partial content response. Body is nil only for zero-length objects.
type StreamResult struct {
	Status        int
	ContentType   string
	ContentLength int64
	ContentRange  string
	Body          io.ReadCloser
}

// RangeNotSatisfiableError maps to 416 with "Content-Range: bytes */Size".
type RangeNotSatisfiableError struct {
	Size int64
}

func (e *RangeNotSatisfiableError) Error() string {
	return fmt.Sprintf("requested range not satisfiable for size %d", e.Size)
}

type DeliveryService interface {
	AudioURL(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, premiumUser bool) (*AudioLink, error)
	Stream(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, premiumUser bool, rangeHeader string) (*StreamResult, error)
}

type deliveryService struct {
	db          *gorm.DB
	log         *logger.Logger
	lectureRepo repos.LectureRepo
	bucket      s3.BucketService
	cache       clientredis.URLCache
	cfg         DeliveryConfig
	presignTTL  time.Duration
}

func NewDeliveryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	lectureRepo repos.LectureRepo,
	bucket s3.BucketService,
	cache clientredis.URLCache,
	cfg DeliveryConfig,
	presignTTL time.Duration,
) DeliveryService {
	serviceLog := baseLog.With("service", "DeliveryService")
	if cfg.MaxChunkBytes <= 0 {
		cfg.MaxChunkBytes = 1 << 20
	}
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &deliveryService{
		db:          db,
		log:         serviceLog,
		lectureRepo: lectureRepo,
		bucket:      bucket,
		cache:       cache,
		cfg:         cfg,
		presignTTL:  presignTTL,
	}
}

func (s *deliveryService) AudioURL(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, premiumUser bool) (*AudioLink, error) {
	lecture, err := s.loadGated(ctx, tx, lectureID, premiumUser)
	if err != nil {
		return nil, err
	}

	cacheKey := "lectern:presign:" + lectureID.String()
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, cacheKey); ok {
			var link AudioLink
			if err := json.Unmarshal([]byte(raw), &link); err == nil {
				metrics.PresignCacheHits.Inc()
				s.bumpPlayCount(lectureID)
				return &link, nil
			}
		}
	}
	metrics.PresignCacheMisses.Inc()

	signed, err := s.bucket.PresignedGetURL(ctx, lecture.FileKey, s.presignTTL, lecture.FileName)
	if err != nil {
		return nil, fmt.Errorf("presign audio url: %w", err)
	}
	link := &AudioLink{URL: signed, ExpiresAt: time.Now().Add(s.presignTTL).UTC()}

	if s.cache != nil {
		if ttl := s.presignTTL - s.cfg.PresignSlack; ttl > 0 {
			if raw, err := json.Marshal(link); err == nil {
				s.cache.Set(ctx, cacheKey, string(raw), ttl)
			}
		}
	}

	s.bumpPlayCount(lectureID)
	return link, nil
}

func (s *deliveryService) Stream(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, premiumUser bool, rangeHeader string) (*StreamResult, error) {
	lecture, err := s.loadGated(ctx, tx, lectureID, premiumUser)
	if err != nil {
		return nil, err
	}

	attrs, err := s.bucket.StatObject(ctx, lecture.FileKey)
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			return nil, apierr.NotFound("audio object")
		}
		return nil, fmt.Errorf("stat audio object: %w", err)
	}

	plan, err := planRange(rangeHeader, attrs.Size, s.cfg.MaxChunkBytes)
	if err != nil {
		return nil, &RangeNotSatisfiableError{Size: attrs.Size}
	}

	contentType := attrs.ContentType
	if contentType == "" {
		contentType = s3.ContentTypeForKey(lecture.FileKey)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	result := &StreamResult{
		Status:      plan.status,
		ContentType: contentType,
	}
	if plan.status == 206 {
		result.ContentRange = fmt.Sprintf("bytes %d-%d/%d", plan.start, plan.end, attrs.Size)
	}

	if attrs.Size == 0 {
		s.bumpPlayCount(lectureID)
		return result, nil
	}

	body, err := s.bucket.OpenRange(ctx, lecture.FileKey, plan.start, plan.end)
	if err != nil {
		return nil, fmt.Errorf("open audio range: %w", err)
	}
	result.ContentLength = plan.end - plan.start + 1
	result.Body = body

	s.bumpPlayCount(lectureID)
	return result, nil
}

// loadGated fetches the lecture and applies the premium gate: a premium
// speaker's audio is only served to premium users. Metadata stays open.
func (s *deliveryService) loadGated(ctx context.Context, tx *gorm.DB, lectureID uuid.UUID, premiumUser bool) (*types.Lecture, error) {
	transaction := tx
	if transaction == nil {
		transaction = s.db
	}

	lecture, err := s.lectureRepo.GetByID(ctx, transaction, lectureID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("lecture")
		}
		return nil, fmt.Errorf("load lecture: %w", err)
	}

	if lecture.Speaker != nil && lecture.Speaker.Premium && !premiumUser {
		return nil, apierr.PremiumRequired()
	}
	return lecture, nil
}

// bumpPlayCount increments asynchronously; a lost increment never fails the
// request.
func (s *deliveryService) bumpPlayCount(lectureID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.lectureRepo.IncrementPlayCount(ctx, nil, lectureID); err != nil {
			s.log.Warn("play count increment failed", "lecture_id", lectureID.String(), "error", err)
		}
	}()
}

var errInvalidRange = errors.New("invalid range")

type rangePlan struct {
	status int
	start  int64
	end    int64
}

// planRange resolves a Range header against the object size. Satisfiable
// ranges are clamped so no response carries more than maxChunk bytes; the
// suffix form stays anchored to the end of the object. Malformed headers,
// multi-ranges and out-of-bounds starts all fail.
func planRange(header string, size, maxChunk int64) (rangePlan, error) {
	if header == "" {
		return rangePlan{status: 200, start: 0, end: size - 1}, nil
	}
	if size <= 0 {
		return rangePlan{}, errInvalidRange
	}

	spec := strings.TrimPrefix(header, "bytes=")
	if spec == header {
		return rangePlan{}, errInvalidRange
	}
	if strings.Contains(spec, ",") {
		return rangePlan{}, errInvalidRange
	}
	spec = strings.TrimSpace(spec)

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return rangePlan{}, errInvalidRange
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	// Suffix form: the last n bytes.
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return rangePlan{}, errInvalidRange
		}
		count := min(n, size, maxChunk)
		return rangePlan{status: 206, start: size - count, end: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return rangePlan{}, errInvalidRange
	}
	if start >= size {
		return rangePlan{}, errInvalidRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return rangePlan{}, errInvalidRange
		}
	}
	end = min(end, start+maxChunk-1, size-1)

	return rangePlan{status: 206, start: start, end: end}, nil
}
