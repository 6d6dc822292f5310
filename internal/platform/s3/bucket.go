package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
)

// ErrObjectNotFound is returned for keys that do not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// Config holds the S3-compatible endpoint settings. Works against Cloudflare
// R2, MinIO and AWS S3.
type Config struct {
	Endpoint  string `env:"ENDPOINT,required"`
	AccessKey string `env:"ACCESS_KEY,required"`
	SecretKey string `env:"SECRET_KEY,required"`
	Bucket    string `env:"BUCKET,required"`
	Region    string `env:"REGION"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
	// PublicBaseURL is the CDN or public-bucket base for catalog assets
	// (cover art). Presigned URLs are unaffected.
	PublicBaseURL string        `env:"PUBLIC_BASE_URL"`
	PresignTTL    time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`
}

type ObjectAttrs struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

type BucketService interface {
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration, downloadName string) (string, error)
	PublicURL(key string) string
	StatObject(ctx context.Context, key string) (*ObjectAttrs, error)
	OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	ListObjects(ctx context.Context, prefix string) ([]ObjectAttrs, error)
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, key string) error
}

type bucketService struct {
	client     *minio.Client
	bucket     string
	publicBase string
	log        *logger.Logger
}

func NewBucketService(cfg Config, baseLog *logger.Logger) (BucketService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &bucketService{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		log:        baseLog.With("service", "BucketService"),
	}, nil
}

// PublicURL joins the configured public base with the key. Without a base it
// returns the bare key so callers can resolve it themselves.
func (s *bucketService) PublicURL(key string) string {
	if s.publicBase == "" {
		return key
	}
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}

func (s *bucketService) PresignedGetURL(ctx context.Context, key string, expiry time.Duration, downloadName string) (string, error) {
	reqParams := make(url.Values)
	if downloadName != "" {
		reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	}
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return signed.String(), nil
}

func (s *bucketService) StatObject(ctx context.Context, key string) (*ObjectAttrs, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, mapError(key, err)
	}
	return &ObjectAttrs{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// OpenRange streams the inclusive byte range [start, end] of the object.
func (s *bucketService) OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(start, end); err != nil {
		return nil, fmt.Errorf("set range %d-%d: %w", start, end, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, opts)
	if err != nil {
		return nil, mapError(key, err)
	}
	return obj, nil
}

func (s *bucketService) ListObjects(ctx context.Context, prefix string) ([]ObjectAttrs, error) {
	results := []ObjectAttrs{}
	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects %q: %w", prefix, object.Err)
		}
		results = append(results, ObjectAttrs{
			Key:          object.Key,
			Size:         object.Size,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
			LastModified: object.LastModified,
		})
	}
	return results, nil
}

func (s *bucketService) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (s *bucketService) RemoveObject(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func mapError(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	return fmt.Errorf("object %s: %w", key, err)
}

// ContentTypeForKey derives a MIME type from the object key's extension.
// Returns "" when the extension is unknown.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".m4b":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}
