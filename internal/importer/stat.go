package importer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lecternfm/lectern-backend/internal/platform/s3"
)

// StatReport summarizes a bucket verification pass over a manifest.
type StatReport struct {
	Statted    int
	TotalBytes int64
	Missing    []string
}

// Stat looks up every lecture object in the bucket with bounded concurrency,
// filling SizeBytes in place and flagging entries whose object is absent.
// Entries flagged missing are skipped by Run and WriteSQL.
func Stat(ctx context.Context, bucket s3.BucketService, m *Manifest, concurrency int) (*StatReport, error) {
	lectures := m.AllLectures()
	if concurrency < 1 {
		concurrency = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	absent := make([]bool, len(lectures))
	for i, lec := range lectures {
		i, lec := i, lec
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			attrs, err := bucket.StatObject(gctx, lec.Key)
			if err != nil {
				if errors.Is(err, s3.ErrObjectNotFound) {
					absent[i] = true
					return nil
				}
				return fmt.Errorf("stat %s: %w", lec.Key, err)
			}
			lec.SizeBytes = attrs.Size
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &StatReport{}
	for i, lec := range lectures {
		if absent[i] {
			lec.missing = true
			report.Missing = append(report.Missing, lec.Key)
			continue
		}
		report.Statted++
		report.TotalBytes += lec.SizeBytes
	}
	return report, nil
}
