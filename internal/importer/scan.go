package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lecternfm/lectern-backend/internal/normalization"
	"github.com/lecternfm/lectern-backend/internal/platform/s3"
)

// ScanResult is the outcome of a bucket enumeration pass.
type ScanResult struct {
	Manifest *Manifest
	Indexed  int      // audio objects already present as lecture file keys
	Skipped  []string // non-audio objects and keys outside the layout
}

// Scan enumerates the bucket under prefix and builds a skeleton manifest for
// audio objects the catalog does not know yet. Keys must follow the
// speaker/collection/file layout; names are derived from the slugs and sizes
// come from the listing, leaving titles and durations for a human pass.
func (i *Importer) Scan(ctx context.Context, prefix string) (*ScanResult, error) {
	objects, err := i.bucket.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list bucket objects: %w", err)
	}

	keys, err := i.lectureRepo.ListFileKeys(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list known file keys: %w", err)
	}
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}

	result := &ScanResult{Manifest: &Manifest{}}
	speakers := map[string]*ManifestSpeaker{}
	collections := map[string]*ManifestCollection{}

	for _, obj := range objects {
		if !strings.HasPrefix(s3.ContentTypeForKey(obj.Key), "audio/") {
			result.Skipped = append(result.Skipped, obj.Key)
			continue
		}
		parts := strings.Split(obj.Key, "/")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			result.Skipped = append(result.Skipped, obj.Key)
			continue
		}
		if known[obj.Key] {
			result.Indexed++
			continue
		}

		speakerSlug, collectionSlug := parts[0], parts[1]
		sp, ok := speakers[speakerSlug]
		if !ok {
			sp = &ManifestSpeaker{
				Slug: speakerSlug,
				Name: normalization.Humanize(speakerSlug),
			}
			speakers[speakerSlug] = sp
			result.Manifest.Speakers = append(result.Manifest.Speakers, sp)
		}
		colID := collectionKey(speakerSlug, collectionSlug)
		col, ok := collections[colID]
		if !ok {
			col = &ManifestCollection{
				Slug:  collectionSlug,
				Title: normalization.Humanize(collectionSlug),
			}
			collections[colID] = col
			sp.Collections = append(sp.Collections, col)
		}
		col.Lectures = append(col.Lectures, &ManifestLecture{
			Title:     normalization.Humanize(stripExt(parts[2])),
			Key:       obj.Key,
			SizeBytes: obj.Size,
		})
	}

	sortManifest(result.Manifest)
	i.log.Info("bucket scanned",
		"prefix", prefix,
		"new", result.Manifest.Stats().Lectures,
		"indexed", result.Indexed,
		"skipped", len(result.Skipped))
	return result, nil
}

func sortManifest(m *Manifest) {
	sort.Slice(m.Speakers, func(a, b int) bool { return m.Speakers[a].Slug < m.Speakers[b].Slug })
	for _, sp := range m.Speakers {
		sort.Slice(sp.Collections, func(a, b int) bool { return sp.Collections[a].Slug < sp.Collections[b].Slug })
		for _, col := range sp.Collections {
			sort.Slice(col.Lectures, func(a, b int) bool { return col.Lectures[a].Key < col.Lectures[b].Key })
		}
	}
}
