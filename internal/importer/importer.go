package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/platform/s3"
	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/types"
)

// Importer loads manifests into the catalog and hosts the maintenance
// commands (verify, repair, cover generation). The bucket may be nil for
// commands that never touch object storage.
type Importer struct {
	db             *gorm.DB
	log            *logger.Logger
	bucket         s3.BucketService
	speakerRepo    repos.SpeakerRepo
	collectionRepo repos.CollectionRepo
	lectureRepo    repos.LectureRepo
	categoryRepo   repos.CategoryRepo
}

func NewImporter(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket s3.BucketService,
	speakerRepo repos.SpeakerRepo,
	collectionRepo repos.CollectionRepo,
	lectureRepo repos.LectureRepo,
	categoryRepo repos.CategoryRepo,
) *Importer {
	return &Importer{
		db:             db,
		log:            baseLog.With("component", "Importer"),
		bucket:         bucket,
		speakerRepo:    speakerRepo,
		collectionRepo: collectionRepo,
		lectureRepo:    lectureRepo,
		categoryRepo:   categoryRepo,
	}
}

type RunOptions struct {
	// Fresh bulk-loads lectures with the postgres COPY protocol. It requires
	// DSN and an empty lecture table; incremental loads use batched upserts.
	Fresh     bool
	DSN       string
	BatchSize int
}

type RunResult struct {
	Categories  int
	Speakers    int
	Collections int
	Lectures    int
	Linked      int
	Skipped     int
}

// Run loads a normalized, statted manifest. Every write is an upsert keyed on
// slugs (lectures on their object key), so re-running the same manifest is
// safe. Lecture speaker references always come from the owning collection.
func (i *Importer) Run(ctx context.Context, m *Manifest, opts RunOptions) (*RunResult, error) {
	res := &RunResult{}

	categories, err := i.loadCategories(ctx, m)
	if err != nil {
		return nil, err
	}
	res.Categories = len(categories)

	speakers, err := i.loadSpeakers(ctx, m)
	if err != nil {
		return nil, err
	}
	res.Speakers = len(speakers)

	collections, linked, err := i.loadCollections(ctx, m, speakers, categories)
	if err != nil {
		return nil, err
	}
	res.Collections = len(collections)
	res.Linked += linked

	rows, skipped := buildLectureRows(m, collections)
	res.Skipped = skipped

	if opts.Fresh {
		existing, err := i.lectureRepo.ListFileKeys(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("check lecture table: %w", err)
		}
		if len(existing) > 0 {
			return nil, fmt.Errorf("lecture table already holds %d rows; drop -fresh for an incremental load", len(existing))
		}
		i.log.Info("bulk loading lectures", "rows", len(rows))
		if _, err := copyLectures(ctx, opts.DSN, rows); err != nil {
			return nil, fmt.Errorf("bulk load lectures: %w", err)
		}
	} else {
		i.log.Info("upserting lectures", "rows", len(rows))
		if err := i.lectureRepo.UpsertBatchByFileKey(ctx, nil, rows, opts.BatchSize); err != nil {
			return nil, fmt.Errorf("upsert lectures: %w", err)
		}
	}
	res.Lectures = len(rows)

	linked, err = i.linkLectureCategories(ctx, m, categories)
	if err != nil {
		return nil, err
	}
	res.Linked += linked

	if _, err := i.RefreshCounts(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func (i *Importer) loadCategories(ctx context.Context, m *Manifest) (map[string]*types.Category, error) {
	bySlug := map[string]*types.Category{}
	for _, cat := range m.Categories {
		row := &types.Category{Slug: cat.Slug, Name: cat.Name}
		if err := i.categoryRepo.UpsertBySlug(ctx, nil, row); err != nil {
			return nil, fmt.Errorf("upsert category %s: %w", cat.Slug, err)
		}
	}

	// Conflicting upserts keep the stored row's id, so ids come from a fresh
	// read after the whole pass.
	for _, cat := range m.Categories {
		row, err := i.categoryRepo.GetBySlug(ctx, nil, cat.Slug)
		if err != nil {
			return nil, fmt.Errorf("fetch category %s: %w", cat.Slug, err)
		}
		bySlug[cat.Slug] = row
	}

	for _, cat := range m.Categories {
		if cat.Parent == "" {
			continue
		}
		child, parent := bySlug[cat.Slug], bySlug[cat.Parent]
		if child.ParentID != nil && *child.ParentID == parent.ID {
			continue
		}
		if err := i.categoryRepo.SetParent(ctx, nil, child.ID, &parent.ID); err != nil {
			return nil, fmt.Errorf("set parent of category %s: %w", cat.Slug, err)
		}
	}
	i.log.Info("categories loaded", "count", len(bySlug))
	return bySlug, nil
}

func (i *Importer) loadSpeakers(ctx context.Context, m *Manifest) (map[string]*types.Speaker, error) {
	bySlug := map[string]*types.Speaker{}
	for _, sp := range m.Speakers {
		row := &types.Speaker{
			Slug:     sp.Slug,
			Name:     sp.Name,
			Bio:      sp.Bio,
			ImageURL: sp.ImageURL,
			Premium:  sp.Premium,
		}
		if err := i.speakerRepo.UpsertBySlug(ctx, nil, row); err != nil {
			return nil, fmt.Errorf("upsert speaker %s: %w", sp.Slug, err)
		}
		stored, err := i.speakerRepo.GetBySlug(ctx, nil, sp.Slug)
		if err != nil {
			return nil, fmt.Errorf("fetch speaker %s: %w", sp.Slug, err)
		}
		bySlug[sp.Slug] = stored
	}
	i.log.Info("speakers loaded", "count", len(bySlug))
	return bySlug, nil
}

func (i *Importer) loadCollections(
	ctx context.Context,
	m *Manifest,
	speakers map[string]*types.Speaker,
	categories map[string]*types.Category,
) (map[string]*types.Collection, int, error) {
	byKey := map[string]*types.Collection{}
	linked := 0
	for _, sp := range m.Speakers {
		speaker := speakers[sp.Slug]
		for _, col := range sp.Collections {
			row := &types.Collection{
				SpeakerID: speaker.ID,
				Slug:      col.Slug,
				Title:     col.Title,
				Year:      col.Year,
				CoverURL:  col.CoverURL,
			}
			if err := i.collectionRepo.UpsertBySpeakerSlug(ctx, nil, row); err != nil {
				return nil, 0, fmt.Errorf("upsert collection %s/%s: %w", sp.Slug, col.Slug, err)
			}
			stored, err := i.collectionRepo.GetBySpeakerAndSlug(ctx, nil, speaker.ID, col.Slug)
			if err != nil {
				return nil, 0, fmt.Errorf("fetch collection %s/%s: %w", sp.Slug, col.Slug, err)
			}
			byKey[collectionKey(sp.Slug, col.Slug)] = stored

			for idx, slug := range col.Categories {
				cat, ok := categories[slug]
				if !ok {
					return nil, 0, fmt.Errorf("collection %s/%s references undeclared category %q", sp.Slug, col.Slug, slug)
				}
				if err := i.categoryRepo.LinkCollection(ctx, nil, stored.ID, cat.ID, idx == 0); err != nil {
					return nil, 0, fmt.Errorf("link collection %s/%s to %s: %w", sp.Slug, col.Slug, slug, err)
				}
				linked++
			}
		}
	}
	i.log.Info("collections loaded", "count", len(byKey))
	return byKey, linked, nil
}

// buildLectureRows materializes lecture rows with ids and timestamps set, so
// the same rows work for both the COPY path and the upsert path. Entries
// flagged missing by Stat are dropped.
func buildLectureRows(m *Manifest, collections map[string]*types.Collection) ([]*types.Lecture, int) {
	now := time.Now().UTC()
	rows := []*types.Lecture{}
	skipped := 0
	for _, sp := range m.Speakers {
		for _, col := range sp.Collections {
			stored := collections[collectionKey(sp.Slug, col.Slug)]
			for _, lec := range col.Lectures {
				if lec.missing {
					skipped++
					continue
				}
				rows = append(rows, &types.Lecture{
					ID:            uuid.New(),
					SpeakerID:     stored.SpeakerID,
					CollectionID:  stored.ID,
					Title:         lec.Title,
					FileKey:       lec.Key,
					FileName:      baseName(lec.Key),
					FileSizeBytes: lec.SizeBytes,
					FileFormat:    fileFormat(lec.Key),
					DurationSecs:  lec.DurationSecs,
					Position:      lec.Position,
					CreatedAt:     now,
					UpdatedAt:     now,
				})
			}
		}
	}
	return rows, skipped
}

func (i *Importer) linkLectureCategories(ctx context.Context, m *Manifest, categories map[string]*types.Category) (int, error) {
	linked := 0
	for _, lec := range m.AllLectures() {
		if lec.missing || len(lec.Categories) == 0 {
			continue
		}
		stored, err := i.lectureRepo.GetByFileKey(ctx, nil, lec.Key)
		if err != nil {
			return 0, fmt.Errorf("fetch lecture %s: %w", lec.Key, err)
		}
		for idx, slug := range lec.Categories {
			cat, ok := categories[slug]
			if !ok {
				return 0, fmt.Errorf("lecture %s references undeclared category %q", lec.Key, slug)
			}
			if err := i.categoryRepo.LinkLecture(ctx, nil, stored.ID, cat.ID, idx == 0); err != nil {
				return 0, fmt.Errorf("link lecture %s to %s: %w", lec.Key, slug, err)
			}
			linked++
		}
	}
	return linked, nil
}

// RefreshCounts recomputes the denormalized counters from the lecture and
// collection tables and rewrites only the rows that drifted. Returns the
// number of rows corrected.
func (i *Importer) RefreshCounts(ctx context.Context) (int, error) {
	updated := 0

	colAggs, err := i.lectureRepo.AggregateByCollection(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("aggregate lectures by collection: %w", err)
	}
	aggByCollection := map[uuid.UUID]repos.CollectionAggregate{}
	for _, agg := range colAggs {
		aggByCollection[agg.CollectionID] = agg
	}

	collections, err := i.collectionRepo.ListAll(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("list collections: %w", err)
	}
	for _, col := range collections {
		agg := aggByCollection[col.ID]
		if col.LectureCount == agg.LectureCount && col.TotalDurationSecs == agg.TotalDurationSecs {
			continue
		}
		if err := i.collectionRepo.UpdateCounts(ctx, nil, col.ID, agg.LectureCount, agg.TotalDurationSecs); err != nil {
			return 0, fmt.Errorf("update counts for collection %s: %w", col.Slug, err)
		}
		updated++
	}

	lecAggs, err := i.lectureRepo.AggregateBySpeaker(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("aggregate lectures by speaker: %w", err)
	}
	lecturesBySpeaker := map[uuid.UUID]int{}
	for _, agg := range lecAggs {
		lecturesBySpeaker[agg.SpeakerID] = agg.LectureCount
	}
	colCounts, err := i.collectionRepo.AggregateBySpeaker(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("aggregate collections by speaker: %w", err)
	}
	collectionsBySpeaker := map[uuid.UUID]int{}
	for _, agg := range colCounts {
		collectionsBySpeaker[agg.SpeakerID] = agg.CollectionCount
	}

	speakers, err := i.speakerRepo.ListAll(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("list speakers: %w", err)
	}
	for _, sp := range speakers {
		lectureTotal, collectionTotal := lecturesBySpeaker[sp.ID], collectionsBySpeaker[sp.ID]
		if sp.LectureCount == lectureTotal && sp.CollectionCount == collectionTotal {
			continue
		}
		if err := i.speakerRepo.UpdateCounts(ctx, nil, sp.ID, lectureTotal, collectionTotal); err != nil {
			return 0, fmt.Errorf("update counts for speaker %s: %w", sp.Slug, err)
		}
		updated++
	}

	if updated > 0 {
		i.log.Info("denormalized counts refreshed", "rows", updated)
	}
	return updated, nil
}

func collectionKey(speakerSlug, collectionSlug string) string {
	return speakerSlug + "/" + collectionSlug
}
