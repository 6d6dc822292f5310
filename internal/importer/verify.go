package importer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lecternfm/lectern-backend/internal/repos"
	"github.com/lecternfm/lectern-backend/internal/types"
)

// VerifyReport lists every catalog inconsistency found: lectures whose
// speaker disagrees with their collection's, lectures left without a live
// collection, and denormalized counters that no longer match the data.
type VerifyReport struct {
	SpeakerMismatches []*types.Lecture
	Orphans           []*types.Lecture
	Drift             []CountDrift
}

type CountDrift struct {
	Entity string
	ID     uuid.UUID
	Slug   string
	Field  string
	Stored int
	Actual int
}

func (r *VerifyReport) Clean() bool {
	return len(r.SpeakerMismatches) == 0 && len(r.Orphans) == 0 && len(r.Drift) == 0
}

func (i *Importer) Verify(ctx context.Context) (*VerifyReport, error) {
	report := &VerifyReport{}

	mismatches, err := i.lectureRepo.SpeakerMismatches(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("check speaker references: %w", err)
	}
	report.SpeakerMismatches = mismatches

	orphans, err := i.lectureRepo.Orphans(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("check orphaned lectures: %w", err)
	}
	report.Orphans = orphans

	colAggs, err := i.lectureRepo.AggregateByCollection(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregate lectures by collection: %w", err)
	}
	aggByCollection := map[uuid.UUID]repos.CollectionAggregate{}
	for _, agg := range colAggs {
		aggByCollection[agg.CollectionID] = agg
	}
	collections, err := i.collectionRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for _, col := range collections {
		agg := aggByCollection[col.ID]
		if col.LectureCount != agg.LectureCount {
			report.Drift = append(report.Drift, CountDrift{
				Entity: "collection", ID: col.ID, Slug: col.Slug,
				Field: "lecture_count", Stored: col.LectureCount, Actual: agg.LectureCount,
			})
		}
		if col.TotalDurationSecs != agg.TotalDurationSecs {
			report.Drift = append(report.Drift, CountDrift{
				Entity: "collection", ID: col.ID, Slug: col.Slug,
				Field: "total_duration_secs", Stored: col.TotalDurationSecs, Actual: agg.TotalDurationSecs,
			})
		}
	}

	lecAggs, err := i.lectureRepo.AggregateBySpeaker(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregate lectures by speaker: %w", err)
	}
	lecturesBySpeaker := map[uuid.UUID]int{}
	for _, agg := range lecAggs {
		lecturesBySpeaker[agg.SpeakerID] = agg.LectureCount
	}
	colCounts, err := i.collectionRepo.AggregateBySpeaker(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("aggregate collections by speaker: %w", err)
	}
	collectionsBySpeaker := map[uuid.UUID]int{}
	for _, agg := range colCounts {
		collectionsBySpeaker[agg.SpeakerID] = agg.CollectionCount
	}
	speakers, err := i.speakerRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	for _, sp := range speakers {
		if actual := lecturesBySpeaker[sp.ID]; sp.LectureCount != actual {
			report.Drift = append(report.Drift, CountDrift{
				Entity: "speaker", ID: sp.ID, Slug: sp.Slug,
				Field: "lecture_count", Stored: sp.LectureCount, Actual: actual,
			})
		}
		if actual := collectionsBySpeaker[sp.ID]; sp.CollectionCount != actual {
			report.Drift = append(report.Drift, CountDrift{
				Entity: "speaker", ID: sp.ID, Slug: sp.Slug,
				Field: "collection_count", Stored: sp.CollectionCount, Actual: actual,
			})
		}
	}

	return report, nil
}
