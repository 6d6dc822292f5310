package importer

import (
	"context"
	"fmt"
)

// RepairResult counts the writes a repair pass performed.
type RepairResult struct {
	SpeakerIDsFixed int64
	CountsFixed     int
}

// Repair rewrites disagreeing lecture speaker references from the owning
// collection, then recomputes the denormalized counters. Orphaned lectures
// are reported by Verify but never deleted here.
func (i *Importer) Repair(ctx context.Context) (*RepairResult, error) {
	res := &RepairResult{}

	fixed, err := i.lectureRepo.RepairSpeakerIDs(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("repair speaker references: %w", err)
	}
	res.SpeakerIDsFixed = fixed
	if fixed > 0 {
		i.log.Info("speaker references repaired", "rows", fixed)
	}

	counts, err := i.RefreshCounts(ctx)
	if err != nil {
		return nil, err
	}
	res.CountsFixed = counts

	return res, nil
}
