package repos

import (
	"context"
	"testing"
	"time"

	"github.com/lecternfm/lectern-backend/internal/repos/testutil"
	"github.com/lecternfm/lectern-backend/internal/types"
)

func TestPlaybackRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewPlaybackRepo(db, testutil.Logger(t))

	user := testutil.SeedUser(t, db, "listener")
	sp := testutil.SeedSpeaker(t, db, "cohen")
	col := testutil.SeedCollection(t, db, sp, "mussar")
	first := testutil.SeedLecture(t, db, col, "cohen/mussar/01_intro.mp3", 1200)
	second := testutil.SeedLecture(t, db, col, "cohen/mussar/02_walking.mp3", 1800)

	stored, err := repo.Upsert(ctx, nil, &types.PlaybackPosition{
		UserID: user.ID, LectureID: first.ID, PositionSecs: 90, DurationSecs: 1200,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if stored.PositionSecs != 90 {
		t.Fatalf("stored position: %d", stored.PositionSecs)
	}

	// A second save for the same lecture updates the row in place.
	again, err := repo.Upsert(ctx, nil, &types.PlaybackPosition{
		UserID: user.ID, LectureID: first.ID, PositionSecs: 300, DurationSecs: 1200,
	})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if again.ID != stored.ID || again.PositionSecs != 300 {
		t.Fatalf("upsert did not keep id or update position: %+v", again)
	}

	if row, err := repo.GetByUserAndLecture(ctx, nil, user.ID, first.ID); err != nil || row.PositionSecs != 300 {
		t.Fatalf("GetByUserAndLecture: err=%v row=%+v", err, row)
	}

	other, err := repo.Upsert(ctx, nil, &types.PlaybackPosition{
		UserID: user.ID, LectureID: second.ID, PositionSecs: 45, DurationSecs: 1800,
	})
	if err != nil {
		t.Fatalf("Upsert second lecture: %v", err)
	}

	// Pin distinct update times so the recency ordering is deterministic.
	now := time.Now().UTC()
	if err := db.Model(&types.PlaybackPosition{}).Where("id = ?", stored.ID).
		UpdateColumn("updated_at", now.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("pin old updated_at: %v", err)
	}
	if err := db.Model(&types.PlaybackPosition{}).Where("id = ?", other.ID).
		UpdateColumn("updated_at", now).Error; err != nil {
		t.Fatalf("pin new updated_at: %v", err)
	}

	page := types.PageParams{Page: 1, PerPage: 10}
	rows, total, err := repo.ListByUser(ctx, nil, user.ID, page)
	if err != nil || total != 2 || len(rows) != 2 {
		t.Fatalf("ListByUser: err=%v total=%d len=%d", err, total, len(rows))
	}
	if rows[0].LectureID != second.ID {
		t.Fatalf("ListByUser order: most recent first, got %s", rows[0].LectureID)
	}
	if rows[0].Lecture == nil || rows[0].Lecture.Speaker == nil {
		t.Fatalf("ListByUser preload: %+v", rows[0])
	}
}
