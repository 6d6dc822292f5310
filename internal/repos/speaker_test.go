package repos

import (
	"context"
	"testing"

	"github.com/lecternfm/lectern-backend/internal/repos/testutil"
	"github.com/lecternfm/lectern-backend/internal/types"
)

func TestSpeakerRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewSpeakerRepo(db, testutil.Logger(t))

	if err := repo.UpsertBySlug(ctx, nil, &types.Speaker{Slug: "cohen", Name: "Rav Cohen"}); err != nil {
		t.Fatalf("UpsertBySlug: %v", err)
	}
	stored, err := repo.GetBySlug(ctx, nil, "cohen")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}

	// A conflicting upsert keeps the stored id and refreshes the columns.
	update := &types.Speaker{Slug: "cohen", Name: "Rav A. Cohen", Bio: "bio", Premium: true}
	if err := repo.UpsertBySlug(ctx, nil, update); err != nil {
		t.Fatalf("UpsertBySlug update: %v", err)
	}
	again, err := repo.GetBySlug(ctx, nil, "cohen")
	if err != nil {
		t.Fatalf("GetBySlug after update: %v", err)
	}
	if again.ID != stored.ID {
		t.Fatalf("upsert changed id: %s -> %s", stored.ID, again.ID)
	}
	if again.Name != "Rav A. Cohen" || again.Bio != "bio" || !again.Premium {
		t.Fatalf("upsert did not refresh columns: %+v", again)
	}

	if row, err := repo.GetByID(ctx, nil, stored.ID); err != nil || row.Slug != "cohen" {
		t.Fatalf("GetByID: err=%v row=%+v", err, row)
	}

	if err := repo.UpsertBySlug(ctx, nil, &types.Speaker{Slug: "levi", Name: "Rav Levi"}); err != nil {
		t.Fatalf("UpsertBySlug second: %v", err)
	}

	page := types.PageParams{Page: 1, PerPage: 10}
	if rows, total, err := repo.List(ctx, nil, SpeakerFilter{}, page); err != nil || total != 2 || len(rows) != 2 {
		t.Fatalf("List: err=%v total=%d len=%d", err, total, len(rows))
	}
	if rows, total, err := repo.List(ctx, nil, SpeakerFilter{Query: "levi"}, page); err != nil || total != 1 || rows[0].Slug != "levi" {
		t.Fatalf("List query: err=%v total=%d", err, total)
	}
	premium := true
	if rows, total, err := repo.List(ctx, nil, SpeakerFilter{Premium: &premium}, page); err != nil || total != 1 || rows[0].Slug != "cohen" {
		t.Fatalf("List premium: err=%v total=%d", err, total)
	}

	if rows, err := repo.ListAll(ctx, nil); err != nil || len(rows) != 2 {
		t.Fatalf("ListAll: err=%v len=%d", err, len(rows))
	}

	if err := repo.UpdateImages(ctx, nil, stored.ID, "https://cdn/cohen.png", "https://cdn/cohen_thumb.png"); err != nil {
		t.Fatalf("UpdateImages: %v", err)
	}
	if err := repo.UpdateCounts(ctx, nil, stored.ID, 7, 2); err != nil {
		t.Fatalf("UpdateCounts: %v", err)
	}
	final, err := repo.GetByID(ctx, nil, stored.ID)
	if err != nil {
		t.Fatalf("GetByID after updates: %v", err)
	}
	if final.ImageURL != "https://cdn/cohen.png" || final.LectureCount != 7 || final.CollectionCount != 2 {
		t.Fatalf("updates not persisted: %+v", final)
	}
}
