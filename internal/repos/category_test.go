package repos

import (
	"context"
	"testing"

	"github.com/lecternfm/lectern-backend/internal/repos/testutil"
	"github.com/lecternfm/lectern-backend/internal/types"
)

func TestCategoryRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCategoryRepo(db, testutil.Logger(t))

	if err := repo.UpsertBySlug(ctx, nil, &types.Category{Slug: "ethics", Name: "Ethics"}); err != nil {
		t.Fatalf("UpsertBySlug: %v", err)
	}
	root, err := repo.GetBySlug(ctx, nil, "ethics")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}

	if err := repo.UpsertBySlug(ctx, nil, &types.Category{Slug: "ethics", Name: "Ethics & Character"}); err != nil {
		t.Fatalf("UpsertBySlug update: %v", err)
	}
	again, err := repo.GetBySlug(ctx, nil, "ethics")
	if err != nil || again.ID != root.ID || again.Name != "Ethics & Character" {
		t.Fatalf("upsert did not keep id or refresh name: err=%v row=%+v", err, again)
	}

	if err := repo.UpsertBySlug(ctx, nil, &types.Category{Slug: "mussar", Name: "Mussar"}); err != nil {
		t.Fatalf("UpsertBySlug child: %v", err)
	}
	child, err := repo.GetBySlug(ctx, nil, "mussar")
	if err != nil {
		t.Fatalf("GetBySlug child: %v", err)
	}

	if err := repo.SetParent(ctx, nil, child.ID, &root.ID); err != nil {
		t.Fatalf("SetParent: %v", err)
	}
	if rows, err := repo.ListChildren(ctx, nil, root.ID); err != nil || len(rows) != 1 || rows[0].ID != child.ID {
		t.Fatalf("ListChildren: err=%v rows=%+v", err, rows)
	}
	if err := repo.SetParent(ctx, nil, child.ID, nil); err != nil {
		t.Fatalf("SetParent to root: %v", err)
	}
	if rows, err := repo.ListChildren(ctx, nil, root.ID); err != nil || len(rows) != 0 {
		t.Fatalf("ListChildren after unparent: err=%v len=%d", err, len(rows))
	}

	if rows, err := repo.ListAll(ctx, nil); err != nil || len(rows) != 2 {
		t.Fatalf("ListAll: err=%v len=%d", err, len(rows))
	}
}

func TestCategoryRepoLinks(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCategoryRepo(db, testutil.Logger(t))

	sp := testutil.SeedSpeaker(t, db, "cohen")
	col := testutil.SeedCollection(t, db, sp, "mussar")
	lec := testutil.SeedLecture(t, db, col, "cohen/mussar/01_intro.mp3", 1200)
	ethics := testutil.SeedCategory(t, db, "ethics")
	holidays := testutil.SeedCategory(t, db, "holidays")

	if err := repo.LinkLecture(ctx, nil, lec.ID, ethics.ID, true); err != nil {
		t.Fatalf("LinkLecture: %v", err)
	}
	// Linking the same pair again must not duplicate the row.
	if err := repo.LinkLecture(ctx, nil, lec.ID, ethics.ID, true); err != nil {
		t.Fatalf("LinkLecture repeat: %v", err)
	}
	// Promoting a second category demotes the previous primary.
	if err := repo.LinkLecture(ctx, nil, lec.ID, holidays.ID, true); err != nil {
		t.Fatalf("LinkLecture second primary: %v", err)
	}

	links := []*types.LectureCategory{}
	if err := db.Where("lecture_id = ?", lec.ID).Find(&links).Error; err != nil {
		t.Fatalf("load links: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("link rows: %d", len(links))
	}
	for _, link := range links {
		switch link.CategoryID {
		case ethics.ID:
			if link.IsPrimary {
				t.Fatalf("ethics link still primary")
			}
		case holidays.ID:
			if !link.IsPrimary {
				t.Fatalf("holidays link not primary")
			}
		default:
			t.Fatalf("unexpected link to %s", link.CategoryID)
		}
	}

	if err := repo.ClearPrimaryLecture(ctx, nil, lec.ID); err != nil {
		t.Fatalf("ClearPrimaryLecture: %v", err)
	}
	var primaries int64
	if err := db.Model(&types.LectureCategory{}).
		Where("lecture_id = ? AND is_primary", lec.ID).
		Count(&primaries).Error; err != nil || primaries != 0 {
		t.Fatalf("primaries after clear: err=%v count=%d", err, primaries)
	}

	if err := repo.LinkCollection(ctx, nil, col.ID, ethics.ID, true); err != nil {
		t.Fatalf("LinkCollection: %v", err)
	}
	if err := repo.LinkCollection(ctx, nil, col.ID, ethics.ID, false); err != nil {
		t.Fatalf("LinkCollection repeat: %v", err)
	}
	collectionLinks := []*types.CollectionCategory{}
	if err := db.Where("collection_id = ?", col.ID).Find(&collectionLinks).Error; err != nil {
		t.Fatalf("load collection links: %v", err)
	}
	if len(collectionLinks) != 1 || collectionLinks[0].IsPrimary {
		t.Fatalf("collection link state: %+v", collectionLinks)
	}
}
