package repos

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/lecternfm/lectern-backend/internal/repos/testutil"
	"github.com/lecternfm/lectern-backend/internal/types"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewUserRepo(db, testutil.Logger(t))

	created, err := repo.UpsertBySubject(ctx, nil, &types.User{
		Subject: "auth0|abc123", Email: "listener@example.com", DisplayName: "Listener",
	})
	if err != nil {
		t.Fatalf("UpsertBySubject: %v", err)
	}

	// Premium is managed out of band and survives claim refreshes.
	if err := db.Model(&types.User{}).Where("id = ?", created.ID).
		UpdateColumn("premium", true).Error; err != nil {
		t.Fatalf("grant premium: %v", err)
	}

	again, err := repo.UpsertBySubject(ctx, nil, &types.User{
		Subject: "auth0|abc123", Email: "new@example.com", DisplayName: "L.",
	})
	if err != nil {
		t.Fatalf("UpsertBySubject repeat: %v", err)
	}
	if again.ID != created.ID {
		t.Fatalf("upsert changed id: %s -> %s", created.ID, again.ID)
	}
	if again.Email != "new@example.com" || again.DisplayName != "L." {
		t.Fatalf("upsert did not refresh claims: %+v", again)
	}
	if !again.Premium {
		t.Fatalf("upsert reset premium")
	}

	if row, err := repo.GetByID(ctx, nil, created.ID); err != nil || row.Subject != "auth0|abc123" {
		t.Fatalf("GetByID: err=%v row=%+v", err, row)
	}
	if row, err := repo.GetBySubject(ctx, nil, "auth0|abc123"); err != nil || row.ID != created.ID {
		t.Fatalf("GetBySubject: err=%v row=%+v", err, row)
	}

	if err := repo.UpdateClaims(ctx, nil, created.ID, "final@example.com", "Final"); err != nil {
		t.Fatalf("UpdateClaims: %v", err)
	}
	if err := repo.UpdatePreferences(ctx, nil, created.ID, datatypes.JSON([]byte(`{"speed":1.5}`))); err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	final, err := repo.GetByID(ctx, nil, created.ID)
	if err != nil {
		t.Fatalf("GetByID after updates: %v", err)
	}
	if final.Email != "final@example.com" || final.DisplayName != "Final" {
		t.Fatalf("claims not persisted: %+v", final)
	}
	if string(final.Preferences) != `{"speed":1.5}` {
		t.Fatalf("preferences not persisted: %s", final.Preferences)
	}
}
