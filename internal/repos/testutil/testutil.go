// Package testutil provides shared fixtures for repo and importer tests.
// Tests run against in-memory sqlite so they need no external services; the
// sqlite driver is the same one the db package wires for local development.
package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/lecternfm/lectern-backend/internal/platform/logger"
	"github.com/lecternfm/lectern-backend/internal/types"
)

var (
	logOnce sync.Once
	logBase *logger.Logger
	logErr  error

	dbSeq int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logBase, logErr = logger.New("development")
	})
	if logErr != nil {
		tb.Fatalf("build logger: %v", logErr)
	}
	return logBase
}

// DB opens a fresh in-memory database migrated to the current schema. Each
// call returns an isolated store; the single pooled connection keeps the
// shared-cache database alive until cleanup closes it.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:lectern_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(
		&types.Speaker{},
		&types.Collection{},
		&types.Lecture{},
		&types.Category{},
		&types.LectureCategory{},
		&types.CollectionCategory{},
		&types.User{},
		&types.Favorite{},
		&types.PlaybackPosition{},
	); err != nil {
		tb.Fatalf("auto migrate: %v", err)
	}
	return gdb
}

func SeedSpeaker(tb testing.TB, db *gorm.DB, slug string) *types.Speaker {
	tb.Helper()
	row := &types.Speaker{Slug: slug, Name: "Speaker " + slug}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed speaker %s: %v", slug, err)
	}
	return row
}

func SeedCollection(tb testing.TB, db *gorm.DB, speaker *types.Speaker, slug string) *types.Collection {
	tb.Helper()
	row := &types.Collection{SpeakerID: speaker.ID, Slug: slug, Title: "Collection " + slug}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed collection %s: %v", slug, err)
	}
	return row
}

func SeedLecture(tb testing.TB, db *gorm.DB, col *types.Collection, fileKey string, durationSecs int) *types.Lecture {
	tb.Helper()
	row := &types.Lecture{
		SpeakerID:    col.SpeakerID,
		CollectionID: col.ID,
		Title:        "Lecture " + fileKey,
		FileKey:      fileKey,
		DurationSecs: durationSecs,
	}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed lecture %s: %v", fileKey, err)
	}
	return row
}

func SeedCategory(tb testing.TB, db *gorm.DB, slug string) *types.Category {
	tb.Helper()
	row := &types.Category{Slug: slug, Name: "Category " + slug}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed category %s: %v", slug, err)
	}
	return row
}

func SeedUser(tb testing.TB, db *gorm.DB, subject string) *types.User {
	tb.Helper()
	row := &types.User{Subject: subject, Email: subject + "@example.com"}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed user %s: %v", subject, err)
	}
	return row
}
