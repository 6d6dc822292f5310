package importer

import (
	"context"
	"testing"

	"github.com/lecternfm/lectern-backend/internal/repos/testutil"
)

func TestScan(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	sp := testutil.SeedSpeaker(t, db, "cohen")
	col := testutil.SeedCollection(t, db, sp, "mussar")
	testutil.SeedLecture(t, db, col, "cohen/mussar/01_intro.mp3", 1200)

	bucket := &fakeBucket{objects: map[string]int64{
		"cohen/mussar/01_intro.mp3":   2048, // already catalogued
		"cohen/mussar/02_walking.mp3": 4096,
		"levi/halacha/01_candles.m4a": 8192,
		"covers/speaker/cohen/1.png":  512, // not audio
		"loose.mp3":                   64,  // outside the speaker/collection/file layout
	}}
	imp := newTestImporter(t, db, bucket)

	result, err := imp.Scan(ctx, "")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if result.Indexed != 1 {
		t.Fatalf("indexed: %d", result.Indexed)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("skipped: %+v", result.Skipped)
	}

	m := result.Manifest
	if len(m.Speakers) != 2 || m.Speakers[0].Slug != "cohen" || m.Speakers[1].Slug != "levi" {
		t.Fatalf("speakers: %+v", m.Speakers)
	}
	if m.Speakers[0].Name != "Cohen" || m.Speakers[1].Name != "Levi" {
		t.Fatalf("derived names: %q, %q", m.Speakers[0].Name, m.Speakers[1].Name)
	}

	mussar := m.Speakers[0].Collections[0]
	if mussar.Slug != "mussar" || mussar.Title != "Mussar" || len(mussar.Lectures) != 1 {
		t.Fatalf("cohen collection: %+v", mussar)
	}
	lec := mussar.Lectures[0]
	if lec.Key != "cohen/mussar/02_walking.mp3" || lec.Title != "02 Walking" || lec.SizeBytes != 4096 {
		t.Fatalf("new lecture: %+v", lec)
	}

	halacha := m.Speakers[1].Collections[0]
	if halacha.Slug != "halacha" || len(halacha.Lectures) != 1 || halacha.Lectures[0].Title != "01 Candles" {
		t.Fatalf("levi collection: %+v", halacha)
	}

	// A scan of only new material validates as a loadable manifest.
	m.Normalize()
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate scanned manifest: %v", err)
	}
}

func TestScanPrefix(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	bucket := &fakeBucket{objects: map[string]int64{
		"cohen/mussar/01_intro.mp3":   2048,
		"levi/halacha/01_candles.m4a": 8192,
	}}
	imp := newTestImporter(t, db, bucket)

	result, err := imp.Scan(ctx, "levi/")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := result.Manifest.Stats().Lectures; got != 1 {
		t.Fatalf("lectures under prefix: %d", got)
	}
	if result.Manifest.Speakers[0].Slug != "levi" {
		t.Fatalf("prefix leaked other speakers: %+v", result.Manifest.Speakers)
	}
}
