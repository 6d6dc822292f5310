package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const manifestYAML = `categories:
  - name: Ethics
  - name: Mussar
    parent: ethics
speakers:
  - name: "Rav  Cohen"
    premium: true
    collections:
      - title: Mussar 5784
        year: 2023
        categories: [mussar, ethics]
        lectures:
          - key: cohen/mussar-5784/01_intro-to-mussar.mp3
            duration_secs: 1200
          - key: cohen/mussar-5784/02_walking_the_path.mp3
            title: Walking the Path
            duration_secs: 1800
            size_bytes: 4096
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestLoadManifestYAML(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, "catalog.yaml", manifestYAML))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	m.Normalize()

	if len(m.Categories) != 2 || m.Categories[0].Slug != "ethics" || m.Categories[1].Slug != "mussar" {
		t.Fatalf("category slugs: %+v", m.Categories)
	}
	sp := m.Speakers[0]
	if sp.Name != "Rav Cohen" || sp.Slug != "rav-cohen" || !sp.Premium {
		t.Fatalf("speaker normalization: %+v", sp)
	}
	col := sp.Collections[0]
	if col.Slug != "mussar-5784" || col.Title != "Mussar 5784" {
		t.Fatalf("collection normalization: %+v", col)
	}
	if got := col.Lectures[0].Title; got != "01 Intro To Mussar" {
		t.Fatalf("derived title: %q", got)
	}
	if col.Lectures[1].Title != "Walking the Path" {
		t.Fatalf("explicit title overwritten: %q", col.Lectures[1].Title)
	}
	if col.Lectures[0].Position != 1 || col.Lectures[1].Position != 2 {
		t.Fatalf("positions: %d, %d", col.Lectures[0].Position, col.Lectures[1].Position)
	}

	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	stats := m.Stats()
	if stats.Categories != 2 || stats.Speakers != 1 || stats.Collections != 1 ||
		stats.Lectures != 2 || stats.TotalBytes != 4096 {
		t.Fatalf("Stats: %+v", stats)
	}
	if got := len(m.AllLectures()); got != 2 {
		t.Fatalf("AllLectures: %d", got)
	}
}

func TestLoadManifestJSON(t *testing.T) {
	raw := `{"speakers":[{"slug":"levi","name":"Rav Levi","collections":[{"slug":"halacha","title":"Halacha","lectures":[{"key":"levi/halacha/01_candles.m4a","title":"Candles"}]}]}]}`
	m, err := LoadManifest(writeManifest(t, "catalog.json", raw))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Speakers) != 1 || m.Speakers[0].Slug != "levi" {
		t.Fatalf("speakers: %+v", m.Speakers)
	}
	if key := m.Speakers[0].Collections[0].Lectures[0].Key; key != "levi/halacha/01_candles.m4a" {
		t.Fatalf("lecture key: %q", key)
	}
}

func TestLoadManifestUnsupportedExtension(t *testing.T) {
	if _, err := LoadManifest(writeManifest(t, "catalog.txt", "speakers: []")); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}

func TestManifestValidateCollectsProblems(t *testing.T) {
	m := &Manifest{
		Categories: []*ManifestCategory{
			{Slug: "ethics", Name: "Ethics"},
			{Slug: "ethics", Name: "Ethics Again"},
			{Slug: "mussar", Name: "Mussar", Parent: "nope"},
		},
		Speakers: []*ManifestSpeaker{
			{Slug: "cohen", Collections: []*ManifestCollection{
				{Slug: "a", Title: "A", Lectures: []*ManifestLecture{
					{Key: "x/a/1.mp3", Categories: []string{"ghost"}},
					{Key: "x/a/1.mp3"},
				}},
			}},
		},
	}

	err := m.Validate()
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "5 problem(s)") {
		t.Fatalf("problem count: %v", err)
	}
	for _, want := range []string{
		`duplicate slug "ethics"`,
		`parent "nope" not declared`,
		"name required",
		`category "ghost" not declared`,
		"already used by",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing problem %q in: %v", want, err)
		}
	}
}
