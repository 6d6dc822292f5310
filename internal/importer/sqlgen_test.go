package importer

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteSQL(t *testing.T) {
	m := testManifest()
	m.Speakers[0].Name = "Rav O'Brien"
	m.Speakers[1].Collections[0].Lectures[0].missing = true

	var buf bytes.Buffer
	if err := WriteSQL(&buf, m); err != nil {
		t.Fatalf("WriteSQL: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"BEGIN;",
		"COMMIT;",
		"'Rav O''Brien'",
		"ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name",
		"ON CONFLICT (speaker_id, slug) DO UPDATE SET title = EXCLUDED.title",
		"ON CONFLICT (file_key) DO UPDATE SET speaker_id = EXCLUDED.speaker_id",
		"ON CONFLICT (collection_id, category_id) DO UPDATE SET is_primary = EXCLUDED.is_primary;",
		"ON CONFLICT (lecture_id, category_id) DO UPDATE SET is_primary = EXCLUDED.is_primary;",
		"(SELECT id FROM speaker WHERE slug = 'cohen')",
		"UPDATE category SET parent_id = (SELECT id FROM category WHERE slug = 'ethics') WHERE slug = 'mussar';",
		"'cohen/mussar-5784/01_intro.mp3', '01_intro.mp3', 0, 'mp3', 1200, 1",
		"UPDATE collection c SET",
		"UPDATE speaker s SET",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q", want)
		}
	}

	if strings.Contains(out, "levi/halacha/01_candles.m4a") {
		t.Fatalf("lecture without an object was rendered")
	}
}
