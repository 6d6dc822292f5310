package importer

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteSQL renders the manifest as idempotent postgres statements instead of
// loading it: the same upserts Run performs, with foreign keys resolved by
// slug subselects so the script works against any existing catalog. Entries
// flagged missing by Stat are left out.
func WriteSQL(w io.Writer, m *Manifest) error {
	var b strings.Builder
	fmt.Fprintf(&b, "-- lectern catalog load, generated %s\n", time.Now().UTC().Format(time.RFC3339))
	b.WriteString("BEGIN;\n\n")

	for _, cat := range m.Categories {
		fmt.Fprintf(&b,
			"INSERT INTO category (id, slug, name, created_at, updated_at)\n"+
				"VALUES (gen_random_uuid(), %s, %s, NOW(), NOW())\n"+
				"ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW();\n\n",
			quoteSQL(cat.Slug), quoteSQL(cat.Name))
	}
	for _, cat := range m.Categories {
		if cat.Parent == "" {
			continue
		}
		fmt.Fprintf(&b,
			"UPDATE category SET parent_id = (SELECT id FROM category WHERE slug = %s) WHERE slug = %s;\n\n",
			quoteSQL(cat.Parent), quoteSQL(cat.Slug))
	}

	for _, sp := range m.Speakers {
		fmt.Fprintf(&b,
			"INSERT INTO speaker (id, slug, name, bio, image_url, premium, created_at, updated_at)\n"+
				"VALUES (gen_random_uuid(), %s, %s, %s, %s, %s, NOW(), NOW())\n"+
				"ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, bio = EXCLUDED.bio, "+
				"image_url = EXCLUDED.image_url, premium = EXCLUDED.premium, updated_at = NOW();\n\n",
			quoteSQL(sp.Slug), quoteSQL(sp.Name), quoteSQL(sp.Bio), quoteSQL(sp.ImageURL), boolSQL(sp.Premium))

		speakerRef := fmt.Sprintf("(SELECT id FROM speaker WHERE slug = %s)", quoteSQL(sp.Slug))
		for _, col := range sp.Collections {
			fmt.Fprintf(&b,
				"INSERT INTO collection (id, speaker_id, slug, title, year, cover_url, created_at, updated_at)\n"+
					"VALUES (gen_random_uuid(), %s, %s, %s, %d, %s, NOW(), NOW())\n"+
					"ON CONFLICT (speaker_id, slug) DO UPDATE SET title = EXCLUDED.title, "+
					"year = EXCLUDED.year, cover_url = EXCLUDED.cover_url, updated_at = NOW();\n\n",
				speakerRef, quoteSQL(col.Slug), quoteSQL(col.Title), col.Year, quoteSQL(col.CoverURL))

			collectionRef := fmt.Sprintf("(SELECT id FROM collection WHERE speaker_id = %s AND slug = %s)",
				speakerRef, quoteSQL(col.Slug))
			for idx, categorySlug := range col.Categories {
				fmt.Fprintf(&b,
					"INSERT INTO collection_category (id, collection_id, category_id, is_primary, created_at)\n"+
						"VALUES (gen_random_uuid(), %s, (SELECT id FROM category WHERE slug = %s), %s, NOW())\n"+
						"ON CONFLICT (collection_id, category_id) DO UPDATE SET is_primary = EXCLUDED.is_primary;\n\n",
					collectionRef, quoteSQL(categorySlug), boolSQL(idx == 0))
			}

			for _, lec := range col.Lectures {
				if lec.missing {
					continue
				}
				fmt.Fprintf(&b,
					"INSERT INTO lecture (id, speaker_id, collection_id, title, file_key, file_name, "+
						"file_size_bytes, file_format, duration_secs, position, created_at, updated_at)\n"+
						"VALUES (gen_random_uuid(), %s, %s, %s, %s, %s, %d, %s, %d, %d, NOW(), NOW())\n"+
						"ON CONFLICT (file_key) DO UPDATE SET speaker_id = EXCLUDED.speaker_id, "+
						"collection_id = EXCLUDED.collection_id, title = EXCLUDED.title, "+
						"file_name = EXCLUDED.file_name, file_size_bytes = EXCLUDED.file_size_bytes, "+
						"file_format = EXCLUDED.file_format, duration_secs = EXCLUDED.duration_secs, "+
						"position = EXCLUDED.position, updated_at = NOW();\n\n",
					speakerRef, collectionRef, quoteSQL(lec.Title), quoteSQL(lec.Key),
					quoteSQL(baseName(lec.Key)), lec.SizeBytes, quoteSQL(fileFormat(lec.Key)),
					lec.DurationSecs, lec.Position)

				lectureRef := fmt.Sprintf("(SELECT id FROM lecture WHERE file_key = %s)", quoteSQL(lec.Key))
				for idx, categorySlug := range lec.Categories {
					fmt.Fprintf(&b,
						"INSERT INTO lecture_category (id, lecture_id, category_id, is_primary, created_at)\n"+
							"VALUES (gen_random_uuid(), %s, (SELECT id FROM category WHERE slug = %s), %s, NOW())\n"+
							"ON CONFLICT (lecture_id, category_id) DO UPDATE SET is_primary = EXCLUDED.is_primary;\n\n",
						lectureRef, quoteSQL(categorySlug), boolSQL(idx == 0))
				}
			}
		}
	}

	b.WriteString(
		"UPDATE collection c SET\n" +
			"  lecture_count = (SELECT COUNT(*) FROM lecture l WHERE l.collection_id = c.id AND l.deleted_at IS NULL),\n" +
			"  total_duration_secs = (SELECT COALESCE(SUM(l.duration_secs), 0) FROM lecture l WHERE l.collection_id = c.id AND l.deleted_at IS NULL);\n\n")
	b.WriteString(
		"UPDATE speaker s SET\n" +
			"  lecture_count = (SELECT COUNT(*) FROM lecture l WHERE l.speaker_id = s.id AND l.deleted_at IS NULL),\n" +
			"  collection_count = (SELECT COUNT(*) FROM collection c WHERE c.speaker_id = s.id AND c.deleted_at IS NULL);\n\n")

	b.WriteString("COMMIT;\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func quoteSQL(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func boolSQL(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}
