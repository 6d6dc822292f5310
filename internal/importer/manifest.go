package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lecternfm/lectern-backend/internal/normalization"
)

// Manifest is the declarative description of a catalog load: the category
// tree plus every speaker with their collections and lecture objects. It is
// authored by hand or emitted by `lecternctl scan`.
type Manifest struct {
	Categories []*ManifestCategory `yaml:"categories,omitempty" json:"categories,omitempty"`
	Speakers   []*ManifestSpeaker  `yaml:"speakers" json:"speakers"`
}

type ManifestCategory struct {
	Slug   string `yaml:"slug" json:"slug"`
	Name   string `yaml:"name" json:"name"`
	Parent string `yaml:"parent,omitempty" json:"parent,omitempty"`
}

type ManifestSpeaker struct {
	Slug        string                `yaml:"slug" json:"slug"`
	Name        string                `yaml:"name" json:"name"`
	Bio         string                `yaml:"bio,omitempty" json:"bio,omitempty"`
	ImageURL    string                `yaml:"image_url,omitempty" json:"image_url,omitempty"`
	Premium     bool                  `yaml:"premium,omitempty" json:"premium,omitempty"`
	Collections []*ManifestCollection `yaml:"collections" json:"collections"`
}

type ManifestCollection struct {
	Slug     string `yaml:"slug" json:"slug"`
	Title    string `yaml:"title" json:"title"`
	Year     int    `yaml:"year,omitempty" json:"year,omitempty"`
	CoverURL string `yaml:"cover_url,omitempty" json:"cover_url,omitempty"`
	// Category slugs; the first one is the primary category.
	Categories []string           `yaml:"categories,omitempty" json:"categories,omitempty"`
	Lectures   []*ManifestLecture `yaml:"lectures" json:"lectures"`
}

type ManifestLecture struct {
	Title        string   `yaml:"title" json:"title"`
	Key          string   `yaml:"key" json:"key"`
	DurationSecs int      `yaml:"duration_secs,omitempty" json:"duration_secs,omitempty"`
	Position     int      `yaml:"position,omitempty" json:"position,omitempty"`
	SizeBytes    int64    `yaml:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	Categories   []string `yaml:"categories,omitempty" json:"categories,omitempty"`

	// Set by Stat when the bucket has no object under Key.
	missing bool
}

// Missing reports whether Stat found no object for this lecture's key.
func (l *ManifestLecture) Missing() bool { return l.missing }

// LoadManifest reads a manifest from disk, decoding by file extension:
// .yaml/.yml or .json.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse yaml manifest: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse json manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("manifest %s: unsupported extension (want .yaml, .yml or .json)", path)
	}
	return &m, nil
}

// Normalize fills derivable fields in place: slugs from names, titles from
// object keys, and 1-based lecture positions in manifest order when absent.
func (m *Manifest) Normalize() {
	for _, cat := range m.Categories {
		cat.Name = normalization.NormalizeName(cat.Name)
		if cat.Slug == "" {
			cat.Slug = normalization.Slugify(cat.Name)
		}
	}
	for _, sp := range m.Speakers {
		sp.Name = normalization.NormalizeName(sp.Name)
		if sp.Slug == "" {
			sp.Slug = normalization.Slugify(sp.Name)
		}
		for _, col := range sp.Collections {
			col.Title = normalization.NormalizeName(col.Title)
			if col.Slug == "" {
				col.Slug = normalization.Slugify(col.Title)
			}
			for i, lec := range col.Lectures {
				if lec.Title == "" {
					lec.Title = normalization.Humanize(stripExt(baseName(lec.Key)))
				}
				lec.Title = normalization.NormalizeName(lec.Title)
				if lec.Position == 0 {
					lec.Position = i + 1
				}
			}
		}
	}
}

// Validate reports every structural problem at once: missing names or keys,
// duplicate slugs, duplicate object keys and links to undeclared categories.
func (m *Manifest) Validate() error {
	var problems []string
	addf := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	categorySlugs := map[string]bool{}
	for i, cat := range m.Categories {
		if cat.Name == "" {
			addf("category[%d]: name required", i)
		}
		if cat.Slug == "" {
			addf("category[%d]: slug required", i)
			continue
		}
		if categorySlugs[cat.Slug] {
			addf("category[%d]: duplicate slug %q", i, cat.Slug)
		}
		categorySlugs[cat.Slug] = true
	}
	for i, cat := range m.Categories {
		if cat.Parent != "" && !categorySlugs[cat.Parent] {
			addf("category[%d] %q: parent %q not declared", i, cat.Slug, cat.Parent)
		}
	}

	checkLinks := func(where string, slugs []string) {
		for _, s := range slugs {
			if !categorySlugs[s] {
				addf("%s: category %q not declared", where, s)
			}
		}
	}

	speakerSlugs := map[string]bool{}
	lectureKeys := map[string]string{}
	for i, sp := range m.Speakers {
		if sp.Name == "" {
			addf("speaker[%d]: name required", i)
		}
		if sp.Slug == "" {
			addf("speaker[%d]: slug required", i)
			continue
		}
		if speakerSlugs[sp.Slug] {
			addf("speaker[%d]: duplicate slug %q", i, sp.Slug)
		}
		speakerSlugs[sp.Slug] = true

		collectionSlugs := map[string]bool{}
		for j, col := range sp.Collections {
			where := fmt.Sprintf("speaker %q collection[%d]", sp.Slug, j)
			if col.Title == "" {
				addf("%s: title required", where)
			}
			if col.Slug == "" {
				addf("%s: slug required", where)
				continue
			}
			if collectionSlugs[col.Slug] {
				addf("%s: duplicate slug %q", where, col.Slug)
			}
			collectionSlugs[col.Slug] = true
			checkLinks(where, col.Categories)

			for k, lec := range col.Lectures {
				lwhere := fmt.Sprintf("%s lecture[%d]", where, k)
				if lec.Key == "" {
					addf("%s: key required", lwhere)
					continue
				}
				if prev, ok := lectureKeys[lec.Key]; ok {
					addf("%s: key %q already used by %s", lwhere, lec.Key, prev)
				}
				lectureKeys[lec.Key] = lwhere
				checkLinks(lwhere, lec.Categories)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("manifest has %d problem(s):\n  %s", len(problems), strings.Join(problems, "\n  "))
}

// Stats summarizes a manifest for plan output.
type Stats struct {
	Categories  int
	Speakers    int
	Collections int
	Lectures    int
	TotalBytes  int64
}

func (m *Manifest) Stats() Stats {
	s := Stats{Categories: len(m.Categories), Speakers: len(m.Speakers)}
	for _, sp := range m.Speakers {
		s.Collections += len(sp.Collections)
		for _, col := range sp.Collections {
			s.Lectures += len(col.Lectures)
			for _, lec := range col.Lectures {
				s.TotalBytes += lec.SizeBytes
			}
		}
	}
	return s
}

// AllLectures returns pointers to every lecture entry in manifest order.
func (m *Manifest) AllLectures() []*ManifestLecture {
	out := []*ManifestLecture{}
	for _, sp := range m.Speakers {
		for _, col := range sp.Collections {
			out = append(out, col.Lectures...)
		}
	}
	return out
}

// Object keys are slash-separated regardless of platform, so key helpers use
// the path package rather than filepath.
func baseName(key string) string { return path.Base(key) }

func fileFormat(key string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
}

func stripExt(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
