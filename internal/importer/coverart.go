package importer

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const coverSize = 512

// Dark backgrounds that keep white initials readable.
var coverPalette = []color.NRGBA{
	{R: 0x1F, G: 0x3A, B: 0x5F, A: 0xFF},
	{R: 0x4A, G: 0x2E, B: 0x5C, A: 0xFF},
	{R: 0x14, G: 0x53, B: 0x4A, A: 0xFF},
	{R: 0x6B, G: 0x2D, B: 0x26, A: 0xFF},
	{R: 0x3E, G: 0x44, B: 0x51, A: 0xFF},
	{R: 0x5C, G: 0x45, B: 0x1F, A: 0xFF},
	{R: 0x2C, G: 0x5E, B: 0x77, A: 0xFF},
	{R: 0x54, G: 0x30, B: 0x47, A: 0xFF},
}

type CoverResult struct {
	Speakers    int
	Collections int
}

// GenerateCovers renders an initials placeholder for every speaker and
// collection without artwork, uploads it under a versioned key and records
// the public URL. Rows that already carry artwork are left alone, so the
// pass is safe to re-run.
func (i *Importer) GenerateCovers(ctx context.Context, fontPath string) (*CoverResult, error) {
	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("load cover font: %w", err)
	}

	res := &CoverResult{}

	speakers, err := i.speakerRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	for _, sp := range speakers {
		if sp.ImageURL != "" {
			continue
		}
		buf, err := renderCover(face, initials(sp.Name), colorFor(sp.Slug), true)
		if err != nil {
			return nil, fmt.Errorf("render cover for speaker %s: %w", sp.Slug, err)
		}
		// Versioned key so CDNs never serve a stale placeholder.
		key := fmt.Sprintf("covers/speaker/%s/%d.png", sp.Slug, time.Now().UnixNano())
		if err := i.bucket.PutObject(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/png"); err != nil {
			return nil, fmt.Errorf("upload cover %s: %w", key, err)
		}
		url := i.bucket.PublicURL(key)
		if err := i.speakerRepo.UpdateImages(ctx, nil, sp.ID, url, url); err != nil {
			return nil, fmt.Errorf("record cover for speaker %s: %w", sp.Slug, err)
		}
		res.Speakers++
	}

	collections, err := i.collectionRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	for _, col := range collections {
		if col.CoverURL != "" {
			continue
		}
		buf, err := renderCover(face, initials(col.Title), colorFor(col.Slug), false)
		if err != nil {
			return nil, fmt.Errorf("render cover for collection %s: %w", col.Slug, err)
		}
		key := fmt.Sprintf("covers/collection/%s/%d.png", col.Slug, time.Now().UnixNano())
		if err := i.bucket.PutObject(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/png"); err != nil {
			return nil, fmt.Errorf("upload cover %s: %w", key, err)
		}
		url := i.bucket.PublicURL(key)
		if err := i.collectionRepo.UpdateCover(ctx, nil, col.ID, url, url); err != nil {
			return nil, fmt.Errorf("record cover for collection %s: %w", col.Slug, err)
		}
		res.Collections++
	}

	i.log.Info("placeholder covers generated", "speakers", res.Speakers, "collections", res.Collections)
	return res, nil
}

// renderCover draws centered initials on a colored square, clipped to a
// circle for speaker portraits.
func renderCover(face font.Face, text string, bg color.NRGBA, circular bool) (bytes.Buffer, error) {
	dc := gg.NewContext(coverSize, coverSize)
	if circular {
		dc.DrawCircle(float64(coverSize)/2, float64(coverSize)/2, float64(coverSize)/2)
		dc.Clip()
	}

	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, float64(coverSize), float64(coverSize))
	dc.Fill()

	dc.SetFontFace(face)
	tw, th := dc.MeasureString(text)
	cx, cy := float64(coverSize)/2, float64(coverSize)/2
	dc.SetColor(color.White)
	dc.DrawString(text, cx-tw/2, cy+th/2)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("encode png: %w", err)
	}
	return buf, nil
}

// initials takes the first letter of up to two words.
func initials(name string) string {
	count := 0
	var b strings.Builder
	for _, w := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		count++
		if count == 2 {
			break
		}
	}
	if count == 0 {
		return "?"
	}
	return b.String()
}

// colorFor picks a palette entry deterministically so re-renders of the same
// slug keep their background.
func colorFor(slug string) color.NRGBA {
	h := fnv.New32a()
	h.Write([]byte(slug))
	return coverPalette[h.Sum32()%uint32(len(coverPalette))]
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}
	parsed, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse ttf: %w", err)
	}
	return truetype.NewFace(parsed, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}
