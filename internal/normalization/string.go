package normalization

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Slugify lowercases the input and keeps letters and digits, folding every
// other run of characters into a single hyphen. The result carries no leading
// or trailing hyphens and is stable across repeated application.
func Slugify(input string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// NormalizeName trims the input and collapses interior whitespace runs to a
// single space.
func NormalizeName(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// Humanize turns a slug-like segment into a display name: hyphens and
// underscores become spaces and each word is capitalized.
func Humanize(slug string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	words := strings.Fields(cleaned)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if r == utf8.RuneError {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
