package storage

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxStemLength = 100
	fallbackStem  = "video"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename turns an uploaded filename into a safe single path
// component. Accents are folded to ASCII, separators and other unsafe
// characters are dropped, and the extension is kept.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	stem = sanitizePart(stem)
	if len(stem) > maxStemLength {
		stem = strings.TrimRight(stem[:maxStemLength], "._")
	}
	if stem == "" {
		stem = fallbackStem
	}

	ext = sanitizePart(ext)
	if ext != "" {
		ext = "." + ext
	}
	return stem + ext
}

// BaseName strips the extension from a sanitized filename
func BaseName(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

func sanitizePart(s string) string {
	s = norm.NFKD.String(s)

	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}

	s = strings.Join(strings.Fields(b.String()), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	return strings.Trim(s, "._")
}
