// Package doi canonicalizes free-form DOI input.
package doi

import "strings"

var prefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"dx.doi.org/",
	"doi:",
}

// Normalize strips resolver-URL and scheme prefixes, trims whitespace and
// lower-cases. It returns "" for input that cannot be a DOI; callers treat
// empty as "no DOI", never as an error. Idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for stripped := true; stripped; {
		stripped = false
		for _, p := range prefixes {
			if strings.HasPrefix(s, p) {
				s = strings.TrimSpace(strings.TrimPrefix(s, p))
				stripped = true
			}
		}
	}
	if !strings.HasPrefix(s, "10.") || !strings.Contains(s, "/") {
		return ""
	}
	return s
}

const maxFileNameLen = 80

// SafeFileName derives a stable, collision-tolerant identifier from a DOI for
// use in export file names: non-alphanumerics become underscores, length is
// capped.
func SafeFileName(doi string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(doi) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "report"
	}
	if len(name) > maxFileNameLen {
		name = name[:maxFileNameLen]
	}
	return name
}
