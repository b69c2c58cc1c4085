package util

import "strings"

const maxSlugLen = 48

// Slugify turns a display name into a short key-safe string: lowercased,
// runs of anything non-alphanumeric collapsed to single dashes, trimmed
// and capped. Returns "" when nothing usable remains.
func Slugify(name string) string {
	var b strings.Builder

	lastDash := true

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}

		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}

	s := strings.Trim(b.String(), "-")
	if len(s) > maxSlugLen {
		s = strings.Trim(s[:maxSlugLen], "-")
	}

	return s
}
