package textutil

import "strings"

// SanitizeFileName makes a string safe to embed in a file name. Path and
// drive separators become dashes, characters special to common shells or
// filesystems are dropped, and so are control characters. Interior spaces
// survive; the result is trimmed at both ends.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(mapped)
}
