package cartridge

import (
	"strings"
	"unicode"
)

// cleanGameboyTitle turns the raw header title into a printable string:
// NULs end the title, non-printable bytes become '?'.
func cleanGameboyTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))
	for _, b := range titleBytes {
		if b == 0 {
			break
		}
		r := rune(b)
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}
	return title
}
