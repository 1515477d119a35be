package fs

import "unicode/utf8"

// TruncateText cuts text to at most limit bytes without splitting a UTF-8
// sequence. It reports whether anything was removed.
func TruncateText(text string, limit int) (string, bool) {
	if len(text) <= limit {
		return text, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}
