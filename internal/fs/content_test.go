package fs

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		limit     int
		want      string
		truncated bool
	}{
		{"short", "abc", 10, "abc", false},
		{"exact", "abcd", 4, "abcd", false},
		{"ascii", "abcdef", 3, "abc", true},
		{"inside two byte rune", "aé", 2, "a", true},
		{"inside four byte rune", "ab😀", 4, "ab", true},
		{"on rune boundary", "é😀", 2, "é", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, truncated := TruncateText(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.truncated, truncated)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestTruncateTextLongMultibyte(t *testing.T) {
	text := strings.Repeat("ü", 1000)
	got, truncated := TruncateText(text, 501)
	assert.True(t, truncated)
	assert.Len(t, got, 500)
	assert.True(t, utf8.ValidString(got))
}
