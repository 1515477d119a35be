package secretdetect

import (
	"sort"
	"strings"
)

// Mask replaces a redacted secret.
const Mask = "[REDACTED]"

// Detector scans text with a fixed pattern set.
type Detector struct {
	patterns []Pattern
}

// NewDetector creates a detector with the default patterns plus extra.
func NewDetector(extra ...Pattern) *Detector {
	return &Detector{patterns: append(DefaultPatterns(), extra...)}
}

// Scan returns the secrets in content ordered by position. Overlapping
// matches are merged into the earliest one.
func (d *Detector) Scan(content string) []Match {
	var matches []Match
	for _, p := range d.patterns {
		for _, loc := range p.Regex.FindAllStringSubmatchIndex(content, -1) {
			start, end := loc[0], loc[1]
			if p.Group > 0 && len(loc) > 2*p.Group+1 && loc[2*p.Group] >= 0 {
				start, end = loc[2*p.Group], loc[2*p.Group+1]
			}
			if p.MinEntropy > 0 && Entropy(content[start:end]) < p.MinEntropy {
				continue
			}
			matches = append(matches, Match{
				Pattern:  p.Name,
				Severity: p.Severity,
				Line:     strings.Count(content[:start], "\n") + 1,
				Start:    start,
				End:      end,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})

	merged := matches[:0]
	for _, m := range matches {
		if n := len(merged); n > 0 && m.Start < merged[n-1].End {
			if m.End > merged[n-1].End {
				merged[n-1].End = m.End
			}
			continue
		}
		merged = append(merged, m)
	}
	return merged
}

// Redact masks every secret in content and returns the number masked.
func (d *Detector) Redact(content string) (string, int) {
	matches := d.Scan(content)
	if len(matches) == 0 {
		return content, 0
	}
	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, m := range matches {
		b.WriteString(content[last:m.Start])
		b.WriteString(Mask)
		last = m.End
	}
	b.WriteString(content[last:])
	return b.String(), len(matches)
}
