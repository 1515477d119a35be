// Package secretdetect finds credentials in workspace text so they can be
// masked before the text is sent to a provider.
package secretdetect

import "regexp"

// Severity represents the severity level of a detected secret.
type Severity string

const (
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Pattern is one kind of secret.
type Pattern struct {
	Name     string
	Regex    *regexp.Regexp
	Severity Severity
	// Group selects the submatch to mask; 0 masks the whole match.
	Group int
	// MinEntropy rejects matches whose masked part looks like a placeholder.
	MinEntropy float64
}

// Match is one secret found in a text.
type Match struct {
	Pattern  string
	Severity Severity
	Line     int // 1-based
	Start    int // byte offsets into the scanned text
	End      int
}
