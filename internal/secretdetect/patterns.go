package secretdetect

import "regexp"

// DefaultPatterns returns the built-in credential patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "AWS Access Key ID", Severity: SeverityHigh,
			Regex: regexp.MustCompile(`\b(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}\b`)},
		{Name: "Anthropic API Key", Severity: SeverityCritical,
			Regex: regexp.MustCompile(`sk-ant-(?:api|admin)\d{2}-[A-Za-z0-9_\-]{20,}`)},
		{Name: "OpenAI API Key", Severity: SeverityCritical,
			Regex: regexp.MustCompile(`sk-(?:proj-|svcacct-)?[A-Za-z0-9_\-]{32,}`)},
		{Name: "Groq API Key", Severity: SeverityCritical,
			Regex: regexp.MustCompile(`\bgsk_[A-Za-z0-9]{40,}\b`)},
		{Name: "Google API Key", Severity: SeverityHigh,
			Regex: regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`)},
		{Name: "GitHub Token", Severity: SeverityCritical,
			Regex: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`)},
		{Name: "GitHub Fine-grained Token", Severity: SeverityCritical,
			Regex: regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{60,}\b`)},
		{Name: "Slack Token", Severity: SeverityHigh,
			Regex: regexp.MustCompile(`\bxox[abposr]-[0-9A-Za-z\-]{20,}\b`)},
		{Name: "Private Key", Severity: SeverityCritical,
			Regex: regexp.MustCompile(`(?s)-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY(?: BLOCK)?-----.*?-----END (?:RSA |EC |DSA |OPENSSH |PGP |ENCRYPTED )?PRIVATE KEY(?: BLOCK)?-----`)},
		{Name: "Credential Assignment", Severity: SeverityMedium, Group: 1, MinEntropy: DefaultEntropyThreshold,
			Regex: regexp.MustCompile(`(?i)(?:password|passwd|secret|api[_-]?key|access[_-]?token|auth[_-]?token|client[_-]?secret)["']?\s*[:=]\s*["']?([^\s"',;]{12,})`)},
	}
}
