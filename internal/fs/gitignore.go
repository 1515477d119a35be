package fs

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// gitignoreMatcher evaluates root .gitignore rules with doublestar globs.
// Later rules win, so negations can re-include paths.
type gitignoreMatcher struct {
	rules []gitignoreRule
}

type gitignoreRule struct {
	glob    string
	negated bool
	dirOnly bool
}

func parseGitignoreFile(p string) (*gitignoreMatcher, error) {
	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &gitignoreMatcher{}, nil
		}
		return &gitignoreMatcher{}, err
	}
	defer file.Close()
	return parseGitignore(file)
}

func parseGitignore(r io.Reader) (*gitignoreMatcher, error) {
	m := &gitignoreMatcher{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule := gitignoreRule{}
		if strings.HasPrefix(line, "!") {
			rule.negated = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}

		// A slash anywhere but the end anchors the pattern at the root.
		if strings.Contains(line, "/") {
			rule.glob = strings.TrimPrefix(line, "/")
		} else {
			rule.glob = "**/" + line
		}
		if !doublestar.ValidatePattern(rule.glob) {
			continue
		}
		m.rules = append(m.rules, rule)
	}
	return m, scanner.Err()
}

// matches reports whether a slash-separated relative path is ignored.
func (m *gitignoreMatcher) matches(rel string, isDir bool) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}
	rel = strings.TrimPrefix(path.Clean(rel), "./")

	ignored := false
	for _, rule := range m.rules {
		if rule.dirOnly && !isDir {
			continue
		}
		if ok, _ := doublestar.Match(rule.glob, rel); ok {
			ignored = !rule.negated
		}
	}
	return ignored
}
