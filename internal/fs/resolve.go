package fs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dimslaev/ai-chat/internal/consts"
)

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("file not found")

// NotFoundError reports a missing path together with workspace files that
// share its base name.
type NotFoundError struct {
	Path       string
	Candidates []string
}

func (e *NotFoundError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("file not found: %s", e.Path)
	}
	return fmt.Sprintf("file not found: %s (did you mean: %s)", e.Path, strings.Join(e.Candidates, ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Resolution is the outcome of resolving a user or model supplied path.
type Resolution struct {
	// Path is the path to use.
	Path string
	// AutoPicked is set when Path replaced a missing path because it was the
	// only candidate.
	AutoPicked bool
	// Requested is the path as asked for.
	Requested string
}

// Resolve returns the path when it exists as a file. Otherwise it searches
// for files with the same base name: exactly one candidate is picked
// automatically, anything else yields a *NotFoundError listing them.
func Resolve(ctx context.Context, fsys FileSystem, p string) (Resolution, error) {
	info, err := fsys.Stat(ctx, p)
	if err == nil {
		if info.IsDir {
			return Resolution{}, fmt.Errorf("%s is a directory", p)
		}
		return Resolution{Path: p, Requested: p}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Resolution{}, ctxErr
	}

	candidates, err := FindCandidates(ctx, fsys, p)
	if err != nil {
		return Resolution{}, err
	}
	if len(candidates) == 1 {
		return Resolution{Path: candidates[0], Requested: p, AutoPicked: true}, nil
	}
	return Resolution{}, &NotFoundError{Path: p, Candidates: candidates}
}

// FindCandidates lists workspace files whose base name equals p's, sorted,
// at most consts.MaxNotFoundCandidates.
func FindCandidates(ctx context.Context, fsys FileSystem, p string) ([]string, error) {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return nil, nil
	}
	pattern := "**/" + escapeGlob(base)

	var out []string
	err := fsys.Walk(ctx, func(fi *FileInfo) error {
		if ok, _ := doublestar.Match(pattern, fi.Path); ok {
			out = append(out, fi.Path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(out)
	if len(out) > consts.MaxNotFoundCandidates {
		out = out[:consts.MaxNotFoundCandidates]
	}
	return out, nil
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '{', '}', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
