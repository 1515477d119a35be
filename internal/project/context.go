package project

import (
	"context"
	"errors"
	iofs "io/fs"
	"strings"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/logger"
)

// ContextDoc is the static project description sent ahead of the history.
type ContextDoc struct {
	Name    string
	Content string
}

// LoadContext returns the first readable, non-empty candidate, or nil when
// none exists. Unreadable candidates are logged and skipped.
func LoadContext(ctx context.Context, fsys fs.FileSystem, candidates []string, log *logger.Logger) (*ContextDoc, error) {
	if log == nil {
		log = logger.Global()
	}
	for _, name := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fsys.ReadFile(ctx, name)
		if err != nil {
			if !errors.Is(err, iofs.ErrNotExist) {
				log.Warn("project context %s unreadable: %v", name, err)
			}
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		if cut, truncated := fs.TruncateText(content, consts.MaxAttachedFileBytes); truncated {
			content = cut + "\n[... truncated]"
		}
		return &ContextDoc{Name: name, Content: content}, nil
	}
	return nil, nil
}
