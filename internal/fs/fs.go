package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dimslaev/ai-chat/internal/logger"
)

// FileInfo represents file metadata. Path is slash-separated and relative to
// the workspace root.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileSystem is the workspace view used by tools and context assembly
type FileSystem interface {
	// ReadFile reads the entire file
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile writes data to a file, creating parent directories
	WriteFile(ctx context.Context, path string, data []byte) error
	// Stat returns file information
	Stat(ctx context.Context, path string) (*FileInfo, error)
	// ListDir lists directory contents without ignored entries
	ListDir(ctx context.Context, path string) ([]*FileInfo, error)
	// Walk visits every non-ignored file in path order
	Walk(ctx context.Context, fn func(*FileInfo) error) error
}

// ErrOutsideWorkspace is returned for paths that resolve outside the root.
var ErrOutsideWorkspace = errors.New("path is outside the workspace")

// skipDirs are never listed or walked.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// CachedFS is an OS-backed FileSystem rooted at a directory. Directory
// listings are cached and invalidated through fsnotify.
type CachedFS struct {
	baseDir    string
	cacheTTL   time.Duration
	maxEntries int
	log        *logger.Logger

	cacheMu  sync.RWMutex
	dirCache map[string]*dirCacheEntry

	ignoreOnce sync.Once
	ignore     *gitignoreMatcher

	watcher   *fsnotify.Watcher
	stopWatch chan struct{}
	closeOnce sync.Once
}

type dirCacheEntry struct {
	entries   []*FileInfo
	timestamp time.Time
}

// NewCachedFS creates a workspace filesystem rooted at baseDir.
func NewCachedFS(baseDir string, cacheTTL time.Duration, maxEntries int) (*CachedFS, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", abs)
	}
	if maxEntries <= 0 {
		maxEntries = 100
	}

	cfs := &CachedFS{
		baseDir:    abs,
		cacheTTL:   cacheTTL,
		maxEntries: maxEntries,
		log:        logger.Global().WithPrefix("fs"),
		dirCache:   make(map[string]*dirCacheEntry),
		stopWatch:  make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cfs.log.Warn("failed to create file watcher: %v", err)
	} else {
		cfs.watcher = watcher
		go cfs.watchFiles()
	}

	return cfs, nil
}

// Root returns the absolute workspace root.
func (cfs *CachedFS) Root() string {
	return cfs.baseDir
}

// Close stops the watcher.
func (cfs *CachedFS) Close() error {
	var err error
	cfs.closeOnce.Do(func() {
		close(cfs.stopWatch)
		if cfs.watcher != nil {
			err = cfs.watcher.Close()
		}
	})
	return err
}

func (cfs *CachedFS) watchFiles() {
	for {
		select {
		case <-cfs.stopWatch:
			return
		case event, ok := <-cfs.watcher.Events:
			if !ok {
				return
			}
			cfs.invalidate(filepath.Dir(event.Name))
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				cfs.invalidate(event.Name)
			}
		case err, ok := <-cfs.watcher.Errors:
			if !ok {
				return
			}
			cfs.log.Error("filesystem watcher error: %v", err)
		}
	}
}

func (cfs *CachedFS) invalidate(absDir string) {
	cfs.cacheMu.Lock()
	defer cfs.cacheMu.Unlock()
	delete(cfs.dirCache, absDir)
}

func (cfs *CachedFS) cached(absDir string) ([]*FileInfo, bool) {
	cfs.cacheMu.RLock()
	defer cfs.cacheMu.RUnlock()
	entry, ok := cfs.dirCache[absDir]
	if !ok || time.Since(entry.timestamp) >= cfs.cacheTTL {
		return nil, false
	}
	return entry.entries, true
}

func (cfs *CachedFS) store(absDir string, entries []*FileInfo) {
	cfs.cacheMu.Lock()
	defer cfs.cacheMu.Unlock()

	if len(cfs.dirCache) >= cfs.maxEntries {
		var oldestKey string
		var oldestTime time.Time
		for k, v := range cfs.dirCache {
			if oldestKey == "" || v.timestamp.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.timestamp
			}
		}
		delete(cfs.dirCache, oldestKey)
	}
	cfs.dirCache[absDir] = &dirCacheEntry{entries: entries, timestamp: time.Now()}
}

// resolve maps a workspace path to an absolute path and its cleaned
// relative form, rejecting escapes.
func (cfs *CachedFS) resolve(path string) (abs, rel string, err error) {
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Join(cfs.baseDir, path)
	}
	rel, err = filepath.Rel(cfs.baseDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%s: %w", path, ErrOutsideWorkspace)
	}
	return abs, filepath.ToSlash(rel), nil
}

func (cfs *CachedFS) matcher() *gitignoreMatcher {
	cfs.ignoreOnce.Do(func() {
		m, err := parseGitignoreFile(filepath.Join(cfs.baseDir, ".gitignore"))
		if err != nil {
			cfs.log.Warn("failed to read .gitignore: %v", err)
		}
		cfs.ignore = m
	})
	return cfs.ignore
}

func (cfs *CachedFS) ignored(rel string, isDir bool) bool {
	if isDir && skipDirs[filepath.Base(rel)] {
		return true
	}
	return cfs.matcher().matches(rel, isDir)
}

func (cfs *CachedFS) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, _, err := cfs.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func (cfs *CachedFS) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, _, err := cfs.resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return err
	}

	cfs.invalidate(dir)
	return nil
}

func (cfs *CachedFS) Stat(ctx context.Context, path string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, rel, err := cfs.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	return &FileInfo{Path: rel, Size: info.Size(), ModTime: info.ModTime(), IsDir: info.IsDir()}, nil
}

func (cfs *CachedFS) ListDir(ctx context.Context, path string) ([]*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, rel, err := cfs.resolve(path)
	if err != nil {
		return nil, err
	}

	if entries, ok := cfs.cached(abs); ok {
		return entries, nil
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	result := make([]*FileInfo, 0, len(dirEntries))
	for _, entry := range dirEntries {
		childRel := entry.Name()
		if rel != "." {
			childRel = rel + "/" + entry.Name()
		}
		if cfs.ignored(childRel, entry.IsDir()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		result = append(result, &FileInfo{
			Path:    childRel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			IsDir:   entry.IsDir(),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })

	cfs.store(abs, result)
	if cfs.watcher != nil {
		if err := cfs.watcher.Add(abs); err != nil {
			cfs.log.Warn("failed to add watcher for %s: %v", abs, err)
		}
	}

	return result, nil
}

func (cfs *CachedFS) Walk(ctx context.Context, fn func(*FileInfo) error) error {
	return filepath.WalkDir(cfs.baseDir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			if p == cfs.baseDir {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == cfs.baseDir {
			return nil
		}

		rel, relErr := filepath.Rel(cfs.baseDir, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if cfs.ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		return fn(&FileInfo{Path: rel, Size: info.Size(), ModTime: info.ModTime()})
	})
}
