package fs

import (
	"context"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFS is an in-memory FileSystem for tests.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
	// FailReads makes ReadFile fail for the listed paths.
	FailReads map[string]error
}

func NewMockFS() *MockFS {
	return &MockFS{
		files:     make(map[string][]byte),
		dirs:      map[string]bool{".": true},
		FailReads: make(map[string]error),
	}
}

func mockClean(p string) string {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "" {
		return "."
	}
	return p
}

func (mfs *MockFS) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	p = mockClean(p)
	if err, ok := mfs.FailReads[p]; ok {
		return nil, err
	}
	data, ok := mfs.files[p]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

func (mfs *MockFS) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	p = mockClean(p)
	mfs.files[p] = append([]byte(nil), data...)
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		mfs.dirs[dir] = true
	}
	return nil
}

func (mfs *MockFS) Stat(ctx context.Context, p string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	p = mockClean(p)
	if mfs.dirs[p] {
		return &FileInfo{Path: p, ModTime: time.Now(), IsDir: true}, nil
	}
	data, ok := mfs.files[p]
	if !ok {
		return nil, &os.PathError{Op: "stat", Path: p, Err: os.ErrNotExist}
	}
	return &FileInfo{Path: p, Size: int64(len(data)), ModTime: time.Now()}, nil
}

func (mfs *MockFS) ListDir(ctx context.Context, p string) ([]*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	p = mockClean(p)
	if !mfs.dirs[p] {
		return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}

	var entries []*FileInfo
	for dir := range mfs.dirs {
		if dir != "." && path.Dir(dir) == p && !skipDirs[path.Base(dir)] {
			entries = append(entries, &FileInfo{Path: dir, ModTime: time.Now(), IsDir: true})
		}
	}
	for file, data := range mfs.files {
		if path.Dir(file) == p {
			entries = append(entries, &FileInfo{Path: file, Size: int64(len(data)), ModTime: time.Now()})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (mfs *MockFS) Walk(ctx context.Context, fn func(*FileInfo) error) error {
	mfs.mu.RLock()
	paths := make([]string, 0, len(mfs.files))
	for p := range mfs.files {
		paths = append(paths, p)
	}
	mfs.mu.RUnlock()
	sort.Strings(paths)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if underSkipDir(p) {
			continue
		}
		mfs.mu.RLock()
		size := len(mfs.files[p])
		mfs.mu.RUnlock()
		if err := fn(&FileInfo{Path: p, Size: int64(size), ModTime: time.Now()}); err != nil {
			return err
		}
	}
	return nil
}

func underSkipDir(p string) bool {
	for _, part := range strings.Split(path.Dir(p), "/") {
		if skipDirs[part] {
			return true
		}
	}
	return false
}
