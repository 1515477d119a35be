package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimslaev/ai-chat/internal/logger"
)

func run(t *testing.T, tc *ToolContext, name, args string) ToolResult {
	t.Helper()
	r := NewDefaultRegistry(logger.Discard())
	return r.ExecuteToolCall(context.Background(), tc, call(name, args))
}

func TestReadFile(t *testing.T) {
	tc := newTestContext(t, map[string]string{
		"src/app/main.go": "package main\n\nfunc main() {}\n",
	})

	res := run(t, tc, ToolNameReadFile, `{"path":"src/app/main.go"}`)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "File: src/app/main.go (lines 1-3 of 3)\npackage main\n\nfunc main() {}", res.Content)

	res = run(t, tc, ToolNameReadFile, `{"path":"src/app/main.go","from_line":3,"to_line":3}`)
	require.False(t, res.IsError, res.Content)
	assert.True(t, strings.HasSuffix(res.Content, "func main() {}"))
	assert.Contains(t, res.Content, "lines 3-3 of 3")
}

func TestReadFileAutoPicksSingleCandidate(t *testing.T) {
	tc := newTestContext(t, map[string]string{
		"internal/config/config.go": "package config\n",
	})

	res := run(t, tc, ToolNameReadFile, `{"path":"config.go"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "config.go was not found; reading internal/config/config.go")
	assert.Contains(t, res.Content, "package config")
	assert.Equal(t, true, res.Metadata["auto_picked"])
}

func TestReadFileListsCandidates(t *testing.T) {
	tc := newTestContext(t, map[string]string{
		"a/util.go": "package a\n",
		"b/util.go": "package b\n",
	})

	res := run(t, tc, ToolNameReadFile, `{"path":"util.go"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "file not found: util.go (did you mean: a/util.go, b/util.go)")

	res = run(t, tc, ToolNameReadFile, `{"path":"missing.txt"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "file not found: missing.txt")
}

func TestReadFileLineLimits(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 2500; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	tc := newTestContext(t, map[string]string{"big.txt": b.String()})

	res := run(t, tc, ToolNameReadFile, `{"path":"big.txt"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "lines 1-2000 of 2500")
	assert.Contains(t, res.Content, "file truncated")

	res = run(t, tc, ToolNameReadFile, `{"path":"big.txt","from_line":1,"to_line":2500}`)
	assert.True(t, res.IsError)

	res = run(t, tc, ToolNameReadFile, `{"path":"big.txt","from_line":3000}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "past the end")
}

func TestReadFileRejectsBinary(t *testing.T) {
	tc := newTestContext(t, map[string]string{"img.bin": "\x89PNG\x00\x01"})
	res := run(t, tc, ToolNameReadFile, `{"path":"img.bin"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "binary")
}

func TestWriteFile(t *testing.T) {
	tc := newTestContext(t, map[string]string{"old.txt": "x"})

	res := run(t, tc, ToolNameWriteFile, `{"path":"docs/new.md","content":"# Title\n"}`)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "Created docs/new.md (8 bytes)", res.Content)

	res = run(t, tc, ToolNameWriteFile, `{"path":"old.txt","content":"y"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "Updated old.txt")

	data, err := tc.FS.ReadFile(context.Background(), "docs/new.md")
	require.NoError(t, err)
	assert.Equal(t, "# Title\n", string(data))
}

func TestEditFile(t *testing.T) {
	original := "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n"
	tc := newTestContext(t, map[string]string{"main.go": original})

	patch := "--- a/main.go\n+++ b/main.go\n@@ -3,3 +3,4 @@\n func main() {\n-\tprintln(\"hello\")\n+\tprintln(\"hello, world\")\n+\tprintln(\"bye\")\n }\n"
	args := fmt.Sprintf(`{"path":"main.go","diff":%q}`, patch)
	res := run(t, tc, ToolNameEditFile, args)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "Updated main.go: 1 hunk(s), +2 -1 lines", res.Content)

	data, err := tc.FS.ReadFile(context.Background(), "main.go")
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() {\n\tprintln(\"hello, world\")\n\tprintln(\"bye\")\n}\n", string(data))
}

func TestEditFileRejectsMismatchedContext(t *testing.T) {
	tc := newTestContext(t, map[string]string{"a.txt": "one\ntwo\nthree\n"})

	patch := "@@ -2,1 +2,1 @@\n-TWO\n+2\n"
	res := run(t, tc, ToolNameEditFile, fmt.Sprintf(`{"path":"a.txt","diff":%q}`, patch))
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "does not apply at line 2")

	data, _ := tc.FS.ReadFile(context.Background(), "a.txt")
	assert.Equal(t, "one\ntwo\nthree\n", string(data))
}

func TestEditFileMissingFile(t *testing.T) {
	tc := newTestContext(t, map[string]string{"pkg/a.txt": "x\n"})
	res := run(t, tc, ToolNameEditFile, `{"path":"a.txt","diff":"@@ -1,1 +1,1 @@\n-x\n+y\n"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "did you mean: pkg/a.txt")
}

func TestApplyUnifiedDiffInsertion(t *testing.T) {
	out, stats, err := applyUnifiedDiff("a\nb\n", "@@ -1,0 +2,1 @@\n+inserted\n")
	require.NoError(t, err)
	assert.Equal(t, "a\ninserted\nb\n", out)
	assert.Equal(t, 1, stats.added)

	out, _, err = applyUnifiedDiff("", "@@ -0,0 +1,2 @@\n+x\n+y\n")
	require.NoError(t, err)
	assert.Equal(t, "x\ny\n", out)
}

func TestListDirectory(t *testing.T) {
	tc := newTestContext(t, map[string]string{
		"go.mod":            "module x\n",
		"internal/a/a.go":   "package a\n",
		"node_modules/x.js": "",
	})

	res := run(t, tc, ToolNameListDirectory, `{}`)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "go.mod (9 B)\ninternal/\n\n1 directory, 1 file", res.Content)

	res = run(t, tc, ToolNameListDirectory, `{"path":"nope"}`)
	assert.True(t, res.IsError)
}

func TestSearchFiles(t *testing.T) {
	tc := newTestContext(t, map[string]string{
		"cmd/main.go":           "",
		"internal/a/a.go":       "",
		"internal/a/a_test.go":  "",
		"internal/b/README.md":  "",
		"node_modules/pkg/x.go": "",
	})

	res := run(t, tc, ToolNameSearchFiles, `{"pattern":"*_test.go"}`)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "internal/a/a_test.go", res.Content)

	res = run(t, tc, ToolNameSearchFiles, `{"pattern":"internal/**/*.go"}`)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "internal/a/a.go\ninternal/a/a_test.go", res.Content)

	res = run(t, tc, ToolNameSearchFiles, `{"pattern":"*.rs"}`)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Content, "No files match")

	res = run(t, tc, ToolNameSearchFiles, `{"pattern":"[abc"}`)
	assert.True(t, res.IsError)
}

func TestSearchText(t *testing.T) {
	tc := newTestContext(t, map[string]string{
		"a.go":     "package a\n\nfunc Hello() {}\n",
		"b.go":     "package b\n\n// hello there\n",
		"notes.md": "Hello docs\n",
	})

	res := run(t, tc, ToolNameSearchText, `{"pattern":"Hello","glob":"*.go"}`)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "a.go:3: func Hello() {}", res.Content)

	res = run(t, tc, ToolNameSearchText, `{"pattern":"hello","case_insensitive":true}`)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "a.go:3: func Hello() {}\nb.go:3: // hello there\nnotes.md:1: Hello docs", res.Content)

	res = run(t, tc, ToolNameSearchText, `{"pattern":"("}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "invalid regular expression")
}

func TestTodoTool(t *testing.T) {
	tc := newTestContext(t, nil)

	res := run(t, tc, ToolNameTodo, `{"action":"add","text":"write tests"}`)
	require.False(t, res.IsError, res.Content)
	assert.Contains(t, res.Content, "Added t1")

	res = run(t, tc, ToolNameTodo, `{"action":"check","id":"t1"}`)
	require.False(t, res.IsError, res.Content)
	assert.Equal(t, "- [x] t1: write tests", res.Content)

	res = run(t, tc, ToolNameTodo, `{"action":"explode"}`)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "must be one of")

	res = run(t, tc, ToolNameTodo, `{"action":"delete","id":"t5"}`)
	assert.True(t, res.IsError)
}
