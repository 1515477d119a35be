package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimslaev/ai-chat/internal/config"
	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/llm"
	"github.com/dimslaev/ai-chat/internal/logger"
	"github.com/dimslaev/ai-chat/internal/session"
	"github.com/dimslaev/ai-chat/internal/tools"
)

func newTestAssembler(t *testing.T, files map[string]string) (*Assembler, *fs.MockFS) {
	t.Helper()
	mfs := fs.NewMockFS()
	for p, content := range files {
		require.NoError(t, mfs.WriteFile(context.Background(), p, []byte(content)))
	}
	registry := tools.NewDefaultRegistry(logger.Discard())
	return NewAssembler(mfs, registry, "/work", []string{"AGENTS.md"}, "Go", logger.Discard()), mfs
}

func TestPrepareMessagesOrder(t *testing.T) {
	a, _ := newTestAssembler(t, map[string]string{
		"AGENTS.md":  "Use tabs.",
		"main.go":    "package main",
		"README.md":  "# Readme",
		"unused.txt": "ignored",
	})
	state := session.NewState(true)
	state.AttachFile(session.AttachedFile{Locator: "main.go"})
	state.AttachFile(session.AttachedFile{Locator: "README.md"})
	state.Append(&session.Message{Role: llm.RoleUser, Content: "first"})
	state.Append(&session.Message{Role: llm.RoleAssistant, Content: "answer"})
	state.Append(&session.Message{Role: llm.RoleUser, Content: "second"})
	state.SetContinuation("partial")

	msgs, err := a.PrepareMessages(context.Background(), state, config.Snapshot{HistoryLimit: 20, ToolsEnabled: true})
	require.NoError(t, err)
	require.Len(t, msgs, 8)

	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "/work")
	assert.Contains(t, msgs[0].Content, tools.ToolNameReadFile)

	assert.Contains(t, msgs[1].Content, "AGENTS.md")
	assert.Contains(t, msgs[1].Content, "Use tabs.")

	assert.Contains(t, msgs[2].Content, "Attached file main.go")
	assert.Contains(t, msgs[2].Content, "```go\npackage main\n```")
	assert.Contains(t, msgs[3].Content, "Attached file README.md")

	assert.Equal(t, "first", msgs[4].Content)
	assert.Equal(t, "answer", msgs[5].Content)
	assert.Equal(t, "second", msgs[6].Content)

	assert.Equal(t, llm.RoleAssistant, msgs[7].Role)
	assert.Equal(t, "partial", msgs[7].Content)
}

func TestPrepareMessagesIsIdempotent(t *testing.T) {
	a, _ := newTestAssembler(t, map[string]string{"main.go": "package main"})
	state := session.NewState(false)
	state.AttachFile(session.AttachedFile{Locator: "main.go"})
	state.Append(&session.Message{Role: llm.RoleUser, Content: "hello"})

	snap := config.Snapshot{HistoryLimit: 20}
	first, err := a.PrepareMessages(context.Background(), state, snap)
	require.NoError(t, err)
	second, err := a.PrepareMessages(context.Background(), state, snap)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first[0].Content, "Tools are disabled")
}

func TestPrepareMessagesSkipsUnreadableAttachment(t *testing.T) {
	a, mfs := newTestAssembler(t, map[string]string{"ok.go": "package ok", "bad.go": "package bad"})
	mfs.FailReads["bad.go"] = errors.New("permission denied")

	state := session.NewState(false)
	state.AttachFile(session.AttachedFile{Locator: "bad.go"})
	state.AttachFile(session.AttachedFile{Locator: "missing.go"})
	state.AttachFile(session.AttachedFile{Locator: "ok.go"})
	state.Append(&session.Message{Role: llm.RoleUser, Content: "hi"})

	msgs, err := a.PrepareMessages(context.Background(), state, config.Snapshot{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1].Content, "ok.go")
	assert.Equal(t, "hi", msgs[2].Content)
}

func TestPrepareMessagesHistoryLimit(t *testing.T) {
	a, _ := newTestAssembler(t, nil)
	state := session.NewState(false)
	for i := 0; i < 6; i++ {
		state.Append(&session.Message{Role: llm.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	msgs, err := a.PrepareMessages(context.Background(), state, config.Snapshot{HistoryLimit: 2})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m4", msgs[1].Content)
	assert.Equal(t, "m5", msgs[2].Content)
}

func TestPrepareMessagesExcludesOpenMessage(t *testing.T) {
	a, _ := newTestAssembler(t, nil)
	state := session.NewState(false)
	state.Append(&session.Message{Role: llm.RoleUser, Content: "hi"})
	_, err := state.OpenAssistant()
	require.NoError(t, err)
	require.NoError(t, state.AppendToOpen("Start"))
	state.SetContinuation("Start")

	msgs, err := a.PrepareMessages(context.Background(), state, config.Snapshot{})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "Start", msgs[2].Content)
}

func TestPrepareMessagesTruncatesAttachmentOnRuneBoundary(t *testing.T) {
	a, _ := newTestAssembler(t, map[string]string{
		"notes.txt": "a" + strings.Repeat("é", consts.MaxAttachedFileBytes),
	})
	state := session.NewState(false)
	state.AttachFile(session.AttachedFile{Locator: "notes.txt"})

	msgs, err := a.PrepareMessages(context.Background(), state, config.Snapshot{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, utf8.ValidString(msgs[1].Content))
	assert.Contains(t, msgs[1].Content, "é\n[... truncated]")
}

func TestPrepareMessagesUsesSnapshotToolsFlag(t *testing.T) {
	a, _ := newTestAssembler(t, nil)
	state := session.NewState(true)
	state.Append(&session.Message{Role: llm.RoleUser, Content: "hi"})

	msgs, err := a.PrepareMessages(context.Background(), state, config.Snapshot{ToolsEnabled: false})
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "Tools are disabled")

	state.SetToolsEnabled(false)
	msgs, err = a.PrepareMessages(context.Background(), state, config.Snapshot{ToolsEnabled: true})
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, tools.ToolNameReadFile)
}

func TestFencedUsesLongerFence(t *testing.T) {
	assert.Equal(t, "```go\nx\n```", fenced("x\n", "go"))
	assert.Equal(t, "````md\na ``` b\n````", fenced("a ``` b", "md"))
}

func TestHasToolExchanges(t *testing.T) {
	assert.False(t, hasToolExchanges([]llm.Message{{Role: llm.RoleUser}}))
	assert.True(t, hasToolExchanges([]llm.Message{{Role: llm.RoleTool}}))
	assert.True(t, hasToolExchanges([]llm.Message{{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "x"}}}}))
}
