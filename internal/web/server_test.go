package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimslaev/ai-chat/internal/config"
	"github.com/dimslaev/ai-chat/internal/event"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/llm"
	"github.com/dimslaev/ai-chat/internal/llm/llmtest"
	"github.com/dimslaev/ai-chat/internal/logger"
	"github.com/dimslaev/ai-chat/internal/orchestrator"
)

const testToken = "test-token"

type testHost struct {
	ts  *httptest.Server
	srv *Server

	mu      sync.Mutex
	engines []*orchestrator.Engine
}

func (h *testHost) engine(t *testing.T) *orchestrator.Engine {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Len(t, h.engines, 1)
	return h.engines[0]
}

func newTestServer(t *testing.T, client *llmtest.Client, files map[string]string) *httptest.Server {
	t.Helper()
	return newTestHost(t, client, files).ts
}

func newTestHost(t *testing.T, client *llmtest.Client, files map[string]string) *testHost {
	t.Helper()
	host := &testHost{}
	mfs := fs.NewMockFS()
	for p, content := range files {
		require.NoError(t, mfs.WriteFile(context.Background(), p, []byte(content)))
	}
	snap := config.DefaultConfig().Snapshot()

	srv, err := NewServer(Options{
		AuthToken: testToken,
		Logger:    logger.Discard(),
		NewEngine: func(ctx context.Context, sink event.Sink) (*orchestrator.Engine, error) {
			e, err := orchestrator.New(ctx, orchestrator.Options{
				Client:     client,
				FS:         mfs,
				Sink:       sink,
				Settings:   func() config.Snapshot { return snap },
				WorkingDir: "/work",
				Logger:     logger.Discard(),
			})
			if err == nil {
				host.mu.Lock()
				host.engines = append(host.engines, e)
				host.mu.Unlock()
			}
			return e, err
		},
	})
	require.NoError(t, err)

	host.srv = srv
	host.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		host.ts.Close()
		srv.Hub().Stop()
	})
	return host
}

// slowText streams n chunks, sleeping before each one.
func slowText(n int, delay time.Duration) llmtest.StreamScript {
	chunks := make([]string, n)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("c%d ", i)
	}
	script := llmtest.Text(llm.FinishStop, chunks...)
	script.BeforeDelta = func(int) { time.Sleep(delay) }
	return script
}

func countType(msgs []WebMessage, msgType string) int {
	n := 0
	for _, m := range msgs {
		if m.Type == msgType {
			n++
		}
	}
	return n
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + testToken
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	ready := readMessage(t, conn)
	require.Equal(t, MessageTypeReady, ready.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WebMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg WebMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) []WebMessage {
	t.Helper()
	var seen []WebMessage
	for {
		msg := readMessage(t, conn)
		seen = append(seen, msg)
		if msg.Type == msgType {
			return seen
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, cmd Command) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, llmtest.New(), nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	ts := newTestServer(t, llmtest.New(), nil)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=wrong"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubmitTurnStreamsEvents(t *testing.T) {
	client := llmtest.New()
	client.OnComplete(llmtest.Reply{Response: &llm.CompletionResponse{FinishReason: llm.FinishStop}})
	client.OnStream(llmtest.Text(llm.FinishStop, "Hi", " there"))
	ts := newTestServer(t, client, nil)
	conn := dial(t, ts)

	send(t, conn, Command{Type: CommandSubmitTurn, ID: "t1", Content: "hello"})
	msgs := readUntil(t, conn, string(event.MessageEnded))

	var types []string
	text := ""
	for _, m := range msgs {
		types = append(types, m.Type)
		text += m.Text
	}
	assert.Equal(t, []string{"message-started", "chunk-appended", "chunk-appended", "message-ended"}, types)
	assert.Equal(t, "Hi there", text)
}

func TestAttachFileCommands(t *testing.T) {
	ts := newTestServer(t, llmtest.New(), map[string]string{
		"src/main.go": "package main",
		"a/util.go":   "package a",
		"b/util.go":   "package b",
	})
	conn := dial(t, ts)

	send(t, conn, Command{Type: CommandAttachFile, Path: "main.go"})
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeFileAttached, msg.Type)
	assert.Equal(t, "src/main.go", msg.Path)
	assert.Equal(t, true, msg.Data["auto_picked"])

	send(t, conn, Command{Type: CommandAttachFile, Path: "util.go"})
	msg = readMessage(t, conn)
	assert.Equal(t, string(event.Error), msg.Type)
	assert.Equal(t, CodeFileNotFound, msg.Code)
	assert.ElementsMatch(t, []string{"a/util.go", "b/util.go"}, msg.Candidates)

	send(t, conn, Command{Type: CommandDetachFile, Path: "src/main.go"})
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeFileDetached, msg.Type)
	assert.Equal(t, true, msg.Data["removed"])
}

func TestToggleToolsAndReset(t *testing.T) {
	ts := newTestServer(t, llmtest.New(), nil)
	conn := dial(t, ts)

	send(t, conn, Command{Type: CommandToggleTools, Enabled: boolPtr(false)})
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeToolsToggled, msg.Type)
	require.NotNil(t, msg.Enabled)
	assert.False(t, *msg.Enabled)

	send(t, conn, Command{Type: CommandToggleTools})
	msg = readMessage(t, conn)
	require.NotNil(t, msg.Enabled)
	assert.True(t, *msg.Enabled)

	send(t, conn, Command{Type: CommandReset})
	assert.Equal(t, MessageTypeSessionReset, readMessage(t, conn).Type)
}

func TestStopWhenIdle(t *testing.T) {
	ts := newTestServer(t, llmtest.New(), nil)
	conn := dial(t, ts)

	send(t, conn, Command{Type: CommandStop})
	assert.Equal(t, string(event.MessageEnded), readMessage(t, conn).Type)
}

func TestStopRightAfterSubmitCancelsTurn(t *testing.T) {
	client := llmtest.New()
	client.OnStream(slowText(4, 25*time.Millisecond))
	host := newTestHost(t, client, nil)
	conn := dial(t, host.ts)

	send(t, conn, Command{Type: CommandSubmitTurn, ID: "t1", Content: "hello"})
	send(t, conn, Command{Type: CommandStop})
	msgs := readUntil(t, conn, string(event.MessageEnded))
	if len(msgs) > 1 {
		assert.Equal(t, string(event.MessageStarted), msgs[0].Type)
	}

	engine := host.engine(t)
	require.Eventually(t, func() bool { return !engine.State().Busy() }, 5*time.Second, 10*time.Millisecond)

	send(t, conn, Command{Type: CommandToggleTools, Enabled: boolPtr(false)})
	msgs = append(msgs, readUntil(t, conn, MessageTypeToolsToggled)...)

	assert.Less(t, countType(msgs, string(event.ChunkAppended)), 4)
	assert.Equal(t, 1, countType(msgs, string(event.MessageEnded)))
	assert.Zero(t, countType(msgs, string(event.Error)))
	for _, m := range engine.State().History() {
		assert.NotEqual(t, "c0 c1 c2 c3 ", m.Content)
	}
}

func TestServerStopEndsRunningTurns(t *testing.T) {
	client := llmtest.New()
	client.OnStream(slowText(200, 10*time.Millisecond))
	host := newTestHost(t, client, nil)
	conn := dial(t, host.ts)

	send(t, conn, Command{Type: CommandSubmitTurn, ID: "t1", Content: "hello"})
	require.Equal(t, string(event.MessageStarted), readMessage(t, conn).Type)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, host.srv.Stop(ctx))
	assert.False(t, host.engine(t).State().Busy())

	msgs := readUntil(t, conn, MessageTypeSystem)
	assert.Equal(t, 1, countType(msgs, string(event.MessageEnded)))
	assert.Less(t, countType(msgs, string(event.ChunkAppended)), 200)
	assert.Equal(t, "server shutting down", msgs[len(msgs)-1].Message)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestInvalidCommands(t *testing.T) {
	ts := newTestServer(t, llmtest.New(), nil)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, CodeInvalidCommand, msg.Code)

	send(t, conn, Command{Type: "launch_rockets"})
	msg = readMessage(t, conn)
	assert.Equal(t, CodeInvalidCommand, msg.Code)

	send(t, conn, Command{Type: CommandSubmitTurn})
	msg = readMessage(t, conn)
	assert.Equal(t, CodeInvalidCommand, msg.Code)
}

func TestSameHostOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://localhost:8765/ws", nil)
	assert.True(t, sameHostOrigin(r))

	r.Header.Set("Origin", "http://localhost:8765")
	assert.True(t, sameHostOrigin(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, sameHostOrigin(r))
}
