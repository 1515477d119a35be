package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/event"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/logger"
	"github.com/dimslaev/ai-chat/internal/orchestrator"
)

// Client is one WebSocket connection with its own engine and session.
type Client struct {
	ID     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan *WebMessage
	done   chan struct{}
	once   sync.Once
	engine *orchestrator.Engine
	ctx    context.Context
	cancel context.CancelFunc
	turns  sync.WaitGroup
	debug  bool
	log    *logger.Logger
}

// NewClient creates a client. The engine is attached with SetEngine since
// its event sink is the client itself.
func NewClient(hub *Hub, conn *websocket.Conn, debug bool, log *logger.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &Client{
		ID:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan *WebMessage, 256),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		debug:  debug,
		log:    log.WithPrefix("ws " + id[:8]),
	}
}

// SetEngine attaches the engine serving this client.
func (c *Client) SetEngine(e *orchestrator.Engine) {
	c.engine = e
}

// Emit implements event.Sink. Events are never dropped while the connection
// is open.
func (c *Client) Emit(e event.Event) {
	c.deliver(fromEvent(e))
}

func (c *Client) deliver(msg *WebMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

// enqueue is used for broadcasts and may drop when the client is slow.
func (c *Client) enqueue(msg *WebMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.log.Warn("Client send channel full, dropping message")
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		c.cancel()
		close(c.done)
	})
}

// ReadPump reads commands until the connection fails. On exit the active
// turn is cancelled and awaited.
func (c *Client) ReadPump() {
	defer func() {
		c.close()
		c.turns.Wait()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(consts.WebSocketMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(consts.WebSocketPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(consts.WebSocketPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("WebSocket read error: %v", err)
			}
			return
		}
		if c.debug {
			c.log.Debug("WebSocket received: %s", string(data))
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.log.Warn("Failed to unmarshal command: %v", err)
			c.deliver(errorMessage(fmt.Sprintf("invalid command: %v", err), CodeInvalidCommand))
			continue
		}
		c.handleCommand(&cmd)
	}
}

// WritePump writes queued messages and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(consts.WebSocketPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.log.Error("Failed to write message: %v", err)
				c.close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(consts.WebSocketWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			c.flush()
			_ = c.conn.SetWriteDeadline(time.Now().Add(consts.WebSocketWriteWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) write(message *WebMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		c.log.Error("Failed to marshal message: %v", err)
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(consts.WebSocketWriteWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	if c.debug {
		c.log.Debug("WebSocket sent: %s", string(data))
	}
	return nil
}

// flush writes messages queued before the client was closed.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// shutdown cancels the running turn, waits for it, sends notice and closes
// the connection.
func (c *Client) shutdown(ctx context.Context, notice *WebMessage) error {
	c.cancel()
	waited := make(chan struct{})
	go func() {
		c.turns.Wait()
		close(waited)
	}()

	var err error
	select {
	case <-waited:
	case <-ctx.Done():
		err = fmt.Errorf("client %s: turn did not stop: %w", c.ID, ctx.Err())
	}
	if notice != nil {
		c.enqueue(notice)
	}
	c.close()
	return err
}

func (c *Client) handleCommand(cmd *Command) {
	switch cmd.Type {
	case CommandSubmitTurn:
		c.submit(cmd)

	case CommandStop:
		c.engine.Stop()

	case CommandAttachFile:
		c.attach(cmd)

	case CommandDetachFile:
		removed := c.engine.DetachFile(cmd.Path)
		c.deliver(&WebMessage{
			Type:      MessageTypeFileDetached,
			Path:      cmd.Path,
			Data:      map[string]any{"removed": removed},
			Timestamp: time.Now(),
		})

	case CommandToggleTools:
		enabled := !c.engine.ToolsEnabled()
		if cmd.Enabled != nil {
			enabled = *cmd.Enabled
		}
		if err := c.engine.SetToolsEnabled(c.ctx, enabled); err != nil {
			c.deliver(errorMessage(err.Error(), CodeSettingsError))
		}
		c.deliver(&WebMessage{Type: MessageTypeToolsToggled, Enabled: boolPtr(c.engine.ToolsEnabled()), Timestamp: time.Now()})

	case CommandReset:
		c.engine.Reset()
		c.deliver(&WebMessage{Type: MessageTypeSessionReset, Timestamp: time.Now()})

	default:
		c.log.Warn("Unknown command type: %s", cmd.Type)
		c.deliver(errorMessage(fmt.Sprintf("unknown command type %q", cmd.Type), CodeInvalidCommand))
	}
}

// submit claims the session on the read loop, so a stop read right after
// it cancels this turn, and runs the turn off the loop.
func (c *Client) submit(cmd *Command) {
	if cmd.Content == "" {
		c.deliver(errorMessage("submit_turn requires content", CodeInvalidCommand))
		return
	}
	input := orchestrator.UserTurn{ID: cmd.ID, Content: cmd.Content}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}

	turn, err := c.engine.Begin(c.ctx, input)
	if err != nil {
		c.deliver(errorMessage(err.Error(), orchestrator.CodeTurnInProgress))
		return
	}

	c.turns.Add(1)
	go func() {
		defer c.turns.Done()
		// failures are reported as error events
		_ = turn.Run()
	}()
}

func (c *Client) attach(cmd *Command) {
	file, res, err := c.engine.ResolveAttachment(c.ctx, cmd.Path)
	if err != nil {
		msg := errorMessage(err.Error(), CodeFileNotFound)
		msg.Path = cmd.Path
		var nf *fs.NotFoundError
		if errors.As(err, &nf) {
			msg.Candidates = nf.Candidates
		}
		c.deliver(msg)
		return
	}
	file.Name = cmd.Name
	added := c.engine.AttachFile(file)
	c.deliver(&WebMessage{
		Type: MessageTypeFileAttached,
		Path: file.Locator,
		Data: map[string]any{
			"added":       added,
			"auto_picked": res.AutoPicked,
			"requested":   cmd.Path,
		},
		Timestamp: time.Now(),
	})
}
