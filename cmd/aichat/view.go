package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/dimslaev/ai-chat/internal/event"
)

var (
	userLabelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	toolStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	noticeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	warnStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// terminalView prints engine events. With a renderer, answers are buffered
// and rendered as markdown when the message ends.
type terminalView struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *glamour.TermRenderer
	open     bool
	buf      strings.Builder
}

func newTerminalView(out io.Writer, render bool, width int) (*terminalView, error) {
	v := &terminalView{out: out}
	if render {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
			glamour.WithPreservedNewLines(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		v.renderer = r
	}
	return v, nil
}

func (v *terminalView) Emit(e event.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch e.Kind {
	case event.MessageStarted:
		v.open = true
		v.buf.Reset()
		fmt.Fprintln(v.out, assistantLabelStyle.Render("assistant"))

	case event.ChunkAppended:
		if v.renderer != nil {
			v.buf.WriteString(e.Text)
			return
		}
		fmt.Fprint(v.out, e.Text)

	case event.MessageEnded:
		if !v.open {
			return
		}
		v.open = false
		if v.renderer == nil {
			fmt.Fprint(v.out, "\n\n")
			return
		}
		rendered, err := v.renderer.Render(v.buf.String())
		if err != nil {
			rendered = v.buf.String() + "\n"
		}
		fmt.Fprintln(v.out, rendered)

	case event.ToolStarted:
		fmt.Fprintln(v.out, toolStyle.Render("  ⚙ "+e.ToolName))

	case event.ToolFinished:
		if e.IsError {
			fmt.Fprintln(v.out, toolStyle.Render("  ⚙ "+e.ToolName+" failed"))
		}

	case event.ToolLoopExhausted:
		fmt.Fprintln(v.out, warnStyle.Render(fmt.Sprintf("tool limit reached after %d rounds, answering with what was gathered", e.Iterations)))

	case event.Error:
		label := "error"
		if e.Code != "" {
			label += " [" + e.Code + "]"
		}
		fmt.Fprintln(v.out, errorStyle.Render(label+": ")+e.Message)
	}
}

func (v *terminalView) user(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, userLabelStyle.Render("you")+" "+text)
}

func (v *terminalView) notice(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, noticeStyle.Render(text))
}

func (v *terminalView) failure(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, errorStyle.Render("error: ")+text)
}

func (v *terminalView) prompt() {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprint(v.out, userLabelStyle.Render("> "))
}
