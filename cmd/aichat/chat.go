package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/orchestrator"
)

var renderMarkdown bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session in the workspace.

Commands:
  /attach <path>    include a file in every request
  /detach <path>    stop including a file
  /files            list attached files
  /tools on|off     enable or disable workspace tools (remembered)
  /reset            clear the conversation and attachments
  /quit             exit

Ctrl-C stops the answer in progress.`,
	Args: cobra.NoArgs,
}

func init() {
	// assigned here to break the chatCmd -> runChat -> handle -> chatCmd initialization cycle
	chatCmd.RunE = runChat
	chatCmd.Flags().BoolVar(&renderMarkdown, "render", false, "render finished answers as markdown")
}

type inputKind int

const (
	inputMessage inputKind = iota
	inputAttach
	inputDetach
	inputFiles
	inputTools
	inputReset
	inputQuit
	inputHelp
)

type input struct {
	kind inputKind
	arg  string
	on   bool
}

var errEmptyInput = errors.New("empty input")

// parseInput maps one line to a REPL command. Lines not starting with "/"
// are messages for the model.
func parseInput(line string) (input, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return input{}, errEmptyInput
	}
	if !strings.HasPrefix(line, "/") {
		return input{kind: inputMessage, arg: line}, nil
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/attach", "/detach":
		if arg == "" {
			return input{}, fmt.Errorf("usage: %s <path>", name)
		}
		if name == "/attach" {
			return input{kind: inputAttach, arg: arg}, nil
		}
		return input{kind: inputDetach, arg: arg}, nil
	case "/files":
		return input{kind: inputFiles}, nil
	case "/tools":
		switch strings.ToLower(arg) {
		case "on":
			return input{kind: inputTools, on: true}, nil
		case "off":
			return input{kind: inputTools, on: false}, nil
		default:
			return input{}, errors.New("usage: /tools on|off")
		}
	case "/reset":
		return input{kind: inputReset}, nil
	case "/quit", "/exit":
		return input{kind: inputQuit}, nil
	case "/help":
		return input{kind: inputHelp}, nil
	default:
		return input{}, fmt.Errorf("unknown command %s (try /help)", name)
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	view, err := newTerminalView(out, renderMarkdown, terminalWidth())
	if err != nil {
		return err
	}

	engine, err := a.newEngine(ctx, view)
	if err != nil {
		return err
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			if !engine.State().Busy() && interactive {
				view.notice("(type /quit to exit)")
			}
			engine.Stop()
		}
	}()

	view.notice(fmt.Sprintf("%s · %s · tools %s", a.cfg.ResolvedModel(), a.cfg.WorkingDir, onOff(engine.ToolsEnabled())))

	repl := &chatREPL{engine: engine, view: view, out: out, interactive: interactive}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, consts.BufferSize64KB), consts.BufferSize1MB)
	for {
		if interactive {
			view.prompt()
		}
		if !scanner.Scan() {
			break
		}
		if quit := repl.handle(ctx, scanner.Text()); quit {
			return nil
		}
	}
	return scanner.Err()
}

type chatREPL struct {
	engine      *orchestrator.Engine
	view        *terminalView
	out         io.Writer
	interactive bool
}

// handle runs one input line and reports whether the REPL should exit.
func (r *chatREPL) handle(ctx context.Context, line string) bool {
	in, err := parseInput(line)
	if errors.Is(err, errEmptyInput) {
		return false
	}
	if err != nil {
		r.view.failure(err.Error())
		return false
	}

	switch in.kind {
	case inputMessage:
		if !r.interactive {
			r.view.user(in.arg)
		}
		// failures were already shown as error events
		_ = r.engine.Submit(ctx, orchestrator.UserTurn{ID: uuid.NewString(), Content: in.arg})

	case inputAttach:
		file, res, err := r.engine.ResolveAttachment(ctx, in.arg)
		if err != nil {
			var nf *fs.NotFoundError
			if errors.As(err, &nf) && len(nf.Candidates) > 0 {
				r.view.failure(fmt.Sprintf("%s not found; did you mean one of: %s", in.arg, strings.Join(nf.Candidates, ", ")))
			} else {
				r.view.failure(err.Error())
			}
			return false
		}
		if !r.engine.AttachFile(file) {
			r.view.notice(file.Locator + " is already attached")
			return false
		}
		if res.AutoPicked {
			r.view.notice(fmt.Sprintf("attached %s (matched %s)", file.Locator, in.arg))
		} else {
			r.view.notice("attached " + file.Locator)
		}

	case inputDetach:
		if r.engine.DetachFile(in.arg) {
			r.view.notice("detached " + in.arg)
		} else {
			r.view.failure(in.arg + " is not attached")
		}

	case inputFiles:
		files := r.engine.State().AttachedFiles()
		if len(files) == 0 {
			r.view.notice("no attached files")
			return false
		}
		for _, f := range files {
			fmt.Fprintf(r.out, "  %s\n", f.Locator)
		}

	case inputTools:
		if err := r.engine.SetToolsEnabled(ctx, in.on); err != nil {
			r.view.failure(err.Error())
		}
		r.view.notice("tools " + onOff(r.engine.ToolsEnabled()))

	case inputReset:
		r.engine.Reset()
		r.view.notice("conversation cleared")

	case inputHelp:
		fmt.Fprintln(r.out, chatCmd.Long)

	case inputQuit:
		return true
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
