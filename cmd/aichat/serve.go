package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/web"
)

var (
	serveAddr  string
	serveToken string
	serveDebug bool
	servePprof bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat engine over a WebSocket",
	Long: `Start a WebSocket host. Each connection to /ws gets its own session and
receives the engine's events as JSON. /healthz reports the connected clients.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server_addr from the config)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "auth token clients pass as ?token= (default: random)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "log every WebSocket frame")
	serveCmd.Flags().BoolVar(&servePprof, "pprof", false, "expose /debug/pprof on the listen address")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.ServerAddr
	}
	srv, err := web.NewServer(web.Options{
		Addr:      addr,
		AuthToken: serveToken,
		NewEngine: a.newEngine,
		Debug:     serveDebug,
		Profiling: servePprof,
		Logger:    a.log,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", srv.URL())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), consts.Timeout10Seconds)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
