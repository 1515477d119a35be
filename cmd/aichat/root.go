package main

import (
	"github.com/spf13/cobra"

	"github.com/dimslaev/ai-chat/internal/pprof"
)

var (
	configPath   string
	providerFlag string
	modelFlag    string
	workDirFlag  string
	logLevelFlag string
	profileFlags pprof.Config
	profile      *pprof.Session
)

var rootCmd = &cobra.Command{
	Use:   "aichat",
	Short: "Chat with an LLM about the code in your workspace",
	Long: `aichat answers questions about your project. The model can read, search
and edit workspace files through a bounded set of tools, and long answers are
continued automatically when the provider truncates them.

Examples:
  aichat chat                          # interactive session in the current directory
  aichat chat --render                 # render answers as markdown
  aichat chat -p anthropic -w ./svc    # other provider and workspace
  aichat serve --addr 127.0.0.1:8765   # WebSocket host on /ws`,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if !profileFlags.Enabled() {
			return nil
		}
		var err error
		profile, err = pprof.Start(profileFlags)
		return err
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if profile == nil {
			return nil
		}
		return profile.Stop()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (default: search the config dir and the working directory)")
	flags.StringVarP(&providerFlag, "provider", "p", "", "provider: openai, groq, anthropic or gemini")
	flags.StringVarP(&modelFlag, "model", "m", "", "model name (default: the provider's default)")
	flags.StringVarP(&workDirFlag, "workdir", "w", "", "workspace directory")
	flags.StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error or none")
	flags.StringVar(&profileFlags.CPUProfile, "cpuprofile", "", "write a CPU profile to this file")
	flags.StringVar(&profileFlags.HeapProfile, "memprofile", "", "write a heap profile to this file on exit")

	rootCmd.AddCommand(chatCmd, serveCmd)
}
