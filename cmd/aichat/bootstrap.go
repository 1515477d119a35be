package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dimslaev/ai-chat/internal/config"
	"github.com/dimslaev/ai-chat/internal/consts"
	"github.com/dimslaev/ai-chat/internal/event"
	"github.com/dimslaev/ai-chat/internal/features"
	"github.com/dimslaev/ai-chat/internal/fs"
	"github.com/dimslaev/ai-chat/internal/llm"
	"github.com/dimslaev/ai-chat/internal/logger"
	"github.com/dimslaev/ai-chat/internal/orchestrator"
	"github.com/dimslaev/ai-chat/internal/secretdetect"
	"github.com/dimslaev/ai-chat/internal/securemem"
	"github.com/dimslaev/ai-chat/internal/settings"
	"github.com/dimslaev/ai-chat/internal/tools"
)

const (
	fsCacheTTL     = consts.Timeout10Seconds
	fsCacheEntries = 512
)

// app holds the process-wide collaborators shared by every engine.
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	keys         *securemem.Keyring
	fs           *fs.CachedFS
	store        *settings.Store
	registry     *tools.Registry
	redactor     *secretdetect.Detector
	toolsEnabled bool
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if providerFlag != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(providerFlag))
		cfg.Model = ""
	}
	if modelFlag != "" {
		cfg.Model = modelFlag
	}
	if workDirFlag != "" {
		cfg.WorkingDir = workDirFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(cfg.WorkingDir); err == nil {
		cfg.WorkingDir = abs
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Global()
	log.Info("aichat starting: provider=%s model=%s workdir=%s", cfg.Provider, cfg.ResolvedModel(), cfg.WorkingDir)

	a := &app{cfg: cfg, log: log, keys: cfg.Keyring()}
	if !a.keys.Has(cfg.Provider) {
		a.close()
		return nil, fmt.Errorf("no API key for %s: set it in the config file or the provider's environment variable", cfg.Provider)
	}

	a.fs, err = fs.NewCachedFS(cfg.WorkingDir, fsCacheTTL, fsCacheEntries)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}

	a.toolsEnabled = cfg.ToolsEnabled
	a.store, err = settings.Open(cfg.SettingsPath)
	if err != nil {
		log.Warn("settings unavailable, tools preference will not persist: %v", err)
	} else {
		a.toolsEnabled, err = a.store.LoadToolsEnabled(ctx, cfg.ToolsEnabled)
		if err != nil {
			log.Warn("failed to load tools preference: %v", err)
		}
	}

	flags := features.NewToolFlags(cfg.DisabledTools)
	a.registry = tools.NewDefaultRegistry(log).Filter(flags.IsToolEnabled)
	if disabled := flags.Disabled(); len(disabled) > 0 {
		log.Info("tools disabled by config: %s", strings.Join(disabled, ", "))
	}
	if cfg.RedactSecrets {
		a.redactor = secretdetect.NewDetector()
	}
	return a, nil
}

func (a *app) newClient() (llm.Client, error) {
	p, err := llm.ParseProvider(a.cfg.Provider)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(p, llm.Options{
		APIKey:    a.keys.Get(a.cfg.Provider),
		Model:     a.cfg.ResolvedModel(),
		BaseURL:   a.cfg.BaseURL(),
		MaxTokens: a.cfg.MaxTokens,
	})
}

// newEngine builds an engine emitting into sink. It matches
// web.EngineFactory.
func (a *app) newEngine(ctx context.Context, sink event.Sink) (*orchestrator.Engine, error) {
	client, err := a.newClient()
	if err != nil {
		return nil, err
	}
	opts := orchestrator.Options{
		Client:       client,
		FS:           a.fs,
		Registry:     a.registry,
		Sink:         sink,
		Settings:     a.cfg.Snapshot,
		WorkingDir:   a.cfg.WorkingDir,
		ContextFiles: a.cfg.ContextFiles,
		ToolsEnabled: a.toolsEnabled,
		Logger:       a.log,
	}
	if a.store != nil {
		opts.Preference = a.store
	}
	if a.redactor != nil {
		opts.Redactor = a.redactor
	}
	return orchestrator.New(ctx, opts)
}

func (a *app) close() {
	var errs []error
	if a.fs != nil {
		errs = append(errs, a.fs.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.keys != nil {
		a.keys.Clear()
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("shutdown: %v", err)
	}
	a.log.Info("aichat stopped")
	if err := a.log.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", err)
	}
}
