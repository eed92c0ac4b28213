package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agenthands/symbiosis/internal/config"
	"github.com/agenthands/symbiosis/internal/core"
	"github.com/agenthands/symbiosis/internal/driver"
	"github.com/agenthands/symbiosis/internal/memory"
)

type app struct {
	configPath   string
	settingsPath string
	verbose      bool

	cfg      *config.Config
	settings config.SettingsStore
	logger   *zap.Logger
}

func main() {
	a := &app{}

	root := &cobra.Command{
		Use:           "symbiosis",
		Short:         "Conversational companion service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $CONFIG_PATH or config/config.toml)")
	root.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "settings file (default $SETTINGS_PATH or the XDG config dir)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(serveCmd(a), chatCmd(a))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) setup() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	path := firstNonEmpty(a.configPath, os.Getenv("CONFIG_PATH"), "config/config.toml")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(a.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger

	settingsPath := firstNonEmpty(a.settingsPath, os.Getenv("SETTINGS_PATH"))
	if settingsPath == "" {
		if settingsPath, err = config.DefaultSettingsPath(); err != nil {
			return err
		}
	}
	a.settings = config.NewFileSettings(settingsPath)
	logger.Debug("configuration loaded",
		zap.String("config", path),
		zap.String("settings", settingsPath),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("memory", cfg.Memory.Backend),
	)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}

// companion wires a Companion to renderer. The returned cleanup closes the
// companion and, for the memgraph backend, the database driver.
func (a *app) companion(ctx context.Context, renderer core.Renderer) (*core.Companion, func(), error) {
	opts := core.Options{
		Config:   a.cfg,
		Settings: a.settings,
		Renderer: renderer,
		Logger:   a.logger,
	}

	closeDriver := func() {}
	if a.cfg.Memory.Backend == "memgraph" {
		mg := a.cfg.Memgraph
		d, err := driver.NewMemgraphDriver(ctx, mg.URI, mg.User, mg.Password, a.logger)
		if err != nil {
			return nil, nil, err
		}
		if err := d.BuildIndices(ctx); err != nil {
			d.Close(ctx)
			return nil, nil, err
		}
		store := memory.NewGraphStore(d)
		opts.OpenStore = func(string) memory.Store { return store }
		opts.MemoryPreconfigured = true
		closeDriver = func() {
			if err := d.Close(context.Background()); err != nil {
				a.logger.Warn("failed to close memgraph driver", zap.Error(err))
			}
		}
	}

	c, err := core.New(opts)
	if err != nil {
		closeDriver()
		return nil, nil, err
	}
	return c, func() {
		c.Close()
		closeDriver()
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
