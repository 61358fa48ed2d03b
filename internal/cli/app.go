package cli

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/epcr/internal/auth"
	"github.com/roach88/epcr/internal/config"
	"github.com/roach88/epcr/internal/export"
	"github.com/roach88/epcr/internal/metrics"
	"github.com/roach88/epcr/internal/reports"
	"github.com/roach88/epcr/internal/snapshot"
	"github.com/roach88/epcr/internal/store"
)

// app is the wiring shared by every command: one medium, one manager,
// one session, built per invocation.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	medium   store.Medium
	manager  *reports.Manager
	session  *auth.Session
	renderer *export.Renderer
	registry *prometheus.Registry
}

// openApp loads configuration, opens the medium, rehydrates the cache from
// the snapshot and loads the medium. The caller must Close the app.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	logger := newLogger(cfg.Log.Level, opts.Verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	loc, err := cfg.Export.Location()
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	logger.Debug("opening medium", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)
	medium, err := store.OpenMedium(ctx, cfg.Storage)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "failed to open storage", err)
	}

	registry := prometheus.NewRegistry()
	managerOpts := []reports.Option{
		reports.WithLogger(logger),
		reports.WithMetrics(metrics.NewRecorder(registry)),
	}
	if !cfg.Snapshot.Disabled {
		managerOpts = append(managerOpts, reports.WithSnapshot(snapshot.NewFile(cfg.Snapshot.Path)))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		medium:   medium,
		manager:  reports.New(medium, managerOpts...),
		renderer: export.NewRenderer(loc),
		registry: registry,
	}

	// A corrupt snapshot is not fatal: the medium is read next anyway.
	if err := a.manager.Rehydrate(); err != nil {
		logger.Warn("ignoring unusable snapshot", "path", cfg.Snapshot.Path, "error", err)
	}
	if err := a.manager.LoadReports(ctx); err != nil {
		a.Close()
		return nil, f.fail(ExitCommandError, ErrCodeStorage, "failed to load reports", err)
	}
	f.VerboseLog("Loaded %d report(s)", len(a.manager.Reports()))

	if cfg.Auth.InsecureKey() {
		logger.Warn("auth.encryption_key is not set; using the built-in default key, which is insecure")
	}
	session, err := auth.NewSession(cfg.Auth.EncryptionKey, logger)
	if err != nil {
		a.Close()
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}
	if _, err := session.Login(ctx, cfg.Auth.Email, ""); err != nil {
		a.Close()
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "login failed", err)
	}
	a.session = session

	return a, nil
}

// Close logs the collected metrics at debug level and closes the medium.
func (a *app) Close() {
	if summary, err := metrics.Summary(a.registry); err == nil {
		keys := make([]string, 0, len(summary))
		for k := range summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			a.logger.Debug("metric", "name", k, "value", summary[k])
		}
	}

	if err := a.medium.Close(); err != nil {
		a.logger.Error("error closing storage", "error", err)
	}
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Driver != "" {
		cfg.Storage.Driver = opts.Driver
	}
	if opts.Database != "" {
		cfg.Storage.Path = opts.Database
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger builds the stderr text logger. --verbose forces debug.
func newLogger(level string, verbose bool, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
