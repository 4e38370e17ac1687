package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/livetodo/internal/auth"
	"github.com/idilsaglam/livetodo/internal/config"
	"github.com/idilsaglam/livetodo/internal/logging"
	"github.com/idilsaglam/livetodo/internal/metrics"
	"github.com/idilsaglam/livetodo/internal/remote"
	"github.com/idilsaglam/livetodo/internal/store/sqlite"
	"github.com/idilsaglam/livetodo/internal/supabase"
	"github.com/idilsaglam/livetodo/internal/ui"
)

// open loads the configuration and connects the configured backend. Logs go
// to log_file; without one they are dropped, except that --debug sends them
// to stderr for one-shot commands (logToStderr).
func (a *app) open(cmd *cobra.Command, logToStderr bool) (remote.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	cfg, err := config.Load(config.Options{Dir: a.configDir, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}
	if a.theme == "" {
		if err := ui.SetTheme(cfg.Theme); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	var fallback io.Writer
	if cfg.Debug && logToStderr {
		fallback = a.stderr
	}
	log, closeLog, err := logging.New(cfg.LogFile, cfg.Debug, fallback)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	a.log = log
	a.cleanup = append(a.cleanup, closeLog)

	store, closeStore, err := openBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	a.cleanup = append(a.cleanup, closeStore)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	store = remote.Instrument(store, remote.NewMetrics(reg))

	if cfg.MetricsAddr != "" {
		ctx, cancel := context.WithCancel(cmd.Context())
		a.cleanup = append(a.cleanup, func() error { cancel(); return nil })
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, log); err != nil {
				log.Warn("metrics server stopped", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
	}

	log.Debug("store ready", "backend", cfg.Backend, "config_dir", cfg.Dir)
	a.cfg = cfg
	a.store = store
	return store, nil
}

func openBackend(cfg *config.Config, log *slog.Logger) (remote.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		c, err := supabase.New(supabase.Config{
			URL:         cfg.URL,
			AnonKey:     cfg.AnonKey,
			AccessToken: auth.AccessToken(),
			Schema:      cfg.Schema,
			Table:       cfg.Table,
			Heartbeat:   cfg.Heartbeat,
			Timeout:     cfg.RequestTimeout,
			Logger:      log,
		})
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	}
}
