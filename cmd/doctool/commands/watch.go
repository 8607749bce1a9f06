package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/doctool/internal/config"
	"git.home.luguber.info/inful/doctool/internal/logfields"
	"git.home.luguber.info/inful/doctool/internal/metrics"
	"git.home.luguber.info/inful/doctool/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce    time.Duration `help:"Quiet period after the last change before regenerating" default:"500ms"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address, e.g. :9102"`
}

func (w *WatchCmd) Run(globals *Global, root *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return w.run(ctx, globals, root)
}

func (w *WatchCmd) run(ctx context.Context, globals *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	rec := root.Recorder(w.MetricsAddr != "")
	if prom, ok := rec.(*metrics.PrometheusRecorder); ok && w.MetricsAddr != "" {
		srv := &http.Server{Addr: w.MetricsAddr, Handler: prom.HTTPHandler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				globals.Logger.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		globals.Logger.Info("Serving metrics", "addr", w.MetricsAddr)
	}

	// One cache serves every run so the memory layer stays warm. Cache settings are read once.
	cache, preflight := openCache(cfg, false, globals.Logger)
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	// The first run happens before watching so the output exists right away.
	if _, err := runOnce(ctx, globals, root, cfg, cache, preflight); err != nil && ctx.Err() == nil {
		globals.Logger.Error("Initial generation failed", logfields.Error(err))
	}

	watcher, err := watch.New(watch.Options{
		Paths:      cfg.Paths,
		ConfigPath: root.Config,
		FileTypes:  cfg.FileTypes,
		Debounce:   w.Debounce,
		Logger:     globals.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	return watcher.Run(ctx, func(ctx context.Context, changed []string) error {
		// The configuration is reloaded every time; a broken edit keeps the previous one.
		if next, err := config.Load(root.Config); err != nil {
			globals.Logger.Warn("Keeping previous configuration", logfields.Error(err))
		} else {
			cfg = next
		}
		globals.Logger.Debug("Regenerating", logfields.Count(len(changed)))
		_, err := runOnce(ctx, globals, root, cfg, cache, preflight)
		return err
	})
}
