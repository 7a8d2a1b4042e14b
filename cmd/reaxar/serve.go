package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/reaxar"
	"github.com/vango-dev/reaxar/internal/config"
	"github.com/vango-dev/reaxar/pkg/bridge"
	"github.com/vango-dev/reaxar/pkg/inspect"
	"github.com/vango-dev/reaxar/pkg/metrics"
	"github.com/vango-dev/reaxar/pkg/snapshot"
	"github.com/vango-dev/reaxar/pkg/store"
)

type serveOptions struct {
	addr    string
	demo    bool
	restore string
}

func serveCmd(flags *globalFlags) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the inspector server",
		Long: `Start the inspector HTTP server for a fresh runtime.

With --demo, a few stores and a service are registered and updated
every second so the inspector and its WebSocket stream have data.

Examples:
  reaxar serve --demo
  reaxar serve --addr=:7070 --restore=snapshots/snapshot-20260102T030405Z.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Inspector.Addr = opts.addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "Register demo stores and services")
	cmd.Flags().StringVar(&opts.restore, "restore", "", "Snapshot file to restore after startup")

	return cmd
}

// newRuntime builds the runtime and, when metrics are enabled, the
// handler serving them.
func newRuntime(cfg *config.Config, logger *slog.Logger) (*reaxar.Runtime, http.Handler) {
	rtCfg := reaxar.Config{
		Logger:         logger,
		MaxNotifyDepth: cfg.Cell.MaxNotifyDepth,
	}
	if !cfg.Metrics.Enabled {
		return reaxar.New(rtCfg), nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rtCfg.Observer = metrics.New(
		metrics.WithRegistry(reg),
		metrics.WithNamespace(cfg.Metrics.Namespace),
	)
	return reaxar.New(rtCfg), promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func runServe(ctx context.Context, cfg *config.Config, opts serveOptions) error {
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	rt, metricsHandler := newRuntime(cfg, logger)

	if opts.demo {
		startDemo(ctx, rt)
	}
	if opts.restore != "" {
		keys, err := restoreFile(rt, opts.restore)
		if err != nil {
			return err
		}
		success("Restored %d stores from %s", len(keys), opts.restore)
	}

	srv := inspect.New(rt, &inspect.Config{
		Address: cfg.Inspector.Addr,
		Metrics: metricsHandler,
	})

	printBanner()
	info("inspector: http://%s", cfg.Inspector.Addr)
	if metricsHandler != nil {
		info("metrics:   http://%s/metrics", cfg.Inspector.Addr)
	} else {
		warn("metrics disabled")
	}

	return srv.Run(ctx)
}

func restoreFile(rt *reaxar.Runtime, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := snapshot.Decode(data)
	if err != nil {
		return nil, err
	}
	return snapshot.Restore(rt.Stores(), doc)
}

// demoService counts refreshes triggered by the demo session.
type demoService struct {
	refreshes *store.Store[int]
}

func (d *demoService) Refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.refreshes.Update(func(n int) int { return n + 1 })
	return nil
}

// startDemo registers demo stores and a service, then drives them from a
// session until ctx is done.
func startDemo(ctx context.Context, rt *reaxar.Runtime) {
	clock := reaxar.CreateStore(rt, time.Now().UTC().Format(time.RFC3339), "demo.clock")
	refreshes := reaxar.CreateStore(rt, 0, "demo.refreshes")
	reaxar.RegisterService(rt, "demo", &demoService{refreshes: refreshes})

	sess := bridge.NewSession(rt, bridge.WithName("demo"), bridge.WithContext(ctx))
	fetch := bridge.AttachFetch(sess, "demo", func(ctx context.Context, d *demoService) error {
		return d.Refresh(ctx)
	})

	go func() {
		defer sess.Dispose()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				clock.Set(t.UTC().Format(time.RFC3339))
				fetch.Refetch()
			}
		}
	}()
}
