package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nebula-ui/nebula-upload/internal/dropzone"
	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/metrics"
	"github.com/nebula-ui/nebula-upload/internal/pathutil"
	"github.com/nebula-ui/nebula-upload/internal/progress"
)

// newWatchCmd creates the 'watch' command.
func newWatchCmd() *cobra.Command {
	var (
		flags       uploadFlags
		settle      time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Upload files dropped into a folder",
		Long: `Watch a folder and upload every file that lands in it.

The folder acts as a drop surface: files being written count as a drag
over it, and once writes have been quiet for the settle delay the files
are dropped and uploaded. Deleting a dropped file removes its record.

The folder defaults to watch_dir from the configuration file.

Examples:
  nebula-upload watch --action https://example.com/upload ~/outbox
  nebula-upload watch --gzip --metrics-addr :9102 ~/outbox`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			ctx := GetContext()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.WatchDir = args[0]
			}
			if cfg.WatchDir == "" {
				return fmt.Errorf("no folder to watch: pass a directory or set watch_dir")
			}
			dir, err := pathutil.ResolveAbsolutePath(cfg.WatchDir)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", cfg.WatchDir, err)
			}
			cfg.WatchDir = dir
			// A drop may carry any number of files
			cfg.Multiple = true
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			bus := events.NewEventBus(256)
			defer bus.Close()

			u, err := buildUploader(ctx, cfg, uploaderDeps{
				bus:     bus,
				logger:  logger,
				metrics: metrics.Default(),
				drag:    true,
			})
			if err != nil {
				return err
			}

			watcher, err := dropzone.NewWatcher(cfg.WatchDir, u.Surface(), u,
				dropzone.WithSettleDelay(settle),
				dropzone.WithWatcherLogger(logger),
			)
			if err != nil {
				return err
			}

			renderer := newRenderer(u.Store(), bus, 0)
			renderer.Start()
			logger.SetOutput(renderer.Writer())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return watcher.Run(gctx)
			})
			if metricsAddr != "" {
				g.Go(func() error {
					return serveMetrics(gctx, metricsAddr, prometheus.DefaultGatherer)
				})
			}
			err = g.Wait()

			u.Wait()
			renderer.Stop()
			logger.SetOutput(os.Stderr)
			warnDroppedEvents(logger, bus)
			progress.PrintSummary(os.Stderr, u.Store().Stats())
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&settle, "settle", 0, "Quiet time before pending files are dropped (default 750ms)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9102")

	return cmd
}

// serveMetrics serves /metrics on addr until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	GetLogger().Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
