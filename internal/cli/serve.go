package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nebula-ui/nebula-upload/internal/logging"
	"github.com/nebula-ui/nebula-upload/internal/metrics"
	"github.com/nebula-ui/nebula-upload/internal/pathutil"
	"github.com/nebula-ui/nebula-upload/internal/receiver"
)

// newServeCmd creates the 'serve' command.
func newServeCmd() *cobra.Command {
	var (
		listen     string
		storageDir string
		maxBytes   int64
		fieldName  string
		jsonLogs   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a receiver that accepts uploads",
		Long: `Run an HTTP receiver for multipart uploads.

Routes:
  POST   /upload      store the file part and echo the form fields
  GET    /files       list stored files
  GET    /files/:id   file metadata
  GET    /files/:id/content
                      download a stored file
  DELETE /files/:id   delete a stored file
  GET    /health      liveness
  GET    /metrics     Prometheus metrics

Examples:
  nebula-upload serve --listen :8088 --storage-dir ./uploads
  nebula-upload serve --max-bytes 10485760`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			if jsonLogs {
				logger = logging.NewLogger(logging.ModeServer, nil)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			changed := cmd.Flags().Changed
			if changed("listen") {
				cfg.ListenAddr = listen
			}
			if changed("storage-dir") {
				cfg.StorageDir = storageDir
			}
			if changed("max-bytes") {
				cfg.MaxBytes = maxBytes
			}
			if changed("name") {
				cfg.FieldName = fieldName
			}
			if err := cfg.ValidateReceiver(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			dir, err := pathutil.ResolveAbsolutePath(cfg.StorageDir)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", cfg.StorageDir, err)
			}
			store, err := receiver.NewLocalStore(dir)
			if err != nil {
				return err
			}

			srv := receiver.New(store, receiver.Options{
				FieldName: cfg.FieldName,
				MaxBytes:  cfg.MaxBytes,
				Logger:    logger,
				Metrics:   metrics.Default(),
				Gatherer:  prometheus.DefaultGatherer,
			})

			logger.Info().
				Str("storage_dir", dir).
				Int64("max_bytes", cfg.MaxBytes).
				Msg("Starting receiver")
			return srv.ListenAndServe(GetContext(), cfg.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default \":8088\")")
	cmd.Flags().StringVar(&storageDir, "storage-dir", "", "Directory for stored files (default \"uploads\")")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "Reject request bodies larger than this many bytes (0 = unlimited)")
	cmd.Flags().StringVar(&fieldName, "name", "", "Multipart field holding the file (default \"file\")")
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "Write JSON log lines instead of console output")

	return cmd
}
