package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nebula-ui/nebula-upload/internal/events"
	"github.com/nebula-ui/nebula-upload/internal/picker"
	"github.com/nebula-ui/nebula-upload/internal/progress"
	"github.com/nebula-ui/nebula-upload/internal/upload"
)

// newRenderer picks the progress display. Tests swap it to force a renderer.
var newRenderer = progress.NewRenderer

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var (
		flags       uploadFlags
		interactive bool
		recursive   bool
	)

	cmd := &cobra.Command{
		Use:   "upload [paths...]",
		Short: "Upload files, one multipart POST each",
		Long: `Upload files to the configured action URL (or S3 bucket).

Every file is posted on its own as soon as it passes the before-upload
checks; there is no queue. Directories are expanded one level, or fully
with --recursive. Hidden files inside directories are skipped.

Examples:
  nebula-upload upload --action https://example.com/upload report.pdf
  nebula-upload upload --multiple --accept ".png,.jpg" photos/
  nebula-upload upload --multiple -H "Authorization=Bearer abc" -d album=trip *.jpg
  nebula-upload upload --interactive --multiple`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			ctx := GetContext()

			if len(args) == 0 && !interactive {
				return fmt.Errorf("no files given: pass paths or use --interactive")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			if len(args) > 1 && !cmd.Flags().Changed("multiple") {
				cfg.Multiple = true
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			var pick upload.Picker = picker.Paths(args)
			switch {
			case interactive:
				pick = picker.NewPrompt()
			case recursive:
				pick = picker.Tree(args)
			}

			bus := events.NewEventBus(256)
			defer bus.Close()

			u, err := buildUploader(ctx, cfg, uploaderDeps{
				bus:    bus,
				picker: pick,
				logger: logger,
			})
			if err != nil {
				return err
			}

			// The prompt owns the terminal until picking is done. Logging is
			// routed through the renderer before any transmission starts.
			var renderer progress.Renderer
			if interactive {
				files, err := pick.Pick(ctx, upload.PickOptions{Accept: cfg.Accept, Multiple: cfg.Multiple})
				if err != nil {
					return fmt.Errorf("failed to pick files: %w", err)
				}
				renderer = newRenderer(u.Store(), bus, len(files))
				renderer.Start()
				logger.SetOutput(renderer.Writer())
				u.HandlePickResult(ctx, files)
			} else {
				renderer = newRenderer(u.Store(), bus, len(args))
				renderer.Start()
				logger.SetOutput(renderer.Writer())
				if err := u.TriggerPick(ctx); err != nil {
					renderer.Stop()
					logger.SetOutput(os.Stderr)
					return err
				}
			}

			u.Wait()
			renderer.Stop()
			logger.SetOutput(os.Stderr)
			warnDroppedEvents(logger, bus)

			stats := u.Store().Stats()
			if stats.Total() == 0 {
				fmt.Fprintln(os.Stderr, "Nothing to upload")
				return nil
			}
			progress.PrintSummary(os.Stderr, stats)

			if stats.Failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", stats.Failed, stats.Total())
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for file paths")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Walk directories recursively")

	return cmd
}
