package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/capshare/internal/adapters/driving/watch"
	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Upload new captures as they appear in a folder",
	Long: `Watches a folder, such as the one your screenshot tool saves to, and
uploads every new capture to a target once it has been fully written.

Captures are uploaded one at a time. Press Ctrl+C to stop; an upload in
progress stops after its current chunk.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

// Flags for watch.
var (
	watchTarget     string
	watchExtensions string
	watchSettle     time.Duration
)

func init() {
	watchCmd.Flags().StringVarP(
		&watchTarget, "target", "t", "", "Target ID to upload to (required)")
	watchCmd.Flags().StringVar(
		&watchExtensions, "ext", "", "Comma-separated file extensions to upload (default: common image and video types)")
	watchCmd.Flags().DurationVar(
		&watchSettle, "settle", watch.DefaultSettle, "How long a file must stay unchanged before upload")
	_ = watchCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if exportService == nil {
		return errors.New("export service not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w := watch.New(args[0], watchExport(cmd), watch.Options{
		Extensions: parseExtensions(watchExtensions),
		Settle:     watchSettle,
		OnError: func(path string, err error) {
			cmd.PrintErrf("Failed to upload %s: %v\n", filepath.Base(path), err)
		},
	})

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	if err := w.Run(ctx); err != nil {
		return err
	}
	cmd.Println("Stopped watching.")
	return nil
}

// watchExport uploads one settled capture. Stopping the watcher lets the
// upload finish its current chunk instead of aborting the request.
func watchExport(cmd *cobra.Command) watch.ExportFunc {
	return func(ctx context.Context, path string) error {
		cancel := domain.NewCancellation()
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				cancel.Cancel()
			case <-done:
			}
		}()

		cmd.Printf("Uploading %s\n", filepath.Base(path))
		record, err := exportService.Export(context.WithoutCancel(ctx), driving.ExportRequest{
			FilePath: path,
			TargetID: watchTarget,
		}, cancel, plainProgress(cmd))
		if err != nil {
			return err
		}
		printRecord(cmd, record)
		return nil
	}
}

// parseExtensions turns "png, .JPG" into [".png" ".jpg"].
func parseExtensions(s string) []string {
	var exts []string
	for _, e := range strings.Split(s, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}
