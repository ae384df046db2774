package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/capshare/internal/adapters/driving/tui"
	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
	"github.com/custodia-labs/capshare/internal/exporters/dropbox"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a capture to a target",
	Long: `Uploads a screenshot or recording to a target in chunks.

The target's account is authorized first if it holds no tokens. Depending
on the target, a public link is created and copied to the clipboard.
Press Esc or Ctrl+C to cancel after the chunk in flight.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

// Flags for upload.
var (
	uploadTarget    string
	uploadName      string
	uploadCaptureID string
)

func init() {
	uploadCmd.Flags().StringVarP(
		&uploadTarget, "target", "t", "", "Target ID to upload to (required)")
	uploadCmd.Flags().StringVar(
		&uploadName, "name", "", "Destination file name (defaults to the local name)")
	uploadCmd.Flags().StringVar(
		&uploadCaptureID, "capture-id", "", "Capture ID recorded in the history (defaults to the file path)")
	_ = uploadCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	if exportService == nil {
		return errors.New("export service not configured")
	}

	record, err := exportCapture(cmd, driving.ExportRequest{
		CaptureID: uploadCaptureID,
		FilePath:  args[0],
		TargetID:  uploadTarget,
		Name:      uploadName,
	})
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return errors.New("upload cancelled")
		}
		return fmt.Errorf("upload failed: %w", err)
	}

	printRecord(cmd, record)
	return nil
}

// exportCapture runs one export, drawing a progress bar on terminals and
// printing progress lines otherwise.
func exportCapture(cmd *cobra.Command, req driving.ExportRequest) (*domain.ExportRecord, error) {
	ctx := cmd.Context()

	if interactive(cmd) {
		return tui.Run(stdin, cmd.OutOrStdout(), filepath.Base(req.FilePath),
			func(cancel *domain.Cancellation, progress driven.ProgressReporter) (*domain.ExportRecord, error) {
				return exportService.Export(ctx, req, cancel, progress)
			})
	}

	cancel, stop := interruptCancellation()
	defer stop()
	return exportService.Export(ctx, req, cancel, plainProgress(cmd))
}

// plainProgress prints a line whenever the state changes or the transfer
// crosses another tenth of the file.
func plainProgress(cmd *cobra.Command) driven.ProgressReporter {
	var lastState domain.ProgressState
	lastStep := -1

	return driven.ProgressFunc(func(u domain.ProgressUpdate) {
		step := int(u.Percent / 10)
		if u.State == lastState && step == lastStep {
			return
		}
		lastState, lastStep = u.State, step
		cmd.Println(tui.StatusLine(u))
	})
}

func printRecord(cmd *cobra.Command, record *domain.ExportRecord) {
	switch {
	case record.Location == "":
		cmd.Println("Uploaded.")
	case record.Exporter == domain.ProviderDropbox && strings.HasPrefix(record.Location, "/"):
		cmd.Printf("Uploaded to %s\n", record.Location)
		cmd.Printf("  %s\n", dropbox.WebURL(record.Location))
	default:
		cmd.Printf("Uploaded: %s\n", record.Location)
	}
	if record.CopiedToClipboard {
		cmd.Println("Copied to clipboard.")
	}
}
