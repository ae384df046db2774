package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/capshare/internal/core/domain"
)

var historyCmd = &cobra.Command{
	Use:   "history [capture-id]",
	Short: "Show past exports",
	Long: `Lists recorded exports, newest first. With a capture ID, lists every
export of that capture (the file path unless --capture-id was given).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of exports to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if exportService == nil {
		return errors.New("export service not configured")
	}

	var (
		records []domain.ExportRecord
		err     error
	)
	if len(args) > 0 {
		records, err = exportService.History(cmd.Context(), args[0])
	} else {
		records, err = exportService.Recent(cmd.Context(), historyLimit)
	}
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if len(records) == 0 {
		cmd.Println("No exports recorded.")
		return nil
	}

	for i := range records {
		r := &records[i]
		cmd.Printf("%s  %-12s  %s\n", r.CreatedAt.Local().Format(time.DateTime), r.Exporter.DisplayName(), r.CaptureID)
		if r.Location != "" {
			cmd.Printf("    %s\n", r.Location)
		}
		if r.CopiedToClipboard {
			cmd.Println("    (copied to clipboard)")
		}
	}
	return nil
}
