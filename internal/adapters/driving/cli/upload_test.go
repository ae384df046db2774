package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driving"
)

func TestUploadCmd_Use(t *testing.T) {
	assert.Equal(t, "upload <file>", uploadCmd.Use)
	assert.Equal(t, "Upload a capture to a target", uploadCmd.Short)
}

func TestUpload(t *testing.T) {
	t.Run("dropbox path with progress", func(t *testing.T) {
		mock := &mockExportService{
			record: &domain.ExportRecord{
				Exporter: domain.ProviderDropbox,
				Location: "/Captures/shot 1.png",
			},
			updates: []domain.ProgressUpdate{
				{State: domain.ProgressPreparing, Percent: 0},
				{State: domain.ProgressTransferring, Percent: 10, TotalBytes: 100},
				{State: domain.ProgressTransferring, Percent: 12, BytesSent: 5, TotalBytes: 100},
				{State: domain.ProgressTransferring, Percent: 50, BytesSent: 50, TotalBytes: 100},
				{State: domain.ProgressDone, Percent: 100},
			},
		}
		setServices(t, Services{ExportService: mock})

		out, _, err := run(t, "upload", "/tmp/shot 1.png", "--target", "tgt-1", "--name", "shot 1.png")

		require.NoError(t, err)
		require.Len(t, mock.requests, 1)
		assert.Equal(t, driving.ExportRequest{
			FilePath: "/tmp/shot 1.png",
			TargetID: "tgt-1",
			Name:     "shot 1.png",
		}, mock.requests[0])
		assert.NotNil(t, mock.cancels[0])

		assert.Equal(t, 1, strings.Count(out, "transferring  10%"))
		assert.NotContains(t, out, "12%")
		assert.Contains(t, out, "50%")
		assert.Contains(t, out, "Uploaded to /Captures/shot 1.png")
		assert.Contains(t, out, "https://www.dropbox.com/home/Captures/shot%201.png")
		assert.NotContains(t, out, "Copied to clipboard.")
	})

	t.Run("shared link copied", func(t *testing.T) {
		mock := &mockExportService{record: &domain.ExportRecord{
			Exporter:          domain.ProviderDropbox,
			Location:          "https://www.dropbox.com/s/abc/shot.png",
			CopiedToClipboard: true,
		}}
		setServices(t, Services{ExportService: mock})

		out, _, err := run(t, "upload", "shot.png", "-t", "tgt-1", "--capture-id", "cap-7")

		require.NoError(t, err)
		assert.Equal(t, "cap-7", mock.requests[0].CaptureID)
		assert.Contains(t, out, "Uploaded: https://www.dropbox.com/s/abc/shot.png")
		assert.Contains(t, out, "Copied to clipboard.")
	})

	t.Run("cancelled", func(t *testing.T) {
		setServices(t, Services{ExportService: &mockExportService{
			err: domain.NewError(domain.ErrUpload, "upload", domain.ErrCancelled),
		}})

		_, _, err := run(t, "upload", "shot.png", "--target", "tgt-1")

		assert.EqualError(t, err, "upload cancelled")
	})

	t.Run("failure", func(t *testing.T) {
		setServices(t, Services{ExportService: &mockExportService{
			err: domain.NewError(domain.ErrUpload, "upload", errors.New("boom")).WithDetail("too_many_write_operations"),
		}})

		_, _, err := run(t, "upload", "shot.png", "--target", "tgt-1")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUpload)
		assert.Contains(t, err.Error(), "too_many_write_operations")
	})

	t.Run("target is required", func(t *testing.T) {
		mock := &mockExportService{}
		setServices(t, Services{ExportService: mock})

		_, _, err := run(t, "upload", "shot.png")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "target")
		assert.Empty(t, mock.requests)
	})

	t.Run("service not configured", func(t *testing.T) {
		setServices(t, Services{})

		_, _, err := run(t, "upload", "shot.png", "--target", "tgt-1")

		assert.EqualError(t, err, "export service not configured")
	})
}

func TestPrintRecord(t *testing.T) {
	tests := []struct {
		name   string
		record domain.ExportRecord
		want   string
	}{
		{"no location", domain.ExportRecord{Exporter: domain.ProviderGoogleDrive}, "Uploaded.\n"},
		{"drive link", domain.ExportRecord{Exporter: domain.ProviderGoogleDrive, Location: "https://drive.google.com/file/d/1/view"}, "Uploaded: https://drive.google.com/file/d/1/view\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			var buf strings.Builder
			cmd.SetOut(&buf)

			printRecord(cmd, &tt.record)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}
