package domain

// ProgressState is the phase of an export shown to the user.
type ProgressState string

const (
	ProgressPreparing    ProgressState = "preparing"
	ProgressTransferring ProgressState = "transferring"
	ProgressFinishing    ProgressState = "finishing"
	ProgressDone         ProgressState = "done"
	ProgressFailed       ProgressState = "failed"
	ProgressCancelled    ProgressState = "cancelled"
)

// Progress phase boundaries in percent.
const (
	ProgressPrepareEnd  = 10
	ProgressTransferEnd = 90
)

// ProgressUpdate is one progress notification.
type ProgressUpdate struct {
	State      ProgressState
	Percent    float64
	BytesSent  int64
	TotalBytes int64
	Message    string
}

// TransferPercent maps sent/total into the transferring band (10-90).
// A zero total maps to the end of the band.
func TransferPercent(sent, total int64) float64 {
	if total <= 0 {
		return ProgressTransferEnd
	}
	span := float64(ProgressTransferEnd - ProgressPrepareEnd)
	return ProgressPrepareEnd + span*float64(sent)/float64(total)
}
