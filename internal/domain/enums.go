package domain

// UploadStatus represents the lifecycle state of an import job.
// Transitions are monotonic: pending → processing → {completed, failed}.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

func (s UploadStatus) String() string { return string(s) }

func (s UploadStatus) IsValid() bool {
	switch s {
	case UploadStatusPending, UploadStatusProcessing, UploadStatusCompleted, UploadStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave this status.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadStatusCompleted || s == UploadStatusFailed
}

// CanTransitionTo reports whether the state machine allows moving from s
// to next. Terminal states allow nothing; failure is reachable from both
// pending (file never opened) and processing.
func (s UploadStatus) CanTransitionTo(next UploadStatus) bool {
	switch s {
	case UploadStatusPending:
		return next == UploadStatusProcessing || next == UploadStatusFailed
	case UploadStatusProcessing:
		return next == UploadStatusCompleted || next == UploadStatusFailed
	}
	return false
}
