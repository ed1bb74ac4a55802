package domain

import "testing"

func TestUploadStatus_IsValid(t *testing.T) {
	t.Parallel()

	valid := []UploadStatus{
		UploadStatusPending, UploadStatusProcessing,
		UploadStatusCompleted, UploadStatusFailed,
	}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}

	for _, s := range []UploadStatus{"", "done", "PENDING", "running"} {
		if s.IsValid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestUploadStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	if UploadStatusPending.IsTerminal() || UploadStatusProcessing.IsTerminal() {
		t.Error("pending and processing must not be terminal")
	}
	if !UploadStatusCompleted.IsTerminal() || !UploadStatusFailed.IsTerminal() {
		t.Error("completed and failed must be terminal")
	}
}

func TestUploadStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to UploadStatus
		want     bool
	}{
		{UploadStatusPending, UploadStatusProcessing, true},
		{UploadStatusPending, UploadStatusFailed, true},
		{UploadStatusPending, UploadStatusCompleted, false},
		{UploadStatusProcessing, UploadStatusCompleted, true},
		{UploadStatusProcessing, UploadStatusFailed, true},
		{UploadStatusProcessing, UploadStatusPending, false},
		{UploadStatusCompleted, UploadStatusFailed, false},
		{UploadStatusCompleted, UploadStatusProcessing, false},
		{UploadStatusFailed, UploadStatusProcessing, false},
		{UploadStatusFailed, UploadStatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s → %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTruncateErrorMessage(t *testing.T) {
	t.Parallel()

	if got := TruncateErrorMessage("short", 255); got != "short" {
		t.Errorf("short message should pass through, got %q", got)
	}

	long := ""
	for range 300 {
		long += "x"
	}
	got := TruncateErrorMessage(long, 255)
	if len(got) != 255 {
		t.Errorf("truncated length = %d, want 255", len(got))
	}

	// Multibyte runes must not be split.
	got = TruncateErrorMessage("éééé", 2)
	if got != "éé" {
		t.Errorf("rune-safe truncation failed: %q", got)
	}

	// Non-positive max falls back to the default bound.
	got = TruncateErrorMessage(long, 0)
	if len(got) != MaxErrorMessageLength {
		t.Errorf("fallback truncation length = %d, want %d", len(got), MaxErrorMessageLength)
	}
}
