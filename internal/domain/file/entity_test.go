package file

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	upload := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	deadline := upload.Add(5 * 24 * time.Hour)
	f, err := New("budget-2026.pdf", "docs/budget-2026.pdf", common.NewID(), PriorityMedium, upload, deadline, nil)
	require.NoError(t, err)
	return f
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		raw     string
		want    Priority
		wantErr bool
	}{
		{"Low", PriorityLow, false},
		{"Medium", PriorityMedium, false},
		{"High", PriorityHigh, false},
		{"Critical", PriorityCritical, false},
		{"URGENT", PriorityMedium, true},
		{"high", PriorityMedium, true},
		{"", PriorityMedium, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePriority(tt.raw)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.True(t, errors.IsCode(err, errors.ErrCodeFileInvalidPriority))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNew(t *testing.T) {
	upload := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	deadline := upload.Add(24 * time.Hour)
	section := common.NewID()

	t.Run("valid", func(t *testing.T) {
		f, err := New("scan.pdf", "docs/scan.pdf", section, PriorityCritical, upload, deadline, nil)
		require.NoError(t, err)
		assert.False(t, f.ID.IsZero())
		assert.Equal(t, StatusPending, f.Status)
		assert.Equal(t, PriorityCritical, f.Priority)
		require.NotNil(t, f.SLADeadline)
		assert.True(t, f.SLADeadline.Equal(deadline))
		assert.Equal(t, 0, f.EscalationLevel)
		assert.False(t, f.ReminderSent)
		assert.Nil(t, f.CompletionTime)
	})

	t.Run("empty filename", func(t *testing.T) {
		_, err := New("", "k", section, PriorityLow, upload, deadline, nil)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("zero section", func(t *testing.T) {
		_, err := New("scan.pdf", "k", common.ID(""), PriorityLow, upload, deadline, nil)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("invalid priority", func(t *testing.T) {
		_, err := New("scan.pdf", "k", section, Priority("Urgent"), upload, deadline, nil)
		assert.True(t, errors.IsCode(err, errors.ErrCodeFileInvalidPriority))
	})

	t.Run("zero deadline", func(t *testing.T) {
		_, err := New("scan.pdf", "k", section, PriorityLow, upload, time.Time{}, nil)
		assert.True(t, errors.IsValidation(err))
	})
}

func TestFile_MarkOverdue(t *testing.T) {
	f := newTestFile(t)
	now := f.UploadTime.Add(6 * 24 * time.Hour)

	level, err := f.MarkOverdue(now)
	require.NoError(t, err)
	assert.Equal(t, 1, level)
	assert.Equal(t, StatusOverdue, f.Status)
	assert.Equal(t, 1, f.EscalationLevel)

	// Already overdue: no further transition, level unchanged.
	level, err = f.MarkOverdue(now.Add(time.Hour))
	assert.True(t, errors.IsCode(err, errors.ErrCodeFileInvalidTransition))
	assert.Equal(t, 1, level)
	assert.Equal(t, 1, f.EscalationLevel)
}

func TestFile_MarkOverdue_Completed(t *testing.T) {
	f := newTestFile(t)
	require.NoError(t, f.Complete(f.UploadTime.Add(time.Hour)))

	_, err := f.MarkOverdue(f.UploadTime.Add(2 * time.Hour))
	assert.True(t, errors.IsCode(err, errors.ErrCodeFileInvalidTransition))
	assert.Equal(t, StatusCompleted, f.Status)
}

func TestFile_LatchReminder(t *testing.T) {
	f := newTestFile(t)
	now := f.UploadTime.Add(4*24*time.Hour + time.Hour)

	assert.True(t, f.LatchReminder(now))
	assert.True(t, f.ReminderSent)

	// Latch is one-way.
	assert.False(t, f.LatchReminder(now.Add(time.Hour)))
	assert.True(t, f.ReminderSent)
}

func TestFile_Complete(t *testing.T) {
	t.Run("from pending", func(t *testing.T) {
		f := newTestFile(t)
		done := f.UploadTime.Add(2 * 24 * time.Hour)

		require.NoError(t, f.Complete(done))
		assert.Equal(t, StatusCompleted, f.Status)
		require.NotNil(t, f.CompletionTime)
		assert.True(t, f.CompletionTime.Equal(done))
		assert.Nil(t, f.SLADeadline)
	})

	t.Run("from overdue", func(t *testing.T) {
		f := newTestFile(t)
		_, err := f.MarkOverdue(f.UploadTime.Add(6 * 24 * time.Hour))
		require.NoError(t, err)

		require.NoError(t, f.Complete(f.UploadTime.Add(7*24*time.Hour)))
		assert.Equal(t, StatusCompleted, f.Status)
		assert.Nil(t, f.SLADeadline)
		// Escalation history survives completion.
		assert.Equal(t, 1, f.EscalationLevel)
	})

	t.Run("already completed", func(t *testing.T) {
		f := newTestFile(t)
		require.NoError(t, f.Complete(f.UploadTime.Add(time.Hour)))
		err := f.Complete(f.UploadTime.Add(2 * time.Hour))
		assert.True(t, errors.IsCode(err, errors.ErrCodeFileInvalidTransition))
	})
}
