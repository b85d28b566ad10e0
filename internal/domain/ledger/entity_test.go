package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

func TestNewAlert(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	fileID := common.NewID()

	t.Run("valid", func(t *testing.T) {
		a, err := NewAlert(fileID, AlertOverdue, "File report.pdf is OVERDUE! Deadline was 2026-03-14 10:00 UTC", now)
		require.NoError(t, err)
		assert.False(t, a.ID.IsZero())
		assert.Equal(t, fileID, a.FileID)
		assert.Equal(t, AlertOverdue, a.Kind)
		assert.False(t, a.IsRead)
		assert.True(t, a.CreatedAt.Equal(now))
	})

	t.Run("missing file id", func(t *testing.T) {
		_, err := NewAlert(common.ID(""), AlertReminder, "msg", now)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("empty message", func(t *testing.T) {
		_, err := NewAlert(fileID, AlertReminder, "", now)
		assert.True(t, errors.IsValidation(err))
	})
}

func TestNewEscalation(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	fileID := common.NewID()

	t.Run("valid", func(t *testing.T) {
		e, err := NewEscalation(fileID, 1, now)
		require.NoError(t, err)
		assert.Equal(t, 1, e.Level)
		assert.True(t, e.TriggeredAt.Equal(now))
	})

	t.Run("zero level", func(t *testing.T) {
		_, err := NewEscalation(fileID, 0, now)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("missing file id", func(t *testing.T) {
		_, err := NewEscalation(common.ID(""), 1, now)
		assert.True(t, errors.IsValidation(err))
	})
}
