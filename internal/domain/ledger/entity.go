// Package ledger holds the append-only records the SLA sweep produces:
// alerts shown to operators and escalations tracking overdue severity.
// Records are never updated or deleted once written, with the single
// exception of an alert's read flag.
package ledger

import (
	"context"
	"time"

	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Alert
// ─────────────────────────────────────────────────────────────────────────────

// AlertKind distinguishes why an alert fired.
type AlertKind string

const (
	// AlertOverdue fires once when a file crosses its deadline.
	AlertOverdue AlertKind = "overdue"
	// AlertReminder fires once when less than a day remains.
	AlertReminder AlertKind = "reminder"
)

// Alert is a single operator-facing notification about a file.
type Alert struct {
	ID        common.ID `json:"id"`
	FileID    common.ID `json:"file_id"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAlert constructs an unread alert.
func NewAlert(fileID common.ID, kind AlertKind, message string, now time.Time) (*Alert, error) {
	if fileID.IsZero() {
		return nil, errors.InvalidParam("alert file id must not be empty")
	}
	if message == "" {
		return nil, errors.InvalidParam("alert message must not be empty")
	}
	return &Alert{
		ID:        common.NewID(),
		FileID:    fileID,
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Escalation
// ─────────────────────────────────────────────────────────────────────────────

// Escalation records one overdue-threshold crossing.  The level equals the
// file's escalation level at the moment of the crossing, so a file's
// escalation records always count up 1, 2, 3... without gaps.
type Escalation struct {
	ID          common.ID `json:"id"`
	FileID      common.ID `json:"file_id"`
	Level       int       `json:"level"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// NewEscalation constructs an escalation record.
func NewEscalation(fileID common.ID, level int, now time.Time) (*Escalation, error) {
	if fileID.IsZero() {
		return nil, errors.InvalidParam("escalation file id must not be empty")
	}
	if level < 1 {
		return nil, errors.InvalidParam("escalation level must be at least 1")
	}
	return &Escalation{
		ID:          common.NewID(),
		FileID:      fileID,
		Level:       level,
		TriggeredAt: now,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Repository
// ─────────────────────────────────────────────────────────────────────────────

// AlertFilter narrows ListAlerts results.
type AlertFilter struct {
	FileID     common.ID
	UnreadOnly bool
}

// Repository is the persistence port for the alert/escalation ledger.
type Repository interface {
	// AppendAlert persists a new alert record.
	AppendAlert(ctx context.Context, a *Alert) error

	// AppendEscalation persists a new escalation record.
	AppendEscalation(ctx context.Context, e *Escalation) error

	// ListAlerts returns alerts newest first.
	ListAlerts(ctx context.Context, filter AlertFilter, page common.Pagination) ([]*Alert, int64, error)

	// MarkAlertRead flips an alert's read flag, ErrCodeAlertNotFound when
	// absent.  The only mutation the ledger permits.
	MarkAlertRead(ctx context.Context, id common.ID) error

	// ListEscalations returns a file's escalation history, oldest first.
	ListEscalations(ctx context.Context, fileID common.ID) ([]*Escalation, error)

	// CountUnreadAlerts returns the number of unread alerts.
	CountUnreadAlerts(ctx context.Context) (int64, error)
}
