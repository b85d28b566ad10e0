// Package file defines the tracked file aggregate: the unit of work moving
// through organizational sections, bound to a priority-derived SLA deadline.
package file

import (
	"time"

	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Priority enumeration
// ─────────────────────────────────────────────────────────────────────────────

// Priority indicates the processing urgency assigned to a file at intake.
// It is set once by the metadata resolver and never changes afterwards.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// DefaultPriority is applied whenever the classifier yields no usable label.
const DefaultPriority = PriorityMedium

// ParsePriority maps a raw label to a Priority.  Unrecognized labels resolve
// to DefaultPriority together with an ErrCodeFileInvalidPriority error so the
// caller can log the discrepancy while still proceeding.
func ParsePriority(raw string) (Priority, error) {
	switch raw {
	case string(PriorityLow), string(PriorityMedium), string(PriorityHigh), string(PriorityCritical):
		return Priority(raw), nil
	}
	return DefaultPriority, errors.Newf(errors.ErrCodeFileInvalidPriority,
		"unrecognized priority label %q, defaulting to %s", raw, DefaultPriority)
}

// Valid reports whether p is one of the four known levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Status enumeration: the file state machine
// ─────────────────────────────────────────────────────────────────────────────

// Status is the file's position in the SLA state machine:
//
//	Pending → Overdue → (terminal) Completed
//
// Completed is reachable directly from Pending or Overdue via an external
// mark-complete action.  The sweep engine only ever moves a file from
// Pending to Overdue, never backward, and never touches Completed files.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusOverdue   Status = "Overdue"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOverdue, StatusCompleted:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// File aggregate
// ─────────────────────────────────────────────────────────────────────────────

// File is a physical/scanned document tracked through the system.
type File struct {
	// ID uniquely identifies the file.  Assigned at intake, immutable.
	ID common.ID `json:"id"`

	// Filename is the sanitized original name of the uploaded document.
	Filename string `json:"filename"`

	// StorageKey locates the document bytes in object storage.
	StorageKey string `json:"storage_key"`

	// SectionID is the organizational section the file belongs to.
	SectionID common.ID `json:"section_id"`

	// Priority is derived from the classifier at intake and immutable.
	Priority Priority `json:"priority"`

	// Status is the file's position in the SLA state machine.
	Status Status `json:"status"`

	// UploadTime anchors all elapsed-time math.  Set at intake, immutable.
	UploadTime time.Time `json:"upload_time"`

	// DocumentDate is the calendar date extracted from the document content.
	// Informational only; never used in SLA math.
	DocumentDate *time.Time `json:"document_date,omitempty"`

	// SLADeadline is the absolute timestamp by which the file must be
	// completed.  Present while Pending or Overdue; cleared on completion so
	// that downstream consumers can read its absence as "no longer
	// monitored".  This trades away historical SLA-compliance auditing.
	SLADeadline *time.Time `json:"sla_deadline,omitempty"`

	// CompletionTime is set exactly once, when the file is completed.
	CompletionTime *time.Time `json:"completion_time,omitempty"`

	// ReminderSent latches true the first time a near-deadline alert fires
	// and never reverts, preventing duplicate reminders.
	ReminderSent bool `json:"reminder_sent"`

	// EscalationLevel counts overdue-threshold crossings.  Monotonically
	// non-decreasing; every increment has a matching Escalation record.
	EscalationLevel int `json:"escalation_level"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New constructs a Pending file at intake.
//
// Business rules:
//   - filename and sectionID must not be empty
//   - priority must be one of the four levels (callers go through
//     ParsePriority first, so this is a programming-error guard)
//   - deadline must not be zero: a file enters the system monitored
func New(filename, storageKey string, sectionID common.ID, priority Priority, uploadTime time.Time, deadline time.Time, documentDate *time.Time) (*File, error) {
	if filename == "" {
		return nil, errors.InvalidParam("filename must not be empty")
	}
	if sectionID.IsZero() {
		return nil, errors.InvalidParam("section id must not be empty")
	}
	if !priority.Valid() {
		return nil, errors.Newf(errors.ErrCodeFileInvalidPriority, "invalid priority %q", priority)
	}
	if deadline.IsZero() {
		return nil, errors.InvalidParam("sla deadline must not be zero")
	}

	return &File{
		ID:           common.NewID(),
		Filename:     filename,
		StorageKey:   storageKey,
		SectionID:    sectionID,
		Priority:     priority,
		Status:       StatusPending,
		UploadTime:   uploadTime,
		DocumentDate: documentDate,
		SLADeadline:  &deadline,
		CreatedAt:    uploadTime,
		UpdatedAt:    uploadTime,
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Query methods
// ─────────────────────────────────────────────────────────────────────────────

// IsPending reports whether the file is still awaiting action.
func (f *File) IsPending() bool { return f.Status == StatusPending }

// IsCompleted reports whether the file has reached the terminal state.
func (f *File) IsCompleted() bool { return f.Status == StatusCompleted }

// ─────────────────────────────────────────────────────────────────────────────
// Command methods
// ─────────────────────────────────────────────────────────────────────────────

// MarkOverdue transitions the file from Pending to Overdue and bumps the
// escalation level, returning the new level so the caller can append the
// matching Escalation record.  Only valid on a Pending file.
func (f *File) MarkOverdue(now time.Time) (int, error) {
	if f.Status != StatusPending {
		return f.EscalationLevel, errors.Newf(errors.ErrCodeFileInvalidTransition,
			"cannot mark %s file overdue", f.Status)
	}
	f.Status = StatusOverdue
	f.EscalationLevel++
	f.UpdatedAt = now
	return f.EscalationLevel, nil
}

// LatchReminder sets the one-time reminder flag.  It returns false when the
// latch was already set, letting the caller gate alert emission on the flip.
func (f *File) LatchReminder(now time.Time) bool {
	if f.ReminderSent {
		return false
	}
	f.ReminderSent = true
	f.UpdatedAt = now
	return true
}

// Complete transitions the file to the terminal Completed state from either
// Pending or Overdue, records the completion timestamp, and clears the SLA
// deadline so the file drops out of all monitoring.
func (f *File) Complete(now time.Time) error {
	if f.Status == StatusCompleted {
		return errors.Newf(errors.ErrCodeFileInvalidTransition, "file is already completed")
	}
	f.Status = StatusCompleted
	f.CompletionTime = &now
	f.SLADeadline = nil
	f.UpdatedAt = now
	return nil
}
