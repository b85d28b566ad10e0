package file

import (
	"context"
	"time"

	"github.com/opsdesk/filetrack/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Query options
// ─────────────────────────────────────────────────────────────────────────────

// ListFilter narrows List results.  Zero-valued fields impose no constraint.
type ListFilter struct {
	SectionID common.ID
	Status    Status
	Priority  Priority
}

// SweepUpdate carries the sweep engine's decision for a single file.  The
// repository applies it only while the row is still Pending, making the
// write a no-op when a completion raced the sweep.
type SweepUpdate struct {
	FileID          common.ID
	Status          Status
	ReminderSent    bool
	EscalationLevel int
	UpdatedAt       time.Time
}

// ─────────────────────────────────────────────────────────────────────────────
// Repository interface
// ─────────────────────────────────────────────────────────────────────────────

// Repository is the persistence port for the file aggregate.
type Repository interface {
	// Create persists a freshly constructed file.
	Create(ctx context.Context, f *File) error

	// GetByID loads a single file, ErrCodeFileNotFound when absent.
	GetByID(ctx context.Context, id common.ID) (*File, error)

	// List returns files matching the filter, newest upload first, along
	// with the total match count for pagination.
	List(ctx context.Context, filter ListFilter, page common.Pagination) ([]*File, int64, error)

	// ListPending returns a snapshot of files currently in the Pending
	// state, in batches of at most limit rows starting after afterID
	// (empty afterID starts from the beginning).  The snapshot is the
	// sweep engine's working set; rows completed after the read are
	// filtered again at write time by ApplySweepUpdate.
	ListPending(ctx context.Context, afterID common.ID, limit int) ([]*File, error)

	// ApplySweepUpdate writes a sweep decision, gated on the row still
	// being Pending.  It returns false, without error, when the gate
	// rejected the write.
	ApplySweepUpdate(ctx context.Context, upd SweepUpdate) (bool, error)

	// MarkCompleted transitions a file to Completed: sets the completion
	// timestamp and clears the SLA deadline.  Fails with
	// ErrCodeFileInvalidTransition if the file is already completed.
	MarkCompleted(ctx context.Context, id common.ID, now time.Time) (*File, error)

	// CountByStatus returns file counts grouped by status, optionally
	// restricted to one section (zero ID means all sections).
	CountByStatus(ctx context.Context, sectionID common.ID) (map[Status]int64, error)
}
