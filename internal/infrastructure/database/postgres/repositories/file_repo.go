package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

const fileColumns = `id, filename, storage_key, section_id, priority, status,
	upload_time, document_date, sla_deadline, completion_time,
	reminder_sent, escalation_level, created_at, updated_at`

// FileRepository implements file.Repository on PostgreSQL.
type FileRepository struct {
	db queryExecutor
}

// NewFileRepository builds the repository on a pool or transaction.
func NewFileRepository(db queryExecutor) *FileRepository {
	return &FileRepository{db: db}
}

var _ file.Repository = (*FileRepository)(nil)

// Create persists a freshly constructed file.
func (r *FileRepository) Create(ctx context.Context, f *file.File) error {
	query := `INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.db.ExecContext(ctx, query,
		f.ID.String(), f.Filename, f.StorageKey, f.SectionID.String(),
		string(f.Priority), string(f.Status), f.UploadTime, f.DocumentDate,
		f.SLADeadline, f.CompletionTime, f.ReminderSent, f.EscalationLevel,
		f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Newf(errors.ErrCodeFileAlreadyExists, "file %s already exists", f.ID)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting file")
	}
	return nil
}

// GetByID loads a single file.
func (r *FileRepository) GetByID(ctx context.Context, id common.ID) (*file.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeFileNotFound, "file %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading file")
	}
	return f, nil
}

// List returns files matching the filter, newest upload first.
func (r *FileRepository) List(ctx context.Context, filter file.ListFilter, page common.Pagination) ([]*file.File, int64, error) {
	where, args := buildFileFilter(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM files` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting files")
	}

	query := fmt.Sprintf(`SELECT `+fileColumns+` FROM files%s
		ORDER BY upload_time DESC, id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing files")
	}
	defer rows.Close()

	files, err := collectFiles(rows)
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// ListPending returns a keyset-paged snapshot of pending files ordered by id.
func (r *FileRepository) ListPending(ctx context.Context, afterID common.ID, limit int) ([]*file.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE status = $1 AND id > $2
		ORDER BY id
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, string(file.StatusPending), afterID.String(), limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing pending files")
	}
	defer rows.Close()
	return collectFiles(rows)
}

// ApplySweepUpdate writes a sweep decision gated on the row still being
// Pending.
func (r *FileRepository) ApplySweepUpdate(ctx context.Context, upd file.SweepUpdate) (bool, error) {
	query := `UPDATE files
		SET status = $1, reminder_sent = $2, escalation_level = $3, updated_at = $4
		WHERE id = $5 AND status = $6`
	res, err := r.db.ExecContext(ctx, query,
		string(upd.Status), upd.ReminderSent, upd.EscalationLevel, upd.UpdatedAt,
		upd.FileID.String(), string(file.StatusPending))
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "applying sweep update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "reading sweep update result")
	}
	return n == 1, nil
}

// MarkCompleted transitions a file to Completed and clears its deadline.
func (r *FileRepository) MarkCompleted(ctx context.Context, id common.ID, now time.Time) (*file.File, error) {
	query := `UPDATE files
		SET status = $1, completion_time = $2, sla_deadline = NULL, updated_at = $2
		WHERE id = $3 AND status != $1
		RETURNING ` + fileColumns
	f, err := scanFile(r.db.QueryRowContext(ctx, query, string(file.StatusCompleted), now, id.String()))
	if err == sql.ErrNoRows {
		// Either absent or already completed; distinguish for the caller.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errors.Newf(errors.ErrCodeFileInvalidTransition, "file %s is already completed", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "completing file")
	}
	return f, nil
}

// CountByStatus returns file counts grouped by status.
func (r *FileRepository) CountByStatus(ctx context.Context, sectionID common.ID) (map[file.Status]int64, error) {
	query := `SELECT status, COUNT(*) FROM files`
	var args []interface{}
	if !sectionID.IsZero() {
		query += ` WHERE section_id = $1`
		args = append(args, sectionID.String())
	}
	query += ` GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting files by status")
	}
	defer rows.Close()

	out := make(map[file.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning status count")
		}
		out[file.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating status counts")
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func buildFileFilter(filter file.ListFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if !filter.SectionID.IsZero() {
		args = append(args, filter.SectionID.String())
		clauses = append(clauses, fmt.Sprintf("section_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		clauses = append(clauses, fmt.Sprintf("priority = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func scanFile(s scanner) (*file.File, error) {
	var f file.File
	var id, sectionID, priority, status string
	err := s.Scan(&id, &f.Filename, &f.StorageKey, &sectionID, &priority, &status,
		&f.UploadTime, &f.DocumentDate, &f.SLADeadline, &f.CompletionTime,
		&f.ReminderSent, &f.EscalationLevel, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	f.ID = common.ID(id)
	f.SectionID = common.ID(sectionID)
	f.Priority = file.Priority(priority)
	f.Status = file.Status(status)
	return &f, nil
}

func collectFiles(rows *sql.Rows) ([]*file.File, error) {
	var out []*file.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning file row")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating file rows")
	}
	return out, nil
}
