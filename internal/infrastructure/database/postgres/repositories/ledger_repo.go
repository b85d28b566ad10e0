package repositories

import (
	"context"
	"fmt"

	"github.com/opsdesk/filetrack/internal/domain/ledger"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// LedgerRepository implements ledger.Repository on PostgreSQL.  Alerts and
// escalations are insert-only; the single UPDATE touches the read flag.
type LedgerRepository struct {
	db queryExecutor
}

// NewLedgerRepository builds the repository on a pool or transaction.
func NewLedgerRepository(db queryExecutor) *LedgerRepository {
	return &LedgerRepository{db: db}
}

var _ ledger.Repository = (*LedgerRepository)(nil)

// AppendAlert persists a new alert record.
func (r *LedgerRepository) AppendAlert(ctx context.Context, a *ledger.Alert) error {
	query := `INSERT INTO alerts (id, file_id, kind, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(), a.FileID.String(), string(a.Kind), a.Message, a.IsRead, a.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting alert")
	}
	return nil
}

// AppendEscalation persists a new escalation record.
func (r *LedgerRepository) AppendEscalation(ctx context.Context, e *ledger.Escalation) error {
	query := `INSERT INTO escalations (id, file_id, level, triggered_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID.String(), e.FileID.String(), e.Level, e.TriggeredAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting escalation")
	}
	return nil
}

// ListAlerts returns alerts newest first.
func (r *LedgerRepository) ListAlerts(ctx context.Context, filter ledger.AlertFilter, page common.Pagination) ([]*ledger.Alert, int64, error) {
	where := ""
	var args []interface{}
	if !filter.FileID.IsZero() {
		args = append(args, filter.FileID.String())
		where = fmt.Sprintf(" WHERE file_id = $%d", len(args))
	}
	if filter.UnreadOnly {
		if where == "" {
			where = " WHERE NOT is_read"
		} else {
			where += " AND NOT is_read"
		}
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting alerts")
	}

	query := fmt.Sprintf(`SELECT id, file_id, kind, message, is_read, created_at
		FROM alerts%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing alerts")
	}
	defer rows.Close()

	var out []*ledger.Alert
	for rows.Next() {
		var a ledger.Alert
		var id, fileID, kind string
		if err := rows.Scan(&id, &fileID, &kind, &a.Message, &a.IsRead, &a.CreatedAt); err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning alert row")
		}
		a.ID = common.ID(id)
		a.FileID = common.ID(fileID)
		a.Kind = ledger.AlertKind(kind)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating alert rows")
	}
	return out, total, nil
}

// MarkAlertRead flips an alert's read flag.
func (r *LedgerRepository) MarkAlertRead(ctx context.Context, id common.ID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE alerts SET is_read = TRUE WHERE id = $1`, id.String())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "marking alert read")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "reading mark result")
	}
	if n == 0 {
		return errors.Newf(errors.ErrCodeAlertNotFound, "alert %s not found", id)
	}
	return nil
}

// ListEscalations returns a file's escalation history, oldest first.
func (r *LedgerRepository) ListEscalations(ctx context.Context, fileID common.ID) ([]*ledger.Escalation, error) {
	query := `SELECT id, file_id, level, triggered_at
		FROM escalations
		WHERE file_id = $1
		ORDER BY triggered_at, level`
	rows, err := r.db.QueryContext(ctx, query, fileID.String())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing escalations")
	}
	defer rows.Close()

	var out []*ledger.Escalation
	for rows.Next() {
		var e ledger.Escalation
		var id, fid string
		if err := rows.Scan(&id, &fid, &e.Level, &e.TriggeredAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning escalation row")
		}
		e.ID = common.ID(id)
		e.FileID = common.ID(fid)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating escalation rows")
	}
	return out, nil
}

// CountUnreadAlerts returns the number of unread alerts.
func (r *LedgerRepository) CountUnreadAlerts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts WHERE NOT is_read`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "counting unread alerts")
	}
	return n, nil
}
