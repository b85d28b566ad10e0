package repositories

import (
	"context"
	"database/sql"

	"github.com/opsdesk/filetrack/internal/domain/section"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// SectionRepository implements section.Repository on PostgreSQL.
type SectionRepository struct {
	db queryExecutor
}

// NewSectionRepository builds the repository on a pool or transaction.
func NewSectionRepository(db queryExecutor) *SectionRepository {
	return &SectionRepository{db: db}
}

var _ section.Repository = (*SectionRepository)(nil)

// Create persists a section.
func (r *SectionRepository) Create(ctx context.Context, s *section.Section) error {
	query := `INSERT INTO sections (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, s.ID.String(), s.Name, s.Description, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Newf(errors.ErrCodeConflict, "section %q already exists", s.Name)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "inserting section")
	}
	return nil
}

// GetByID loads a section.
func (r *SectionRepository) GetByID(ctx context.Context, id common.ID) (*section.Section, error) {
	query := `SELECT id, name, description, created_at FROM sections WHERE id = $1`
	var s section.Section
	var sid string
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(&sid, &s.Name, &s.Description, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrCodeSectionNotFound, "section %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "loading section")
	}
	s.ID = common.ID(sid)
	return &s, nil
}

// List returns all sections ordered by name.
func (r *SectionRepository) List(ctx context.Context) ([]*section.Section, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, description, created_at FROM sections ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "listing sections")
	}
	defer rows.Close()

	var out []*section.Section
	for rows.Next() {
		var s section.Section
		var id string
		if err := rows.Scan(&id, &s.Name, &s.Description, &s.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scanning section row")
		}
		s.ID = common.ID(id)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterating section rows")
	}
	return out, nil
}
