// Package section defines the organizational units files are routed to.
package section

import (
	"context"
	"time"

	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// Section is an organizational unit that owns files.  Sections are seeded at
// install time and rarely change afterwards.
type Section struct {
	ID          common.ID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// New constructs a section with a generated ID.
func New(name, description string, now time.Time) (*Section, error) {
	if name == "" {
		return nil, errors.InvalidParam("section name must not be empty")
	}
	return &Section{
		ID:          common.NewID(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
	}, nil
}

// Repository is the persistence port for sections.
type Repository interface {
	// Create persists a section, ErrCodeConflict on duplicate name.
	Create(ctx context.Context, s *Section) error

	// GetByID loads a section, ErrCodeSectionNotFound when absent.
	GetByID(ctx context.Context, id common.ID) (*Section, error)

	// List returns all sections ordered by name.
	List(ctx context.Context) ([]*Section, error)
}
