package cases

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means the case does not exist.
	ErrNotFound = errors.New("case not found")

	// ErrStaleVersion means the update carried a version that no longer
	// matches the stored row; the caller must re-read and retry.
	ErrStaleVersion = errors.New("case was modified by another user")
)

// Filter narrows a case listing.
type Filter struct {
	// Search matches case-insensitive substrings of the patient
	// identifier, physician, or classification.
	Search string

	// Classification restricts to one classification label exactly.
	Classification string
}

// Repository is the case store.
type Repository interface {
	Create(ctx context.Context, c *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	// Update writes all mutable fields, guarded by the version the
	// caller read. Returns ErrStaleVersion when the row moved on.
	Update(ctx context.Context, c *Case) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Case, int, error)
	// ListAll returns every case matching the filter, unpaginated.
	// Dashboards and exports compute their counts over the full set.
	ListAll(ctx context.Context, f Filter) ([]*Case, error)
	ListByPatient(ctx context.Context, patientIdentifier string) ([]*Case, error)
	DistinctPatients(ctx context.Context) ([]string, error)
}

// ArchiveRepository is the per-user archived-case set. Archiving hides a
// case from a user's active view without touching the case row.
type ArchiveRepository interface {
	Archive(ctx context.Context, userID, caseID uuid.UUID) error
	Unarchive(ctx context.Context, userID, caseID uuid.UUID) error
	ArchivedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
}
