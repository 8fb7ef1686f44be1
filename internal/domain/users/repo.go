package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means no user matched the lookup.
	ErrNotFound = errors.New("no matching user")

	// ErrDuplicate means an account with the same email already exists.
	ErrDuplicate = errors.New("account already exists")
)

// Repository is the credential store.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByEmail performs an exact email lookup within a role.
	GetByEmail(ctx context.Context, role Role, email string) (*User, error)
	// GetByFullName performs a case-insensitive full-name lookup within
	// a role. Where several rows match, the first wins.
	GetByFullName(ctx context.Context, role Role, fullName string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Approve(ctx context.Context, id uuid.UUID) error
	UpdateCaseNumber(ctx context.Context, id uuid.UUID, caseNumber string) error
	Delete(ctx context.Context, id uuid.UUID) error
}
