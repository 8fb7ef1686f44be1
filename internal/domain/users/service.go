package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lakbay/lakbay/internal/domain/cases"
	"github.com/lakbay/lakbay/internal/platform/auth"
)

var (
	ErrRoleNotSelected = errors.New("role not selected")
	ErrMissingField    = errors.New("missing required field")
	ErrNoMatch         = errors.New("no matching record")
	ErrPendingApproval = errors.New("account pending approval")

	// ErrNoMatchingCase fails a patient sign-up closed when the full
	// name does not exactly match any case's patient identifier.
	ErrNoMatchingCase = errors.New("no matching case found for that name")
)

// CaseFinder locates case records for the patient sign-up name match and
// case-number reassignment. Satisfied by the cases repository.
type CaseFinder interface {
	ListByPatient(ctx context.Context, patientIdentifier string) ([]*cases.Case, error)
}

// Superuser is the bootstrap admin credential pair. It is recognized at
// sign-in before any table lookup and always yields an approved admin.
type Superuser struct {
	Email    string
	Password string
}

type Service struct {
	repo      Repository
	caseFind  CaseFinder
	issuer    *auth.TokenIssuer
	superuser Superuser
}

func NewService(repo Repository, caseFind CaseFinder, issuer *auth.TokenIssuer, superuser Superuser) *Service {
	return &Service{repo: repo, caseFind: caseFind, issuer: issuer, superuser: superuser}
}

// SignUpInput carries a registration request.
type SignUpInput struct {
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// SignUp registers a new account with approved=false. Patients register
// by full name, which must exactly (case-sensitively) match an existing
// case's patient identifier; the case number is assigned from the match.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*User, error) {
	if in.Role == "" {
		return nil, ErrRoleNotSelected
	}
	if !ValidRole(in.Role) {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}
	if in.Password == "" {
		return nil, ErrMissingField
	}

	u := &User{Role: in.Role, FullName: in.FullName}

	switch in.Role {
	case RolePatient:
		if in.FullName == "" {
			return nil, ErrMissingField
		}
		matched, err := s.caseFind.ListByPatient(ctx, in.FullName)
		if err != nil {
			return nil, err
		}
		if len(matched) == 0 {
			return nil, ErrNoMatchingCase
		}
		u.CaseNumber = matched[0].PatientIdentifier
	default:
		if in.Email == "" {
			return nil, ErrMissingField
		}
		if existing, err := s.repo.GetByEmail(ctx, in.Role, in.Email); err == nil && existing != nil {
			return nil, ErrDuplicate
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		u.Email = in.Email
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = string(hash)
	u.Approved = false

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SignInInput carries a sign-in request. Patients identify by full name,
// providers and admins by email.
type SignInInput struct {
	Role     Role   `json:"role"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// SignInResult is a successful sign-in: the session token plus the
// signed-in user.
type SignInResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// SignIn authenticates and issues a session token. Unapproved accounts
// are rejected with a pending-approval error. The superuser pair is
// recognized before the table lookup and always grants admin access.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	if in.Role == "" {
		return nil, ErrRoleNotSelected
	}
	if !ValidRole(in.Role) {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}
	if in.Password == "" {
		return nil, ErrMissingField
	}

	if in.Role == RoleAdmin && s.isSuperuser(in.Email, in.Password) {
		return s.signInSuperuser(ctx)
	}

	var u *User
	var err error
	switch in.Role {
	case RolePatient:
		if in.FullName == "" {
			return nil, ErrMissingField
		}
		u, err = s.repo.GetByFullName(ctx, RolePatient, in.FullName)
	default:
		if in.Email == "" {
			return nil, ErrMissingField
		}
		u, err = s.repo.GetByEmail(ctx, in.Role, in.Email)
	}
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoMatch
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrNoMatch
	}
	if !u.Approved {
		return nil, ErrPendingApproval
	}

	return s.issueFor(u)
}

func (s *Service) isSuperuser(email, password string) bool {
	return s.superuser.Email != "" &&
		email == s.superuser.Email &&
		password == s.superuser.Password
}

// signInSuperuser returns an admin session for the bootstrap credentials,
// creating the admin row on first use. The stored approved flag is
// ignored for the superuser.
func (s *Service) signInSuperuser(ctx context.Context) (*SignInResult, error) {
	u, err := s.repo.GetByEmail(ctx, RoleAdmin, s.superuser.Email)
	if errors.Is(err, ErrNotFound) {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(s.superuser.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, hashErr
		}
		u = &User{
			Role:         RoleAdmin,
			Email:        s.superuser.Email,
			PasswordHash: string(hash),
			FullName:     "Administrator",
			Approved:     true,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s.issueFor(u)
}

func (s *Service) issueFor(u *User) (*SignInResult, error) {
	token, err := s.issuer.Issue(u.ID.String(), string(u.Role), u.FullName, u.CaseNumber)
	if err != nil {
		return nil, err
	}
	return &SignInResult{Token: token, User: u}, nil
}

// UserList is the admin view of accounts, split by approval state.
type UserList struct {
	Pending  []*User `json:"pending"`
	Approved []*User `json:"approved"`
}

func (s *Service) ListUsers(ctx context.Context) (*UserList, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	// Both buckets serialize as [] when empty, not null.
	list := &UserList{Pending: []*User{}, Approved: []*User{}}
	for _, u := range all {
		if u.Approved {
			list.Approved = append(list.Approved, u)
		} else {
			list.Pending = append(list.Pending, u)
		}
	}
	return list, nil
}

func (s *Service) ApproveUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.Approve(ctx, id)
}

// RejectUser removes an account. Used both for rejecting pending
// sign-ups and for revoking approved accounts.
func (s *Service) RejectUser(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// AssignCaseNumber points a patient account at a different case. The new
// number must reference an existing case's patient identifier.
func (s *Service) AssignCaseNumber(ctx context.Context, id uuid.UUID, caseNumber string) error {
	if caseNumber == "" {
		return ErrMissingField
	}
	matched, err := s.caseFind.ListByPatient(ctx, caseNumber)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return ErrNoMatchingCase
	}
	return s.repo.UpdateCaseNumber(ctx, id, caseNumber)
}
