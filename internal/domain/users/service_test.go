package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lakbay/lakbay/internal/domain/cases"
	"github.com/lakbay/lakbay/internal/platform/auth"
)

// mockRepo is a map-backed Repository for service tests.
type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(ctx context.Context, u *User) error {
	if u.Email != "" {
		for _, existing := range m.users {
			if existing.Role == u.Role && existing.Email == u.Email {
				return ErrDuplicate
			}
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByEmail(ctx context.Context, role Role, email string) (*User, error) {
	for _, u := range m.users {
		if u.Role == role && u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByFullName(ctx context.Context, role Role, fullName string) (*User, error) {
	for _, u := range m.users {
		if u.Role == role && strings.EqualFold(u.FullName, fullName) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(ctx context.Context) ([]*User, error) {
	var items []*User
	for _, u := range m.users {
		cp := *u
		items = append(items, &cp)
	}
	return items, nil
}

func (m *mockRepo) Approve(ctx context.Context, id uuid.UUID) error {
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Approved = true
	return nil
}

func (m *mockRepo) UpdateCaseNumber(ctx context.Context, id uuid.UUID, caseNumber string) error {
	u, ok := m.users[id]
	if !ok || u.Role != RolePatient {
		return ErrNotFound
	}
	u.CaseNumber = caseNumber
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

// mockCaseFinder matches patient identifiers exactly, like the case store.
type mockCaseFinder struct {
	identifiers []string
}

func (m *mockCaseFinder) ListByPatient(ctx context.Context, pid string) ([]*cases.Case, error) {
	var items []*cases.Case
	for _, id := range m.identifiers {
		if id == pid {
			items = append(items, &cases.Case{ID: uuid.New(), PatientIdentifier: id})
		}
	}
	return items, nil
}

const (
	testSuperEmail    = "navigator@lakbay.example"
	testSuperPassword = "bootstrap-password"
)

func newTestService(caseIDs ...string) (*Service, *mockRepo) {
	repo := newMockRepo()
	issuer := auth.NewTokenIssuer([]byte("test-signing-key"), time.Hour)
	svc := NewService(repo, &mockCaseFinder{identifiers: caseIDs}, issuer,
		Superuser{Email: testSuperEmail, Password: testSuperPassword})
	return svc, repo
}

func TestSignUpProvider(t *testing.T) {
	svc, repo := newTestService()

	u, err := svc.SignUp(context.Background(), SignUpInput{
		Role: RoleProvider, Email: "reyes@clinic.example", Password: "secret123", FullName: "Dr. Reyes",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if u.Approved {
		t.Error("new accounts must start unapproved")
	}
	if u.PasswordHash == "secret123" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if len(repo.users) != 1 {
		t.Errorf("got %d users, want 1", len(repo.users))
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := SignUpInput{Role: RoleProvider, Email: "reyes@clinic.example", Password: "secret123"}
	if _, err := svc.SignUp(ctx, in); err != nil {
		t.Fatalf("first SignUp: %v", err)
	}
	if _, err := svc.SignUp(ctx, in); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestSignUpPatientNameMatch(t *testing.T) {
	svc, _ := newTestService("Juan Dela Cruz")

	u, err := svc.SignUp(context.Background(), SignUpInput{
		Role: RolePatient, FullName: "Juan Dela Cruz", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if u.CaseNumber != "Juan Dela Cruz" {
		t.Errorf("case number = %q, want the matched case identifier", u.CaseNumber)
	}
}

func TestSignUpPatientFailsClosed(t *testing.T) {
	svc, repo := newTestService("Juan Dela Cruz")

	// Match is case-sensitive; a different casing must be rejected and
	// must not create a user row.
	_, err := svc.SignUp(context.Background(), SignUpInput{
		Role: RolePatient, FullName: "juan dela cruz", Password: "secret123",
	})
	if !errors.Is(err, ErrNoMatchingCase) {
		t.Fatalf("expected ErrNoMatchingCase, got %v", err)
	}
	if len(repo.users) != 0 {
		t.Errorf("rejected sign-up created %d user rows", len(repo.users))
	}
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignUpInput
		want error
	}{
		{"no role", SignUpInput{Email: "a@b.c", Password: "x"}, ErrRoleNotSelected},
		{"no password", SignUpInput{Role: RoleProvider, Email: "a@b.c"}, ErrMissingField},
		{"provider without email", SignUpInput{Role: RoleProvider, Password: "x"}, ErrMissingField},
		{"patient without name", SignUpInput{Role: RolePatient, Password: "x"}, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSignInPendingApproval(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpInput{
		Role: RoleProvider, Email: "reyes@clinic.example", Password: "secret123",
	}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	// Correct credentials, but unapproved.
	_, err := svc.SignIn(ctx, SignInInput{
		Role: RoleProvider, Email: "reyes@clinic.example", Password: "secret123",
	})
	if !errors.Is(err, ErrPendingApproval) {
		t.Fatalf("expected ErrPendingApproval, got %v", err)
	}
}

func TestSignInApprovedProvider(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	u, err := svc.SignUp(ctx, SignUpInput{
		Role: RoleProvider, Email: "reyes@clinic.example", Password: "secret123", FullName: "Dr. Reyes",
	})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if err := repo.Approve(ctx, u.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	result, err := svc.SignIn(ctx, SignInInput{
		Role: RoleProvider, Email: "reyes@clinic.example", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if result.Token == "" {
		t.Error("expected a session token")
	}
	if result.User.Role != RoleProvider {
		t.Errorf("role = %s, want provider", result.User.Role)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	u, _ := svc.SignUp(ctx, SignUpInput{Role: RoleProvider, Email: "reyes@clinic.example", Password: "secret123"})
	repo.Approve(ctx, u.ID)

	_, err := svc.SignIn(ctx, SignInInput{Role: RoleProvider, Email: "reyes@clinic.example", Password: "wrong"})
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestSignInPatientCaseInsensitiveName(t *testing.T) {
	svc, repo := newTestService("Juan Dela Cruz")
	ctx := context.Background()

	u, err := svc.SignUp(ctx, SignUpInput{Role: RolePatient, FullName: "Juan Dela Cruz", Password: "secret123"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	repo.Approve(ctx, u.ID)

	// Sign-in name matching is case-insensitive, unlike sign-up.
	result, err := svc.SignIn(ctx, SignInInput{Role: RolePatient, FullName: "JUAN DELA CRUZ", Password: "secret123"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if result.User.CaseNumber != "Juan Dela Cruz" {
		t.Errorf("case number = %q", result.User.CaseNumber)
	}
}

func TestSuperuserBootstrap(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	// First use creates the approved admin row.
	result, err := svc.SignIn(ctx, SignInInput{Role: RoleAdmin, Email: testSuperEmail, Password: testSuperPassword})
	if err != nil {
		t.Fatalf("superuser SignIn: %v", err)
	}
	if result.User.Role != RoleAdmin || !result.User.Approved {
		t.Error("superuser must be an approved admin")
	}
	if len(repo.users) != 1 {
		t.Errorf("got %d users after bootstrap, want 1", len(repo.users))
	}

	// Even if the stored row is flipped to unapproved, the superuser
	// still gets in.
	for _, u := range repo.users {
		u.Approved = false
	}
	if _, err := svc.SignIn(ctx, SignInInput{Role: RoleAdmin, Email: testSuperEmail, Password: testSuperPassword}); err != nil {
		t.Fatalf("superuser SignIn after unapprove: %v", err)
	}

	// Second use must not create a second row.
	if len(repo.users) != 1 {
		t.Errorf("got %d users after second sign-in, want 1", len(repo.users))
	}
}

func TestSignInNoRole(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.SignIn(context.Background(), SignInInput{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, ErrRoleNotSelected) {
		t.Fatalf("expected ErrRoleNotSelected, got %v", err)
	}
}

func TestListUsersSplit(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	a, _ := svc.SignUp(ctx, SignUpInput{Role: RoleProvider, Email: "a@clinic.example", Password: "x1234567"})
	if _, err := svc.SignUp(ctx, SignUpInput{Role: RoleProvider, Email: "b@clinic.example", Password: "x1234567"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	repo.Approve(ctx, a.ID)

	list, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(list.Approved) != 1 || len(list.Pending) != 1 {
		t.Errorf("approved=%d pending=%d, want 1/1", len(list.Approved), len(list.Pending))
	}
}

func TestListUsersEmptyIsNotNull(t *testing.T) {
	svc, _ := newTestService()

	list, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if list.Pending == nil || list.Approved == nil {
		t.Fatal("empty buckets must be non-nil so the JSON body is [] not null")
	}
}

func TestAssignCaseNumber(t *testing.T) {
	svc, repo := newTestService("Juan Dela Cruz", "Maria Santos")
	ctx := context.Background()

	u, err := svc.SignUp(ctx, SignUpInput{Role: RolePatient, FullName: "Juan Dela Cruz", Password: "secret123"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if err := svc.AssignCaseNumber(ctx, u.ID, "Maria Santos"); err != nil {
		t.Fatalf("AssignCaseNumber: %v", err)
	}
	stored, _ := repo.GetByID(ctx, u.ID)
	if stored.CaseNumber != "Maria Santos" {
		t.Errorf("case number = %q", stored.CaseNumber)
	}

	// Reassignment to an identifier with no case fails closed.
	if err := svc.AssignCaseNumber(ctx, u.ID, "Nobody"); !errors.Is(err, ErrNoMatchingCase) {
		t.Fatalf("expected ErrNoMatchingCase, got %v", err)
	}
}
