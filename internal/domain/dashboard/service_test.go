package dashboard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lakbay/lakbay/internal/domain/cases"
	"github.com/lakbay/lakbay/internal/domain/users"
	"github.com/lakbay/lakbay/internal/platform/auth"
)

// mockCaseLister serves a fixed case set, applying the search filter the
// way the case store does.
type mockCaseLister struct {
	cases []*cases.Case
}

func (m *mockCaseLister) matches(c *cases.Case, f cases.Filter) bool {
	if f.Classification != "" && c.Classification != f.Classification {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(c.PatientIdentifier), q) ||
		strings.Contains(strings.ToLower(c.Physician), q) ||
		strings.Contains(strings.ToLower(c.Classification), q)
}

func (m *mockCaseLister) ListViews(ctx context.Context, sess auth.Session, f cases.Filter, includeArchived bool) ([]*cases.CaseView, error) {
	now := time.Now()
	var views []*cases.CaseView
	for _, c := range m.cases {
		if !m.matches(c, f) {
			continue
		}
		views = append(views, &cases.CaseView{
			Case:         c,
			DisplayStage: c.DisplayStage(),
			DurationDays: cases.Duration(c, now),
		})
	}
	return views, nil
}

func (m *mockCaseLister) ListCasesByPatient(ctx context.Context, pid string) ([]*cases.Case, error) {
	var items []*cases.Case
	for _, c := range m.cases {
		if c.PatientIdentifier == pid {
			items = append(items, c)
		}
	}
	return items, nil
}

type mockUserLister struct {
	pending int
}

func (m *mockUserLister) ListUsers(ctx context.Context) (*users.UserList, error) {
	list := &users.UserList{}
	for i := 0; i < m.pending; i++ {
		list.Pending = append(list.Pending, &users.User{ID: uuid.New()})
	}
	return list, nil
}

func activeCase(pid string, alert cases.Alert) *cases.Case {
	return &cases.Case{
		ID:                uuid.New(),
		PatientIdentifier: pid,
		CurrentStage:      cases.StageNewCase,
		Classification:    cases.ClassNodule,
		DateOfEncounter:   time.Now().AddDate(0, 0, -5),
		Alert:             alert,
	}
}

func completedCase(pid string) *cases.Case {
	now := time.Now()
	return &cases.Case{
		ID:                uuid.New(),
		PatientIdentifier: pid,
		CurrentStage:      cases.StageCompleted,
		Classification:    cases.ClassNodule,
		DateOfEncounter:   now.AddDate(0, 0, -90),
		Alert:             cases.AlertNormal,
		Completed:         true,
		CompletionReason:  cases.ReasonTreatmentDone,
		CompletionDate:    &now,
	}
}

func TestProviderSummaryCounts(t *testing.T) {
	lister := &mockCaseLister{cases: []*cases.Case{
		activeCase("JD-2025-001", cases.AlertNormal),
		activeCase("MK-2025-002", cases.AlertOverdue),
		completedCase("LN-2024-017"),
	}}
	svc := NewService(lister, &mockUserLister{})

	summary, err := svc.ProviderSummary(context.Background(), auth.Session{Role: "provider"}, cases.Filter{})
	if err != nil {
		t.Fatalf("ProviderSummary: %v", err)
	}
	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
	if summary.Active != 2 {
		t.Errorf("Active = %d, want 2", summary.Active)
	}
	if summary.Overdue != 1 {
		t.Errorf("Overdue = %d, want 1", summary.Overdue)
	}
	if summary.Completed != 1 {
		t.Errorf("Completed = %d, want 1", summary.Completed)
	}
}

func TestCreateThenCompleteMovesCounts(t *testing.T) {
	// A new active case counts as active; completing it moves it to the
	// completed count with its alert reset.
	c := activeCase("JD-2025-001", cases.AlertNormal)
	lister := &mockCaseLister{cases: []*cases.Case{c}}
	svc := NewService(lister, &mockUserLister{})
	sess := auth.Session{Role: "provider"}

	before, err := svc.ProviderSummary(context.Background(), sess, cases.Filter{})
	if err != nil {
		t.Fatalf("ProviderSummary: %v", err)
	}
	if before.Active != 1 || before.Completed != 0 {
		t.Fatalf("before: active=%d completed=%d, want 1/0", before.Active, before.Completed)
	}

	now := time.Now()
	c.Completed = true
	c.CompletionReason = cases.ReasonTreatmentDone
	c.CompletionDate = &now
	c.CurrentStage = cases.StageCompleted
	c.Alert = cases.AlertNormal

	after, err := svc.ProviderSummary(context.Background(), sess, cases.Filter{})
	if err != nil {
		t.Fatalf("ProviderSummary: %v", err)
	}
	if after.Active != 0 || after.Completed != 1 {
		t.Errorf("after: active=%d completed=%d, want 0/1", after.Active, after.Completed)
	}
	if after.Cases[0].DisplayStage != "Completed - Treatment Done" {
		t.Errorf("display stage = %q", after.Cases[0].DisplayStage)
	}
}

func TestProviderSummarySearch(t *testing.T) {
	lister := &mockCaseLister{cases: []*cases.Case{
		activeCase("JD-2025-001", cases.AlertNormal),
		activeCase("MK-2025-002", cases.AlertNormal),
	}}
	svc := NewService(lister, &mockUserLister{})

	summary, err := svc.ProviderSummary(context.Background(), auth.Session{Role: "provider"},
		cases.Filter{Search: "jd-2025"})
	if err != nil {
		t.Fatalf("ProviderSummary: %v", err)
	}
	if summary.Total != 1 {
		t.Errorf("Total = %d, want 1", summary.Total)
	}
}

func TestAdminSummaryPendingUsers(t *testing.T) {
	svc := NewService(&mockCaseLister{}, &mockUserLister{pending: 3})

	summary, err := svc.AdminSummary(context.Background(), auth.Session{Role: "admin"}, cases.Filter{})
	if err != nil {
		t.Fatalf("AdminSummary: %v", err)
	}
	if summary.PendingUsers != 3 {
		t.Errorf("PendingUsers = %d, want 3", summary.PendingUsers)
	}
}

func TestPatientDashboard(t *testing.T) {
	lister := &mockCaseLister{cases: []*cases.Case{
		func() *cases.Case {
			c := activeCase("Juan Dela Cruz", cases.AlertNormal)
			c.CurrentStage = cases.StageMDCReview
			return c
		}(),
		activeCase("Maria Santos", cases.AlertNormal),
	}}
	svc := NewService(lister, &mockUserLister{})

	view, err := svc.PatientDashboard(context.Background(),
		auth.Session{Role: "patient", CaseNumber: "Juan Dela Cruz"})
	if err != nil {
		t.Fatalf("PatientDashboard: %v", err)
	}
	if len(view.Cases) != 1 {
		t.Fatalf("got %d cases, want 1 (only the patient's own)", len(view.Cases))
	}

	pc := view.Cases[0]
	if len(pc.Timeline) == 0 {
		t.Fatal("expected timeline steps")
	}
	ongoing := 0
	for _, step := range pc.Timeline {
		if step.Status == cases.StepOngoing {
			ongoing++
			if step.Label != "MDC Review" {
				t.Errorf("ongoing step = %q, want MDC Review", step.Label)
			}
		}
	}
	if ongoing != 1 {
		t.Errorf("got %d ongoing steps, want 1", ongoing)
	}
	if pc.Status == "" {
		t.Error("expected a status message")
	}
}
