package dashboard

import (
	"context"
	"time"

	"github.com/lakbay/lakbay/internal/domain/cases"
	"github.com/lakbay/lakbay/internal/domain/users"
	"github.com/lakbay/lakbay/internal/platform/auth"
)

// CaseLister is the case view the dashboards render. Satisfied by the
// cases service.
type CaseLister interface {
	ListViews(ctx context.Context, sess auth.Session, f cases.Filter, includeArchived bool) ([]*cases.CaseView, error)
	ListCasesByPatient(ctx context.Context, patientIdentifier string) ([]*cases.Case, error)
}

// UserLister supplies the pending-approval count for the admin view.
// Satisfied by the users service.
type UserLister interface {
	ListUsers(ctx context.Context) (*users.UserList, error)
}

type Service struct {
	caseSvc CaseLister
	userSvc UserLister
}

// Summary is the case table plus the counts shown at the top of the
// provider and admin dashboards. Counts are computed over the full
// filtered set, with the viewer's archived cases excluded.
type Summary struct {
	Total     int               `json:"total"`
	Active    int               `json:"active"`
	Overdue   int               `json:"overdue"`
	Completed int               `json:"completed"`
	Cases     []*cases.CaseView `json:"cases"`
}

// AdminSummary extends the provider summary with the approval queue size.
type AdminSummary struct {
	Summary
	PendingUsers int `json:"pending_users"`
}

// PatientCase is one of the patient's cases rendered as a timeline.
type PatientCase struct {
	Case         *cases.Case          `json:"case"`
	DisplayStage string               `json:"display_stage"`
	DurationDays int                  `json:"duration_days"`
	Timeline     []cases.TimelineStep `json:"timeline"`
	Status       string               `json:"status"`
}

// PatientView is the signed-in patient's dashboard.
type PatientView struct {
	CaseNumber string         `json:"case_number"`
	Cases      []*PatientCase `json:"cases"`
}

func NewService(caseLister CaseLister, userLister UserLister) *Service {
	return &Service{caseSvc: caseLister, userSvc: userLister}
}

// ProviderSummary builds the provider dashboard: the searched case table
// and its counts.
func (s *Service) ProviderSummary(ctx context.Context, sess auth.Session, f cases.Filter) (*Summary, error) {
	views, err := s.caseSvc.ListViews(ctx, sess, f, false)
	if err != nil {
		return nil, err
	}
	return summarize(views), nil
}

// AdminSummary builds the admin dashboard: the provider summary plus the
// number of accounts waiting for approval.
func (s *Service) AdminSummary(ctx context.Context, sess auth.Session, f cases.Filter) (*AdminSummary, error) {
	views, err := s.caseSvc.ListViews(ctx, sess, f, false)
	if err != nil {
		return nil, err
	}
	list, err := s.userSvc.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminSummary{
		Summary:      *summarize(views),
		PendingUsers: len(list.Pending),
	}, nil
}

// PatientDashboard renders the signed-in patient's cases as ordered
// timelines, newest encounter first.
func (s *Service) PatientDashboard(ctx context.Context, sess auth.Session) (*PatientView, error) {
	list, err := s.caseSvc.ListCasesByPatient(ctx, sess.CaseNumber)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	view := &PatientView{CaseNumber: sess.CaseNumber}
	for _, c := range list {
		view.Cases = append(view.Cases, &PatientCase{
			Case:         c,
			DisplayStage: c.DisplayStage(),
			DurationDays: cases.Duration(c, now),
			Timeline:     cases.Timeline(c),
			Status:       cases.StatusMessage(c, now),
		})
	}
	return view, nil
}

func summarize(views []*cases.CaseView) *Summary {
	s := &Summary{Cases: views}
	for _, v := range views {
		s.Total++
		if cases.IsCompleted(v.Case) {
			s.Completed++
			continue
		}
		s.Active++
		if v.Alert == cases.AlertOverdue {
			s.Overdue++
		}
	}
	return s
}
