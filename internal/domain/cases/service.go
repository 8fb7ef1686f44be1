package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lakbay/lakbay/internal/platform/auth"
)

var (
	// ErrCaseCompleted rejects edits to a terminal case.
	ErrCaseCompleted = errors.New("case is completed and can no longer be edited")

	// ErrPhysicianAdminOnly rejects physician reassignment by non-admins.
	ErrPhysicianAdminOnly = errors.New("only an admin can reassign the physician")
)

// UpdateInput carries a partial case edit. Nil fields are left unchanged.
// Findings are append-only; AppendFindings adds to the existing text.
type UpdateInput struct {
	CurrentStage    *Stage     `json:"current_stage,omitempty"`
	Classification  *string    `json:"classification,omitempty"`
	DateOfEncounter *time.Time `json:"date_of_encounter,omitempty"`
	Physician       *string    `json:"physician,omitempty"`
	Institution     *string    `json:"institution,omitempty"`
	Symptoms        *string    `json:"symptoms,omitempty"`
	AppendFindings  *string    `json:"append_findings,omitempty"`
	Alert           *Alert     `json:"alert,omitempty"`
	ImagingDate     *time.Time `json:"imaging_date,omitempty"`
	ImagingType     *string    `json:"imaging_type,omitempty"`

	// Version must match the version the client last read; a stale
	// value fails the update instead of silently overwriting.
	Version int `json:"version"`
}

type Service struct {
	repo    Repository
	archive ArchiveRepository
}

func NewService(repo Repository, archive ArchiveRepository) *Service {
	return &Service{repo: repo, archive: archive}
}

// CreateCase validates and stores a new case. Stage defaults to New Case
// and alert to normal when omitted.
func (s *Service) CreateCase(ctx context.Context, c *Case) error {
	if c.PatientIdentifier == "" {
		return fmt.Errorf("patient identifier is required")
	}
	if c.DateOfEncounter.IsZero() {
		return fmt.Errorf("date of encounter is required")
	}
	if c.CurrentStage == "" {
		c.CurrentStage = StageNewCase
	}
	if !ValidStage(c.CurrentStage) {
		return fmt.Errorf("unknown stage %q", c.CurrentStage)
	}
	if c.Alert == "" {
		c.Alert = AlertNormal
	}
	if !ValidAlert(c.Alert) {
		return fmt.Errorf("unknown alert level %q", c.Alert)
	}
	if c.Classification == "" {
		return fmt.Errorf("classification is required")
	}
	if !ValidClassification(c.Classification) {
		return fmt.Errorf("unknown classification %q", c.Classification)
	}
	c.Completed = false
	c.CompletionReason = ""
	c.CompletionDate = nil
	return s.repo.Create(ctx, c)
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.repo.GetByID(ctx, id)
}

// CaseView is a case plus the per-viewer archived flag and derived fields.
type CaseView struct {
	*Case
	DisplayStage string `json:"display_stage"`
	DurationDays int    `json:"duration_days"`
	Archived     bool   `json:"archived"`
}

// ListViews returns the viewer's full matching case list, unpaginated.
// Archived cases are hidden unless includeArchived is set; dashboards
// compute their counts over this set.
func (s *Service) ListViews(ctx context.Context, sess auth.Session, f Filter, includeArchived bool) ([]*CaseView, error) {
	all, err := s.repo.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}

	archived, err := s.archivedFor(ctx, sess)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	// Non-nil so an empty result serializes as [] rather than null.
	views := make([]*CaseView, 0, len(all))
	for _, c := range all {
		isArchived := archived[c.ID]
		if isArchived && !includeArchived {
			continue
		}
		views = append(views, &CaseView{
			Case:         c,
			DisplayStage: c.DisplayStage(),
			DurationDays: Duration(c, now),
			Archived:     isArchived,
		})
	}
	return views, nil
}

// ListCases returns one page of the viewer's case list. The total counts
// the full filtered set.
func (s *Service) ListCases(ctx context.Context, sess auth.Session, f Filter, includeArchived bool, limit, offset int) ([]*CaseView, int, error) {
	views, err := s.ListViews(ctx, sess, f, includeArchived)
	if err != nil {
		return nil, 0, err
	}

	total := len(views)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return views[offset:end], total, nil
}

func (s *Service) archivedFor(ctx context.Context, sess auth.Session) (map[uuid.UUID]bool, error) {
	uid, err := uuid.Parse(sess.UserID)
	if err != nil {
		return map[uuid.UUID]bool{}, nil
	}
	return s.archive.ArchivedIDs(ctx, uid)
}

// UpdateCase applies a partial edit with stage-transition validation and
// an optimistic version check. Physician reassignment is admin only.
func (s *Service) UpdateCase(ctx context.Context, sess auth.Session, id uuid.UUID, in UpdateInput) (*Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if IsCompleted(c) {
		return nil, ErrCaseCompleted
	}

	if in.CurrentStage != nil {
		next := *in.CurrentStage
		if !ValidStage(next) {
			return nil, fmt.Errorf("unknown stage %q", next)
		}
		if next == StageCompleted {
			return nil, fmt.Errorf("cases are completed through the complete action, not a stage edit")
		}
		if !CanTransition(c.CurrentStage, next) {
			return nil, fmt.Errorf("cannot move from %s to %s", c.CurrentStage, next)
		}
		c.CurrentStage = next
	}
	if in.Classification != nil {
		if !ValidClassification(*in.Classification) {
			return nil, fmt.Errorf("unknown classification %q", *in.Classification)
		}
		c.Classification = *in.Classification
	}
	if in.DateOfEncounter != nil {
		c.DateOfEncounter = *in.DateOfEncounter
	}
	if in.Physician != nil && *in.Physician != c.Physician {
		if sess.Role != "admin" {
			return nil, ErrPhysicianAdminOnly
		}
		c.Physician = *in.Physician
	}
	if in.Institution != nil {
		c.Institution = *in.Institution
	}
	if in.Symptoms != nil {
		c.Symptoms = *in.Symptoms
	}
	if in.AppendFindings != nil && *in.AppendFindings != "" {
		c.Findings = appendFindings(c.Findings, *in.AppendFindings)
	}
	if in.Alert != nil {
		if !ValidAlert(*in.Alert) {
			return nil, fmt.Errorf("unknown alert level %q", *in.Alert)
		}
		c.Alert = *in.Alert
	}
	if in.ImagingDate != nil {
		c.ImagingDate = in.ImagingDate
	}
	if in.ImagingType != nil {
		c.ImagingType = *in.ImagingType
	}

	c.Version = in.Version
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CompleteCase closes a case: the stage freezes at Completed, the alert
// resets to normal, notes append to findings, and the completion date is
// stamped. Admin only (enforced at the route).
func (s *Service) CompleteCase(ctx context.Context, id uuid.UUID, reason CompletionReason, notes string) (*Case, error) {
	if !ValidCompletionReason(reason) {
		return nil, fmt.Errorf("unknown completion reason %q", reason)
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if IsCompleted(c) {
		return nil, ErrCaseCompleted
	}

	now := time.Now()
	c.Completed = true
	c.CompletionReason = reason
	c.CompletionDate = &now
	c.CurrentStage = StageCompleted
	c.Alert = AlertNormal
	if notes != "" {
		c.Findings = appendFindings(c.Findings, notes)
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func appendFindings(existing, addition string) string {
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}

func (s *Service) DeleteCase(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// ArchiveCase hides a case from the user's active view. The case row is
// untouched; unarchiving restores it with no data loss.
func (s *Service) ArchiveCase(ctx context.Context, userID, caseID uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, caseID); err != nil {
		return err
	}
	return s.archive.Archive(ctx, userID, caseID)
}

func (s *Service) UnarchiveCase(ctx context.Context, userID, caseID uuid.UUID) error {
	return s.archive.Unarchive(ctx, userID, caseID)
}

// ListPatients returns the distinct patient identifiers across all cases.
func (s *Service) ListPatients(ctx context.Context) ([]string, error) {
	patients, err := s.repo.DistinctPatients(ctx)
	if err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []string{}
	}
	return patients, nil
}

// ListCasesByPatient returns a patient's cases, newest encounter first.
func (s *Service) ListCasesByPatient(ctx context.Context, patientIdentifier string) ([]*Case, error) {
	items, err := s.repo.ListByPatient(ctx, patientIdentifier)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Case{}
	}
	return items, nil
}
