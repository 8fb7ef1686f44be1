package cases

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage is an enumerated workflow step. The set of labels is fixed;
// allowed progressions are encoded in stageTransitions.
type Stage string

const (
	StageNewCase         Stage = "New Case"
	StageInitialImaging  Stage = "Initial Imaging"
	StageBiopsyPending   Stage = "Biopsy Pending"
	StageBiopsyPerformed Stage = "Biopsy Performed"
	StageMDCReview       Stage = "MDC Review"
	StageImagingFollowUp Stage = "Imaging Follow-up"
	StageBenignResult    Stage = "Benign Result"
	StageMalignantResult Stage = "Malignant Result"
	StageTreatmentPlan   Stage = "Treatment Plan"

	// StageCompleted is terminal and only reachable through Complete.
	// Rows imported from older exports may instead carry a legacy
	// "Completed - <reason>" label, which the classifier also accepts.
	StageCompleted Stage = "Completed"
)

// Alert is a caller-set urgency flag. It is never derived from elapsed
// time; providers and admins set it explicitly.
type Alert string

const (
	AlertNormal  Alert = "normal"
	AlertWarning Alert = "warning"
	AlertOverdue Alert = "overdue"
)

// CompletionReason enumerates why a case was closed.
type CompletionReason string

const (
	ReasonTreatmentDone   CompletionReason = "Treatment Done"
	ReasonPatientExpired  CompletionReason = "Patient Expired"
	ReasonPatientOptedOut CompletionReason = "Patient Opted Out"
	ReasonTeamDecision    CompletionReason = "Team Decision"
)

// Classifications a case can carry.
const (
	ClassNodule              = "Pulmonary nodule"
	ClassNoduleExtrathoracic = "Pulmonary nodule with extrathoracic malignancy"
	ClassMass                = "Pulmonary mass"
	ClassMassExtrathoracic   = "Pulmonary mass with extrathoracic malignancy"
)

// Case is a tracked patient encounter moving through the workflow.
type Case struct {
	ID                uuid.UUID        `json:"id"`
	PatientIdentifier string           `json:"patient_identifier"`
	CurrentStage      Stage            `json:"current_stage"`
	Classification    string           `json:"classification"`
	DateOfEncounter   time.Time        `json:"date_of_encounter"`
	Physician         string           `json:"physician"`
	Institution       string           `json:"institution"`
	Symptoms          string           `json:"symptoms"`
	Findings          string           `json:"findings"`
	Alert             Alert            `json:"alert"`
	ImagingDate       *time.Time       `json:"imaging_date,omitempty"`
	ImagingType       string           `json:"imaging_type,omitempty"`
	Completed         bool             `json:"completed"`
	CompletionReason  CompletionReason `json:"completion_reason,omitempty"`
	CompletionDate    *time.Time       `json:"completion_date,omitempty"`
	Version           int              `json:"version"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// DisplayStage renders the stage the way dashboards and exports show it:
// completed cases read "Completed - <reason>".
func (c *Case) DisplayStage() string {
	if c.Completed && c.CompletionReason != "" {
		return fmt.Sprintf("%s - %s", StageCompleted, c.CompletionReason)
	}
	return string(c.CurrentStage)
}

// stageTransitions lists the allowed next stages per stage. Completion is
// not a transition; it goes through Complete regardless of current stage.
var stageTransitions = map[Stage][]Stage{
	StageNewCase:         {StageInitialImaging},
	StageInitialImaging:  {StageBiopsyPending, StageImagingFollowUp, StageMDCReview},
	StageBiopsyPending:   {StageBiopsyPerformed},
	StageBiopsyPerformed: {StageMDCReview},
	StageMDCReview:       {StageImagingFollowUp, StageBenignResult, StageMalignantResult},
	StageImagingFollowUp: {StageMDCReview, StageBiopsyPending, StageBenignResult},
	StageBenignResult:    {StageImagingFollowUp, StageTreatmentPlan},
	StageMalignantResult: {StageTreatmentPlan},
	StageTreatmentPlan:   {},
	StageCompleted:       {},
}

// ValidStage reports whether s is one of the known workflow labels.
func ValidStage(s Stage) bool {
	_, ok := stageTransitions[s]
	return ok
}

// CanTransition reports whether moving from one stage to another is an
// allowed progression. Staying on the same stage is always allowed.
func CanTransition(from, to Stage) bool {
	if from == to {
		return true
	}
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidAlert reports whether a is one of the known alert levels.
func ValidAlert(a Alert) bool {
	switch a {
	case AlertNormal, AlertWarning, AlertOverdue:
		return true
	}
	return false
}

// ValidCompletionReason reports whether r is one of the enumerated
// completion reasons.
func ValidCompletionReason(r CompletionReason) bool {
	switch r {
	case ReasonTreatmentDone, ReasonPatientExpired, ReasonPatientOptedOut, ReasonTeamDecision:
		return true
	}
	return false
}

// ValidClassification reports whether s is a known classification label.
func ValidClassification(s string) bool {
	switch s {
	case ClassNodule, ClassNoduleExtrathoracic, ClassMass, ClassMassExtrathoracic:
		return true
	}
	return false
}
