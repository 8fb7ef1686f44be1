package cases

import (
	"fmt"
	"strings"
	"time"
)

// IsCompleted reports whether a case is terminal. A case is completed when
// the completed flag is set, when a completion reason or date is present,
// or when the stage carries a legacy "Completed" label prefix.
func IsCompleted(c *Case) bool {
	if c.Completed {
		return true
	}
	if c.CompletionReason != "" || c.CompletionDate != nil {
		return true
	}
	return strings.HasPrefix(string(c.CurrentStage), string(StageCompleted))
}

// stageOrder is the fixed progress ordering used for timeline rendering.
// Benign and Malignant Result share the "Results" slot.
var stageOrder = map[Stage]int{
	StageNewCase:         0,
	StageInitialImaging:  1,
	StageBiopsyPending:   2,
	StageBiopsyPerformed: 3,
	StageMDCReview:       4,
	StageImagingFollowUp: 5,
	StageBenignResult:    6,
	StageMalignantResult: 6,
	StageTreatmentPlan:   7,
}

// StageIndex maps a stage label to its position in the fixed ordering.
// Unknown labels return -1, which renders as pending at every step.
func StageIndex(s Stage) int {
	if idx, ok := stageOrder[s]; ok {
		return idx
	}
	return -1
}

// Duration returns whole days elapsed since the date of encounter.
// Duration is always derived; it is never stored on the record.
func Duration(c *Case, now time.Time) int {
	days := int(now.Sub(c.DateOfEncounter).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Step statuses in a rendered timeline.
const (
	StepCompleted = "completed"
	StepOngoing   = "ongoing"
	StepPending   = "pending"
)

// TimelineStep is one rendered progress step in the patient view.
type TimelineStep struct {
	Label  string `json:"label"`
	Status string `json:"status"`
}

// timelineLabels are the display labels per ordering slot.
var timelineLabels = []string{
	"New Case",
	"Initial Imaging",
	"Biopsy Pending",
	"Biopsy Performed",
	"MDC Review",
	"Imaging Follow-up",
	"Results",
	"Treatment Plan",
}

// Timeline renders the ordered progress steps for a case. Steps before
// the current stage are completed, the current one is ongoing, later ones
// are pending. A completed case shows every step as completed; an unknown
// stage shows every step as pending.
func Timeline(c *Case) []TimelineStep {
	steps := make([]TimelineStep, len(timelineLabels))
	idx := StageIndex(c.CurrentStage)
	done := IsCompleted(c)

	for i, label := range timelineLabels {
		status := StepPending
		switch {
		case done:
			status = StepCompleted
		case idx < 0:
			status = StepPending
		case i < idx:
			status = StepCompleted
		case i == idx:
			status = StepOngoing
		}
		steps[i] = TimelineStep{Label: label, Status: status}
	}
	return steps
}

// StatusMessage summarizes where a case stands, shown on the patient
// dashboard next to the timeline.
func StatusMessage(c *Case, now time.Time) string {
	if IsCompleted(c) {
		if c.CompletionReason != "" {
			return fmt.Sprintf("Your case is completed: %s", c.CompletionReason)
		}
		return "Your case is completed"
	}
	return fmt.Sprintf("Your case is at %s, day %d since your encounter",
		c.CurrentStage, Duration(c, now))
}
