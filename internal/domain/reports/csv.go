package reports

import (
	"strconv"
	"strings"
	"time"

	"github.com/lakbay/lakbay/internal/domain/cases"
)

// exportHeader is the fixed column set of the case table export.
var exportHeader = []string{
	"Case ID", "Patient ID", "Stage", "Classification", "Encounter Date",
	"Physician", "Duration (days)", "Alert", "Completion Reason",
	"Completion Date", "Symptoms", "Findings",
}

// writeRow writes one CSV record with every field double-quoted and
// embedded quotes doubled. encoding/csv only quotes fields that need it,
// which would break consumers of the legacy export format, so the rows
// are rendered directly.
func writeRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func exportRow(c *cases.Case, now time.Time) []string {
	completionDate := ""
	if c.CompletionDate != nil {
		completionDate = formatDate(*c.CompletionDate)
	}
	return []string{
		c.ID.String(),
		c.PatientIdentifier,
		c.DisplayStage(),
		c.Classification,
		formatDate(c.DateOfEncounter),
		c.Physician,
		strconv.Itoa(cases.Duration(c, now)),
		string(c.Alert),
		string(c.CompletionReason),
		completionDate,
		c.Symptoms,
		c.Findings,
	}
}

// renderCSV renders the export: one header line plus one line per case.
func renderCSV(list []*cases.Case, now time.Time) []byte {
	var b strings.Builder
	writeRow(&b, exportHeader)
	for _, c := range list {
		writeRow(&b, exportRow(c, now))
	}
	return []byte(b.String())
}

// exportFilename suffixes the export name with the current date.
func exportFilename(now time.Time) string {
	return "case-export-" + now.Format("2006-01-02") + ".csv"
}
