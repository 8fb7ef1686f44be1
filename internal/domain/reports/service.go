package reports

import (
	"context"
	"errors"
	"time"

	"github.com/lakbay/lakbay/internal/domain/cases"
)

// ErrNoData refuses an export with zero matching cases; no file is
// produced.
var ErrNoData = errors.New("no data to export")

// CaseSource supplies the full case set for reporting. Satisfied by the
// cases repository; reports cover every case regardless of per-user
// archive state.
type CaseSource interface {
	ListAll(ctx context.Context, f cases.Filter) ([]*cases.Case, error)
}

type Service struct {
	source CaseSource
}

func NewService(source CaseSource) *Service {
	return &Service{source: source}
}

// Export is a rendered CSV file.
type Export struct {
	Filename string
	Data     []byte
}

// ExportCases renders the case table as CSV: a fixed header plus one row
// per case, every field quoted. An optional classification filter splits
// the nodule and mass tables.
func (s *Service) ExportCases(ctx context.Context, f cases.Filter) (*Export, error) {
	list, err := s.source.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoData
	}
	now := time.Now()
	return &Export{
		Filename: exportFilename(now),
		Data:     renderCSV(list, now),
	}, nil
}

// SummaryStats are the aggregate figures on the admin reports page.
type SummaryStats struct {
	TotalCases          int     `json:"total_cases"`
	ActiveCases         int     `json:"active_cases"`
	CompletedCases      int     `json:"completed_cases"`
	AverageDurationDays float64 `json:"average_duration_days"`
	CompletionRate      float64 `json:"completion_rate"`
}

// Summary computes aggregate statistics over every case.
func (s *Service) Summary(ctx context.Context) (*SummaryStats, error) {
	list, err := s.source.ListAll(ctx, cases.Filter{})
	if err != nil {
		return nil, err
	}

	stats := &SummaryStats{TotalCases: len(list)}
	if len(list) == 0 {
		return stats, nil
	}

	now := time.Now()
	totalDays := 0
	for _, c := range list {
		totalDays += cases.Duration(c, now)
		if cases.IsCompleted(c) {
			stats.CompletedCases++
		} else {
			stats.ActiveCases++
		}
	}
	stats.AverageDurationDays = float64(totalDays) / float64(len(list))
	stats.CompletionRate = float64(stats.CompletedCases) / float64(len(list))
	return stats, nil
}
