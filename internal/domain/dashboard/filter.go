package dashboard

import (
	"errors"
	"strings"
	"time"

	"github.com/garyjia/grant-portal/internal/domain/entity"
)

var (
	ErrDateRangeIncomplete = errors.New("date range requires both start and end")
	ErrDateRangeInverted   = errors.New("date range start is after end")
)

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange parses both bounds as YYYY-MM-DD
func NewDateRange(start, end string) (DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return DateRange{}, ErrDateRangeIncomplete
	}

	s, err := entity.ParseDay(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := entity.ParseDay(end)
	if err != nil {
		return DateRange{}, err
	}
	if s.After(e) {
		return DateRange{}, ErrDateRangeInverted
	}
	return DateRange{Start: s, End: e}, nil
}

// Contains reports whether day lies within the range, bounds included
func (r DateRange) Contains(day time.Time) bool {
	return !day.Before(r.Start) && !day.After(r.End)
}

// StartString formats the lower bound for form inputs
func (r DateRange) StartString() string {
	return r.Start.Format(entity.DayLayout)
}

// EndString formats the upper bound for form inputs
func (r DateRange) EndString() string {
	return r.End.Format(entity.DayLayout)
}

// FilterByDateOpened returns the records opened within r, in their original
// order. Records whose opened date does not parse never match. The input
// slice is not modified.
func FilterByDateOpened(records []entity.Record, r DateRange) []entity.Record {
	out := make([]entity.Record, 0, len(records))
	for _, rec := range records {
		day, err := rec.OpenedOn()
		if err != nil {
			continue
		}
		if r.Contains(day) {
			out = append(out, rec)
		}
	}
	return out
}
