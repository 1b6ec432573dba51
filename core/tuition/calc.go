package tuition

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/course"
)

var (
	ErrInvalidMonth  = errors.New("month must be between 1 and 12")
	ErrInvalidDueDay = errors.New("due day must be between 1 and 31")
	ErrInvalidCutoff = errors.New("cutoff must be one of " + core.CutoffStartOfDay + ", " + core.CutoffEndOfDay)
)

type Status string

const (
	StatusOnTime Status = "on_time"
	StatusLate   Status = "late"
)

// Cutoff decides when a due date stops accepting on-time payments.
type Cutoff string

const (
	// CutoffStartOfDay: anything after local midnight starting the due date is late.
	CutoffStartOfDay Cutoff = core.CutoffStartOfDay
	// CutoffEndOfDay: the whole due date is on time.
	CutoffEndOfDay Cutoff = core.CutoffEndOfDay
)

func ParseCutoff(s string) (Cutoff, error) {
	switch c := Cutoff(s); c {
	case "":
		return CutoffStartOfDay, nil
	case CutoffStartOfDay, CutoffEndOfDay:
		return c, nil
	}
	return "", errors.Wrapf(ErrInvalidCutoff, "parsing %q", s)
}

// DaysIn returns the number of days of month in year.
func DaysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDate returns local midnight of the day tuition for (month, year) falls due.
// A due day past the end of the month is clamped to its last day, and 0 means course.DefaultDueDay.
func DueDate(dueDay, month, year int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, errors.Wrapf(ErrInvalidMonth, "got %d", month)
	}
	if dueDay == 0 {
		dueDay = course.DefaultDueDay
	}
	if dueDay < 0 || dueDay > 31 {
		return time.Time{}, errors.Wrapf(ErrInvalidDueDay, "got %d", dueDay)
	}
	if loc == nil {
		loc = time.UTC
	}
	if last := DaysIn(time.Month(month), year); dueDay > last {
		dueDay = last
	}
	return time.Date(year, time.Month(month), dueDay, 0, 0, 0, 0, loc), nil
}

type Classification struct {
	Status   Status `json:"status"`
	DaysLate int    `json:"days_late"`
}

func (c Classification) IsLate() bool { return c.Status == StatusLate }

// Classify tells whether a payment made at paidAt is on time for due, and by how many days it is late.
//
// With CutoffStartOfDay a payment is late iff it is strictly after due, and days late is the number of
// started days since due. Days are counted on the calendar of due's location so DST shifts never add or
// drop a day. With CutoffEndOfDay a payment is late iff it falls on a later calendar date than due.
func Classify(due, paidAt time.Time, cutoff Cutoff) Classification {
	paidAt = paidAt.In(due.Location())
	days := core.DaysBetween(due, paidAt)

	if cutoff == CutoffEndOfDay {
		if days <= 0 {
			return Classification{Status: StatusOnTime}
		}
		return Classification{Status: StatusLate, DaysLate: days}
	}

	if !paidAt.After(due) {
		return Classification{Status: StatusOnTime}
	}
	// same wall-clock time as due, `days` calendar days later
	if paidAt.After(due.AddDate(0, 0, days)) {
		days++
	}
	return Classification{Status: StatusLate, DaysLate: days}
}
