package stats

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core"
)

const dateLayout = "2006-01-02"

var ErrInvalidPeriod = errors.New("period must be one of week, month, year")

type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func ParsePeriod(s string) (Period, error) {
	switch p := Period(core.CleanString(s, true /* lower */)); p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	case "":
		return PeriodMonth, nil
	}
	return "", errors.Wrapf(ErrInvalidPeriod, "parsing %q", s)
}

// Range is an inclusive span of calendar dates, stored as midnight UTC.
type Range struct {
	From time.Time
	To   time.Time
}

// PeriodRange returns the dates of the period containing anchor:
// the Sunday to Saturday week, the first to last day of the month, or Jan 1 to Dec 31.
func PeriodRange(period Period, anchor time.Time) (Range, error) {
	d := core.DateOf(anchor)
	switch period {
	case PeriodWeek:
		from := d.AddDate(0, 0, -int(d.Weekday()))
		return Range{From: from, To: from.AddDate(0, 0, 6)}, nil
	case PeriodMonth:
		from := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Range{From: from, To: from.AddDate(0, 1, -1)}, nil
	case PeriodYear:
		return Range{
			From: time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(d.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	}
	return Range{}, errors.Wrapf(ErrInvalidPeriod, "got %q", period)
}

func (r Range) Contains(date time.Time) bool {
	d := core.DateOf(date)
	return !d.Before(r.From) && !d.After(r.To)
}

// Days is the number of dates in the range.
func (r Range) Days() int {
	return core.DaysBetween(r.From, r.To) + 1
}

// WorkingDays counts the Monday to Friday dates in the range.
func (r Range) WorkingDays() int {
	var n int
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// Months lists the (year, month) pairs the range touches, in order.
func (r Range) Months() []YearMonth {
	var months []YearMonth
	for m := time.Date(r.From.Year(), r.From.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(r.To); m = m.AddDate(0, 1, 0) {
		months = append(months, YearMonth{Year: m.Year(), Month: int(m.Month())})
	}
	return months
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		From string `json:"from"`
		To   string `json:"to"`
	}{r.From.Format(dateLayout), r.To.Format(dateLayout)})
}

type YearMonth struct {
	Year  int
	Month int
}

// percentage returns part/total as a percentage in [0, 100], rounded to places. An empty total gives 0.
func percentage(part, total, places int) float64 {
	if total <= 0 || part <= 0 {
		return 0
	}
	if part > total {
		part = total
	}
	return core.Round(float64(part)/float64(total)*100, places)
}
