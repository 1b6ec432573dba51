package stats

import (
	"sort"
	"time"
)

// AttendanceRecord is one person's presence in a course on a date.
type AttendanceRecord struct {
	CourseID int
	PersonID int
	Date     time.Time
	Present  bool
}

// Filter bounds the records an aggregation looks at. Zero ids match everything.
type Filter struct {
	Period   Period
	Anchor   time.Time
	CourseID int
	PersonID int
}

func (f Filter) Range() (Range, error) {
	period := f.Period
	if period == "" {
		period = PeriodMonth
	}
	return PeriodRange(period, f.Anchor)
}

func (f Filter) match(r Range, courseID, personID int, date time.Time) bool {
	if f.CourseID != 0 && courseID != f.CourseID {
		return false
	}
	if f.PersonID != 0 && personID != f.PersonID {
		return false
	}
	return r.Contains(date)
}

type Counts struct {
	Present    int     `json:"present_count"`
	Absent     int     `json:"absent_count"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

func (c *Counts) add(present bool) {
	c.Total++
	if present {
		c.Present++
	}
}

func (c Counts) finish() Counts {
	c.Absent = c.Total - c.Present
	c.Percentage = percentage(c.Present, c.Total, 1)
	return c
}

type Group struct {
	ID int `json:"id"`
	Counts
}

type Point struct {
	Date string `json:"date"`
	Counts
}

type AttendanceSummary struct {
	Range      Range   `json:"range"`
	General    Counts  `json:"general"`
	PerCourse  []Group `json:"per_course"`
	PerPerson  []Group `json:"per_person"`
	TimeSeries []Point `json:"time_series"`
}

// Attendance folds the records matching f into general, per course, per person and per date counts.
// Groups are sorted by id and the time series by date.
func Attendance(records []AttendanceRecord, f Filter) (AttendanceSummary, error) {
	r, err := f.Range()
	if err != nil {
		return AttendanceSummary{}, err
	}

	var general Counts
	perCourse := make(map[int]*Counts)
	perPerson := make(map[int]*Counts)
	perDate := make(map[string]*Counts)
	for _, rec := range records {
		if !f.match(r, rec.CourseID, rec.PersonID, rec.Date) {
			continue
		}
		general.add(rec.Present)
		bucket(perCourse, rec.CourseID).add(rec.Present)
		bucket(perPerson, rec.PersonID).add(rec.Present)
		day := rec.Date.Format(dateLayout)
		if perDate[day] == nil {
			perDate[day] = new(Counts)
		}
		perDate[day].add(rec.Present)
	}

	summary := AttendanceSummary{
		Range:      r,
		General:    general.finish(),
		PerCourse:  groups(perCourse),
		PerPerson:  groups(perPerson),
		TimeSeries: make([]Point, 0, len(perDate)),
	}
	for d, c := range perDate {
		summary.TimeSeries = append(summary.TimeSeries, Point{Date: d, Counts: c.finish()})
	}
	sort.Slice(summary.TimeSeries, func(i, j int) bool {
		return summary.TimeSeries[i].Date < summary.TimeSeries[j].Date
	})
	return summary, nil
}

func bucket(m map[int]*Counts, key int) *Counts {
	c, ok := m[key]
	if !ok {
		c = new(Counts)
		m[key] = c
	}
	return c
}

func groups(m map[int]*Counts) []Group {
	gs := make([]Group, 0, len(m))
	for id, c := range m {
		gs = append(gs, Group{ID: id, Counts: c.finish()})
	}
	sort.Slice(gs, func(i, j int) bool { return gs[i].ID < gs[j].ID })
	return gs
}
