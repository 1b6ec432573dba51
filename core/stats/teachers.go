package stats

import (
	"sort"
	"time"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/schedule"
)

type TeacherRecord struct {
	CourseID  int
	TeacherID int
	Date      time.Time
	CheckIn   *schedule.Clock
	CheckOut  *schedule.Clock
	Absent    bool
}

func (r TeacherRecord) worked() bool { return r.CheckIn != nil && !r.Absent }

type TeacherStats struct {
	TeacherID          int     `json:"teacher_id"`
	WorkingDays        int     `json:"working_days"`
	DaysWorked         int     `json:"days_worked"`
	DaysAbsent         int     `json:"days_absent"`
	TotalDays          int     `json:"total_days"`
	Percentage         float64 `json:"percentage"`
	AverageCheckIn     string  `json:"average_check_in"`
	AverageHoursWorked float64 `json:"average_hours_worked"`
	Courses            []int   `json:"courses"`
}

type TeacherSummary struct {
	Range    Range          `json:"range"`
	Teachers []TeacherStats `json:"teachers"`
}

// Teachers computes each teacher's attendance over f's range.
//
// A teacher worked a day when checked in and not marked absent. The days to compare against are
// the days with a record or, without a course filter, the weekdays of the range if there are more.
// Averages only look at worked days, and hours only at days with a check-out.
func Teachers(records []TeacherRecord, f Filter) (TeacherSummary, error) {
	r, err := f.Range()
	if err != nil {
		return TeacherSummary{}, err
	}
	workingDays := r.WorkingDays()

	byTeacher := make(map[int][]TeacherRecord)
	for _, rec := range records {
		if f.match(r, rec.CourseID, rec.TeacherID, rec.Date) {
			byTeacher[rec.TeacherID] = append(byTeacher[rec.TeacherID], rec)
		}
	}

	summary := TeacherSummary{Range: r, Teachers: make([]TeacherStats, 0, len(byTeacher))}
	for id, recs := range byTeacher {
		ts := TeacherStats{TeacherID: id, WorkingDays: workingDays}

		var checkIns, minutesWorked, daysOut int
		courses := make(map[int]bool)
		for _, rec := range recs {
			courses[rec.CourseID] = true
			switch {
			case rec.Absent:
				ts.DaysAbsent++
			case rec.worked():
				ts.DaysWorked++
				checkIns += int(*rec.CheckIn)
				if rec.CheckOut != nil && *rec.CheckOut >= *rec.CheckIn {
					minutesWorked += int(*rec.CheckOut - *rec.CheckIn)
					daysOut++
				}
			}
		}

		ts.TotalDays = ts.DaysWorked + ts.DaysAbsent
		if f.CourseID == 0 && workingDays > ts.TotalDays {
			ts.TotalDays = workingDays
		}
		ts.Percentage = percentage(ts.DaysWorked, ts.TotalDays, 2)
		if ts.DaysWorked > 0 {
			avg := core.Round(float64(checkIns)/float64(ts.DaysWorked), 0)
			ts.AverageCheckIn = schedule.Clock(avg).String()
		}
		if daysOut > 0 {
			ts.AverageHoursWorked = core.Round(float64(minutesWorked)/60/float64(daysOut), 2)
		}

		ts.Courses = make([]int, 0, len(courses))
		for c := range courses {
			ts.Courses = append(ts.Courses, c)
		}
		sort.Ints(ts.Courses)
		summary.Teachers = append(summary.Teachers, ts)
	}
	sort.Slice(summary.Teachers, func(i, j int) bool {
		return summary.Teachers[i].TeacherID < summary.Teachers[j].TeacherID
	})
	return summary, nil
}
