package stats

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/attendance"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/tuition"
)

var NowFunc = time.Now // mockable

// Service loads the records of a filter's range and hands a snapshot of them to the aggregators.
type Service struct {
	courses    course.Repository
	tuition    tuition.Repository
	attendance attendance.Repository
	loc        *time.Location
}

func NewService(
	courses course.Repository,
	tuitionRepo tuition.Repository,
	attendanceRepo attendance.Repository,
	conf *core.Config,
) *Service {
	return &Service{
		courses:    courses,
		tuition:    tuitionRepo,
		attendance: attendanceRepo,
		loc:        conf.Location(),
	}
}

// prepare defaults the anchor to today and resolves the range.
func (svc *Service) prepare(f *Filter) (Range, error) {
	if f.Anchor.IsZero() {
		f.Anchor = NowFunc().In(svc.loc)
	}
	return f.Range()
}

func (svc *Service) recordFilter(f Filter, r Range) attendance.RecordFilter {
	return attendance.RecordFilter{CourseID: f.CourseID, PersonID: f.PersonID, From: r.From, To: r.To}
}

func (svc *Service) StudentAttendance(ctx context.Context, f Filter) (AttendanceSummary, error) {
	r, err := svc.prepare(&f)
	if err != nil {
		return AttendanceSummary{}, err
	}
	recs, err := svc.attendance.QueryRecords(ctx, svc.recordFilter(f, r))
	if err != nil {
		return AttendanceSummary{}, errors.Wrap(err, "querying attendance records")
	}

	snapshot := make([]AttendanceRecord, 0, len(recs))
	for _, rec := range recs {
		snapshot = append(snapshot, AttendanceRecord{
			CourseID: rec.CourseID,
			PersonID: rec.StudentID,
			Date:     rec.Date,
			Present:  rec.Present,
		})
	}
	return Attendance(snapshot, f)
}

func (svc *Service) PaymentSummary(ctx context.Context, f Filter) (PaymentSummary, error) {
	r, err := svc.prepare(&f)
	if err != nil {
		return PaymentSummary{}, err
	}

	courses, err := svc.courses.QueryCourses(ctx, nil)
	if err != nil {
		return PaymentSummary{}, errors.Wrap(err, "querying courses")
	}
	cuotas, err := svc.tuition.QueryCuotas(ctx, tuition.CuotaFilter{
		CourseID: f.CourseID,
		From:     tuition.PeriodOf(r.From),
		To:       tuition.PeriodOf(r.To),
	})
	if err != nil {
		return PaymentSummary{}, errors.Wrap(err, "querying cuotas")
	}
	frozen := make(map[int]map[YearMonth]decimal.Decimal)
	for _, c := range cuotas {
		if frozen[c.CourseID] == nil {
			frozen[c.CourseID] = make(map[YearMonth]decimal.Decimal)
		}
		frozen[c.CourseID][YearMonth{Year: c.Year, Month: c.Month}] = c.Amount
	}

	rosters := make([]CourseRoster, 0, len(courses))
	for _, crs := range courses {
		if f.CourseID != 0 && crs.ID != f.CourseID {
			continue
		}
		students, err := svc.courses.QueryStudents(ctx, course.StudentFilter{CourseID: crs.ID})
		if err != nil {
			return PaymentSummary{}, errors.Wrap(err, "querying students")
		}
		roster := CourseRoster{CourseID: crs.ID, Name: crs.Name, MonthlyFee: crs.MonthlyFee, Cuotas: frozen[crs.ID]}
		for _, std := range students {
			roster.Students = append(roster.Students, std.ID)
		}
		rosters = append(rosters, roster)
	}

	pmts, err := svc.tuition.QueryPayments(ctx, tuition.PaymentFilter{
		CourseID:  f.CourseID,
		StudentID: f.PersonID,
		From:      tuition.PeriodOf(r.From),
		To:        tuition.PeriodOf(r.To),
	})
	if err != nil {
		return PaymentSummary{}, errors.Wrap(err, "querying payments")
	}
	snapshot := make([]PaymentRecord, 0, len(pmts))
	for _, p := range pmts {
		snapshot = append(snapshot, PaymentRecord{
			CourseID:  p.CourseID,
			StudentID: p.StudentID,
			Month:     p.Month,
			Year:      p.Year,
			Amount:    p.Amount,
			Status:    string(p.Status),
			DaysLate:  p.DaysLate,
		})
	}
	return Payments(rosters, snapshot, f)
}

func (svc *Service) TeacherAttendance(ctx context.Context, f Filter) (TeacherSummary, error) {
	r, err := svc.prepare(&f)
	if err != nil {
		return TeacherSummary{}, err
	}
	recs, err := svc.attendance.QueryTeacherRecords(ctx, svc.recordFilter(f, r))
	if err != nil {
		return TeacherSummary{}, errors.Wrap(err, "querying teacher records")
	}

	snapshot := make([]TeacherRecord, 0, len(recs))
	for _, rec := range recs {
		snapshot = append(snapshot, TeacherRecord{
			CourseID:  rec.CourseID,
			TeacherID: rec.TeacherID,
			Date:      rec.Date,
			CheckIn:   rec.CheckIn,
			CheckOut:  rec.CheckOut,
			Absent:    rec.Absent,
		})
	}
	return Teachers(snapshot, f)
}
