package stats

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jardin/core/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clock(s string) *schedule.Clock {
	c, err := schedule.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return &c
}

func TestPeriodRange(t *testing.T) {
	tests := []struct {
		name     string
		period   Period
		anchor   time.Time
		from, to time.Time
		wantErr  bool
	}{
		{name: "week of a wednesday", period: PeriodWeek, anchor: date(2024, 3, 13), from: date(2024, 3, 10), to: date(2024, 3, 16)},
		{name: "week of a sunday", period: PeriodWeek, anchor: date(2024, 3, 10), from: date(2024, 3, 10), to: date(2024, 3, 16)},
		{name: "week of a saturday", period: PeriodWeek, anchor: date(2024, 3, 16), from: date(2024, 3, 10), to: date(2024, 3, 16)},
		{name: "week across months", period: PeriodWeek, anchor: date(2024, 3, 1), from: date(2024, 2, 25), to: date(2024, 3, 2)},
		{name: "leap february", period: PeriodMonth, anchor: date(2024, 2, 14), from: date(2024, 2, 1), to: date(2024, 2, 29)},
		{name: "december", period: PeriodMonth, anchor: date(2023, 12, 31), from: date(2023, 12, 1), to: date(2023, 12, 31)},
		{name: "year", period: PeriodYear, anchor: date(2024, 7, 4), from: date(2024, 1, 1), to: date(2024, 12, 31)},
		{
			name:   "anchor time of day is ignored",
			period: PeriodMonth,
			anchor: time.Date(2024, 5, 31, 23, 59, 0, 0, time.FixedZone("ART", -3*3600)),
			from:   date(2024, 5, 1),
			to:     date(2024, 5, 31),
		},
		{name: "unknown period", period: "decade", anchor: date(2024, 1, 1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodRange(tt.period, tt.anchor)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidPeriod, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.From.Equal(tt.from), "from = %v, want %v", got.From, tt.from)
			assert.True(t, got.To.Equal(tt.to), "to = %v, want %v", got.To, tt.to)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod(" Week ")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	p, err = ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodMonth, p)

	_, err = ParsePeriod("day")
	assert.Equal(t, ErrInvalidPeriod, errors.Cause(err))
}

func TestRange(t *testing.T) {
	r := Range{From: date(2024, 1, 15), To: date(2024, 3, 2)}
	assert.Equal(t, []YearMonth{{2024, 1}, {2024, 2}, {2024, 3}}, r.Months())
	assert.Equal(t, 48, r.Days())

	week := Range{From: date(2024, 3, 10), To: date(2024, 3, 16)}
	assert.Equal(t, 5, week.WorkingDays())
	assert.True(t, week.Contains(time.Date(2024, 3, 16, 22, 0, 0, 0, time.UTC)))
	assert.False(t, week.Contains(date(2024, 3, 17)))
}

func TestAttendance(t *testing.T) {
	records := []AttendanceRecord{
		{CourseID: 1, PersonID: 10, Date: date(2024, 3, 11), Present: true},
		{CourseID: 1, PersonID: 11, Date: date(2024, 3, 11), Present: false},
		{CourseID: 1, PersonID: 10, Date: date(2024, 3, 12), Present: true},
		{CourseID: 2, PersonID: 20, Date: date(2024, 3, 12), Present: true},
		{CourseID: 2, PersonID: 21, Date: date(2024, 3, 12), Present: false},
		{CourseID: 2, PersonID: 22, Date: date(2024, 3, 12), Present: false},
		{CourseID: 1, PersonID: 10, Date: date(2024, 4, 2), Present: true}, // other month
	}
	march := Filter{Period: PeriodMonth, Anchor: date(2024, 3, 20)}

	t.Run("general, per course, per person and per date", func(t *testing.T) {
		got, err := Attendance(records, march)
		require.NoError(t, err)

		assert.Equal(t, Counts{Present: 3, Absent: 3, Total: 6, Percentage: 50}, got.General)
		assert.Equal(t, []Group{
			{ID: 1, Counts: Counts{Present: 2, Absent: 1, Total: 3, Percentage: 66.7}},
			{ID: 2, Counts: Counts{Present: 1, Absent: 2, Total: 3, Percentage: 33.3}},
		}, got.PerCourse)
		assert.Len(t, got.PerPerson, 5)
		assert.Equal(t, Group{ID: 10, Counts: Counts{Present: 2, Total: 2, Percentage: 100}}, got.PerPerson[0])
		assert.Equal(t, []Point{
			{Date: "2024-03-11", Counts: Counts{Present: 1, Absent: 1, Total: 2, Percentage: 50}},
			{Date: "2024-03-12", Counts: Counts{Present: 2, Absent: 2, Total: 4, Percentage: 50}},
		}, got.TimeSeries)
	})

	t.Run("course and person filters", func(t *testing.T) {
		f := march
		f.CourseID = 1
		f.PersonID = 10
		got, err := Attendance(records, f)
		require.NoError(t, err)
		assert.Equal(t, Counts{Present: 2, Total: 2, Percentage: 100}, got.General)
		assert.Len(t, got.PerCourse, 1)
		assert.Len(t, got.TimeSeries, 2)
	})

	t.Run("empty input reports 0%", func(t *testing.T) {
		got, err := Attendance(nil, march)
		require.NoError(t, err)
		assert.Equal(t, Counts{}, got.General)
		assert.Empty(t, got.PerCourse)
		assert.Empty(t, got.TimeSeries)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		before := append([]AttendanceRecord(nil), records...)
		_, err := Attendance(records, Filter{Period: PeriodYear, Anchor: date(2024, 1, 1)})
		require.NoError(t, err)
		assert.Equal(t, before, records)
	})

	t.Run("invalid period", func(t *testing.T) {
		_, err := Attendance(records, Filter{Period: "fortnight"})
		assert.Equal(t, ErrInvalidPeriod, errors.Cause(err))
	})
}

func TestPayments(t *testing.T) {
	fee := decimal.NewFromInt(100)
	students := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	roster := []CourseRoster{{CourseID: 1, Name: "Sala 3", Students: students, MonthlyFee: fee}}

	var march []PaymentRecord
	for _, std := range students[:6] {
		march = append(march, PaymentRecord{CourseID: 1, StudentID: std, Month: 3, Year: 2024, Amount: fee, Status: StatusOnTime})
	}
	march = append(march,
		PaymentRecord{CourseID: 1, StudentID: 7, Month: 3, Year: 2024, Amount: fee, Status: StatusLate, DaysLate: 5},
		PaymentRecord{CourseID: 1, StudentID: 8, Month: 3, Year: 2024, Amount: fee, Status: StatusLate, DaysLate: 2},
	)
	f := Filter{Period: PeriodMonth, Anchor: date(2024, 3, 1)}

	t.Run("6 on time, 2 late, 2 unpaid out of 10", func(t *testing.T) {
		got, err := Payments(roster, march, f)
		require.NoError(t, err)

		g := got.General
		assert.Equal(t, 10, g.Expected)
		assert.Equal(t, 6, g.OnTime)
		assert.Equal(t, 2, g.Late)
		assert.Equal(t, 2, g.Unpaid)
		assert.Equal(t, 60.0, g.OnTimePercentage)
		assert.Equal(t, 20.0, g.LatePercentage)
		assert.Equal(t, 20.0, g.UnpaidPercentage)
		assert.Equal(t, g.Expected, g.OnTime+g.Late+g.Unpaid)
		assert.True(t, g.ExpectedAmount.Equal(decimal.NewFromInt(1000)))
		assert.True(t, g.CollectedAmount.Equal(decimal.NewFromInt(800)))
		assert.True(t, g.PendingAmount.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, 3.5, g.AverageDaysLate)

		require.Len(t, got.PerCourse, 1)
		assert.Equal(t, "Sala 3", got.PerCourse[0].Name)
		assert.Equal(t, 60.0, got.PerCourse[0].OnTimePercentage)
	})

	t.Run("duplicate payments count once", func(t *testing.T) {
		dup := append(append([]PaymentRecord(nil), march...), march[0])
		got, err := Payments(roster, dup, f)
		require.NoError(t, err)
		assert.Equal(t, 6, got.General.OnTime)
		assert.True(t, got.General.CollectedAmount.Equal(decimal.NewFromInt(800)))
	})

	t.Run("year expects every month", func(t *testing.T) {
		got, err := Payments(roster, march, Filter{Period: PeriodYear, Anchor: date(2024, 6, 1)})
		require.NoError(t, err)
		assert.Equal(t, 120, got.General.Expected)
		assert.Equal(t, 112, got.General.Unpaid)
		assert.Equal(t, 5.0, got.General.OnTimePercentage)
	})

	t.Run("week across two months", func(t *testing.T) {
		got, err := Payments(roster, march, Filter{Period: PeriodWeek, Anchor: date(2024, 3, 1)})
		require.NoError(t, err)
		assert.Equal(t, 20, got.General.Expected)
		assert.Equal(t, 8, got.General.OnTime+got.General.Late)
	})

	t.Run("person filter", func(t *testing.T) {
		pf := f
		pf.PersonID = 7
		got, err := Payments(roster, march, pf)
		require.NoError(t, err)
		assert.Equal(t, 1, got.General.Expected)
		assert.Equal(t, 100.0, got.General.LatePercentage)
	})

	t.Run("no students reports 0%", func(t *testing.T) {
		got, err := Payments([]CourseRoster{{CourseID: 2, MonthlyFee: fee}}, nil, f)
		require.NoError(t, err)
		assert.Zero(t, got.General.Expected)
		assert.Zero(t, got.General.UnpaidPercentage)
		assert.True(t, got.General.PendingAmount.IsZero())
	})

	t.Run("frozen cuota amount after a fee change", func(t *testing.T) {
		raised := []CourseRoster{{
			CourseID:   1,
			Name:       "Sala 3",
			Students:   students,
			MonthlyFee: decimal.NewFromInt(120),
			Cuotas:     map[YearMonth]decimal.Decimal{{Year: 2024, Month: 3}: fee},
		}}
		var allPaid []PaymentRecord
		for _, std := range students {
			allPaid = append(allPaid, PaymentRecord{CourseID: 1, StudentID: std, Month: 3, Year: 2024, Amount: fee, Status: StatusOnTime})
		}

		got, err := Payments(raised, allPaid, f)
		require.NoError(t, err)
		assert.True(t, got.General.ExpectedAmount.Equal(decimal.NewFromInt(1000)))
		assert.True(t, got.General.PendingAmount.IsZero(), "got %s", got.General.PendingAmount)

		// February has no cuota yet and owes the current fee
		got, err = Payments(raised, allPaid, Filter{Period: PeriodWeek, Anchor: date(2024, 3, 1)})
		require.NoError(t, err)
		assert.True(t, got.General.ExpectedAmount.Equal(decimal.NewFromInt(2200)))
		assert.True(t, got.General.PendingAmount.Equal(decimal.NewFromInt(1200)))

		raised[0].Cuotas[YearMonth{Year: 2024, Month: 3}] = decimal.NewFromInt(-1)
		_, err = Payments(raised, allPaid, f)
		assert.Equal(t, ErrNegativeValue, errors.Cause(err))
	})

	t.Run("malformed input", func(t *testing.T) {
		_, err := Payments(roster, []PaymentRecord{{CourseID: 1, StudentID: 1, Month: 13, Year: 2024}}, f)
		assert.Equal(t, ErrInvalidMonth, errors.Cause(err))

		_, err = Payments(roster, []PaymentRecord{{CourseID: 1, StudentID: 1, Month: 3, Year: 2024, Amount: decimal.NewFromInt(-1)}}, f)
		assert.Equal(t, ErrNegativeValue, errors.Cause(err))
	})
}

func TestTeachers(t *testing.T) {
	// week of Sunday 2024-03-10, 5 working days
	records := []TeacherRecord{
		{CourseID: 1, TeacherID: 7, Date: date(2024, 3, 11), CheckIn: clock("07:50"), CheckOut: clock("12:05")},
		{CourseID: 1, TeacherID: 7, Date: date(2024, 3, 12), CheckIn: clock("08:10"), CheckOut: clock("11:55")},
		{CourseID: 2, TeacherID: 7, Date: date(2024, 3, 13), CheckIn: clock("13:00")},
		{CourseID: 1, TeacherID: 7, Date: date(2024, 3, 14), Absent: true},
		{CourseID: 2, TeacherID: 8, Date: date(2024, 3, 11), Absent: true},
		{CourseID: 2, TeacherID: 8, Date: date(2024, 3, 20), CheckIn: clock("13:00")}, // next week
	}
	week := Filter{Period: PeriodWeek, Anchor: date(2024, 3, 13)}

	t.Run("all courses", func(t *testing.T) {
		got, err := Teachers(records, week)
		require.NoError(t, err)
		require.Len(t, got.Teachers, 2)

		t7 := got.Teachers[0]
		assert.Equal(t, 7, t7.TeacherID)
		assert.Equal(t, 5, t7.WorkingDays)
		assert.Equal(t, 3, t7.DaysWorked)
		assert.Equal(t, 1, t7.DaysAbsent)
		assert.Equal(t, 5, t7.TotalDays)
		assert.Equal(t, 60.0, t7.Percentage)
		assert.Equal(t, "09:40", t7.AverageCheckIn)
		assert.Equal(t, 4.0, t7.AverageHoursWorked)
		assert.Equal(t, []int{1, 2}, t7.Courses)

		t8 := got.Teachers[1]
		assert.Equal(t, 0, t8.DaysWorked)
		assert.Equal(t, 1, t8.DaysAbsent)
		assert.Zero(t, t8.Percentage)
		assert.Empty(t, t8.AverageCheckIn)
	})

	t.Run("course filter compares against recorded days", func(t *testing.T) {
		f := week
		f.CourseID = 1
		got, err := Teachers(records, f)
		require.NoError(t, err)
		require.Len(t, got.Teachers, 1)

		t7 := got.Teachers[0]
		assert.Equal(t, 2, t7.DaysWorked)
		assert.Equal(t, 3, t7.TotalDays)
		assert.Equal(t, 66.67, t7.Percentage)
		assert.Equal(t, "08:00", t7.AverageCheckIn)
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := Teachers(nil, week)
		require.NoError(t, err)
		assert.Empty(t, got.Teachers)
	})
}
