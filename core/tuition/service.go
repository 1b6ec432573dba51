package tuition

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/course"
)

var (
	// errors
	ErrCuotaNotFound = core.NewNotFoundError("cuota not found")
	ErrCuotaExists   = core.NewConflictError("a cuota already exists for this course and period")
	ErrAlreadyPaid   = core.NewConflictError("this cuota has already been paid by the student")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetCuota(ctx context.Context, courseID int, period Period) (Cuota, error)
		// CreateCuota returns ErrCuotaExists if the (course, month, year) cuota already exists.
		CreateCuota(ctx context.Context, cuota Cuota) (Cuota, error)
		QueryCuotas(ctx context.Context, filter CuotaFilter) ([]Cuota, error)

		// CreatePayment returns ErrAlreadyPaid if the student already paid the cuota.
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		QueryPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	}

	Service struct {
		repo    Repository
		courses course.Repository
		loc     *time.Location
		cutoff  Cutoff
	}
)

func NewService(repo Repository, courses course.Repository, conf *core.Config) (*Service, error) {
	cutoff, err := ParseCutoff(conf.Cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "tuition cutoff")
	}
	return &Service{
		repo:    repo,
		courses: courses,
		loc:     conf.Location(),
		cutoff:  cutoff,
	}, nil
}

func (svc *Service) Cutoff() Cutoff { return svc.cutoff }

func (svc *Service) now() time.Time { return NowFunc().In(svc.loc) }

// DueDate computes the due date of (month, year) for dueDay in the configured location.
func (svc *Service) DueDate(dueDay, month, year int) (time.Time, error) {
	return DueDate(dueDay, month, year, svc.loc)
}

// Classify classifies paidAt against due with the configured cutoff.
func (svc *Service) Classify(due, paidAt time.Time) Classification {
	return Classify(due.In(svc.loc), paidAt, svc.cutoff)
}

// GetOrCreateCuota returns the course's cuota for the period, creating it on first access with
// the course's current monthly fee.
func (svc *Service) GetOrCreateCuota(ctx context.Context, courseID int, period Period) (Cuota, error) {
	if period.Month < 1 || period.Month > 12 {
		return Cuota{}, core.NewValidationError(ErrInvalidMonth, core.FieldError{Field: "month", Error: ErrInvalidMonth.Error()})
	}

	cuota, err := svc.repo.GetCuota(ctx, courseID, period)
	if err == nil {
		return cuota, nil
	}
	if errors.Cause(err) != ErrCuotaNotFound {
		return Cuota{}, errors.Wrap(err, "getting cuota")
	}

	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return Cuota{}, err
	}
	cuota, err = svc.newCuota(crs, period)
	if err != nil {
		return Cuota{}, err
	}

	cuota, err = svc.repo.CreateCuota(ctx, cuota)
	if errors.Cause(err) == ErrCuotaExists { // created concurrently
		return svc.repo.GetCuota(ctx, courseID, period)
	}
	if err != nil {
		return Cuota{}, errors.Wrap(err, "creating cuota")
	}
	return cuota, nil
}

// newCuota builds (without storing) the cuota the course would get for the period today.
func (svc *Service) newCuota(crs course.Course, period Period) (Cuota, error) {
	due, err := svc.DueDate(crs.EffectiveDueDay(), period.Month, period.Year)
	if err != nil {
		return Cuota{}, core.NewValidationError(err, core.FieldError{Field: "month", Error: errors.Cause(err).Error()})
	}
	return Cuota{
		CourseID: crs.ID,
		Month:    period.Month,
		Year:     period.Year,
		Amount:   crs.MonthlyFee,
		DueDate:  due,
	}, nil
}

// RegisterPayment records a student's payment of a cuota, creating the cuota if needed.
func (svc *Service) RegisterPayment(ctx context.Context, np NewPayment) (Payment, error) {
	std, err := svc.courses.GetStudent(ctx, np.StudentID)
	if err != nil {
		if errors.Cause(err) == course.ErrStudentNotFound {
			return Payment{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Payment{}, errors.Wrap(err, "getting student")
	}
	if np.FamilyMemberID != 0 {
		if _, err = course.CheckGuardian(ctx, svc.courses, std.ID, np.FamilyMemberID); err != nil {
			return Payment{}, err
		}
	}

	cuota, err := svc.GetOrCreateCuota(ctx, std.CourseID, Period{Year: np.Year, Month: np.Month})
	if err != nil {
		return Payment{}, err
	}

	paidAt := svc.now()
	if np.PaidAt != nil {
		paidAt = np.PaidAt.In(svc.loc)
	}
	amount := cuota.Amount
	if np.Amount != nil {
		amount = *np.Amount
	}
	if amount.IsNegative() {
		err = errors.New("amount must not be negative")
		return Payment{}, core.NewValidationError(err, core.FieldError{Field: "amount", Error: err.Error()})
	}

	cls := Classify(cuota.DueDate.In(svc.loc), paidAt, svc.cutoff)
	pmt := Payment{
		Reference:      uuid.New().String(),
		CuotaID:        cuota.ID,
		CourseID:       cuota.CourseID,
		StudentID:      std.ID,
		FamilyMemberID: np.FamilyMemberID,
		Month:          cuota.Month,
		Year:           cuota.Year,
		PaidAt:         paidAt.UTC(),
		Amount:         amount,
		Status:         cls.Status,
		DaysLate:       cls.DaysLate,
	}
	return svc.repo.CreatePayment(ctx, pmt)
}

func (svc *Service) Payments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

// StudentYear returns the status of each month of year for the student.
// Months without a cuota yet are shown with the course's current fee; nothing is created.
func (svc *Service) StudentYear(ctx context.Context, studentID, year int) ([]MonthStatus, error) {
	std, err := svc.courses.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	crs, err := svc.courses.GetCourse(ctx, std.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "getting student course")
	}

	from, to := Period{Year: year, Month: 1}, Period{Year: year, Month: 12}
	// payments made under a former course do not settle this course's cuotas
	payments, err := svc.repo.QueryPayments(ctx, PaymentFilter{CourseID: crs.ID, StudentID: std.ID, From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	cuotas, err := svc.repo.QueryCuotas(ctx, CuotaFilter{CourseID: crs.ID, From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "querying cuotas")
	}

	paid := make(map[int]Payment, len(payments))
	for _, p := range payments {
		if _, ok := paid[p.Month]; !ok {
			paid[p.Month] = p
		}
	}
	existing := make(map[int]Cuota, len(cuotas))
	for _, c := range cuotas {
		existing[c.Month] = c
	}

	now := svc.now()
	grid := make([]MonthStatus, 0, 12)
	for m := 1; m <= 12; m++ {
		cuota, ok := existing[m]
		if !ok {
			if cuota, err = svc.newCuota(crs, Period{Year: year, Month: m}); err != nil {
				return nil, err
			}
		}
		ms := MonthStatus{Month: m, Year: year, Amount: cuota.Amount, DueDate: cuota.DueDate}

		if p, ok := paid[m]; ok {
			p := p
			ms.Payment = &p
			ms.DaysLate = p.DaysLate
			ms.Status = MonthPaidOnTime
			if p.Status == StatusLate {
				ms.Status = MonthPaidLate
			}
		} else if cls := Classify(cuota.DueDate.In(svc.loc), now, svc.cutoff); cls.IsLate() {
			ms.Status = MonthOverdue
			ms.DaysLate = cls.DaysLate
		} else {
			ms.Status = MonthPending
		}
		grid = append(grid, ms)
	}
	return grid, nil
}

// Overdue lists the students that have not paid the period's cuota of their course past its due date.
func (svc *Service) Overdue(ctx context.Context, period Period) ([]OverdueEntry, error) {
	if period.Month < 1 || period.Month > 12 {
		return nil, core.NewValidationError(ErrInvalidMonth, core.FieldError{Field: "month", Error: ErrInvalidMonth.Error()})
	}

	courses, err := svc.courses.QueryCourses(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	cuotas, err := svc.repo.QueryCuotas(ctx, CuotaFilter{From: period, To: period})
	if err != nil {
		return nil, errors.Wrap(err, "querying cuotas")
	}
	cuotaByCourse := make(map[int]Cuota, len(cuotas))
	for _, c := range cuotas {
		cuotaByCourse[c.CourseID] = c
	}
	payments, err := svc.repo.QueryPayments(ctx, PaymentFilter{From: period, To: period})
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	type enrolment struct{ courseID, studentID int }
	paid := make(map[enrolment]bool, len(payments))
	for _, p := range payments {
		paid[enrolment{p.CourseID, p.StudentID}] = true
	}

	now := svc.now()
	entries := make([]OverdueEntry, 0)
	for _, crs := range courses {
		cuota, ok := cuotaByCourse[crs.ID]
		if !ok {
			if cuota, err = svc.newCuota(crs, period); err != nil {
				return nil, err
			}
		}
		cls := Classify(cuota.DueDate.In(svc.loc), now, svc.cutoff)
		if !cls.IsLate() {
			continue
		}

		students, err := svc.courses.QueryStudents(ctx, course.StudentFilter{CourseID: crs.ID})
		if err != nil {
			return nil, errors.Wrap(err, "querying students")
		}
		for _, std := range students {
			if paid[enrolment{crs.ID, std.ID}] {
				continue
			}
			entries = append(entries, OverdueEntry{
				CourseID:    crs.ID,
				CourseName:  crs.Name,
				StudentID:   std.ID,
				StudentName: std.FullName(),
				Month:       period.Month,
				Year:        period.Year,
				Amount:      cuota.Amount,
				DueDate:     cuota.DueDate,
				DaysLate:    cls.DaysLate,
			})
		}
	}
	return entries, nil
}

