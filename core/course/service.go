package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/schedule"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("course not found")
	ErrStudentNotFound      = core.NewNotFoundError("student not found")
	ErrFamilyMemberNotFound = core.NewNotFoundError("family member not found")

	// OrderingFields are the Course fields QueryCourses can sort on.
	OrderingFields = []string{"id", "name", "shift", "monthly_fee", "due_day", "created_at"}

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id int) (Course, error)
		QueryCourses(ctx context.Context, ordering []core.DBOrdering) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)

		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		QueryStudents(ctx context.Context, filter StudentFilter) ([]Student, error)

		CreateFamilyMember(ctx context.Context, fm FamilyMember) (FamilyMember, error)
		GetFamilyMember(ctx context.Context, id int) (FamilyMember, error)
		QueryFamilyMembers(ctx context.Context, studentID int) ([]FamilyMember, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	sched, err := schedule.ParseRange(nc.Schedule)
	if err != nil {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "schedule", Error: err.Error()})
	}
	now := NowFunc().UTC()
	crs := Course{
		Name:       nc.Name,
		Shift:      nc.Shift,
		Schedule:   sched,
		MonthlyFee: nc.MonthlyFee,
		DueDay:     nc.DueDay,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) Get(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, core.CleanOrderings(ordering, OrderingFields...))
}

func (svc *Service) Update(ctx context.Context, id int, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	sched, err := schedule.ParseRange(uc.Schedule)
	if err != nil {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "schedule", Error: err.Error()})
	}
	crs.Name = uc.Name
	crs.Shift = uc.Shift
	crs.Schedule = sched
	if uc.MonthlyFee != nil {
		crs.MonthlyFee = *uc.MonthlyFee
	}
	if uc.DueDay != nil {
		crs.DueDay = *uc.DueDay
	}
	crs.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) AddStudent(ctx context.Context, courseID int, ns NewStudent) (Student, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Student{}, err
	}
	return svc.repo.CreateStudent(ctx, Student{
		FirstName: ns.FirstName,
		LastName:  ns.LastName,
		CourseID:  courseID,
	})
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Students(ctx context.Context, courseID int) ([]Student, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStudents(ctx, StudentFilter{CourseID: courseID})
}

func (svc *Service) AddFamilyMember(ctx context.Context, studentID int, nf NewFamilyMember) (FamilyMember, error) {
	if _, err := svc.repo.GetStudent(ctx, studentID); err != nil {
		return FamilyMember{}, err
	}
	return svc.repo.CreateFamilyMember(ctx, FamilyMember{
		FirstName:    nf.FirstName,
		LastName:     nf.LastName,
		Relationship: nf.Relationship,
		StudentID:    studentID,
	})
}

func (svc *Service) FamilyMembers(ctx context.Context, studentID int) ([]FamilyMember, error) {
	if _, err := svc.repo.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryFamilyMembers(ctx, studentID)
}

// CheckGuardian makes sure the family member is registered for the student.
func CheckGuardian(ctx context.Context, repo Repository, studentID, familyMemberID int) (FamilyMember, error) {
	fm, err := repo.GetFamilyMember(ctx, familyMemberID)
	if err != nil {
		if errors.Cause(err) == ErrFamilyMemberNotFound {
			return FamilyMember{}, core.NewValidationError(err, core.FieldError{Field: "family_member_id", Error: err.Error()})
		}
		return FamilyMember{}, errors.Wrap(err, "getting family member")
	}
	if fm.StudentID != studentID {
		err = errors.New("family member is not registered for this student")
		return FamilyMember{}, core.NewValidationError(err, core.FieldError{Field: "family_member_id", Error: err.Error()})
	}
	return fm, nil
}
