package course

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/schedule"
)

// Shifts
const (
	ShiftMorning      = "morning"
	ShiftIntermediate = "intermediate"
	ShiftAfternoon    = "afternoon"
)

// DefaultDueDay is the day of month tuition falls due when a course does not set one.
const DefaultDueDay = 10

var Shifts = []string{ShiftMorning, ShiftIntermediate, ShiftAfternoon}

type Course struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Shift      string          `json:"shift"`
	Schedule   schedule.Range  `json:"schedule"`
	MonthlyFee decimal.Decimal `json:"monthly_fee"`
	DueDay     int             `json:"due_day"`
	CreatedAt  time.Time       `json:"created_at"` // UTC
	UpdatedAt  time.Time       `json:"updated_at"` // UTC
}

// EffectiveDueDay is the configured due day, or DefaultDueDay when unset.
func (c Course) EffectiveDueDay() int {
	if c.DueDay <= 0 {
		return DefaultDueDay
	}
	return c.DueDay
}

type Student struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CourseID  int    `json:"course_id"`
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

type FamilyMember struct {
	ID           int    `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Relationship string `json:"relationship"`
	StudentID    int    `json:"student_id"`
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name       string          `json:"name" validate:"required"`
	Shift      string          `json:"shift" validate:"required,oneof=morning intermediate afternoon"`
	Schedule   string          `json:"schedule" validate:"required,clockrange"`
	MonthlyFee decimal.Decimal `json:"monthly_fee" validate:"gte=0"`
	DueDay     int             `json:"due_day" validate:"gte=0,lte=31"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Shift = core.CleanString(nc.Shift, true /* lower */)
	nc.Schedule = core.CleanString(nc.Schedule)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// A new fee only applies to cuotas created afterwards.
type UpdateCourse struct {
	Name       string           `json:"name"`
	Shift      string           `json:"shift" validate:"omitempty,oneof=morning intermediate afternoon"`
	Schedule   string           `json:"schedule" validate:"omitempty,clockrange"`
	MonthlyFee *decimal.Decimal `json:"monthly_fee" validate:"omitempty,gte=0"`
	DueDay     *int             `json:"due_day" validate:"omitempty,gte=0,lte=31"`
}

func (uc *UpdateCourse) Validate(orig Course, validate *validator.Validate) error {
	if name := core.CleanString(uc.Name); name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}
	if shift := core.CleanString(uc.Shift, true /* lower */); shift != "" {
		uc.Shift = shift
	} else {
		uc.Shift = orig.Shift
	}
	if sched := core.CleanString(uc.Schedule); sched != "" {
		uc.Schedule = sched
	} else {
		uc.Schedule = orig.Schedule.String()
	}
	if uc.MonthlyFee == nil {
		uc.MonthlyFee = &orig.MonthlyFee
	}
	if uc.DueDay == nil {
		uc.DueDay = &orig.DueDay
	}
	return validate.Struct(uc)
}

type NewStudent struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	return validate.Struct(ns)
}

type NewFamilyMember struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	Relationship string `json:"relationship" validate:"required"`
}

func (nf *NewFamilyMember) Validate(validate *validator.Validate) error {
	nf.FirstName = core.CleanString(nf.FirstName)
	nf.LastName = core.CleanString(nf.LastName)
	nf.Relationship = core.CleanString(nf.Relationship, true /* lower */)
	return validate.Struct(nf)
}

type StudentFilter struct {
	CourseID int `query:"course"`
}
