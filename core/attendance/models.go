package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/schedule"
)

// Teacher attendance statuses
const (
	StatusNone      = "none"
	StatusCheckedIn = "checked_in"
	StatusComplete  = "complete"
	StatusAbsent    = "absent"
)

// Principal notice kinds
const (
	NoticeCheckIn  = "check_in"
	NoticeCheckOut = "check_out"
)

const dateLayout = "2006-01-02"

// Record is a student's presence in a course on a calendar date (stored as midnight UTC).
type Record struct {
	ID        int       `json:"id"`
	CourseID  int       `json:"course_id"`
	StudentID int       `json:"student_id"`
	Date      time.Time `json:"date"`
	Present   bool      `json:"present"`
}

// TeacherRecord is a teacher's check-in / check-out in a course on a calendar date.
type TeacherRecord struct {
	ID        int             `json:"id"`
	CourseID  int             `json:"course_id"`
	TeacherID int             `json:"teacher_id"`
	Date      time.Time       `json:"date"`
	CheckIn   *schedule.Clock `json:"check_in"`
	CheckOut  *schedule.Clock `json:"check_out"`
	Absent    bool            `json:"absent"`
}

func (r TeacherRecord) Status() string {
	switch {
	case r.Absent:
		return StatusAbsent
	case r.CheckIn != nil && r.CheckOut != nil:
		return StatusComplete
	case r.CheckIn != nil:
		return StatusCheckedIn
	}
	return StatusNone
}

// Pickup (retiro) is a student leaving with a family member.
type Pickup struct {
	ID             int            `json:"id"`
	CourseID       int            `json:"course_id"`
	StudentID      int            `json:"student_id"`
	FamilyMemberID int            `json:"family_member_id"`
	Date           time.Time      `json:"date"`
	At             schedule.Clock `json:"at"`
}

type Settings struct {
	RegistrationEnabled bool `json:"registration_enabled"`
}

// DefaultSettings apply until settings are saved.
var DefaultSettings = Settings{RegistrationEnabled: true}

// RecordFilter filters attendance rows. PersonID is a student or a teacher depending on the rows.
type RecordFilter struct {
	CourseID int
	PersonID int
	From     time.Time // inclusive date, zero for no lower bound
	To       time.Time // inclusive date, zero for no upper bound
}

func (f RecordFilter) match(courseID, personID int, date time.Time) bool {
	if f.CourseID != 0 && courseID != f.CourseID {
		return false
	}
	if f.PersonID != 0 && personID != f.PersonID {
		return false
	}
	if !f.From.IsZero() && date.Before(core.DateOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && date.After(core.DateOf(f.To)) {
		return false
	}
	return true
}

func (f RecordFilter) MatchRecord(r Record) bool { return f.match(r.CourseID, r.StudentID, r.Date) }
func (f RecordFilter) MatchTeacherRecord(r TeacherRecord) bool {
	return f.match(r.CourseID, r.TeacherID, r.Date)
}
func (f RecordFilter) MatchPickup(p Pickup) bool { return f.match(p.CourseID, p.StudentID, p.Date) }

// CourseTeacher identifies a teacher acting on a course.
type CourseTeacher struct {
	TeacherID int `json:"teacher_id" validate:"required"`
	CourseID  int `json:"course_id" validate:"required"`
}

func (ct *CourseTeacher) Validate(validate *validator.Validate) error {
	return validate.Struct(ct)
}

// Notice is a teacher asking the principal to record a missed check-in or check-out.
// RequestedAt defaults to the time the notice is sent.
type Notice struct {
	TeacherID   int    `json:"teacher_id" validate:"required"`
	CourseID    int    `json:"course_id" validate:"required"`
	Kind        string `json:"kind" validate:"required,oneof=check_in check_out"`
	RequestedAt string `json:"requested_at" validate:"omitempty,clock"`
}

func (n *Notice) Validate(validate *validator.Validate) error {
	n.Kind = core.CleanString(n.Kind, true /* lower */)
	n.RequestedAt = core.CleanString(n.RequestedAt)
	return validate.Struct(n)
}

// PrincipalNotice is a stored Notice, pending until the principal processes it.
type PrincipalNotice struct {
	ID          int            `json:"id"`
	CourseID    int            `json:"course_id"`
	TeacherID   int            `json:"teacher_id"`
	Date        time.Time      `json:"date"`
	Kind        string         `json:"kind"`
	RequestedAt schedule.Clock `json:"requested_at"`
	Processed   bool           `json:"processed"`
	CreatedAt   time.Time      `json:"created_at"` // UTC
}

type TeacherStatus struct {
	TeacherID int    `json:"teacher_id"`
	Status    string `json:"status"`
}

// CourseInWindow is a course running right now, with today's status of every teacher who ever registered in it.
type CourseInWindow struct {
	ID       int             `json:"id"`
	Name     string          `json:"name"`
	Shift    string          `json:"shift"`
	Schedule schedule.Range  `json:"schedule"`
	Teachers []TeacherStatus `json:"teachers"`
}

type RollCallEntry struct {
	StudentID int  `json:"student_id" validate:"required"`
	Present   bool `json:"present"`
}

// RollCall is the daily presence list of a course. Date defaults to today.
type RollCall struct {
	CourseID int             `json:"course_id" validate:"required"`
	Date     string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Entries  []RollCallEntry `json:"entries" validate:"required,min=1,dive"`
}

func (rc *RollCall) Validate(validate *validator.Validate) error {
	rc.Date = core.CleanString(rc.Date)
	return validate.Struct(rc)
}

type NewPickup struct {
	StudentID      int `json:"student_id" validate:"required"`
	FamilyMemberID int `json:"family_member_id" validate:"required"`
}

func (np *NewPickup) Validate(validate *validator.Validate) error {
	return validate.Struct(np)
}

type RegistrationNotice struct {
	TeacherID  int
	Kind       string
	CourseName string
	Schedule   schedule.Range
	At         time.Time
}
