package tuition

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Period is a (year, month) tuition period.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Index orders periods chronologically.
func (p Period) Index() int { return p.Year*12 + p.Month - 1 }

func (p Period) IsZero() bool { return p.Year == 0 && p.Month == 0 }

func (p Period) String() string {
	return time.Month(p.Month).String() + " " + strconv.Itoa(p.Year)
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Cuota is the tuition due by every student of a course for one month.
// Its amount is frozen at creation, later fee changes do not affect it.
type Cuota struct {
	ID       int             `json:"id"`
	CourseID int             `json:"course_id"`
	Month    int             `json:"month"`
	Year     int             `json:"year"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"due_date"`
}

func (c Cuota) Period() Period { return Period{Year: c.Year, Month: c.Month} }

// Payment is immutable once stored.
type Payment struct {
	ID             int             `json:"id"`
	Reference      string          `json:"reference"`
	CuotaID        int             `json:"cuota_id"`
	CourseID       int             `json:"course_id"`
	StudentID      int             `json:"student_id"`
	FamilyMemberID int             `json:"family_member_id,omitempty"`
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	PaidAt         time.Time       `json:"paid_at"`
	Amount         decimal.Decimal `json:"amount"`
	Status         Status          `json:"status"`
	DaysLate       int             `json:"days_late"`
}

func (p Payment) Period() Period { return Period{Year: p.Year, Month: p.Month} }

// NewPayment contains information needed to register a payment.
type NewPayment struct {
	StudentID      int              `json:"student_id" validate:"required"`
	FamilyMemberID int              `json:"family_member_id"`
	Month          int              `json:"month" validate:"required,min=1,max=12"`
	Year           int              `json:"year" validate:"required,min=1900,max=9999"`
	PaidAt         *time.Time       `json:"paid_at"` // defaults to now
	Amount         *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	return validate.Struct(np)
}

type PaymentFilter struct {
	CourseID  int
	StudentID int
	From      Period // inclusive, zero for no lower bound
	To        Period // inclusive, zero for no upper bound
}

func (f PaymentFilter) Match(p Payment) bool {
	if f.CourseID != 0 && p.CourseID != f.CourseID {
		return false
	}
	if f.StudentID != 0 && p.StudentID != f.StudentID {
		return false
	}
	return inPeriods(p.Period(), f.From, f.To)
}

type CuotaFilter struct {
	CourseID int
	From     Period
	To       Period
}

func (f CuotaFilter) Match(c Cuota) bool {
	if f.CourseID != 0 && c.CourseID != f.CourseID {
		return false
	}
	return inPeriods(c.Period(), f.From, f.To)
}

func inPeriods(p, from, to Period) bool {
	if !from.IsZero() && p.Index() < from.Index() {
		return false
	}
	if !to.IsZero() && p.Index() > to.Index() {
		return false
	}
	return true
}

// Month statuses of a student's year grid
const (
	MonthPaidOnTime = "paid_on_time"
	MonthPaidLate   = "paid_late"
	MonthOverdue    = "overdue"
	MonthPending    = "pending"
)

type MonthStatus struct {
	Month    int             `json:"month"`
	Year     int             `json:"year"`
	Status   string          `json:"status"`
	Amount   decimal.Decimal `json:"amount"`
	DueDate  time.Time       `json:"due_date"`
	DaysLate int             `json:"days_late"`
	Payment  *Payment        `json:"payment,omitempty"`
}

// OverdueEntry is an unpaid cuota past its due date.
type OverdueEntry struct {
	CourseID    int             `json:"course_id"`
	CourseName  string          `json:"course_name"`
	StudentID   int             `json:"student_id"`
	StudentName string          `json:"student_name"`
	Month       int             `json:"month"`
	Year        int             `json:"year"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date"`
	DaysLate    int             `json:"days_late"`
}
