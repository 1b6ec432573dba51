package stats

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/jardin/core"
)

var (
	ErrInvalidMonth  = errors.New("month must be between 1 and 12")
	ErrNegativeValue = errors.New("amounts must not be negative")
)

// Payment statuses, as stored on tuition payments.
const (
	StatusOnTime = "on_time"
	StatusLate   = "late"
)

// CourseRoster is a course with the students expected to pay each month.
// Cuotas holds the amounts already frozen for some months; other months owe MonthlyFee.
type CourseRoster struct {
	CourseID   int
	Name       string
	Students   []int
	MonthlyFee decimal.Decimal
	Cuotas     map[YearMonth]decimal.Decimal
}

func (crs CourseRoster) fee(m YearMonth) decimal.Decimal {
	if amount, ok := crs.Cuotas[m]; ok {
		return amount
	}
	return crs.MonthlyFee
}

type PaymentRecord struct {
	CourseID  int
	StudentID int
	Month     int
	Year      int
	Amount    decimal.Decimal
	Status    string
	DaysLate  int
}

type PaymentCounts struct {
	Expected         int             `json:"expected"`
	OnTime           int             `json:"on_time"`
	Late             int             `json:"late"`
	Unpaid           int             `json:"unpaid"`
	OnTimePercentage float64         `json:"on_time_percentage"`
	LatePercentage   float64         `json:"late_percentage"`
	UnpaidPercentage float64         `json:"unpaid_percentage"`
	ExpectedAmount   decimal.Decimal `json:"expected_amount"`
	CollectedAmount  decimal.Decimal `json:"collected_amount"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	AverageDaysLate  float64         `json:"average_days_late"`

	daysLate int
}

func (c *PaymentCounts) add(o PaymentCounts) {
	c.Expected += o.Expected
	c.OnTime += o.OnTime
	c.Late += o.Late
	c.ExpectedAmount = c.ExpectedAmount.Add(o.ExpectedAmount)
	c.CollectedAmount = c.CollectedAmount.Add(o.CollectedAmount)
	c.daysLate += o.daysLate
}

func (c PaymentCounts) finish() PaymentCounts {
	c.Unpaid = c.Expected - c.OnTime - c.Late
	if c.Unpaid < 0 {
		c.Unpaid = 0
	}
	c.OnTimePercentage = percentage(c.OnTime, c.Expected, 1)
	c.LatePercentage = percentage(c.Late, c.Expected, 1)
	c.UnpaidPercentage = percentage(c.Unpaid, c.Expected, 1)
	c.PendingAmount = c.ExpectedAmount.Sub(c.CollectedAmount)
	if c.PendingAmount.IsNegative() {
		c.PendingAmount = decimal.Zero
	}
	if c.Late > 0 {
		c.AverageDaysLate = core.Round(float64(c.daysLate)/float64(c.Late), 1)
	}
	return c
}

type CoursePayments struct {
	CourseID int    `json:"course_id"`
	Name     string `json:"name"`
	PaymentCounts
}

type PaymentSummary struct {
	Range     Range            `json:"range"`
	General   PaymentCounts    `json:"general"`
	PerCourse []CoursePayments `json:"per_course"`
}

type paymentKey struct {
	courseID, studentID, year, month int
}

// Payments compares the payments of the months touched by f's range against what every rostered
// student owes (the month's cuota, or the monthly fee when it has none). A student paying a month twice counts once.
func Payments(courses []CourseRoster, payments []PaymentRecord, f Filter) (PaymentSummary, error) {
	r, err := f.Range()
	if err != nil {
		return PaymentSummary{}, err
	}
	months := r.Months()
	inRange := make(map[YearMonth]bool, len(months))
	for _, m := range months {
		inRange[m] = true
	}

	paid := make(map[paymentKey]PaymentRecord, len(payments))
	for _, p := range payments {
		if p.Month < 1 || p.Month > 12 {
			return PaymentSummary{}, errors.Wrapf(ErrInvalidMonth, "payment of student %d", p.StudentID)
		}
		if p.Amount.IsNegative() || p.DaysLate < 0 {
			return PaymentSummary{}, errors.Wrapf(ErrNegativeValue, "payment of student %d", p.StudentID)
		}
		if !inRange[YearMonth{Year: p.Year, Month: p.Month}] {
			continue
		}
		key := paymentKey{p.CourseID, p.StudentID, p.Year, p.Month}
		if _, ok := paid[key]; !ok {
			paid[key] = p
		}
	}

	summary := PaymentSummary{Range: r, PerCourse: make([]CoursePayments, 0, len(courses))}
	for _, crs := range courses {
		if f.CourseID != 0 && crs.CourseID != f.CourseID {
			continue
		}
		if crs.MonthlyFee.IsNegative() {
			return PaymentSummary{}, errors.Wrapf(ErrNegativeValue, "fee of course %d", crs.CourseID)
		}
		for m, amount := range crs.Cuotas {
			if amount.IsNegative() {
				return PaymentSummary{}, errors.Wrapf(ErrNegativeValue, "cuota %d-%02d of course %d", m.Year, m.Month, crs.CourseID)
			}
		}

		var counts PaymentCounts
		for _, std := range crs.Students {
			if f.PersonID != 0 && std != f.PersonID {
				continue
			}
			for _, m := range months {
				counts.Expected++
				counts.ExpectedAmount = counts.ExpectedAmount.Add(crs.fee(m))

				p, ok := paid[paymentKey{crs.CourseID, std, m.Year, m.Month}]
				if !ok {
					continue
				}
				counts.CollectedAmount = counts.CollectedAmount.Add(p.Amount)
				if p.Status == StatusLate {
					counts.Late++
					counts.daysLate += p.DaysLate
				} else {
					counts.OnTime++
				}
			}
		}
		summary.General.add(counts)
		summary.PerCourse = append(summary.PerCourse, CoursePayments{
			CourseID:      crs.CourseID,
			Name:          crs.Name,
			PaymentCounts: counts.finish(),
		})
	}
	summary.General = summary.General.finish()
	sort.Slice(summary.PerCourse, func(i, j int) bool {
		return summary.PerCourse[i].CourseID < summary.PerCourse[j].CourseID
	})
	return summary, nil
}
