package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/jardin/core/tuition"
)

type cuotaRow struct {
	ID       int             `db:"id"`
	CourseID int             `db:"course_id"`
	Month    int             `db:"month"`
	Year     int             `db:"year"`
	Amount   decimal.Decimal `db:"amount"`
	DueDate  time.Time       `db:"due_date"`
}

type paymentRow struct {
	ID             int             `db:"id"`
	Reference      string          `db:"reference"`
	CuotaID        int             `db:"cuota_id"`
	CourseID       int             `db:"course_id"`
	StudentID      int             `db:"student_id"`
	FamilyMemberID null.Int        `db:"family_member_id"`
	Month          int             `db:"month"`
	Year           int             `db:"year"`
	PaidAt         time.Time       `db:"paid_at"`
	Amount         decimal.Decimal `db:"amount"`
	Status         string          `db:"status"`
	DaysLate       int             `db:"days_late"`
}

func toPaymentRow(pmt tuition.Payment) paymentRow {
	return paymentRow{
		Reference:      pmt.Reference,
		CuotaID:        pmt.CuotaID,
		CourseID:       pmt.CourseID,
		StudentID:      pmt.StudentID,
		FamilyMemberID: null.NewInt(pmt.FamilyMemberID, pmt.FamilyMemberID != 0),
		Month:          pmt.Month,
		Year:           pmt.Year,
		PaidAt:         pmt.PaidAt.UTC(),
		Amount:         pmt.Amount,
		Status:         string(pmt.Status),
		DaysLate:       pmt.DaysLate,
	}
}

func (row paymentRow) payment() tuition.Payment {
	return tuition.Payment{
		ID:             row.ID,
		Reference:      row.Reference,
		CuotaID:        row.CuotaID,
		CourseID:       row.CourseID,
		StudentID:      row.StudentID,
		FamilyMemberID: row.FamilyMemberID.Int,
		Month:          row.Month,
		Year:           row.Year,
		PaidAt:         row.PaidAt.UTC(),
		Amount:         row.Amount,
		Status:         tuition.Status(row.Status),
		DaysLate:       row.DaysLate,
	}
}

const (
	cuotaColumns   = `id, course_id, month, year, amount, due_date`
	paymentColumns = `id, reference, cuota_id, course_id, student_id, family_member_id, month, year, paid_at, amount, status, days_late`

	cuotaPeriodKey     = "cuotas_course_period_key"
	paymentStudentKey  = "payments_cuota_student_key"
	periodIndexColumns = "(year * 12 + month - 1)"
)

type tuitionRepository struct {
	db *sqlx.DB
}

var _ tuition.Repository = (*tuitionRepository)(nil) // interface compliance check

func NewTuitionRepository(db *sqlx.DB) *tuitionRepository {
	return &tuitionRepository{db: db}
}

func periodConds(w *where, from, to tuition.Period) {
	if !from.IsZero() {
		w.add(periodIndexColumns+" >= ?", from.Index())
	}
	if !to.IsZero() {
		w.add(periodIndexColumns+" <= ?", to.Index())
	}
}

func (repo *tuitionRepository) GetCuota(ctx context.Context, courseID int, period tuition.Period) (tuition.Cuota, error) {
	var row cuotaRow
	q := `SELECT ` + cuotaColumns + ` FROM cuotas WHERE course_id = $1 AND year = $2 AND month = $3`
	if err := repo.db.GetContext(ctx, &row, q, courseID, period.Year, period.Month); err != nil {
		return tuition.Cuota{}, trapNoRowsErr(err, tuition.ErrCuotaNotFound, "getting cuota")
	}
	return tuition.Cuota(row), nil
}

func (repo *tuitionRepository) CreateCuota(ctx context.Context, cuota tuition.Cuota) (tuition.Cuota, error) {
	err := repo.db.GetContext(ctx, &cuota.ID,
		`INSERT INTO cuotas (course_id, month, year, amount, due_date) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		cuota.CourseID, cuota.Month, cuota.Year, cuota.Amount, cuota.DueDate.UTC())
	if isUniqueViolation(err, cuotaPeriodKey) {
		return tuition.Cuota{}, tuition.ErrCuotaExists
	}
	if err != nil {
		return tuition.Cuota{}, wrapErr(err, "inserting cuota")
	}
	return cuota, nil
}

func (repo *tuitionRepository) QueryCuotas(ctx context.Context, filter tuition.CuotaFilter) ([]tuition.Cuota, error) {
	var w where
	if filter.CourseID != 0 {
		w.add("course_id = ?", filter.CourseID)
	}
	periodConds(&w, filter.From, filter.To)

	var rows []cuotaRow
	q := repo.db.Rebind(`SELECT ` + cuotaColumns + ` FROM cuotas` + w.String() + ` ORDER BY year, month, course_id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, wrapErr(err, "querying cuotas")
	}
	cuotas := make([]tuition.Cuota, 0, len(rows))
	for _, row := range rows {
		cuotas = append(cuotas, tuition.Cuota(row))
	}
	return cuotas, nil
}

func (repo *tuitionRepository) CreatePayment(ctx context.Context, pmt tuition.Payment) (tuition.Payment, error) {
	row := toPaymentRow(pmt)
	err := repo.db.GetContext(ctx, &row.ID,
		`INSERT INTO payments (reference, cuota_id, course_id, student_id, family_member_id, month, year, paid_at, amount, status, days_late)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		row.Reference, row.CuotaID, row.CourseID, row.StudentID, row.FamilyMemberID, row.Month, row.Year,
		row.PaidAt, row.Amount, row.Status, row.DaysLate)
	if isUniqueViolation(err, paymentStudentKey) {
		return tuition.Payment{}, tuition.ErrAlreadyPaid
	}
	if err != nil {
		return tuition.Payment{}, wrapErr(err, "inserting payment")
	}
	return row.payment(), nil
}

func (repo *tuitionRepository) QueryPayments(ctx context.Context, filter tuition.PaymentFilter) ([]tuition.Payment, error) {
	var w where
	if filter.CourseID != 0 {
		w.add("course_id = ?", filter.CourseID)
	}
	if filter.StudentID != 0 {
		w.add("student_id = ?", filter.StudentID)
	}
	periodConds(&w, filter.From, filter.To)

	var rows []paymentRow
	q := repo.db.Rebind(`SELECT ` + paymentColumns + ` FROM payments` + w.String() + ` ORDER BY paid_at, id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, wrapErr(err, "querying payments")
	}
	payments := make([]tuition.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.payment())
	}
	return payments, nil
}
