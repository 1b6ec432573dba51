package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/attendance"
	"github.com/trezcool/jardin/core/schedule"
)

type recordRow struct {
	ID        int       `db:"id"`
	CourseID  int       `db:"course_id"`
	StudentID int       `db:"student_id"`
	Date      time.Time `db:"date"`
	Present   bool      `db:"present"`
}

type teacherRecordRow struct {
	ID        int       `db:"id"`
	CourseID  int       `db:"course_id"`
	TeacherID int       `db:"teacher_id"`
	Date      time.Time `db:"date"`
	CheckIn   null.Int  `db:"check_in"`
	CheckOut  null.Int  `db:"check_out"`
	Absent    bool      `db:"absent"`
}

func clockToNull(c *schedule.Clock) null.Int {
	if c == nil {
		return null.Int{}
	}
	return null.IntFrom(int(*c))
}

func nullToClock(n null.Int) *schedule.Clock {
	if !n.Valid {
		return nil
	}
	c := schedule.Clock(n.Int)
	return &c
}

func (row teacherRecordRow) record() attendance.TeacherRecord {
	return attendance.TeacherRecord{
		ID:        row.ID,
		CourseID:  row.CourseID,
		TeacherID: row.TeacherID,
		Date:      core.DateOf(row.Date),
		CheckIn:   nullToClock(row.CheckIn),
		CheckOut:  nullToClock(row.CheckOut),
		Absent:    row.Absent,
	}
}

type pickupRow struct {
	ID             int       `db:"id"`
	CourseID       int       `db:"course_id"`
	StudentID      int       `db:"student_id"`
	FamilyMemberID int       `db:"family_member_id"`
	Date           time.Time `db:"date"`
	At             int       `db:"at"`
}

type noticeRow struct {
	ID          int       `db:"id"`
	CourseID    int       `db:"course_id"`
	TeacherID   int       `db:"teacher_id"`
	Date        time.Time `db:"date"`
	Kind        string    `db:"kind"`
	RequestedAt int       `db:"requested_at"`
	Processed   bool      `db:"processed"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row noticeRow) notice() attendance.PrincipalNotice {
	return attendance.PrincipalNotice{
		ID:          row.ID,
		CourseID:    row.CourseID,
		TeacherID:   row.TeacherID,
		Date:        core.DateOf(row.Date),
		Kind:        row.Kind,
		RequestedAt: schedule.Clock(row.RequestedAt),
		Processed:   row.Processed,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

const (
	recordColumns        = `id, course_id, student_id, date, present`
	teacherRecordColumns = `id, course_id, teacher_id, date, check_in, check_out, absent`
	pickupColumns        = `id, course_id, student_id, family_member_id, date, at`
	noticeColumns        = `id, course_id, teacher_id, date, kind, requested_at, processed, created_at`
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// recordWhere translates filter, personColumn being student_id or teacher_id.
func recordWhere(filter attendance.RecordFilter, personColumn string) *where {
	w := new(where)
	if filter.CourseID != 0 {
		w.add("course_id = ?", filter.CourseID)
	}
	if filter.PersonID != 0 {
		w.add(personColumn+" = ?", filter.PersonID)
	}
	if !filter.From.IsZero() {
		w.add("date >= ?", core.DateOf(filter.From))
	}
	if !filter.To.IsZero() {
		w.add("date <= ?", core.DateOf(filter.To))
	}
	return w
}

func (repo *attendanceRepository) GetTeacherRecord(ctx context.Context, courseID, teacherID int, date time.Time) (attendance.TeacherRecord, error) {
	var row teacherRecordRow
	q := `SELECT ` + teacherRecordColumns + ` FROM teacher_attendance WHERE course_id = $1 AND teacher_id = $2 AND date = $3`
	if err := repo.db.GetContext(ctx, &row, q, courseID, teacherID, core.DateOf(date)); err != nil {
		return attendance.TeacherRecord{}, trapNoRowsErr(err, attendance.ErrRecordNotFound, "getting teacher record")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) SaveTeacherRecord(ctx context.Context, rec attendance.TeacherRecord) (attendance.TeacherRecord, error) {
	rec.Date = core.DateOf(rec.Date)
	err := repo.db.GetContext(ctx, &rec.ID,
		`INSERT INTO teacher_attendance (course_id, teacher_id, date, check_in, check_out, absent)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (course_id, teacher_id, date)
		DO UPDATE SET check_in = EXCLUDED.check_in, check_out = EXCLUDED.check_out, absent = EXCLUDED.absent
		RETURNING id`,
		rec.CourseID, rec.TeacherID, rec.Date, clockToNull(rec.CheckIn), clockToNull(rec.CheckOut), rec.Absent)
	if err != nil {
		return attendance.TeacherRecord{}, wrapErr(err, "saving teacher record")
	}
	return rec, nil
}

func (repo *attendanceRepository) QueryTeacherRecords(ctx context.Context, filter attendance.RecordFilter) ([]attendance.TeacherRecord, error) {
	w := recordWhere(filter, "teacher_id")
	var rows []teacherRecordRow
	q := repo.db.Rebind(`SELECT ` + teacherRecordColumns + ` FROM teacher_attendance` + w.String() + ` ORDER BY date, id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, wrapErr(err, "querying teacher records")
	}
	recs := make([]attendance.TeacherRecord, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs, nil
}

// SaveRecords upserts the whole roll call in one transaction.
func (repo *attendanceRepository) SaveRecords(ctx context.Context, recs []attendance.Record) (saved []attendance.Record, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapErr(err, "starting transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = wrapErr(tx.Commit(), "committing roll call")
	}()

	saved = make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		rec.Date = core.DateOf(rec.Date)
		err = tx.GetContext(ctx, &rec.ID,
			`INSERT INTO attendance_records (course_id, student_id, date, present) VALUES ($1, $2, $3, $4)
			ON CONFLICT (course_id, student_id, date) DO UPDATE SET present = EXCLUDED.present
			RETURNING id`,
			rec.CourseID, rec.StudentID, rec.Date, rec.Present)
		if err != nil {
			return nil, wrapErr(err, "saving attendance record")
		}
		saved = append(saved, rec)
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryRecords(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	w := recordWhere(filter, "student_id")
	var rows []recordRow
	q := repo.db.Rebind(`SELECT ` + recordColumns + ` FROM attendance_records` + w.String() + ` ORDER BY date, id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, wrapErr(err, "querying attendance records")
	}
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		row.Date = core.DateOf(row.Date)
		recs = append(recs, attendance.Record(row))
	}
	return recs, nil
}

func (repo *attendanceRepository) CreatePickup(ctx context.Context, pickup attendance.Pickup) (attendance.Pickup, error) {
	pickup.Date = core.DateOf(pickup.Date)
	err := repo.db.GetContext(ctx, &pickup.ID,
		`INSERT INTO pickups (course_id, student_id, family_member_id, date, at) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		pickup.CourseID, pickup.StudentID, pickup.FamilyMemberID, pickup.Date, int(pickup.At))
	if err != nil {
		return attendance.Pickup{}, wrapErr(err, "inserting pickup")
	}
	return pickup, nil
}

func (repo *attendanceRepository) QueryPickups(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Pickup, error) {
	w := recordWhere(filter, "student_id")
	var rows []pickupRow
	q := repo.db.Rebind(`SELECT ` + pickupColumns + ` FROM pickups` + w.String() + ` ORDER BY date, id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, wrapErr(err, "querying pickups")
	}
	pickups := make([]attendance.Pickup, 0, len(rows))
	for _, row := range rows {
		pickups = append(pickups, attendance.Pickup{
			ID:             row.ID,
			CourseID:       row.CourseID,
			StudentID:      row.StudentID,
			FamilyMemberID: row.FamilyMemberID,
			Date:           core.DateOf(row.Date),
			At:             schedule.Clock(row.At),
		})
	}
	return pickups, nil
}

func (repo *attendanceRepository) GetSettings(ctx context.Context) (attendance.Settings, error) {
	var settings attendance.Settings
	err := repo.db.GetContext(ctx, &settings.RegistrationEnabled, `SELECT registration_enabled FROM settings WHERE id = 1`)
	if errors.Cause(err) == sql.ErrNoRows {
		return attendance.DefaultSettings, nil
	}
	if err != nil {
		return attendance.Settings{}, wrapErr(err, "getting settings")
	}
	return settings, nil
}

func (repo *attendanceRepository) SaveSettings(ctx context.Context, settings attendance.Settings) (attendance.Settings, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO settings (id, registration_enabled) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET registration_enabled = EXCLUDED.registration_enabled`,
		settings.RegistrationEnabled)
	if err != nil {
		return attendance.Settings{}, wrapErr(err, "saving settings")
	}
	return settings, nil
}

func (repo *attendanceRepository) CreateNotice(ctx context.Context, notice attendance.PrincipalNotice) (attendance.PrincipalNotice, error) {
	notice.Date = core.DateOf(notice.Date)
	err := repo.db.GetContext(ctx, &notice.ID,
		`INSERT INTO principal_notices (course_id, teacher_id, date, kind, requested_at, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		notice.CourseID, notice.TeacherID, notice.Date, notice.Kind, int(notice.RequestedAt), notice.Processed, notice.CreatedAt)
	if err != nil {
		return attendance.PrincipalNotice{}, wrapErr(err, "inserting notice")
	}
	return notice, nil
}

func (repo *attendanceRepository) GetNotice(ctx context.Context, id int) (attendance.PrincipalNotice, error) {
	var row noticeRow
	q := `SELECT ` + noticeColumns + ` FROM principal_notices WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return attendance.PrincipalNotice{}, trapNoRowsErr(err, attendance.ErrNoticeNotFound, "getting notice")
	}
	return row.notice(), nil
}

func (repo *attendanceRepository) QueryNotices(ctx context.Context, pending bool) ([]attendance.PrincipalNotice, error) {
	w := new(where)
	if pending {
		w.add("NOT processed")
	}
	var rows []noticeRow
	q := `SELECT ` + noticeColumns + ` FROM principal_notices` + w.String() + ` ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, wrapErr(err, "querying notices")
	}
	notices := make([]attendance.PrincipalNotice, 0, len(rows))
	for _, row := range rows {
		notices = append(notices, row.notice())
	}
	return notices, nil
}

// MarkNoticeProcessed only flips unprocessed notices, so two principals cannot process the same notice.
func (repo *attendanceRepository) MarkNoticeProcessed(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE principal_notices SET processed = TRUE WHERE id = $1 AND NOT processed`, id)
	if err != nil {
		return wrapErr(err, "processing notice")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr(err, "processing notice")
	}
	if n == 1 {
		return nil
	}
	if _, err = repo.GetNotice(ctx, id); err != nil {
		return err
	}
	return attendance.ErrNoticeProcessed
}
