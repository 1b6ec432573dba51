package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/schedule"
)

type courseRow struct {
	ID            int             `db:"id"`
	Name          string          `db:"name"`
	Shift         string          `db:"shift"`
	ScheduleStart int             `db:"schedule_start"`
	ScheduleEnd   int             `db:"schedule_end"`
	MonthlyFee    decimal.Decimal `db:"monthly_fee"`
	DueDay        int             `db:"due_day"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func toCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:            crs.ID,
		Name:          crs.Name,
		Shift:         crs.Shift,
		ScheduleStart: int(crs.Schedule.Start),
		ScheduleEnd:   int(crs.Schedule.End),
		MonthlyFee:    crs.MonthlyFee,
		DueDay:        crs.EffectiveDueDay(),
		CreatedAt:     crs.CreatedAt.UTC(),
		UpdatedAt:     crs.UpdatedAt.UTC(),
	}
}

func (row courseRow) course() course.Course {
	return course.Course{
		ID:         row.ID,
		Name:       row.Name,
		Shift:      row.Shift,
		Schedule:   schedule.Range{Start: schedule.Clock(row.ScheduleStart), End: schedule.Clock(row.ScheduleEnd)},
		MonthlyFee: row.MonthlyFee,
		DueDay:     row.DueDay,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type studentRow struct {
	ID        int    `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	CourseID  int    `db:"course_id"`
}

type familyMemberRow struct {
	ID           int    `db:"id"`
	FirstName    string `db:"first_name"`
	LastName     string `db:"last_name"`
	Relationship string `db:"relationship"`
	StudentID    int    `db:"student_id"`
}

const (
	courseColumns       = `id, name, shift, schedule_start, schedule_end, monthly_fee, due_day, created_at, updated_at`
	studentColumns      = `id, first_name, last_name, course_id`
	familyMemberColumns = `id, first_name, last_name, relationship, student_id`
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// trapNoRowsErr maps "no rows" to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return wrapErr(err, msg)
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row := toCourseRow(crs)
	q := `INSERT INTO courses (name, shift, schedule_start, schedule_end, monthly_fee, due_day, created_at, updated_at)
		VALUES (:name, :shift, :schedule_start, :schedule_end, :monthly_fee, :due_day, :created_at, :updated_at)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, repo.db, q, row)
	if err != nil {
		return course.Course{}, wrapErr(err, "inserting course")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&row.ID); err != nil {
			return course.Course{}, wrapErr(err, "inserting course")
		}
	}
	if err = rows.Err(); err != nil {
		return course.Course{}, wrapErr(err, "inserting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int) (course.Course, error) {
	var row courseRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, ordering []core.DBOrdering) ([]course.Course, error) {
	var rows []courseRow
	q := `SELECT ` + courseColumns + ` FROM courses` + orderBy(ordering)
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, wrapErr(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `UPDATE courses SET name = :name, shift = :shift, schedule_start = :schedule_start,
		schedule_end = :schedule_end, monthly_fee = :monthly_fee, due_day = :due_day, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toCourseRow(crs))
	if err != nil {
		return course.Course{}, wrapErr(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, crs.ID)
}

func (repo *courseRepository) CreateStudent(ctx context.Context, std course.Student) (course.Student, error) {
	err := repo.db.GetContext(ctx, &std.ID,
		`INSERT INTO students (first_name, last_name, course_id) VALUES ($1, $2, $3) RETURNING id`,
		std.FirstName, std.LastName, std.CourseID)
	if err != nil {
		return course.Student{}, wrapErr(err, "inserting student")
	}
	return std, nil
}

func (repo *courseRepository) GetStudent(ctx context.Context, id int) (course.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	if err != nil {
		return course.Student{}, trapNoRowsErr(err, course.ErrStudentNotFound, "getting student")
	}
	return course.Student(row), nil
}

func (repo *courseRepository) QueryStudents(ctx context.Context, filter course.StudentFilter) ([]course.Student, error) {
	var w where
	if filter.CourseID != 0 {
		w.add("course_id = ?", filter.CourseID)
	}
	var rows []studentRow
	q := repo.db.Rebind(`SELECT ` + studentColumns + ` FROM students` + w.String() + ` ORDER BY id`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, wrapErr(err, "querying students")
	}
	students := make([]course.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, course.Student(row))
	}
	return students, nil
}

func (repo *courseRepository) CreateFamilyMember(ctx context.Context, fm course.FamilyMember) (course.FamilyMember, error) {
	err := repo.db.GetContext(ctx, &fm.ID,
		`INSERT INTO family_members (first_name, last_name, relationship, student_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		fm.FirstName, fm.LastName, fm.Relationship, fm.StudentID)
	if err != nil {
		return course.FamilyMember{}, wrapErr(err, "inserting family member")
	}
	return fm, nil
}

func (repo *courseRepository) GetFamilyMember(ctx context.Context, id int) (course.FamilyMember, error) {
	var row familyMemberRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+familyMemberColumns+` FROM family_members WHERE id = $1`, id)
	if err != nil {
		return course.FamilyMember{}, trapNoRowsErr(err, course.ErrFamilyMemberNotFound, "getting family member")
	}
	return course.FamilyMember(row), nil
}

func (repo *courseRepository) QueryFamilyMembers(ctx context.Context, studentID int) ([]course.FamilyMember, error) {
	var rows []familyMemberRow
	q := `SELECT ` + familyMemberColumns + ` FROM family_members WHERE student_id = $1 ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, wrapErr(err, "querying family members")
	}
	members := make([]course.FamilyMember, 0, len(rows))
	for _, row := range rows {
		members = append(members, course.FamilyMember(row))
	}
	return members, nil
}
