package attendance

import (
	"context"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/schedule"
)

var (
	// errors
	ErrRecordNotFound       = core.NewNotFoundError("attendance record not found")
	ErrRegistrationDisabled = core.NewRejectedError("attendance registration is disabled")
	ErrOutsideWindow        = core.NewRejectedError("outside of the allowed time window")
	ErrNotCheckedIn         = core.NewRejectedError("check-in must be registered first")
	ErrAlreadyCheckedIn     = core.NewConflictError("check-in already registered")
	ErrAlreadyCheckedOut    = core.NewConflictError("check-out already registered")
	ErrMarkedAbsent         = core.NewConflictError("teacher is marked absent")
	ErrCheckOutBeforeIn     = core.NewRejectedError("check-out cannot precede check-in")
	ErrNoticeNotFound       = core.NewNotFoundError("notice not found")
	ErrNoticeProcessed      = core.NewConflictError("notice already processed")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// GetTeacherRecord returns ErrRecordNotFound if the teacher has no record in the course on date.
		GetTeacherRecord(ctx context.Context, courseID, teacherID int, date time.Time) (TeacherRecord, error)
		// SaveTeacherRecord inserts or updates the (course, teacher, date) record.
		SaveTeacherRecord(ctx context.Context, rec TeacherRecord) (TeacherRecord, error)
		QueryTeacherRecords(ctx context.Context, filter RecordFilter) ([]TeacherRecord, error)

		// SaveRecords inserts or updates the (course, student, date) records.
		SaveRecords(ctx context.Context, recs []Record) ([]Record, error)
		QueryRecords(ctx context.Context, filter RecordFilter) ([]Record, error)

		CreatePickup(ctx context.Context, pickup Pickup) (Pickup, error)
		QueryPickups(ctx context.Context, filter RecordFilter) ([]Pickup, error)

		GetSettings(ctx context.Context) (Settings, error)
		SaveSettings(ctx context.Context, settings Settings) (Settings, error)

		CreateNotice(ctx context.Context, notice PrincipalNotice) (PrincipalNotice, error)
		// GetNotice returns ErrNoticeNotFound if there is no notice with id.
		GetNotice(ctx context.Context, id int) (PrincipalNotice, error)
		// QueryNotices lists notices oldest first, only the unprocessed ones when pending is set.
		QueryNotices(ctx context.Context, pending bool) ([]PrincipalNotice, error)
		// MarkNoticeProcessed returns ErrNoticeProcessed if the notice was already processed.
		MarkNoticeProcessed(ctx context.Context, id int) error
	}

	Service struct {
		repo    Repository
		courses course.Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, courses course.Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		courses: courses,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) now() time.Time { return NowFunc().In(svc.conf.Location()) }

func (svc *Service) Settings(ctx context.Context) (Settings, error) {
	return svc.repo.GetSettings(ctx)
}

func (svc *Service) SetSettings(ctx context.Context, settings Settings) (Settings, error) {
	return svc.repo.SaveSettings(ctx, settings)
}

// ToggleRegistration flips whether teachers may register their own attendance.
func (svc *Service) ToggleRegistration(ctx context.Context) (Settings, error) {
	settings, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return Settings{}, errors.Wrap(err, "getting settings")
	}
	settings.RegistrationEnabled = !settings.RegistrationEnabled
	return svc.repo.SaveSettings(ctx, settings)
}

// teacherRecord loads today's record of the teacher in the course, or a blank one.
func (svc *Service) teacherRecord(ctx context.Context, ct CourseTeacher, now time.Time) (TeacherRecord, error) {
	date := core.DateOf(now)
	rec, err := svc.repo.GetTeacherRecord(ctx, ct.CourseID, ct.TeacherID, date)
	if err == nil {
		return rec, nil
	}
	if errors.Cause(err) != ErrRecordNotFound {
		return TeacherRecord{}, errors.Wrap(err, "getting teacher record")
	}
	return TeacherRecord{CourseID: ct.CourseID, TeacherID: ct.TeacherID, Date: date}, nil
}

func (svc *Service) checkRegistration(ctx context.Context) error {
	settings, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	if !settings.RegistrationEnabled {
		return ErrRegistrationDisabled
	}
	return nil
}

// CheckIn registers the teacher's arrival, within an hour of the course start.
func (svc *Service) CheckIn(ctx context.Context, ct CourseTeacher) (TeacherRecord, error) {
	if err := svc.checkRegistration(ctx); err != nil {
		return TeacherRecord{}, err
	}
	crs, err := svc.courses.GetCourse(ctx, ct.CourseID)
	if err != nil {
		return TeacherRecord{}, err
	}

	now := svc.now()
	at := schedule.ClockOf(now)
	if !crs.Schedule.CheckIn().Contains(at) {
		return TeacherRecord{}, ErrOutsideWindow
	}

	rec, err := svc.teacherRecord(ctx, ct, now)
	if err != nil {
		return TeacherRecord{}, err
	}
	switch rec.Status() {
	case StatusAbsent:
		return TeacherRecord{}, ErrMarkedAbsent
	case StatusCheckedIn, StatusComplete:
		return TeacherRecord{}, ErrAlreadyCheckedIn
	}
	rec.CheckIn = &at
	return svc.repo.SaveTeacherRecord(ctx, rec)
}

// CheckOut registers the teacher's departure, within an hour of the course end.
func (svc *Service) CheckOut(ctx context.Context, ct CourseTeacher) (TeacherRecord, error) {
	if err := svc.checkRegistration(ctx); err != nil {
		return TeacherRecord{}, err
	}
	crs, err := svc.courses.GetCourse(ctx, ct.CourseID)
	if err != nil {
		return TeacherRecord{}, err
	}

	now := svc.now()
	at := schedule.ClockOf(now)
	if !crs.Schedule.CheckOut(false).Contains(at) {
		return TeacherRecord{}, ErrOutsideWindow
	}

	rec, err := svc.teacherRecord(ctx, ct, now)
	if err != nil {
		return TeacherRecord{}, err
	}
	switch rec.Status() {
	case StatusNone:
		return TeacherRecord{}, ErrNotCheckedIn
	case StatusAbsent:
		return TeacherRecord{}, ErrMarkedAbsent
	case StatusComplete:
		return TeacherRecord{}, ErrAlreadyCheckedOut
	}
	rec.CheckOut = &at
	return svc.repo.SaveTeacherRecord(ctx, rec)
}

// MarkAbsent flags a teacher absent for today. The course must be running and the teacher not checked in.
func (svc *Service) MarkAbsent(ctx context.Context, ct CourseTeacher) (TeacherRecord, error) {
	crs, err := svc.courses.GetCourse(ctx, ct.CourseID)
	if err != nil {
		return TeacherRecord{}, err
	}

	now := svc.now()
	if !crs.Schedule.InWindow(schedule.ClockOf(now), false) {
		return TeacherRecord{}, ErrOutsideWindow
	}

	rec, err := svc.teacherRecord(ctx, ct, now)
	if err != nil {
		return TeacherRecord{}, err
	}
	switch rec.Status() {
	case StatusAbsent:
		return TeacherRecord{}, ErrMarkedAbsent
	case StatusCheckedIn, StatusComplete:
		return TeacherRecord{}, ErrAlreadyCheckedIn
	}
	rec.Absent = true
	return svc.repo.SaveTeacherRecord(ctx, rec)
}

// NotifyPrincipal stores the teacher's notice for the principal to process, and emails the principal about it.
func (svc *Service) NotifyPrincipal(ctx context.Context, n Notice) (PrincipalNotice, error) {
	crs, err := svc.courses.GetCourse(ctx, n.CourseID)
	if err != nil {
		return PrincipalNotice{}, err
	}

	now := svc.now()
	requested := schedule.ClockOf(now)
	if n.RequestedAt != "" {
		if requested, err = schedule.ParseClock(n.RequestedAt); err != nil {
			return PrincipalNotice{}, core.NewValidationError(err, core.FieldError{Field: "requested_at", Error: err.Error()})
		}
	}

	notice, err := svc.repo.CreateNotice(ctx, PrincipalNotice{
		CourseID:    crs.ID,
		TeacherID:   n.TeacherID,
		Date:        core.DateOf(now),
		Kind:        n.Kind,
		RequestedAt: requested,
		CreatedAt:   now.UTC(),
	})
	if err != nil {
		return PrincipalNotice{}, errors.Wrap(err, "creating notice")
	}

	kind := strings.Replace(n.Kind, "_", "-", 1)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.conf.PrincipalEmail},
		Subject:      "Teacher could not register " + kind,
		TemplateName: "registration_notice",
		TemplateData: RegistrationNotice{
			TeacherID:  n.TeacherID,
			Kind:       kind,
			CourseName: crs.Name,
			Schedule:   crs.Schedule,
			At:         now,
		},
	})
	return notice, nil
}

func (svc *Service) PendingNotices(ctx context.Context) ([]PrincipalNotice, error) {
	return svc.repo.QueryNotices(ctx, true /* pending */)
}

// ProcessNotice records the check-in or check-out a notice asks for, at the requested time on the notice's date.
// Registration settings and time windows do not apply.
func (svc *Service) ProcessNotice(ctx context.Context, id int) (TeacherRecord, error) {
	notice, err := svc.repo.GetNotice(ctx, id)
	if err != nil {
		return TeacherRecord{}, err
	}
	if notice.Processed {
		return TeacherRecord{}, ErrNoticeProcessed
	}

	ct := CourseTeacher{CourseID: notice.CourseID, TeacherID: notice.TeacherID}
	rec, err := svc.teacherRecord(ctx, ct, notice.Date)
	if err != nil {
		return TeacherRecord{}, err
	}
	at := notice.RequestedAt

	status := rec.Status()
	if status == StatusAbsent {
		return TeacherRecord{}, ErrMarkedAbsent
	}
	switch notice.Kind {
	case NoticeCheckIn:
		if status != StatusNone {
			return TeacherRecord{}, ErrAlreadyCheckedIn
		}
		rec.CheckIn = &at
	case NoticeCheckOut:
		switch {
		case status == StatusNone:
			return TeacherRecord{}, ErrNotCheckedIn
		case status == StatusComplete:
			return TeacherRecord{}, ErrAlreadyCheckedOut
		case at < *rec.CheckIn:
			return TeacherRecord{}, ErrCheckOutBeforeIn
		}
		rec.CheckOut = &at
	default:
		return TeacherRecord{}, errors.Errorf("notice %d has unknown kind %q", notice.ID, notice.Kind)
	}

	if err = svc.repo.MarkNoticeProcessed(ctx, notice.ID); err != nil {
		return TeacherRecord{}, err
	}
	return svc.repo.SaveTeacherRecord(ctx, rec)
}

// CoursesInWindow lists the courses running right now (an hour either side of their schedule).
func (svc *Service) CoursesInWindow(ctx context.Context) ([]CourseInWindow, error) {
	courses, err := svc.courses.QueryCourses(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	now := svc.now()
	today := core.DateOf(now)
	at := schedule.ClockOf(now)

	running := make([]CourseInWindow, 0)
	for _, crs := range courses {
		if !crs.Schedule.InWindow(at, false) {
			continue
		}
		recs, err := svc.repo.QueryTeacherRecords(ctx, RecordFilter{CourseID: crs.ID})
		if err != nil {
			return nil, errors.Wrap(err, "querying teacher records")
		}

		statuses := make(map[int]string)
		for _, rec := range recs {
			if _, ok := statuses[rec.TeacherID]; !ok {
				statuses[rec.TeacherID] = StatusNone
			}
			if rec.Date.Equal(today) {
				statuses[rec.TeacherID] = rec.Status()
			}
		}
		teachers := make([]TeacherStatus, 0, len(statuses))
		for id, status := range statuses {
			teachers = append(teachers, TeacherStatus{TeacherID: id, Status: status})
		}
		sort.Slice(teachers, func(i, j int) bool { return teachers[i].TeacherID < teachers[j].TeacherID })

		running = append(running, CourseInWindow{
			ID:       crs.ID,
			Name:     crs.Name,
			Shift:    crs.Shift,
			Schedule: crs.Schedule,
			Teachers: teachers,
		})
	}
	return running, nil
}

// RollCall registers the presence of the course's students on a date (today by default).
func (svc *Service) RollCall(ctx context.Context, rc RollCall) ([]Record, error) {
	if _, err := svc.courses.GetCourse(ctx, rc.CourseID); err != nil {
		return nil, err
	}

	date := core.DateOf(svc.now())
	if rc.Date != "" {
		d, err := time.Parse(dateLayout, rc.Date)
		if err != nil {
			return nil, core.NewValidationError(err, core.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
		}
		date = d
	}

	students, err := svc.courses.QueryStudents(ctx, course.StudentFilter{CourseID: rc.CourseID})
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	enrolled := make(map[int]bool, len(students))
	for _, std := range students {
		enrolled[std.ID] = true
	}

	recs := make([]Record, 0, len(rc.Entries))
	seen := make(map[int]bool, len(rc.Entries))
	for _, e := range rc.Entries {
		if !enrolled[e.StudentID] {
			err = errors.Errorf("student %d is not enrolled in this course", e.StudentID)
			return nil, core.NewValidationError(err, core.FieldError{Field: "entries", Error: err.Error()})
		}
		if seen[e.StudentID] {
			err = errors.Errorf("student %d is listed more than once", e.StudentID)
			return nil, core.NewValidationError(err, core.FieldError{Field: "entries", Error: err.Error()})
		}
		seen[e.StudentID] = true
		recs = append(recs, Record{CourseID: rc.CourseID, StudentID: e.StudentID, Date: date, Present: e.Present})
	}
	return svc.repo.SaveRecords(ctx, recs)
}

// RegisterPickup records a student leaving with a family member, allowed until two hours after the course end.
func (svc *Service) RegisterPickup(ctx context.Context, np NewPickup) (Pickup, error) {
	std, err := svc.courses.GetStudent(ctx, np.StudentID)
	if err != nil {
		if errors.Cause(err) == course.ErrStudentNotFound {
			return Pickup{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Pickup{}, errors.Wrap(err, "getting student")
	}
	if _, err = course.CheckGuardian(ctx, svc.courses, std.ID, np.FamilyMemberID); err != nil {
		return Pickup{}, err
	}
	crs, err := svc.courses.GetCourse(ctx, std.CourseID)
	if err != nil {
		return Pickup{}, errors.Wrap(err, "getting student course")
	}

	now := svc.now()
	at := schedule.ClockOf(now)
	if !crs.Schedule.InWindow(at, true) {
		return Pickup{}, ErrOutsideWindow
	}
	return svc.repo.CreatePickup(ctx, Pickup{
		CourseID:       crs.ID,
		StudentID:      std.ID,
		FamilyMemberID: np.FamilyMemberID,
		Date:           core.DateOf(now),
		At:             at,
	})
}

func (svc *Service) Records(ctx context.Context, filter RecordFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *Service) TeacherRecords(ctx context.Context, filter RecordFilter) ([]TeacherRecord, error) {
	return svc.repo.QueryTeacherRecords(ctx, filter)
}

func (svc *Service) Pickups(ctx context.Context, filter RecordFilter) ([]Pickup, error) {
	return svc.repo.QueryPickups(ctx, filter)
}
