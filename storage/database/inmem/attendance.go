package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) GetTeacherRecord(_ context.Context, courseID, teacherID int, date time.Time) (attendance.TeacherRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	date = core.DateOf(date)
	for _, rec := range repo.db.teachers {
		if rec.CourseID == courseID && rec.TeacherID == teacherID && rec.Date.Equal(date) {
			return *rec, nil
		}
	}
	return attendance.TeacherRecord{}, attendance.ErrRecordNotFound
}

func (repo *attendanceRepository) SaveTeacherRecord(_ context.Context, rec attendance.TeacherRecord) (attendance.TeacherRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec.Date = core.DateOf(rec.Date)
	for id, r := range repo.db.teachers {
		if r.CourseID == rec.CourseID && r.TeacherID == rec.TeacherID && r.Date.Equal(rec.Date) {
			rec.ID = id
			repo.db.teachers[id] = &rec
			return rec, nil
		}
	}
	repo.db.pk++
	rec.ID = repo.db.pk
	repo.db.teachers[rec.ID] = &rec
	return rec, nil
}

func (repo *attendanceRepository) QueryTeacherRecords(_ context.Context, filter attendance.RecordFilter) ([]attendance.TeacherRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]attendance.TeacherRecord, 0)
	for _, rec := range repo.db.teachers {
		if filter.MatchTeacherRecord(*rec) {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return lessByDate(recs[i].Date, recs[j].Date, recs[i].ID, recs[j].ID) })
	return recs, nil
}

func (repo *attendanceRepository) SaveRecords(_ context.Context, recs []attendance.Record) ([]attendance.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	saved := make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		rec := rec
		rec.Date = core.DateOf(rec.Date)
		rec.ID = 0
		for id, r := range repo.db.records {
			if r.CourseID == rec.CourseID && r.StudentID == rec.StudentID && r.Date.Equal(rec.Date) {
				rec.ID = id
				break
			}
		}
		if rec.ID == 0 {
			repo.db.pk++
			rec.ID = repo.db.pk
		}
		repo.db.records[rec.ID] = &rec
		saved = append(saved, rec)
	}
	return saved, nil
}

func (repo *attendanceRepository) QueryRecords(_ context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	recs := make([]attendance.Record, 0)
	for _, rec := range repo.db.records {
		if filter.MatchRecord(*rec) {
			recs = append(recs, *rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return lessByDate(recs[i].Date, recs[j].Date, recs[i].ID, recs[j].ID) })
	return recs, nil
}

func (repo *attendanceRepository) CreatePickup(_ context.Context, pickup attendance.Pickup) (attendance.Pickup, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pickup.Date = core.DateOf(pickup.Date)
	repo.db.pk++
	pickup.ID = repo.db.pk
	repo.db.pickups[pickup.ID] = &pickup
	return pickup, nil
}

func (repo *attendanceRepository) QueryPickups(_ context.Context, filter attendance.RecordFilter) ([]attendance.Pickup, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pickups := make([]attendance.Pickup, 0)
	for _, p := range repo.db.pickups {
		if filter.MatchPickup(*p) {
			pickups = append(pickups, *p)
		}
	}
	sort.Slice(pickups, func(i, j int) bool {
		return lessByDate(pickups[i].Date, pickups[j].Date, pickups[i].ID, pickups[j].ID)
	})
	return pickups, nil
}

func (repo *attendanceRepository) GetSettings(_ context.Context) (attendance.Settings, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.settings == nil {
		return attendance.DefaultSettings, nil
	}
	return *repo.db.settings, nil
}

func (repo *attendanceRepository) SaveSettings(_ context.Context, settings attendance.Settings) (attendance.Settings, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.settings = &settings
	return settings, nil
}

func (repo *attendanceRepository) CreateNotice(_ context.Context, notice attendance.PrincipalNotice) (attendance.PrincipalNotice, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	notice.Date = core.DateOf(notice.Date)
	repo.db.pk++
	notice.ID = repo.db.pk
	repo.db.notices[notice.ID] = &notice
	return notice, nil
}

func (repo *attendanceRepository) GetNotice(_ context.Context, id int) (attendance.PrincipalNotice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if notice, ok := repo.db.notices[id]; ok {
		return *notice, nil
	}
	return attendance.PrincipalNotice{}, attendance.ErrNoticeNotFound
}

func (repo *attendanceRepository) QueryNotices(_ context.Context, pending bool) ([]attendance.PrincipalNotice, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notices := make([]attendance.PrincipalNotice, 0)
	for _, n := range repo.db.notices {
		if !pending || !n.Processed {
			notices = append(notices, *n)
		}
	}
	sort.Slice(notices, func(i, j int) bool {
		if !notices[i].CreatedAt.Equal(notices[j].CreatedAt) {
			return notices[i].CreatedAt.Before(notices[j].CreatedAt)
		}
		return notices[i].ID < notices[j].ID
	})
	return notices, nil
}

func (repo *attendanceRepository) MarkNoticeProcessed(_ context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	notice, ok := repo.db.notices[id]
	if !ok {
		return attendance.ErrNoticeNotFound
	}
	if notice.Processed {
		return attendance.ErrNoticeProcessed
	}
	notice.Processed = true
	return nil
}

func lessByDate(di, dj time.Time, idi, idj int) bool {
	if !di.Equal(dj) {
		return di.Before(dj)
	}
	return idi < idj
}
