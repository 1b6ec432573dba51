package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	crs.ID = repo.db.pk
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

// compareCourses returns -1, 0 or 1 as a sorts before, with or after b on field.
func compareCourses(a, b course.Course, field string) int {
	switch field {
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "shift":
		return strings.Compare(a.Shift, b.Shift)
	case "monthly_fee":
		return a.MonthlyFee.Cmp(b.MonthlyFee)
	case "due_day":
		return compareInts(a.EffectiveDueDay(), b.EffectiveDueDay())
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
		return 0
	}
	return compareInts(a.ID, b.ID)
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (repo *courseRepository) QueryCourses(_ context.Context, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, *crs)
	}
	ords := append(append([]core.DBOrdering(nil), ordering...), core.DBOrdering{Field: "id", Ascending: true})
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ords {
			c := compareCourses(courses[i], courses[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.courses[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs.CreatedAt = orig.CreatedAt
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) CreateStudent(_ context.Context, std course.Student) (course.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.courses[std.CourseID]; !ok {
		return course.Student{}, course.ErrNotFound
	}
	repo.db.pk++
	std.ID = repo.db.pk
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *courseRepository) GetStudent(_ context.Context, id int) (course.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return course.Student{}, course.ErrStudentNotFound
}

func (repo *courseRepository) QueryStudents(_ context.Context, filter course.StudentFilter) ([]course.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]course.Student, 0)
	for _, std := range repo.db.students {
		if filter.CourseID == 0 || std.CourseID == filter.CourseID {
			students = append(students, *std)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func (repo *courseRepository) CreateFamilyMember(_ context.Context, fm course.FamilyMember) (course.FamilyMember, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[fm.StudentID]; !ok {
		return course.FamilyMember{}, course.ErrStudentNotFound
	}
	repo.db.pk++
	fm.ID = repo.db.pk
	repo.db.members[fm.ID] = &fm
	return fm, nil
}

func (repo *courseRepository) GetFamilyMember(_ context.Context, id int) (course.FamilyMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if fm, ok := repo.db.members[id]; ok {
		return *fm, nil
	}
	return course.FamilyMember{}, course.ErrFamilyMemberNotFound
}

func (repo *courseRepository) QueryFamilyMembers(_ context.Context, studentID int) ([]course.FamilyMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make([]course.FamilyMember, 0)
	for _, fm := range repo.db.members {
		if fm.StudentID == studentID {
			members = append(members, *fm)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}
