package testutil

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata" // tests run on machines without a zoneinfo db

	"github.com/shopspring/decimal"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/schedule"
)

// Config returns an app config suitable for tests, in the given timezone (UTC when empty).
func Config(t *testing.T, tz ...string) *core.Config {
	loc := time.UTC
	if len(tz) > 0 && tz[0] != "" {
		var err error
		if loc, err = time.LoadLocation(tz[0]); err != nil {
			t.Fatalf("Config() failed: %v", err)
		}
	}
	return &core.Config{
		AppName:  "Jardin",
		TestMode: true,
		Timezone: loc,
		Cutoff:   core.CutoffStartOfDay,
		Database: core.DatabaseConfig{Engine: "inmem"},
	}
}

// FreezeTime makes *nowFunc return now for the duration of the test.
func FreezeTime(t *testing.T, nowFunc *func() time.Time, now time.Time) {
	orig := *nowFunc
	*nowFunc = func() time.Time { return now }
	t.Cleanup(func() { *nowFunc = orig })
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	name, sched string,
	fee int64,
	dueDay int,
) course.Course {
	rng, err := schedule.ParseRange(sched)
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	tstamp := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Name:       name,
		Shift:      course.ShiftMorning,
		Schedule:   rng,
		MonthlyFee: decimal.NewFromInt(fee),
		DueDay:     dueDay,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return crs
}

func CreateStudent(t *testing.T, repo course.Repository, courseID int, firstName, lastName string) course.Student {
	std, err := repo.CreateStudent(context.Background(), course.Student{
		FirstName: firstName,
		LastName:  lastName,
		CourseID:  courseID,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func CreateFamilyMember(t *testing.T, repo course.Repository, studentID int, firstName, relationship string) course.FamilyMember {
	fm, err := repo.CreateFamilyMember(context.Background(), course.FamilyMember{
		FirstName:    firstName,
		LastName:     "Doe",
		Relationship: relationship,
		StudentID:    studentID,
	})
	if err != nil {
		t.Fatalf("createFamilyMember() failed: %v", err)
	}
	return fm
}
