package inmemdb

import (
	"sync"

	"github.com/trezcool/jardin/core/attendance"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/tuition"
)

type (
	// DB keeps every table in memory. Each table guards its rows with its own lock.
	DB struct {
		course     *courseTable
		tuition    *tuitionTable
		attendance *attendanceTable
	}

	courseTable struct {
		sync.RWMutex
		pk       int
		courses  map[int]*course.Course
		students map[int]*course.Student
		members  map[int]*course.FamilyMember
	}

	tuitionTable struct {
		sync.RWMutex
		pk       int
		cuotas   map[int]*tuition.Cuota
		payments map[int]*tuition.Payment
	}

	attendanceTable struct {
		sync.RWMutex
		pk       int
		records  map[int]*attendance.Record
		teachers map[int]*attendance.TeacherRecord
		pickups  map[int]*attendance.Pickup
		notices  map[int]*attendance.PrincipalNotice
		settings *attendance.Settings
	}
)

func Open() *DB {
	return &DB{
		course: &courseTable{
			courses:  make(map[int]*course.Course),
			students: make(map[int]*course.Student),
			members:  make(map[int]*course.FamilyMember),
		},
		tuition: &tuitionTable{
			cuotas:   make(map[int]*tuition.Cuota),
			payments: make(map[int]*tuition.Payment),
		},
		attendance: &attendanceTable{
			records:  make(map[int]*attendance.Record),
			teachers: make(map[int]*attendance.TeacherRecord),
			pickups:  make(map[int]*attendance.Pickup),
			notices:  make(map[int]*attendance.PrincipalNotice),
		},
	}
}
