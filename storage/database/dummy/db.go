// Package dummydb is an in-memory database, used by tests and by the "memory" storage backend.
package dummydb

import (
	"sync"

	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
	"github.com/trezcool/registrar/core/teaching"
)

type (
	DB struct {
		semester     *semesterTable
		course       *courseTable
		registration *registrationTable
		teaching     *teachingTable
	}

	semesterTable struct {
		sync.RWMutex
		table map[string]*course.Semester
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	registrationTable struct {
		sync.RWMutex
		table   map[string]*registration.Registration
		courses map[string]*registration.RegistrableCourse
	}

	teachingTable struct {
		sync.RWMutex
		table map[string]*teaching.Teaching
	}
)

func Open() *DB {
	db := &DB{
		semester: &semesterTable{table: make(map[string]*course.Semester)},
		course:   &courseTable{table: make(map[string]*course.Course)},
		registration: &registrationTable{
			table:   make(map[string]*registration.Registration),
			courses: make(map[string]*registration.RegistrableCourse),
		},
		teaching: &teachingTable{table: make(map[string]*teaching.Teaching)},
	}
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.semester.Lock()
	db.semester.table = make(map[string]*course.Semester)
	db.semester.Unlock()

	db.course.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.Unlock()

	db.registration.Lock()
	db.registration.table = make(map[string]*registration.Registration)
	db.registration.courses = make(map[string]*registration.RegistrableCourse)
	db.registration.Unlock()

	db.teaching.Lock()
	db.teaching.table = make(map[string]*teaching.Teaching)
	db.teaching.Unlock()
}
