package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/registrar/core/course"
)

type courseRepository struct {
	semesters *semesterTable
	courses   *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{semesters: db.semester, courses: db.course}
}

func (repo *courseRepository) QueryCourses(_ context.Context) ([]course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	courses := make([]course.Course, 0, len(repo.courses.table))
	for _, c := range repo.courses.table {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses, nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	if _, ok := repo.courses.table[c.ID]; ok {
		return course.Course{}, course.ErrCourseExists
	}
	repo.courses.table[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) GetOpenSemester(_ context.Context) (course.Semester, error) {
	repo.semesters.RLock()
	defer repo.semesters.RUnlock()

	for _, sem := range repo.semesters.table {
		if sem.IsOpen {
			return *sem, nil
		}
	}
	return course.Semester{}, course.ErrNoOpenSemester
}

func (repo *courseRepository) CreateSemester(_ context.Context, s course.Semester) (course.Semester, error) {
	repo.semesters.Lock()
	defer repo.semesters.Unlock()

	if s.IsOpen {
		for _, sem := range repo.semesters.table {
			sem.IsOpen = false
		}
	}
	s.ID = uuid.NewString()
	repo.semesters.table[s.ID] = &s
	return s, nil
}
