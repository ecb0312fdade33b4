package dummydb

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/registrar/core/registration"
	"github.com/trezcool/registrar/core/teaching"
)

type teachingRepository struct {
	db            *teachingTable
	courses       *courseTable
	registrations *registrationTable
}

var _ teaching.Repository = (*teachingRepository)(nil) // interface compliance check

func NewTeachingRepository(db *DB) teaching.Repository {
	return &teachingRepository{db: db.teaching, courses: db.course, registrations: db.registration}
}

func (repo *teachingRepository) QueryTeachings(_ context.Context, registrationID, lecturerID string) ([]teaching.Teaching, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ts := make([]teaching.Teaching, 0)
	for _, t := range repo.db.table {
		if t.RegistrationID == registrationID && t.LecturerID == lecturerID {
			ts = append(ts, *t)
		}
	}
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].CourseID != ts[j].CourseID {
			return ts[i].CourseID < ts[j].CourseID
		}
		return ts[i].Group < ts[j].Group
	})
	return ts, nil
}

// CreateTeaching enforces the foreign keys and checks the postgres schema enforces.
func (repo *teachingRepository) CreateTeaching(_ context.Context, t teaching.Teaching) (teaching.Teaching, error) {
	repo.courses.RLock()
	_, courseExists := repo.courses.table[t.CourseID]
	repo.courses.RUnlock()
	repo.registrations.RLock()
	_, regExists := repo.registrations.table[t.RegistrationID]
	repo.registrations.RUnlock()

	var msg string
	switch {
	case !courseExists:
		msg = fmt.Sprintf("unknown course %q", t.CourseID)
	case !regExists:
		msg = "unknown registration"
	case t.Group < 1:
		msg = "group must be 1 or greater"
	case t.EndPeriod < t.StartPeriod:
		msg = "end period must not be before start period"
	}
	if msg != "" {
		return teaching.Teaching{}, &registration.RemoteError{StatusCode: http.StatusBadRequest, Message: msg}
	}

	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.NewString()
	stored := t
	repo.db.table[t.ID] = &stored
	return t, nil
}

func (repo *teachingRepository) IsRegistrable(_ context.Context, registrationID, courseID string) (bool, error) {
	repo.registrations.RLock()
	defer repo.registrations.RUnlock()

	for _, c := range repo.registrations.courses {
		if c.RegistrationID == registrationID && c.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}
