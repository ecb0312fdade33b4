package dummydb

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/registrar/core/registration"
)

type registrationRepository struct {
	db      *registrationTable
	courses *courseTable
}

var _ registration.Remote = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *DB) registration.Remote {
	return &registrationRepository{db: db.registration, courses: db.course}
}

const msgReopen = "a closed registration cannot be reopened"

func conflict(msg string) error {
	return &registration.RemoteError{StatusCode: http.StatusConflict, Message: msg}
}

// check enforces the constraints the postgres schema enforces.
func (repo *registrationRepository) check(reg registration.Registration) error {
	if reg.EndDate.Before(reg.StartDate) {
		return &registration.RemoteError{StatusCode: http.StatusBadRequest, Message: "end date must not be before start date"}
	}
	for _, r := range repo.db.table {
		if r.ID == reg.ID || r.SemesterID != reg.SemesterID {
			continue
		}
		if r.Batch == reg.Batch {
			return conflict(fmt.Sprintf("batch %d already exists for this semester", reg.Batch))
		}
		if r.IsOpening && reg.IsOpening {
			return conflict("a registration is already open for this semester")
		}
	}
	return nil
}

func (repo *registrationRepository) CreateRegistration(_ context.Context, reg registration.Registration) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	reg.ID = uuid.NewString()
	if err := repo.check(reg); err != nil {
		return registration.Registration{}, err
	}
	stored := reg.Clone()
	repo.db.table[reg.ID] = &stored
	return reg, nil
}

func (repo *registrationRepository) UpdateRegistration(_ context.Context, reg registration.Registration) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[reg.ID]
	if !ok {
		return registration.Registration{}, &registration.RemoteError{
			StatusCode: http.StatusNotFound,
			Message:    "registration not found",
			Err:        registration.ErrNotFound,
		}
	}
	if !orig.IsOpening && reg.IsOpening {
		return registration.Registration{}, conflict(msgReopen)
	}
	if err := repo.check(reg); err != nil {
		return registration.Registration{}, err
	}
	reg.CreatedAt = orig.CreatedAt
	stored := reg.Clone()
	repo.db.table[reg.ID] = &stored
	return reg, nil
}

func (repo *registrationRepository) CreateRegistrableCourse(_ context.Context, rc registration.RegistrableCourse) (registration.RegistrableCourse, error) {
	repo.courses.RLock()
	_, courseExists := repo.courses.table[rc.CourseID]
	repo.courses.RUnlock()

	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[rc.RegistrationID]; !ok || !courseExists {
		return registration.RegistrableCourse{}, &registration.RemoteError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("unknown registration or course %q", rc.CourseID),
		}
	}
	for _, c := range repo.db.courses {
		if c.RegistrationID == rc.RegistrationID && c.CourseID == rc.CourseID {
			return registration.RegistrableCourse{}, conflict(fmt.Sprintf("course %q is already registrable", rc.CourseID))
		}
	}
	rc.ID = uuid.NewString()
	repo.db.courses[rc.ID] = &rc
	return rc, nil
}

func (repo *registrationRepository) QueryRegistrations(_ context.Context, semesterID string) ([]registration.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	regs := make([]registration.Registration, 0)
	for _, r := range repo.db.table {
		if r.SemesterID == semesterID {
			regs = append(regs, r.Clone())
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Batch < regs[j].Batch })
	return regs, nil
}

// RegistrableCourseIDs returns the ids of the courses made registrable for registrationID, sorted.
func (db *DB) RegistrableCourseIDs(registrationID string) []string {
	db.registration.RLock()
	defer db.registration.RUnlock()

	ids := make([]string, 0)
	for _, c := range db.registration.courses {
		if c.RegistrationID == registrationID {
			ids = append(ids, c.CourseID)
		}
	}
	sort.Strings(ids)
	return ids
}
