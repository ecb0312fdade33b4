package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/registrar/core"
)

type Course struct {
	ID        string    `json:"id"` // course code, e.g. "CS-101"
	Name      string    `json:"name"`
	Credits   int       `json:"credits"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Semester struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsOpen    bool      `json:"is_open"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	ID      string `json:"id" validate:"required,coursecode"`
	Name    string `json:"name" validate:"required,notblank"`
	Credits int    `json:"credits" validate:"min=0,max=30"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.ID = strings.ToUpper(core.CleanString(nc.ID))
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// NewSemester contains information needed to create a new Semester.
type NewSemester struct {
	Name   string `json:"name" validate:"required,notblank"`
	IsOpen bool   `json:"is_open"`
}

func (ns *NewSemester) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// IndexByID indexes courses by their ID.
func IndexByID(courses []Course) map[string]Course {
	idx := make(map[string]Course, len(courses))
	for _, c := range courses {
		idx[c.ID] = c
	}
	return idx
}
