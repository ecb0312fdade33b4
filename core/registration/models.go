package registration

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/registrar/core"
)

type Registration struct {
	ID         string     `json:"id"`
	Batch      int        `json:"batch"`
	SemesterID string     `json:"semester_id"`
	StartDate  time.Time  `json:"start_date"` // UTC
	EndDate    time.Time  `json:"end_date"`   // UTC
	IsOpening  bool       `json:"is_opening"`
	IsHidden   bool       `json:"is_hidden"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
	UpdatedAt  time.Time  `json:"updated_at"` // UTC
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// Clone returns a deep copy of r, safe to mutate while r is still displayed.
func (r Registration) Clone() Registration {
	cp := r
	if r.ClosedAt != nil {
		closedAt := *r.ClosedAt
		cp.ClosedAt = &closedAt
	}
	return cp
}

// Remaining returns the time left until r auto-closes, zero when it is closed or overdue.
func (r Registration) Remaining(now time.Time) time.Duration {
	if !r.IsOpening {
		return 0
	}
	if d := r.EndDate.Sub(now); d > 0 {
		return d
	}
	return 0
}

type RegistrableCourse struct {
	ID             string    `json:"id"`
	RegistrationID string    `json:"registration_id"`
	CourseID       string    `json:"course_id"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}

// OpenRequest contains information needed to open a new Registration.
type OpenRequest struct {
	StartDate         time.Time `json:"start_date" validate:"required"`
	EndDate           time.Time `json:"end_date" validate:"required"`
	ApplyToAllCourses bool      `json:"apply_to_all_courses"`
	CourseIDs         []string  `json:"course_ids"` // ignored when ApplyToAllCourses
}

func (req *OpenRequest) Validate(validate *validator.Validate) error {
	req.StartDate = core.UTC(req.StartDate)
	req.EndDate = core.UTC(req.EndDate)
	req.CourseIDs = core.CleanStrings(req.CourseIDs)
	return validate.Struct(req)
}

// EditRegistration defines what information may be provided to modify an existing Registration.
type EditRegistration struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsHidden  *bool     `json:"is_hidden"`
}

// Validate fills the zero dates with those of orig before validating.
func (er *EditRegistration) Validate(orig Registration, validate *validator.Validate) error {
	if er.StartDate.IsZero() {
		er.StartDate = orig.StartDate
	}
	if er.EndDate.IsZero() {
		er.EndDate = orig.EndDate
	}
	er.StartDate = core.UTC(er.StartDate)
	er.EndDate = core.UTC(er.EndDate)
	return validate.Struct(er)
}

// apply returns a copy of reg carrying the edited fields.
func (er EditRegistration) apply(reg Registration) Registration {
	edited := reg.Clone()
	if !er.StartDate.IsZero() {
		edited.StartDate = er.StartDate
	}
	if !er.EndDate.IsZero() {
		edited.EndDate = er.EndDate
	}
	if er.IsHidden != nil {
		edited.IsHidden = *er.IsHidden
	}
	return edited
}
