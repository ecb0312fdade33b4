package teaching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
)

var (
	// errors
	ErrNoOpenRegistration   = errors.New("there is no open registration")
	ErrCourseNotRegistrable = errors.New("course is not registrable")

	searchMinRatio = .7
)

type (
	Repository interface {
		// QueryTeachings returns the teachings of lecturerID for registrationID, ordered by course and group.
		QueryTeachings(ctx context.Context, registrationID, lecturerID string) ([]Teaching, error)
		CreateTeaching(ctx context.Context, t Teaching) (Teaching, error)
		// IsRegistrable reports whether courseID was made registrable for registrationID.
		IsRegistrable(ctx context.Context, registrationID, courseID string) (bool, error)
	}

	Service struct {
		repo    Repository
		courses course.Repository
	}
)

func NewService(repo Repository, courses course.Repository) *Service {
	return &Service{repo: repo, courses: courses}
}

// Rows returns the table rows of lecturerID for the open registration, filtered by search.
func (svc *Service) Rows(ctx context.Context, open *registration.Registration, lecturerID, search string) ([]Row, error) {
	if open == nil || !open.IsOpening {
		return nil, ErrNoOpenRegistration
	}

	teachings, err := svc.repo.QueryTeachings(ctx, open.ID, lecturerID)
	if err != nil {
		return nil, errors.Wrap(err, "querying teachings")
	}
	courses, err := svc.courses.QueryCourses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return Filter(MakeRows(teachings, courses), search), nil
}

// Create adds a teaching of lecturerID to the open registration, for one of its registrable courses.
func (svc *Service) Create(ctx context.Context, open *registration.Registration, lecturerID string, nt NewTeaching) (Teaching, error) {
	if open == nil || !open.IsOpening {
		return Teaching{}, ErrNoOpenRegistration
	}
	ok, err := svc.repo.IsRegistrable(ctx, open.ID, nt.CourseID)
	if err != nil {
		return Teaching{}, errors.Wrap(err, "checking registrable course")
	}
	if !ok {
		return Teaching{}, core.NewValidationError(
			ErrCourseNotRegistrable,
			core.FieldError{Field: "course_id", Error: "this course is not open for registration"},
		)
	}
	return svc.repo.CreateTeaching(ctx, Teaching{
		RegistrationID:   open.ID,
		CourseID:         nt.CourseID,
		LecturerID:       lecturerID,
		Group:            nt.Group,
		StartPeriod:      nt.StartPeriod,
		EndPeriod:        nt.EndPeriod,
		NumberOfStudents: nt.NumberOfStudents,
		CreatedAt:        time.Now().UTC(),
	})
}

// MakeRows joins teachings with their courses. Unknown courses give rows without name or credits.
func MakeRows(teachings []Teaching, courses []course.Course) []Row {
	idx := course.IndexByID(courses)
	rows := make([]Row, 0, len(teachings))
	for _, t := range teachings {
		c := idx[t.CourseID]
		rows = append(rows, Row{
			ID:               t.ID,
			CourseID:         t.CourseID,
			CourseName:       c.Name,
			Group:            t.Group,
			Period:           fmt.Sprintf("%d - %d", t.StartPeriod, t.EndPeriod),
			Credits:          c.Credits,
			NumberOfStudents: t.NumberOfStudents,
		})
	}
	return rows
}

// Filter keeps the rows whose course id or name contains search (case-insensitive),
// or whose course name is similar to it.
func Filter(rows []Row, search string) []Row {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return rows
	}

	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		id, name := strings.ToLower(row.CourseID), strings.ToLower(row.CourseName)
		if strings.Contains(id, search) || strings.Contains(name, search) || similar(name, search) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

func similar(s, search string) bool {
	if s == "" {
		return false
	}
	matcher := difflib.NewMatcher(strings.Split(s, ""), strings.Split(search, ""))
	return matcher.QuickRatio() >= searchMinRatio && matcher.Ratio() >= searchMinRatio
}
