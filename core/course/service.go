package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
)

var (
	// errors
	ErrNotFound       = errors.New("course not found")
	ErrNoOpenSemester = errors.New("there is no open semester")
	ErrCourseExists   = errors.New("a course with this id already exists")
)

type (
	Repository interface {
		QueryCourses(ctx context.Context) ([]Course, error)
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// GetOpenSemester returns ErrNoOpenSemester when no semester is open.
		GetOpenSemester(ctx context.Context) (Semester, error)
		// CreateSemester closes every other semester when s.IsOpen.
		CreateSemester(ctx context.Context, s Semester) (Semester, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Courses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

// OpenSemester returns nil when there is no open semester.
func (svc *Service) OpenSemester(ctx context.Context) (*Semester, error) {
	sem, err := svc.repo.GetOpenSemester(ctx)
	if err != nil {
		if errors.Is(err, ErrNoOpenSemester) {
			return nil, nil
		}
		return nil, err
	}
	return &sem, nil
}

func (svc *Service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	c, err := svc.repo.CreateCourse(ctx, Course{
		ID:        nc.ID,
		Name:      nc.Name,
		Credits:   nc.Credits,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, ErrCourseExists) {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "id", Error: err.Error()})
	}
	return c, err
}

func (svc *Service) CreateSemester(ctx context.Context, ns NewSemester) (Semester, error) {
	return svc.repo.CreateSemester(ctx, Semester{
		Name:      ns.Name,
		IsOpen:    ns.IsOpen,
		CreatedAt: time.Now().UTC(),
	})
}
