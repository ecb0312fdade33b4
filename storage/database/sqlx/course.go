package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	q := `SELECT id, name, credits, created_at AS createdat FROM course ORDER BY id`
	if err := repo.db.SelectContext(ctx, &courses, q); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	return courses, nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	q := `INSERT INTO course (id, name, credits, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, c.ID, c.Name, c.Credits, c.CreatedAt.UTC()); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return course.Course{}, course.ErrCourseExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) GetOpenSemester(ctx context.Context) (course.Semester, error) {
	var sem course.Semester
	q := `SELECT id, name, is_open AS isopen, created_at AS createdat FROM semester WHERE is_open LIMIT 1`
	if err := repo.db.GetContext(ctx, &sem, q); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return course.Semester{}, course.ErrNoOpenSemester
		}
		return course.Semester{}, errors.Wrap(err, "selecting open semester")
	}
	return sem, nil
}

func (repo *courseRepository) CreateSemester(ctx context.Context, s course.Semester) (course.Semester, error) {
	s.ID = uuid.NewString()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Semester{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if s.IsOpen {
		if _, err = tx.ExecContext(ctx, `UPDATE semester SET is_open = false WHERE is_open`); err != nil {
			return course.Semester{}, errors.Wrap(err, "closing semesters")
		}
	}
	q := `INSERT INTO semester (id, name, is_open, created_at) VALUES ($1, $2, $3, $4)`
	if _, err = tx.ExecContext(ctx, q, s.ID, s.Name, s.IsOpen, s.CreatedAt.UTC()); err != nil {
		return course.Semester{}, errors.Wrap(err, "inserting semester")
	}
	if err = tx.Commit(); err != nil {
		return course.Semester{}, errors.Wrap(err, "committing semester")
	}
	return s, nil
}
