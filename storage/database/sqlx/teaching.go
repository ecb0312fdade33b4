package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core/teaching"
)

type (
	teachingRepository struct {
		db *sqlx.DB
	}

	teachingRow struct {
		ID               string    `db:"id"`
		RegistrationID   string    `db:"registration_id"`
		CourseID         string    `db:"course_id"`
		LecturerID       string    `db:"lecturer_id"`
		Group            int       `db:"group_number"`
		StartPeriod      int       `db:"start_period"`
		EndPeriod        int       `db:"end_period"`
		NumberOfStudents int       `db:"number_of_students"`
		CreatedAt        time.Time `db:"created_at"`
	}
)

var _ teaching.Repository = (*teachingRepository)(nil) // interface compliance check

func NewTeachingRepository(db *sqlx.DB) teaching.Repository {
	return &teachingRepository{db: db}
}

func (repo *teachingRepository) QueryTeachings(ctx context.Context, registrationID, lecturerID string) ([]teaching.Teaching, error) {
	var rows []teachingRow
	q := `SELECT id, registration_id, course_id, lecturer_id, group_number, start_period, end_period, number_of_students, created_at
		FROM teaching
		WHERE registration_id = $1 AND lecturer_id = $2
		ORDER BY course_id, group_number`
	if err := repo.db.SelectContext(ctx, &rows, q, registrationID, lecturerID); err != nil {
		return nil, errors.Wrap(err, "selecting teachings")
	}

	ts := make([]teaching.Teaching, 0, len(rows))
	for _, row := range rows {
		ts = append(ts, teaching.Teaching(row))
	}
	return ts, nil
}

func (repo *teachingRepository) CreateTeaching(ctx context.Context, t teaching.Teaching) (teaching.Teaching, error) {
	t.ID = uuid.NewString()
	q := `INSERT INTO teaching (id, registration_id, course_id, lecturer_id, group_number, start_period, end_period, number_of_students, created_at)
		VALUES (:id, :registration_id, :course_id, :lecturer_id, :group_number, :start_period, :end_period, :number_of_students, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, teachingRow(t)); err != nil {
		return teaching.Teaching{}, remoteError(err, "inserting teaching")
	}
	return t, nil
}

func (repo *teachingRepository) IsRegistrable(ctx context.Context, registrationID, courseID string) (bool, error) {
	var ok bool
	q := `SELECT EXISTS(SELECT 1 FROM registrable_course WHERE registration_id = $1 AND course_id = $2)`
	if err := repo.db.GetContext(ctx, &ok, q, registrationID, courseID); err != nil {
		return false, errors.Wrap(err, "selecting registrable course")
	}
	return ok, nil
}
