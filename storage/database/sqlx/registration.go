package sqlxrepos

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/registrar/core/registration"
)

type (
	registrationRepository struct {
		db *sqlx.DB
	}

	registrationRow struct {
		ID         string    `db:"id"`
		Batch      int       `db:"batch"`
		SemesterID string    `db:"semester_id"`
		StartDate  time.Time `db:"start_date"`
		EndDate    time.Time `db:"end_date"`
		IsOpening  bool      `db:"is_opening"`
		IsHidden   bool      `db:"is_hidden"`
		CreatedAt  time.Time `db:"created_at"`
		UpdatedAt  time.Time `db:"updated_at"`
		ClosedAt   null.Time `db:"closed_at"`
	}
)

var _ registration.Remote = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *sqlx.DB) registration.Remote {
	return &registrationRepository{db: db}
}

func toRegistrationRow(reg registration.Registration) registrationRow {
	return registrationRow{
		ID:         reg.ID,
		Batch:      reg.Batch,
		SemesterID: reg.SemesterID,
		StartDate:  reg.StartDate.UTC(),
		EndDate:    reg.EndDate.UTC(),
		IsOpening:  reg.IsOpening,
		IsHidden:   reg.IsHidden,
		CreatedAt:  reg.CreatedAt.UTC(),
		UpdatedAt:  reg.UpdatedAt.UTC(),
		ClosedAt:   null.TimeFromPtr(reg.ClosedAt),
	}
}

func (row registrationRow) registration() registration.Registration {
	return registration.Registration{
		ID:         row.ID,
		Batch:      row.Batch,
		SemesterID: row.SemesterID,
		StartDate:  row.StartDate.UTC(),
		EndDate:    row.EndDate.UTC(),
		IsOpening:  row.IsOpening,
		IsHidden:   row.IsHidden,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
		ClosedAt:   row.ClosedAt.Ptr(),
	}
}

const registrationColumns = `id, batch, semester_id, start_date, end_date, is_opening, is_hidden, created_at, updated_at, closed_at`

func (repo *registrationRepository) CreateRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	reg.ID = uuid.NewString()
	q := `INSERT INTO registration (` + registrationColumns + `)
		VALUES (:id, :batch, :semester_id, :start_date, :end_date, :is_opening, :is_hidden, :created_at, :updated_at, :closed_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toRegistrationRow(reg)); err != nil {
		return registration.Registration{}, remoteError(err, "inserting registration")
	}
	return reg, nil
}

func (repo *registrationRepository) UpdateRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	q := `UPDATE registration
		SET start_date = :start_date, end_date = :end_date, is_opening = :is_opening, is_hidden = :is_hidden,
			updated_at = :updated_at, closed_at = :closed_at
		WHERE id = :id AND (is_opening OR NOT :is_opening)
		RETURNING ` + registrationColumns
	rows, err := repo.db.NamedQueryContext(ctx, q, toRegistrationRow(reg))
	if err != nil {
		return registration.Registration{}, remoteError(err, "updating registration")
	}
	defer func() { _ = rows.Close() }()

	var row registrationRow
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return registration.Registration{}, remoteError(err, "updating registration")
		}
		return registration.Registration{}, repo.noRowUpdated(ctx, reg.ID)
	}
	if err = rows.StructScan(&row); err != nil {
		return registration.Registration{}, remoteError(err, "scanning registration")
	}
	return row.registration(), nil
}

// noRowUpdated tells a missing registration from a closed one the update tried to reopen.
func (repo *registrationRepository) noRowUpdated(ctx context.Context, id string) error {
	var exists bool
	if err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM registration WHERE id = $1)`, id); err != nil {
		return remoteError(err, "checking registration")
	}
	if exists {
		return &registration.RemoteError{StatusCode: http.StatusConflict, Message: msgReopen}
	}
	return remoteError(sql.ErrNoRows, "updating registration")
}

func (repo *registrationRepository) CreateRegistrableCourse(ctx context.Context, rc registration.RegistrableCourse) (registration.RegistrableCourse, error) {
	rc.ID = uuid.NewString()
	q := `INSERT INTO registrable_course (id, registration_id, course_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, rc.ID, rc.RegistrationID, rc.CourseID, rc.CreatedAt.UTC()); err != nil {
		return registration.RegistrableCourse{}, remoteError(err, "inserting registrable course")
	}
	return rc, nil
}

func (repo *registrationRepository) QueryRegistrations(ctx context.Context, semesterID string) ([]registration.Registration, error) {
	var rows []registrationRow
	q := `SELECT ` + registrationColumns + ` FROM registration WHERE semester_id = $1 ORDER BY batch`
	if err := repo.db.SelectContext(ctx, &rows, q, semesterID); err != nil {
		return nil, remoteError(err, "selecting registrations")
	}

	regs := make([]registration.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.registration())
	}
	return regs, nil
}
