// Package sqlxrepos implements the repositories on postgres, with sqlx.
package sqlxrepos

import (
	"database/sql"
	"net/http"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core/registration"
)

// postgres error codes
const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")
	checkViolation      = pq.ErrorCode("23514")
)

const msgReopen = "a closed registration cannot be reopened"

// constraint messages, shown to users as is
var constraintMessages = map[string]string{
	"registration_single_opening_idx":         "a registration is already open for this semester",
	"registration_semester_batch_key":         "this batch already exists for the semester",
	"registration_date_range_chk":             "end date must not be before start date",
	"registrable_course_key":                  "this course is already registrable",
	"registrable_course_course_id_fkey":       "unknown course",
	"registrable_course_registration_id_fkey": "unknown registration",
	"teaching_course_id_fkey":                 "unknown course",
	"teaching_registration_id_fkey":           "unknown registration",
	"teaching_group_number_check":             "group must be 1 or greater",
	"teaching_period_chk":                     "end period must not be before start period",
}

// remoteError turns postgres constraint violations into *registration.RemoteError.
func remoteError(err error, op string) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		if errors.Is(err, sql.ErrNoRows) {
			return &registration.RemoteError{StatusCode: http.StatusNotFound, Message: "registration not found", Err: registration.ErrNotFound}
		}
		return errors.Wrap(err, op)
	}

	status := http.StatusInternalServerError
	switch pqErr.Code {
	case uniqueViolation:
		status = http.StatusConflict
	case foreignKeyViolation, checkViolation:
		status = http.StatusBadRequest
	}
	return &registration.RemoteError{
		StatusCode: status,
		Message:    constraintMessages[pqErr.Constraint],
		Err:        errors.Wrap(pqErr, op),
	}
}
