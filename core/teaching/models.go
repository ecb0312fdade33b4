package teaching

import "time"

// Teaching is a lecturer's class for a course during a registration.
type Teaching struct {
	ID               string    `json:"id"`
	RegistrationID   string    `json:"registration_id"`
	CourseID         string    `json:"course_id"`
	LecturerID       string    `json:"lecturer_id"`
	Group            int       `json:"group"`
	StartPeriod      int       `json:"start_period"`
	EndPeriod        int       `json:"end_period"`
	NumberOfStudents int       `json:"number_of_students"`
	CreatedAt        time.Time `json:"created_at"` // UTC
}

// Row is a line of the lecturer registration table.
type Row struct {
	ID               string `json:"id"`
	CourseID         string `json:"course_id"`
	CourseName       string `json:"course_name"`
	Group            int    `json:"group"`
	Period           string `json:"period"` // "start - end"
	Credits          int    `json:"credits"`
	NumberOfStudents int    `json:"number_of_students"`
}

// NewTeaching contains information needed to create a new Teaching.
type NewTeaching struct {
	CourseID         string `json:"course_id" validate:"required,coursecode"`
	Group            int    `json:"group" validate:"min=1"`
	StartPeriod      int    `json:"start_period" validate:"min=1"`
	EndPeriod        int    `json:"end_period" validate:"gtefield=StartPeriod"`
	NumberOfStudents int    `json:"number_of_students" validate:"min=0"`
}
