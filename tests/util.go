package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
	"github.com/trezcool/registrar/core/teaching"
)

// NewConfig returns the config used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                    "TEST",
		Build:                  "test",
		TestMode:               true,
		AppName:                "Registrar",
		SecretKey:              "secret",
		NotificationRecipients: []string{"registrar@test.cd"},
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			DisableReqLogs:     true,
		},
		Registration: core.RegistrationConfig{
			Storage:         "memory",
			RemoteTimeout:   time.Second,
			NotificationTTL: time.Minute,
		},
	}
}

// LogEntry is a message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records what it is asked to log.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

func CreateSemester(t *testing.T, repo course.Repository, name string, isOpen bool) course.Semester {
	sem, err := repo.CreateSemester(context.Background(), course.Semester{
		Name:      name,
		IsOpen:    isOpen,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createSemester() failed: %v", err)
	}
	return sem
}

func CreateCourses(t *testing.T, repo course.Repository, ids ...string) []course.Course {
	courses := make([]course.Course, 0, len(ids))
	for i, id := range ids {
		c, err := repo.CreateCourse(context.Background(), course.Course{
			ID:        id,
			Name:      fmt.Sprintf("Course %s", id),
			Credits:   i + 1,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("createCourses() failed: %v", err)
		}
		courses = append(courses, c)
	}
	return courses
}

func CreateRegistration(
	t *testing.T,
	remote registration.Remote,
	semesterID string,
	batch int,
	isOpening bool,
	start, end time.Time,
) registration.Registration {
	now := time.Now().UTC()
	reg, err := remote.CreateRegistration(context.Background(), registration.Registration{
		Batch:      batch,
		SemesterID: semesterID,
		StartDate:  core.UTC(start),
		EndDate:    core.UTC(end),
		IsOpening:  isOpening,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("createRegistration() failed: %v", err)
	}
	return reg
}

func CreateTeaching(t *testing.T, repo teaching.Repository, registrationID, lecturerID, courseID string, group int) teaching.Teaching {
	tc, err := repo.CreateTeaching(context.Background(), teaching.Teaching{
		RegistrationID:   registrationID,
		CourseID:         courseID,
		LecturerID:       lecturerID,
		Group:            group,
		StartPeriod:      1,
		EndPeriod:        3,
		NumberOfStudents: 30,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createTeaching() failed: %v", err)
	}
	return tc
}
