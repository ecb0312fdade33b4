package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
	"github.com/trezcool/registrar/services/notify"
	dummydb "github.com/trezcool/registrar/storage/database/dummy"
	"github.com/trezcool/registrar/tests"
)

type cliEnv struct {
	cli        *commandLine
	out        *bytes.Buffer
	courseRepo course.Repository
	remote     registration.Remote
}

func setup(t *testing.T) *cliEnv {
	conf := testutil.NewConfig()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	registration.InitValidators(validate, translator)

	db := dummydb.Open()
	courseRepo := dummydb.NewCourseRepository(db)
	remote := dummydb.NewRegistrationRepository(db)
	logger := new(testutil.Logger)
	lc := newLifecycle(conf, remote, notify.NewLogNotifier(logger), logger)
	t.Cleanup(lc.Shutdown)

	var out bytes.Buffer
	return &cliEnv{
		cli: &commandLine{
			conf:      conf,
			validate:  validate,
			courseSvc: course.NewService(courseRepo),
			lc:        lc,
			out:       &out,
		},
		out:        &out,
		courseRepo: courseRepo,
		remote:     remote,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, wantErr %v%s", tt.wantErr, tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_run(t *testing.T) {
	env := setup(t)

	runCLITests(t, env.cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, env.out.String(), "closeregistration [-yes]")
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, env.cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "teaching_room", "sql"}},
	})
}

func Test_commandLine_addSemester(t *testing.T) {
	env := setup(t)

	runCLITests(t, env.cli, []cliTest{
		{name: "no args", args: []string{"addsemester"}, wantErr: errHelp},
		{name: "blank name", args: []string{"addsemester", "-name", "  "}, wantErrStr: "Key: 'NewSemester.name' Error:Field validation for 'name' failed on the 'notblank' tag"},
		{name: "closed semester", args: []string{"addsemester", "-name", "2025-2026"}},
		{name: "open semester", args: []string{"addsemester", "-name", " 2026-2027 ", "-open"}},
	})

	sem, err := env.cli.courseSvc.OpenSemester(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sem)
	assert.Equal(t, "2026-2027", sem.Name)
	assert.Contains(t, env.out.String(), `semester "2026-2027" created`)
}

func Test_commandLine_addCourse(t *testing.T) {
	env := setup(t)

	runCLITests(t, env.cli, []cliTest{
		{name: "no args", args: []string{"addcourse"}, wantErr: errHelp},
		{name: "no name", args: []string{"addcourse", "-id", "INF101"}, wantErr: errHelp},
		{name: "add", args: []string{"addcourse", "-id", "inf101", "-name", "Algorithms", "-credits", "6"}},
		{name: "duplicate", args: []string{"addcourse", "-id", "INF101", "-name", "Algorithms II"}, wantErrStr: course.ErrCourseExists.Error()},
	})

	courses, err := env.cli.courseSvc.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "INF101", courses[0].ID)
	assert.Equal(t, 6, courses[0].Credits)
}

func Test_commandLine_token(t *testing.T) {
	env := setup(t)

	runCLITests(t, env.cli, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"token", "-subject", "42", "-roles", "admin:,janitor:"}, wantErrStr: `"janitor:": unknown role`},
	})

	env.out.Reset()
	require.NoError(t, env.cli.run([]string{"admin", "token", "-subject", "42", "-username", "jdoe", "-roles", " Teacher: "}))

	claims := new(echoapi.Claims)
	token, err := jwt.ParseWithClaims(strings.TrimSpace(env.out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(env.cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "jdoe", claims.Username)
	assert.True(t, claims.IsTeacher)
	assert.False(t, claims.IsAdmin)
}

func Test_commandLine_closeRegistration(t *testing.T) {
	env := setup(t)

	orig := confirmFunc
	t.Cleanup(func() { confirmFunc = orig })
	var confirmed bool
	confirmFunc = func(string) bool { return confirmed }

	runCLITests(t, env.cli, []cliTest{
		{name: "no semester", args: []string{"closeregistration", "-yes"}, wantErr: errNoOpenRegistration},
	})

	sem := testutil.CreateSemester(t, env.courseRepo, "2026-2027", true)
	now := time.Now()
	testutil.CreateRegistration(t, env.remote, sem.ID, 1, false, now.Add(-72*time.Hour), now.Add(-48*time.Hour))

	runCLITests(t, env.cli, []cliTest{
		{name: "nothing open", args: []string{"closeregistration", "-yes"}, wantErr: errNoOpenRegistration},
	})

	reg := testutil.CreateRegistration(t, env.remote, sem.ID, 2, true, now.Add(-time.Hour), now.Add(time.Hour))

	runCLITests(t, env.cli, []cliTest{
		{name: "not confirmed", args: []string{"closeregistration"}, wantErr: errNotConfirmed},
	})
	_, ok := env.cli.lc.Store().CurrentOpen()
	assert.True(t, ok)

	confirmed = true
	runCLITests(t, env.cli, []cliTest{
		{name: "confirmed", args: []string{"closeregistration"}},
	})

	regs, err := env.remote.QueryRegistrations(context.Background(), sem.ID)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, reg.ID, regs[1].ID)
	assert.False(t, regs[1].IsOpening)
	assert.NotNil(t, regs[1].ClosedAt)
	assert.Contains(t, env.out.String(), "registration #2 closed")
}

func Test_commandLine_closeRegistration_overdue(t *testing.T) {
	env := setup(t)

	sem := testutil.CreateSemester(t, env.courseRepo, "2026-2027", true)
	now := time.Now()
	reg := testutil.CreateRegistration(t, env.remote, sem.ID, 1, true, now.Add(-72*time.Hour), now.Add(-time.Hour))

	// give a timer, were one armed, the time to fire
	require.NoError(t, env.cli.lc.Refresh(context.Background(), sem.ID))
	time.Sleep(50 * time.Millisecond)
	stored, ok := env.cli.lc.Store().Get(reg.ID)
	require.True(t, ok)
	assert.True(t, stored.IsOpening, "only the command closes registrations")

	runCLITests(t, env.cli, []cliTest{
		{name: "overdue", args: []string{"closeregistration", "-yes"}},
	})
	assert.Contains(t, env.out.String(), "registration #1 closed")

	regs, err := env.remote.QueryRegistrations(context.Background(), sem.ID)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.False(t, regs[0].IsOpening)
}

func Test_neverSchedule(t *testing.T) {
	ran := make(chan struct{}, 1)
	task := neverSchedule(0, func() { ran <- struct{}{} })
	task.Cancel()

	select {
	case <-ran:
		t.Fatal("neverSchedule() ran the task")
	case <-time.After(50 * time.Millisecond):
	}
}
