package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/registration"
	"github.com/trezcool/registrar/tests"
)

func openBody(t *testing.T, start, end time.Time, all bool, courseIDs ...string) []byte {
	body := map[string]interface{}{
		"apply_to_all_courses": all,
		"course_ids":           courseIDs,
	}
	if !start.IsZero() {
		body["start_date"] = start
	}
	if !end.IsZero() {
		body["end_date"] = end
	}
	return marshallObj(t, body)
}

func Test_registrationApi_open(t *testing.T) {
	env := setup(t)
	adminToken := env.token(t, "admin", core.RoleAdmin)
	teacherToken := env.token(t, "teacher", core.RoleTeacher)

	now := time.Now()
	start, end := now.Add(-time.Hour), now.Add(time.Hour)
	path := "/v1/registrations"

	runHTTPTests(t, env, []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: path, body: openBody(t, start, end, true),
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken),
		},
		{
			name: "Admin required", method: http.MethodPost, path: path, body: openBody(t, start, end, true), token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Missing dates", method: http.MethodPost, path: path, body: openBody(t, time.Time{}, time.Time{}, true), token: adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"start_date": "this field is required",
				"end_date":   "this field is required",
			}),
		},
		{
			name: "End before start", method: http.MethodPost, path: path, body: openBody(t, end, start, true), token: adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"end_date": "end date must not be before start date"}),
		},
		{
			name: "No course nor semester", method: http.MethodPost, path: path, body: openBody(t, start, end, true), token: adminToken,
			wantCode: http.StatusNoContent,
		},
	})
	assert.Empty(t, env.lc.Store().All())

	sem := testutil.CreateSemester(t, env.courseRepo, "2026-2027", true)
	testutil.CreateCourses(t, env.courseRepo, "INF101", "INF102", "MAT101")

	t.Run("Open", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost, path: path, body: openBody(t, start, end, false, "MAT101", " INF101 ", "UNKNOWN"),
			token: adminToken, wantCode: http.StatusCreated,
		}
		rec := env.do(tt)

		reg, ok := env.lc.Store().CurrentOpen()
		require.True(t, ok)
		tt.wantData = marshallObj(t, reg)
		checkCodeAndData(t, tt, rec)

		assert.Equal(t, sem.ID, reg.SemesterID)
		assert.Equal(t, 1, reg.Batch)
		assert.False(t, reg.IsHidden)
		assert.Equal(t, []string{"INF101", "MAT101"}, env.db.RegistrableCourseIDs(reg.ID))

		entries := env.feed.Recent()
		require.NotEmpty(t, entries)
		assert.Equal(t, registration.MsgOpened, entries[0].Message)
		assert.Equal(t, registration.SeveritySuccess, entries[0].Severity)
	})

	t.Run("Already open", func(t *testing.T) {
		rec := env.do(httpTest{method: http.MethodPost, path: path, body: openBody(t, start, end, true), token: adminToken})
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: registration.ErrAlreadyOpen.Error()}),
		}, rec)
		assert.Len(t, env.lc.Store().All(), 1)
		assert.Equal(t, registration.MsgAlreadyOpen, env.feed.Recent()[0].Message)
	})

	t.Run("Previous semester still open", func(t *testing.T) {
		testutil.CreateSemester(t, env.courseRepo, "2027-2028", true)

		rec := env.do(httpTest{method: http.MethodPost, path: path, body: openBody(t, start, end, true), token: adminToken})
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: registration.ErrOpenElsewhere.Error()}),
		}, rec)
		reg, ok := env.lc.Store().CurrentOpen()
		require.True(t, ok)
		assert.Equal(t, sem.ID, reg.SemesterID)
		assert.Equal(t, registration.MsgOpenElsewhere, env.feed.Recent()[0].Message)
	})
}

func Test_registrationApi_open_remoteFailure(t *testing.T) {
	env := setup(t)
	adminToken := env.token(t, "admin", core.RoleAdmin)
	testutil.CreateSemester(t, env.courseRepo, "2026-2027", true)
	testutil.CreateCourses(t, env.courseRepo, "INF101")

	now := time.Now()
	body := openBody(t, now, now.Add(time.Hour), true)

	env.remote.failCreate(&registration.RemoteError{StatusCode: http.StatusServiceUnavailable, Message: "registrations are read-only"})
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadGateway,
		wantData: marshallObj(t, httpErr{Error: "registrations are read-only"}),
	}, env.do(httpTest{method: http.MethodPost, path: "/v1/registrations", body: body, token: adminToken}))

	env.remote.failCreate(&registration.RemoteError{StatusCode: http.StatusInternalServerError})
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadGateway,
		wantData: marshallObj(t, httpErr{Error: registration.MsgOpenFailed}),
	}, env.do(httpTest{method: http.MethodPost, path: "/v1/registrations", body: body, token: adminToken}))

	assert.Empty(t, env.lc.Store().All())
	for _, e := range env.logger.Entries() {
		assert.NotEqual(t, "ERROR", e.Level, e.Msg)
	}

	// the next attempt goes through
	env.remote.failCreate(nil)
	rec := env.do(httpTest{method: http.MethodPost, path: "/v1/registrations", body: body, token: adminToken})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func Test_registrationApi_query(t *testing.T) {
	env := setup(t)
	adminToken := env.token(t, "admin", core.RoleAdmin)
	teacherToken := env.token(t, "teacher", core.RoleTeacher)

	sem := testutil.CreateSemester(t, env.courseRepo, "2026-2027", true)
	now := time.Now()
	reg1 := testutil.CreateRegistration(t, env.remote, sem.ID, 1, false, now.Add(-72*time.Hour), now.Add(-48*time.Hour))
	reg2 := testutil.CreateRegistration(t, env.remote, sem.ID, 2, false, now.Add(-24*time.Hour), now.Add(-12*time.Hour))
	reg3 := testutil.CreateRegistration(t, env.remote, sem.ID, 3, true, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, env.lc.Refresh(context.Background(), sem.ID))

	hidden := true
	reg2, err := env.lc.Edit(context.Background(), reg2.ID, registration.EditRegistration{IsHidden: &hidden})
	require.NoError(t, err)
	reg1, _ = env.lc.Store().Get(reg1.ID)
	reg3, _ = env.lc.Store().Get(reg3.ID)

	list := func(regs ...registration.Registration) []byte {
		return marshallObj(t, append([]registration.Registration{}, regs...))
	}

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", path: "/v1/registrations", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "Staff required", path: "/v1/registrations", token: env.token(t, "student", "student:"),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Admin sees hidden", path: "/v1/registrations", token: adminToken, wantCode: http.StatusOK, wantData: list(reg1, reg2, reg3)},
		{name: "Teacher does not", path: "/v1/registrations", token: teacherToken, wantCode: http.StatusOK, wantData: list(reg1, reg3)},
		{
			name: "order by -batch", path: "/v1/registrations?ordering=-batch", token: adminToken,
			wantCode: http.StatusOK, wantData: list(reg3, reg2, reg1),
		},
		{
			name: "order by is_hidden,-end_date", path: "/v1/registrations?ordering=is_hidden,-end_date", token: adminToken,
			wantCode: http.StatusOK, wantData: list(reg3, reg2, reg1),
		},
	})
}

func Test_registrationApi_retrieveOpen(t *testing.T) {
	env := setup(t)
	teacherToken := env.token(t, "teacher", core.RoleTeacher)

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marshallObj(t, httpErr{Error: "there is no open registration"}),
	}, env.do(httpTest{path: "/v1/registrations/open", token: teacherToken}))

	sem := testutil.CreateSemester(t, env.courseRepo, "2026-2027", true)
	now := time.Now()
	reg := testutil.CreateRegistration(t, env.remote, sem.ID, 1, true, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, env.lc.Refresh(context.Background(), sem.ID))

	rec := env.do(httpTest{path: "/v1/registrations/open", token: teacherToken})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OpenRegistrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, reg.ID, resp.Registration.ID)
	assert.InDelta(t, time.Hour.Seconds(), resp.RemainingSeconds, 60)
}

func Test_registrationApi_update(t *testing.T) {
	env := setup(t)
	adminToken := env.token(t, "admin", core.RoleAdmin)

	sem := testutil.CreateSemester(t, env.courseRepo, "2026-2027", true)
	now := core.UTC(time.Now())
	reg := testutil.CreateRegistration(t, env.remote, sem.ID, 1, true, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, env.lc.Refresh(context.Background(), sem.ID))
	path := "/v1/registrations/" + reg.ID

	runHTTPTests(t, env, []httpTest{
		{
			name: "Admin required", method: http.MethodPut, path: path, body: []byte(`{}`),
			token: env.token(t, "teacher", core.RoleTeacher), wantCode: http.StatusForbidden,
		},
		{
			name: "Unknown", method: http.MethodPut, path: "/v1/registrations/unknown", body: []byte(`{}`), token: adminToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "End before start", method: http.MethodPut, path: path,
			body: marshallObj(t, map[string]interface{}{"end_date": now.Add(-2 * time.Hour)}), token: adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"end_date": "end date must not be before start date"}),
		},
	})

	t.Run("Edit", func(t *testing.T) {
		newEnd := now.Add(48 * time.Hour)
		rec := env.do(httpTest{
			method: http.MethodPut, path: path, token: adminToken,
			body: marshallObj(t, map[string]interface{}{"end_date": newEnd, "is_hidden": true}),
		})
		got, _ := env.lc.Store().Get(reg.ID)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, got)}, rec)

		assert.True(t, newEnd.Equal(got.EndDate))
		assert.True(t, reg.StartDate.Equal(got.StartDate))
		assert.True(t, got.IsHidden)
		assert.True(t, got.IsOpening)
		assert.Equal(t, registration.MsgEdited, env.feed.Recent()[0].Message)
	})

	t.Run("Remote failure", func(t *testing.T) {
		env.remote.failUpdate(&registration.RemoteError{StatusCode: http.StatusConflict, Message: "registration is locked"})
		defer env.remote.failUpdate(nil)

		before, _ := env.lc.Store().Get(reg.ID)
		rec := env.do(httpTest{method: http.MethodPut, path: path, token: adminToken, body: []byte(`{"is_hidden": false}`)})
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadGateway,
			wantData: marshallObj(t, httpErr{Error: "registration is locked"}),
		}, rec)

		after, _ := env.lc.Store().Get(reg.ID)
		assert.Equal(t, before, after)
	})
}

func Test_registrationApi_close(t *testing.T) {
	env := setup(t)
	adminToken := env.token(t, "admin", core.RoleAdmin)

	sem := testutil.CreateSemester(t, env.courseRepo, "2026-2027", true)
	now := time.Now()
	reg := testutil.CreateRegistration(t, env.remote, sem.ID, 1, true, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, env.lc.Refresh(context.Background(), sem.ID))
	path := "/v1/registrations/" + reg.ID + "/close"

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marshallObj(t, httpErr{Error: "not found"}),
	}, env.do(httpTest{method: http.MethodPost, path: "/v1/registrations/unknown/close", token: adminToken}))

	// failure leaves the registration open
	env.remote.failUpdate(&registration.RemoteError{StatusCode: http.StatusInternalServerError})
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadGateway,
		wantData: marshallObj(t, httpErr{Error: registration.MsgCloseFailed}),
	}, env.do(httpTest{method: http.MethodPost, path: path, token: adminToken}))
	_, ok := env.lc.Store().CurrentOpen()
	assert.True(t, ok)
	assert.Equal(t, registration.SeverityError, env.feed.Recent()[0].Severity)

	env.remote.failUpdate(nil)
	rec := env.do(httpTest{method: http.MethodPost, path: path, token: adminToken})
	closed, _ := env.lc.Store().Get(reg.ID)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, closed)}, rec)

	assert.False(t, closed.IsOpening)
	assert.NotNil(t, closed.ClosedAt)
	_, ok = env.lc.Store().CurrentOpen()
	assert.False(t, ok)
	assert.Equal(t, registration.MsgClosed, env.feed.Recent()[0].Message)

	// closing again is a no-op
	rec = env.do(httpTest{method: http.MethodPost, path: path, token: adminToken})
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshallObj(t, closed)}, rec)
	assert.Equal(t, registration.MsgClosed, env.feed.Recent()[0].Message)

	// editing it afterwards keeps it closed
	rec = env.do(httpTest{
		method: http.MethodPut, path: "/v1/registrations/" + reg.ID, token: adminToken, body: []byte(`{"is_hidden": true}`),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	edited, _ := env.lc.Store().Get(reg.ID)
	assert.True(t, edited.IsHidden)
	assert.False(t, edited.IsOpening)
	regs, err := env.remote.QueryRegistrations(context.Background(), sem.ID)
	require.NoError(t, err)
	assert.False(t, regs[0].IsOpening)
}
