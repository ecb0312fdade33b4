package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
	"github.com/trezcool/registrar/core/teaching"
	"github.com/trezcool/registrar/services/notify"
	"github.com/trezcool/registrar/storage/database/dummy"
	"github.com/trezcool/registrar/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// flakyRemote fails the calls it is told to fail, and delegates the others.
type flakyRemote struct {
	registration.Remote

	mu        sync.Mutex
	createErr error
	updateErr error
}

func (r *flakyRemote) failCreate(err error) {
	r.mu.Lock()
	r.createErr = err
	r.mu.Unlock()
}

func (r *flakyRemote) failUpdate(err error) {
	r.mu.Lock()
	r.updateErr = err
	r.mu.Unlock()
}

func (r *flakyRemote) CreateRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	r.mu.Lock()
	err := r.createErr
	r.mu.Unlock()
	if err != nil {
		return registration.Registration{}, err
	}
	return r.Remote.CreateRegistration(ctx, reg)
}

func (r *flakyRemote) UpdateRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	r.mu.Lock()
	err := r.updateErr
	r.mu.Unlock()
	if err != nil {
		return registration.Registration{}, err
	}
	return r.Remote.UpdateRegistration(ctx, reg)
}

type noopTask struct{}

func (noopTask) Cancel() {}

// the auto-close timer is covered by the registration package
func noopSchedule(time.Duration, func()) registration.TaskHandle { return noopTask{} }

type testEnv struct {
	conf         *core.Config
	db           *dummydb.DB
	remote       *flakyRemote
	courseRepo   course.Repository
	teachingRepo teaching.Repository
	lc           *registration.Lifecycle
	feed         *notify.Feed
	logger       *testutil.Logger
	app          *Server
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := testutil.NewConfig()
	logger := new(testutil.Logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	registration.InitValidators(validate, translator)

	db := dummydb.Open()
	remote := &flakyRemote{Remote: dummydb.NewRegistrationRepository(db)}
	courseRepo := dummydb.NewCourseRepository(db)
	teachingRepo := dummydb.NewTeachingRepository(db)
	feed := notify.NewFeed(conf.Registration.NotificationTTL)

	lc := registration.NewLifecycle(registration.LifecycleDeps{
		Remote:        remote,
		Notifier:      notify.Multi{notify.NewLogNotifier(logger), feed},
		Logger:        logger,
		Schedule:      noopSchedule,
		RemoteTimeout: conf.Registration.RemoteTimeout,
	})
	t.Cleanup(lc.Shutdown)

	app := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Lifecycle:   lc,
		CourseSvc:   course.NewService(courseRepo),
		TeachingSvc: teaching.NewService(teachingRepo, courseRepo),
		Feed:        feed,
	})
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })

	return &testEnv{
		conf:         conf,
		db:           db,
		remote:       remote,
		courseRepo:   courseRepo,
		teachingRepo: teachingRepo,
		lc:           lc,
		feed:         feed,
		logger:       logger,
		app:          app,
	}
}

func (env *testEnv) token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	claims := GetUserClaims(env.conf, subject, subject, subject+"@test.cd", roles)
	token, err := GenerateToken(env.conf, claims)
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return token
}

func (env *testEnv) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	env.app.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(tt))
		})
	}
}
