package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
	"github.com/trezcool/registrar/core/teaching"
	emailsvc "github.com/trezcool/registrar/services/email"
	logsvc "github.com/trezcool/registrar/services/logger"
	"github.com/trezcool/registrar/services/notify"
	"github.com/trezcool/registrar/storage/database"
	dummydb "github.com/trezcool/registrar/storage/database/dummy"
	sqlxrepos "github.com/trezcool/registrar/storage/database/sqlx"
)

type repositories struct {
	courses   course.Repository
	remote    registration.Remote
	teachings teaching.Repository
	close     func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up storage
	repos, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	registration.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	metrics, err := notify.NewMetricsNotifier(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal(fmt.Sprintf("registering metrics: %v", err), err)
	}
	feed := notify.NewFeed(conf.Registration.NotificationTTL)

	lc := registration.NewLifecycle(registration.LifecycleDeps{
		Remote: repos.remote,
		Notifier: notify.Multi{
			notify.NewLogNotifier(logger),
			feed,
			metrics,
			notify.NewMailNotifier(mailSvc, conf),
		},
		Logger:        logger,
		RemoteTimeout: conf.Registration.RemoteTimeout,
	})
	defer lc.Shutdown()

	courseSvc := course.NewService(repos.courses)
	teachingSvc := teaching.NewService(repos.teachings, repos.courses)

	// load the registrations of the open semester, closing the overdue one
	if err = loadRegistrations(conf, courseSvc, lc); err != nil {
		logger.Fatal(fmt.Sprintf("loading registrations: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Lifecycle:   lc,
		CourseSvc:   courseSvc,
		TeachingSvc: teachingSvc,
		Feed:        feed,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStorage(conf *core.Config) (repositories, error) {
	if conf.Registration.Storage == "memory" {
		db := dummydb.Open()
		return repositories{
			courses:   dummydb.NewCourseRepository(db),
			remote:    dummydb.NewRegistrationRepository(db),
			teachings: dummydb.NewTeachingRepository(db),
			close:     func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return repositories{}, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return repositories{}, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return repositories{}, err
	}
	return repositories{
		courses:   sqlxrepos.NewCourseRepository(db),
		remote:    sqlxrepos.NewRegistrationRepository(db),
		teachings: sqlxrepos.NewTeachingRepository(db),
		close:     db.Close,
	}, nil
}

func loadRegistrations(conf *core.Config, courseSvc *course.Service, lc *registration.Lifecycle) error {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Registration.RemoteTimeout)
	defer cancel()

	sem, err := courseSvc.OpenSemester(ctx)
	if err != nil || sem == nil {
		return err
	}
	return lc.Refresh(ctx, sem.ID)
}
