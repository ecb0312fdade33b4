package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
	logsvc "github.com/trezcool/registrar/services/logger"
	"github.com/trezcool/registrar/services/notify"
	"github.com/trezcool/registrar/storage/database"
	sqlxrepos "github.com/trezcool/registrar/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	errAndDie(logger, database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(logger, err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	registration.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		conf:      conf,
		validate:  validate,
		courseSvc: course.NewService(sqlxrepos.NewCourseRepository(db)),
		lc:        newLifecycle(conf, sqlxrepos.NewRegistrationRepository(db), notify.NewLogNotifier(logger), logger),
		out:       os.Stdout,
	}
	err = cli.run(os.Args)
	if err != nil && err != errHelp {
		logger.Error(err.Error(), err)
	}
	cli.lc.Shutdown()
	closeDB(logger, db.DB)
	logger.Close()

	if err != nil {
		os.Exit(1)
	}
}

func closeDB(logger core.Logger, db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Error("closing database", err)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
