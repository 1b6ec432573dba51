package main

import (
	"log"
	"os"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/tuition"
	emailsvc "github.com/trezcool/jardin/services/email"
	logsvc "github.com/trezcool/jardin/services/logger"
	schedulersvc "github.com/trezcool/jardin/services/scheduler"
	"github.com/trezcool/jardin/storage/database"
	sqlxdb "github.com/trezcool/jardin/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	// set up services
	core.ParseEmailTemplates(logger)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	courseRepo := sqlxdb.NewCourseRepository(db)
	tuitionSvc, err := tuition.NewService(sqlxdb.NewTuitionRepository(db), courseRepo, conf)
	if err != nil {
		_ = db.Close()
		logger.Fatal("setting up tuition service", err)
	}
	scheduler, err := schedulersvc.New(tuitionSvc, mailSvc, conf, logger)
	if err != nil {
		_ = db.Close()
		logger.Fatal("setting up scheduler", err)
	}

	// start CLI
	cli := commandLine{
		db:         db.DB,
		courseSvc:  course.NewService(courseRepo),
		tuitionSvc: tuitionSvc,
		digest:     scheduler,
		loc:        conf.Location(),
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}
