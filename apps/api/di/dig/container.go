package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/jardin/apps/api/echo"
	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/attendance"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/stats"
	"github.com/trezcool/jardin/core/tuition"
	emailsvc "github.com/trezcool/jardin/services/email"
	logsvc "github.com/trezcool/jardin/services/logger"
	schedulersvc "github.com/trezcool/jardin/services/scheduler"
	"github.com/trezcool/jardin/storage/database"
	inmemdb "github.com/trezcool/jardin/storage/database/inmem"
	sqlxdb "github.com/trezcool/jardin/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage holds the repositories. DB is nil when they live in memory.
type Storage struct {
	dig.Out
	DB         *sqlx.DB
	Courses    course.Repository
	Tuition    tuition.Repository
	Attendance attendance.Repository
}

type serverParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	CourseSvc     *course.Service
	TuitionSvc    *tuition.Service
	AttendanceSvc *attendance.Service
	StatsSvc      *stats.Service
	Validate      *validator.Validate
	Translator    ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.IsInMem() {
		db := inmemdb.Open()
		return Storage{
			Courses:    inmemdb.NewCourseRepository(db),
			Tuition:    inmemdb.NewTuitionRepository(db),
			Attendance: inmemdb.NewAttendanceRepository(db),
		}
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Storage{
		DB:         db,
		Courses:    sqlxdb.NewCourseRepository(db),
		Tuition:    sqlxdb.NewTuitionRepository(db),
		Attendance: sqlxdb.NewAttendanceRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newScheduler(
	tuitionSvc *tuition.Service,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) (*schedulersvc.Scheduler, error) {
	return schedulersvc.New(tuitionSvc, mailSvc, conf, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		CourseSvc:     p.CourseSvc,
		TuitionSvc:    p.TuitionSvc,
		AttendanceSvc: p.AttendanceSvc,
		StatsSvc:      p.StatsSvc,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container.
// newConfig defaults to core.NewConfig.
func New(newConfig func() *core.Config) *dig.Container {
	if newConfig == nil {
		newConfig = core.NewConfig
	}
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(course.NewService))
	must(c.Provide(tuition.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(stats.NewService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
