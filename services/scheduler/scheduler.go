package schedulersvc

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/tuition"
)

const jobTimeout = 2 * time.Minute

var NowFunc = time.Now // mockable

// OverdueLister lists the unpaid cuotas of a period.
type OverdueLister interface {
	Overdue(ctx context.Context, period tuition.Period) ([]tuition.OverdueEntry, error)
}

// Scheduler runs the periodic jobs of the app.
type Scheduler struct {
	cron      *cron.Cron
	tuition   OverdueLister
	mailSvc   core.EmailService
	principal mail.Address
	loc       *time.Location
	logger    core.Logger
}

type digestData struct {
	Period  string
	Entries []tuition.OverdueEntry
}

func New(tuitionSvc OverdueLister, mailSvc core.EmailService, conf *core.Config, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		tuition:   tuitionSvc,
		mailSvc:   mailSvc,
		principal: conf.PrincipalEmail,
		loc:       conf.Location(),
		logger:    logger,
	}
	cl := cronLogger{logger}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(conf.Scheduler.OverdueDigestSpec, s.overdueDigestJob); err != nil {
		return nil, errors.Wrapf(err, "scheduling overdue digest (%s)", conf.Scheduler.OverdueDigestSpec)
	}
	return s, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling jobs. The returned context is done once running jobs complete.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

func (s *Scheduler) overdueDigestJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.RunOverdueDigest(ctx); err != nil {
		s.logger.Error("overdue digest", err)
	}
}

// RunOverdueDigest emails the principal the current month's overdue cuotas. Nothing is sent when all are paid.
func (s *Scheduler) RunOverdueDigest(ctx context.Context) error {
	period := tuition.PeriodOf(NowFunc().In(s.loc))
	entries, err := s.tuition.Overdue(ctx, period)
	if err != nil {
		return errors.Wrap(err, "listing overdue cuotas")
	}
	if len(entries) == 0 {
		s.logger.Info("overdue digest: nothing overdue", core.Fields{"period": period.String()})
		return nil
	}

	s.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{s.principal},
		Subject:      "Overdue tuition for " + period.String(),
		TemplateName: "overdue_digest",
		TemplateData: digestData{Period: period.String(), Entries: entries},
	})
	return nil
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	logger core.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, kvFields(keysAndValues))
}

func kvFields(keysAndValues []interface{}) core.Fields {
	flds := make(core.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			flds[k] = keysAndValues[i+1]
		}
	}
	return flds
}
