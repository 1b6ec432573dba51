package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/tuition"
)

var (
	nowFunc = time.Now // mockable

	errHelp = errors.New("help provided")
)

type digester interface {
	RunOverdueDigest(ctx context.Context) error
}

type commandLine struct {
	db         *sql.DB
	courseSvc  *course.Service
	tuitionSvc *tuition.Service
	digest     digester
	loc        *time.Location
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]          - run a goose command (up, down, status, redo, version...)")
	fmt.Fprintln(cli.out, "  cuotas [-year YEAR] [-month MONTH] - create the cuotas of every course for a month")
	fmt.Fprintln(cli.out, "  overdue [-year YEAR] [-month MONTH] - list the students with an overdue cuota")
	fmt.Fprintln(cli.out, "  digest                             - email the principal this month's overdue digest")
}

// periodFlags registers -year and -month, defaulting to the current month.
func (cli *commandLine) periodFlags(fs *flag.FlagSet) (*int, *int) {
	now := nowFunc().In(cli.loc)
	year := fs.Int("year", now.Year(), "The year of the cuota.")
	month := fs.Int("month", int(now.Month()), "The month of the cuota (1-12).")
	return year, month
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(cli.out)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	cuotasCmd := flag.NewFlagSet("cuotas", flag.ContinueOnError)
	cuotasYear, cuotasMonth := cli.periodFlags(cuotasCmd)

	overdueCmd := flag.NewFlagSet("overdue", flag.ContinueOnError)
	overdueYear, overdueMonth := cli.periodFlags(overdueCmd)

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "cuotas":
		if err := cli.parse(cuotasCmd, args[2:]); err != nil {
			return err
		}
		return cli.createCuotas(ctx, tuition.Period{Year: *cuotasYear, Month: *cuotasMonth})
	case "overdue":
		if err := cli.parse(overdueCmd, args[2:]); err != nil {
			return err
		}
		return cli.listOverdue(ctx, tuition.Period{Year: *overdueYear, Month: *overdueMonth})
	case "digest":
		return cli.digest.RunOverdueDigest(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}
