package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core/tuition"
)

const dateLayout = "2006-01-02"

// createCuotas freezes the fee of every course for the period.
func (cli *commandLine) createCuotas(ctx context.Context, period tuition.Period) error {
	courses, err := cli.courseSvc.Query(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	for _, crs := range courses {
		cuota, err := cli.tuitionSvc.GetOrCreateCuota(ctx, crs.ID, period)
		if err != nil {
			return errors.Wrapf(err, "cuota of %s", crs.Name)
		}
		fmt.Fprintf(cli.out, "%s: %s due %s\n", crs.Name, cuota.Amount, cuota.DueDate.Format(dateLayout))
	}
	return nil
}

func (cli *commandLine) listOverdue(ctx context.Context, period tuition.Period) error {
	entries, err := cli.tuitionSvc.Overdue(ctx, period)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(cli.out, "Nothing overdue for %s.\n", period)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(cli.out, "%s (%s): %s due %s, %d day(s) late\n",
			e.StudentName, e.CourseName, e.Amount, e.DueDate.Format(dateLayout), e.DaysLate)
	}
	return nil
}
