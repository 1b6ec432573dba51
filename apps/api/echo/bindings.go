package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/attendance"
	"github.com/trezcool/jardin/core/stats"
)

var orderingParam = "ordering"

const dateLayout = "2006-01-02"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// intParam reads a positive integer path parameter.
func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// intQuery reads an optional integer query parameter (0 when absent).
func intQuery(ctx echo.Context, name string) (int, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		err = errors.Errorf("%s must be an integer", name)
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: err.Error()})
	}
	return n, nil
}

func parseDateQuery(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		err = errors.New("date must be formatted as YYYY-MM-DD")
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: "date", Error: err.Error()})
	}
	return d, nil
}

// RecordQuery holds the query parameters of the attendance history endpoints.
type RecordQuery struct {
	Date   string `query:"date"`
	Course int    `query:"course"`
	Person int    `query:"person"`
}

// Filter narrows the rows to a single day when a date is given.
func (q RecordQuery) Filter() (attendance.RecordFilter, error) {
	f := attendance.RecordFilter{CourseID: q.Course, PersonID: q.Person}
	if q.Date != "" {
		d, err := parseDateQuery(q.Date)
		if err != nil {
			return attendance.RecordFilter{}, err
		}
		f.From, f.To = d, d
	}
	return f, nil
}

// StatsQuery holds the query parameters shared by the stats endpoints.
type StatsQuery struct {
	Period string `query:"period"`
	Date   string `query:"date"`
	Course int    `query:"course"`
	Person int    `query:"person"`
}

func (q StatsQuery) Filter() (stats.Filter, error) {
	period, err := stats.ParsePeriod(q.Period)
	if err != nil {
		return stats.Filter{}, core.NewValidationError(err, core.FieldError{Field: "period", Error: stats.ErrInvalidPeriod.Error()})
	}
	f := stats.Filter{Period: period, CourseID: q.Course, PersonID: q.Person}
	if q.Date != "" {
		if f.Anchor, err = parseDateQuery(q.Date); err != nil {
			return stats.Filter{}, err
		}
	}
	return f, nil
}
