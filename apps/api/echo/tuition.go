package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/tuition"
)

type tuitionApi struct {
	svc      *tuition.Service
	validate *validator.Validate
}

func registerTuitionAPI(g *echo.Group, svc *tuition.Service, validate *validator.Validate) {
	api := tuitionApi{svc: svc, validate: validate}

	g.GET("/courses/:id/cuotas/:year/:month", api.cuota)
	g.GET("/students/:id/payments/:year", api.studentYear)

	pg := g.Group("/payments")
	pg.POST("", api.registerPayment)
	pg.GET("", api.payments)
	pg.GET("/overdue", api.overdue)

	tg := g.Group("/tuition")
	tg.GET("/due-date", api.dueDate)
	tg.POST("/classify", api.classify)
}

type (
	DueDateResponse struct {
		DueDate string `json:"due_date"`
	}

	ClassifyRequest struct {
		DueDate string    `json:"due_date" validate:"required,datetime=2006-01-02"`
		PaidAt  time.Time `json:"paid_at" validate:"required"`
	}

	ClassifyResponse struct {
		tuition.Classification
		Cutoff tuition.Cutoff `json:"cutoff"`
	}
)

func (cr *ClassifyRequest) Validate(validate *validator.Validate) error {
	cr.DueDate = core.CleanString(cr.DueDate)
	return validate.Struct(cr)
}

// Handlers

func (api *tuitionApi) cuota(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	month, err := intParam(ctx, "month")
	if err != nil {
		return err
	}

	cuota, err := api.svc.GetOrCreateCuota(ctx.Request().Context(), id, tuition.Period{Year: year, Month: month})
	if err != nil {
		return errors.Wrap(err, "getting cuota")
	}
	return ctx.JSON(http.StatusOK, cuota)
}

func (api *tuitionApi) registerPayment(ctx echo.Context) error {
	var data tuition.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.RegisterPayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *tuitionApi) payments(ctx echo.Context) error {
	var filter tuition.PaymentFilter
	var err error
	if filter.CourseID, err = intQuery(ctx, "course"); err != nil {
		return err
	}
	if filter.StudentID, err = intQuery(ctx, "student"); err != nil {
		return err
	}
	year, err := intQuery(ctx, "year")
	if err != nil {
		return err
	}
	if year != 0 {
		filter.From = tuition.Period{Year: year, Month: 1}
		filter.To = tuition.Period{Year: year, Month: 12}
	}

	payments, err := api.svc.Payments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *tuitionApi) studentYear(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}

	grid, err := api.svc.StudentYear(ctx.Request().Context(), id, year)
	if err != nil {
		return errors.Wrap(err, "getting student year")
	}
	return ctx.JSON(http.StatusOK, grid)
}

func (api *tuitionApi) overdue(ctx echo.Context) error {
	period, err := periodQuery(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.Overdue(ctx.Request().Context(), period)
	if err != nil {
		return errors.Wrap(err, "listing overdue cuotas")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *tuitionApi) dueDate(ctx echo.Context) error {
	period, err := periodQuery(ctx)
	if err != nil {
		return err
	}
	dueDay, err := intQuery(ctx, "due_day")
	if err != nil {
		return err
	}

	due, err := api.svc.DueDate(dueDay, period.Month, period.Year)
	if err != nil {
		cause := errors.Cause(err)
		field := "due_day"
		if cause == tuition.ErrInvalidMonth {
			field = "month"
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: cause.Error()})
	}
	return ctx.JSON(http.StatusOK, DueDateResponse{DueDate: due.Format(dateLayout)})
}

func (api *tuitionApi) classify(ctx echo.Context) error {
	var data ClassifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClassifyRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// due dates are calendar dates; Classify reads them in the configured location
	d, err := time.Parse(dateLayout, data.DueDate)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "due_date must be formatted as YYYY-MM-DD"})
	}
	due, err := api.svc.DueDate(d.Day(), int(d.Month()), d.Year())
	if err != nil {
		return errors.Wrap(err, "computing due date")
	}
	return ctx.JSON(http.StatusOK, ClassifyResponse{
		Classification: api.svc.Classify(due, data.PaidAt),
		Cutoff:         api.svc.Cutoff(),
	})
}

// periodQuery reads the required month & year query parameters.
func periodQuery(ctx echo.Context) (tuition.Period, error) {
	month, err := intQuery(ctx, "month")
	if err != nil {
		return tuition.Period{}, err
	}
	year, err := intQuery(ctx, "year")
	if err != nil {
		return tuition.Period{}, err
	}
	if month < 1 || month > 12 {
		return tuition.Period{}, core.NewValidationError(tuition.ErrInvalidMonth,
			core.FieldError{Field: "month", Error: tuition.ErrInvalidMonth.Error()})
	}
	if year < 1 {
		err = errors.New("year is required")
		return tuition.Period{}, core.NewValidationError(err, core.FieldError{Field: "year", Error: err.Error()})
	}
	return tuition.Period{Year: year, Month: month}, nil
}
