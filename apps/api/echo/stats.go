package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core/stats"
)

type statsApi struct {
	svc *stats.Service
}

func registerStatsAPI(g *echo.Group, svc *stats.Service) {
	api := statsApi{svc: svc}

	sg := g.Group("/stats")
	sg.GET("/attendance", api.attendance)
	sg.GET("/payments", api.payments)
	sg.GET("/teachers", api.teachers)
}

func bindStatsFilter(ctx echo.Context) (stats.Filter, error) {
	var q StatsQuery
	if err := ctx.Bind(&q); err != nil {
		return stats.Filter{}, errors.Wrap(err, "binding to StatsQuery")
	}
	return q.Filter()
}

// Handlers

func (api *statsApi) attendance(ctx echo.Context) error {
	f, err := bindStatsFilter(ctx)
	if err != nil {
		return err
	}
	summary, err := api.svc.StudentAttendance(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "aggregating attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *statsApi) payments(ctx echo.Context) error {
	f, err := bindStatsFilter(ctx)
	if err != nil {
		return err
	}
	summary, err := api.svc.PaymentSummary(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "aggregating payments")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *statsApi) teachers(ctx echo.Context) error {
	f, err := bindStatsFilter(ctx)
	if err != nil {
		return err
	}
	summary, err := api.svc.TeacherAttendance(ctx.Request().Context(), f)
	if err != nil {
		return errors.Wrap(err, "aggregating teacher attendance")
	}
	return ctx.JSON(http.StatusOK, summary)
}
