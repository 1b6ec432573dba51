package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core/attendance"
)

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}

	ag := g.Group("/attendance")
	ag.GET("/records", api.records)
	ag.POST("/roll-call", api.rollCall)
	ag.GET("/pickups", api.pickups)
	ag.POST("/pickups", api.registerPickup)
	ag.GET("/courses-in-window", api.coursesInWindow)

	tg := ag.Group("/teachers")
	tg.GET("", api.teacherRecords)
	tg.POST("/check-in", api.teacherAction(svc.CheckIn, "checking in"))
	tg.POST("/check-out", api.teacherAction(svc.CheckOut, "checking out"))
	tg.POST("/absent", api.teacherAction(svc.MarkAbsent, "marking absent"))
	tg.POST("/notify", api.notify)

	ng := ag.Group("/notices")
	ng.GET("/pending", api.pendingNotices)
	ng.POST("/:id/process", api.processNotice)

	sg := ag.Group("/settings")
	sg.GET("", api.settings)
	sg.PUT("", api.setSettings)
	sg.POST("/toggle", api.toggleRegistration)
}

type teacherActionFunc func(ctx context.Context, ct attendance.CourseTeacher) (attendance.TeacherRecord, error)

// TeacherRecordResponse is a teacher record along with its derived status.
type TeacherRecordResponse struct {
	attendance.TeacherRecord
	Status string `json:"status"`
}

func teacherRecordResponses(recs []attendance.TeacherRecord) []TeacherRecordResponse {
	resp := make([]TeacherRecordResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, TeacherRecordResponse{TeacherRecord: rec, Status: rec.Status()})
	}
	return resp
}

// Handlers

func bindRecordFilter(ctx echo.Context) (attendance.RecordFilter, error) {
	var query RecordQuery
	if err := ctx.Bind(&query); err != nil {
		return attendance.RecordFilter{}, errors.Wrap(err, "binding to RecordQuery")
	}
	return query.Filter()
}

func (api *attendanceApi) records(ctx echo.Context) error {
	filter, err := bindRecordFilter(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.Records(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendance records")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) pickups(ctx echo.Context) error {
	filter, err := bindRecordFilter(ctx)
	if err != nil {
		return err
	}
	pickups, err := api.svc.Pickups(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying pickups")
	}
	return ctx.JSON(http.StatusOK, pickups)
}

func (api *attendanceApi) teacherRecords(ctx echo.Context) error {
	filter, err := bindRecordFilter(ctx)
	if err != nil {
		return err
	}
	recs, err := api.svc.TeacherRecords(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teacher records")
	}
	return ctx.JSON(http.StatusOK, teacherRecordResponses(recs))
}

func (api *attendanceApi) coursesInWindow(ctx echo.Context) error {
	courses, err := api.svc.CoursesInWindow(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing courses in window")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *attendanceApi) pendingNotices(ctx echo.Context) error {
	notices, err := api.svc.PendingNotices(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying pending notices")
	}
	return ctx.JSON(http.StatusOK, notices)
}

func (api *attendanceApi) processNotice(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	rec, err := api.svc.ProcessNotice(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "processing notice")
	}
	return ctx.JSON(http.StatusOK, TeacherRecordResponse{TeacherRecord: rec, Status: rec.Status()})
}

func (api *attendanceApi) teacherAction(action teacherActionFunc, desc string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data attendance.CourseTeacher
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to CourseTeacher")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		rec, err := action(ctx.Request().Context(), data)
		if err != nil {
			return errors.Wrap(err, desc)
		}
		return ctx.JSON(http.StatusOK, TeacherRecordResponse{TeacherRecord: rec, Status: rec.Status()})
	}
}

func (api *attendanceApi) notify(ctx echo.Context) error {
	var data attendance.Notice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Notice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	notice, err := api.svc.NotifyPrincipal(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "notifying principal")
	}
	return ctx.JSON(http.StatusAccepted, notice)
}

func (api *attendanceApi) rollCall(ctx echo.Context) error {
	var data attendance.RollCall
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RollCall")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	recs, err := api.svc.RollCall(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering roll call")
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *attendanceApi) registerPickup(ctx echo.Context) error {
	var data attendance.NewPickup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPickup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pickup, err := api.svc.RegisterPickup(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering pickup")
	}
	return ctx.JSON(http.StatusCreated, pickup)
}

func (api *attendanceApi) settings(ctx echo.Context) error {
	settings, err := api.svc.Settings(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *attendanceApi) setSettings(ctx echo.Context) error {
	var data attendance.Settings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Settings")
	}

	settings, err := api.svc.SetSettings(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving settings")
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *attendanceApi) toggleRegistration(ctx echo.Context) error {
	settings, err := api.svc.ToggleRegistration(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "toggling registration")
	}
	return ctx.JSON(http.StatusOK, settings)
}
