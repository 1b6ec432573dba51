package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/jardin/core"
	"github.com/trezcool/jardin/core/course"
	"github.com/trezcool/jardin/core/schedule"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, svc *course.Service, validate *validator.Validate) {
	api := courseApi{svc: svc, validate: validate}

	cg := g.Group("/courses")
	cg.POST("", api.create)
	cg.GET("", api.query)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.GET("/windows", api.windows)
	dg.GET("/windows/check", api.checkWindow)
	dg.POST("/students", api.addStudent)
	dg.GET("/students", api.students)

	sg := g.Group("/students/:id")
	sg.GET("", api.retrieveStudent)
	sg.POST("/family", api.addFamilyMember)
	sg.GET("/family", api.familyMembers)
}

// WindowCheck tells whether a time of day falls within a course's span window.
type WindowCheck struct {
	At       schedule.Clock  `json:"at"`
	Exit     bool            `json:"exit"`
	Window   schedule.Window `json:"window"`
	InWindow bool            `json:"in_window"`
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	var ord Ordering
	ord.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) getCourse(ctx echo.Context) (course.Course, error) {
	id, err := intParam(ctx, "id")
	if err != nil {
		return course.Course{}, err
	}
	crs, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	return crs, nil
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(crs, api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) windows(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs.Schedule.Windows())
}

func (api *courseApi) checkWindow(ctx echo.Context) error {
	crs, err := api.getCourse(ctx)
	if err != nil {
		return err
	}

	at, err := schedule.ParseClock(ctx.QueryParam("at"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "at", Error: schedule.ErrInvalidClock.Error()})
	}
	var exit bool
	if s := ctx.QueryParam("exit"); s != "" {
		if exit, err = strconv.ParseBool(s); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "exit", Error: "exit must be a boolean"})
		}
	}

	return ctx.JSON(http.StatusOK, WindowCheck{
		At:       at,
		Exit:     exit,
		Window:   crs.Schedule.Span(exit),
		InWindow: crs.Schedule.InWindow(at, exit),
	})
}

func (api *courseApi) addStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data course.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.AddStudent(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *courseApi) students(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	students, err := api.svc.Students(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *courseApi) retrieveStudent(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	std, err := api.svc.GetStudent(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *courseApi) addFamilyMember(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data course.NewFamilyMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFamilyMember")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	fm, err := api.svc.AddFamilyMember(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "adding family member")
	}
	return ctx.JSON(http.StatusCreated, fm)
}

func (api *courseApi) familyMembers(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	members, err := api.svc.FamilyMembers(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying family members")
	}
	return ctx.JSON(http.StatusOK, members)
}
