package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/core/course"
)

type courseApi struct {
	courses  *course.Service
	certs    *certificate.Service
	validate *validator.Validate
	logger   core.Logger
	auth     *authenticator
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps, auth *authenticator) {
	api := courseApi{
		courses:  deps.CourseSvc,
		certs:    deps.CertificateSvc,
		validate: deps.Validate,
		logger:   deps.Logger,
		auth:     auth,
	}

	cg := g.Group("/courses", jwt, loginRequired(auth))
	cg.POST("", api.createCourse, authorMiddleware(auth))
	cg.POST("/:id/lessons", api.createLesson, authorMiddleware(auth))
	cg.GET("/:id/progress", api.progress)
	cg.GET("/:id/results", api.results)

	lg := g.Group("/lessons", jwt, loginRequired(auth))
	lg.POST("/:id/complete", api.completeLesson)
}

// Handlers

func (api *courseApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	crs, err := api.courses.CreateCourse(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) createLesson(ctx echo.Context) error {
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lesson, err := api.courses.CreateLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lesson)
}

// progress reports where the learner stands on the certificate policy.
func (api *courseApi) progress(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	p, err := api.certs.Progress(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting certificate progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *courseApi) results(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	res, err := api.courses.Results(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting course results")
	}
	return ctx.JSON(http.StatusOK, res)
}

// completeLesson marks the lesson done, then gives the certificate hook a chance to run.
// Issuance failures are logged and reported as not eligible.
func (api *courseApi) completeLesson(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	lesson, err := api.courses.CompleteLesson(reqCtx, usr.ID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "completing lesson")
	}

	resp := CompleteLessonResponse{LessonID: lesson.ID, CourseID: lesson.CourseID}
	resp.Outcome, err = api.certs.MaybeIssue(reqCtx, usr.ID, lesson.CourseID)
	if err != nil {
		api.logger.Error(fmt.Sprintf("issuing certificate: %v", err), err, usr)
	}
	if resp.Outcome != certificate.OutcomeNotEligible {
		resp.CertificateURL = api.certs.URL(certificate.CertificateHash(lesson.CourseID, usr.ID))
	}
	return ctx.JSON(http.StatusOK, resp)
}

type CompleteLessonResponse struct {
	LessonID       string              `json:"lesson_id"`
	CourseID       string              `json:"course_id"`
	Outcome        certificate.Outcome `json:"outcome"`
	CertificateURL string              `json:"certificate_url,omitempty"`
}
