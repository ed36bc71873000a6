package echoapi

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/certificate"
	"github.com/trezcool/certify/core/course"
	"github.com/trezcool/certify/core/user"
)

const (
	contextPageStateKey = "pageState"
	getCertificateParam = "get-certificate"
)

type (
	pageMeta struct {
		Title  string
		User   *user.User
		Footer template.HTML
	}

	coursePage struct {
		Page            pageMeta
		Course          course.Course
		Lessons         []course.Lesson
		Passed          bool
		CertificatePath string
	}

	lessonPage struct {
		Page         pageMeta
		Course       course.Course
		Lesson       course.Lesson
		ContentAfter template.HTML
	}

	certificatePage struct {
		Page        pageMeta
		Certificate certificate.Certificate
		Learner     user.User
		Course      course.Course
	}

	// pageState lives for one request. Both lesson render hooks ask for the banner,
	// it is evaluated at most once and handed out at most once.
	pageState struct {
		bannerEvaluated bool
		bannerShown     bool
		banner          template.HTML
	}
)

func getPageState(ctx echo.Context) *pageState {
	if st, ok := ctx.Get(contextPageStateKey).(*pageState); ok {
		return st
	}
	st := new(pageState)
	ctx.Set(contextPageStateKey, st)
	return st
}

type pagesApp struct {
	users   *user.Service
	courses *course.Service
	certs   *certificate.Service
	logger  core.Logger
}

func registerPages(g *echo.Group, deps ServerDeps) {
	app := pagesApp{
		users:   deps.UserSvc,
		courses: deps.CourseSvc,
		certs:   deps.CertificateSvc,
		logger:  deps.Logger,
	}

	g.GET("/courses/:id", app.course)
	g.GET("/lessons/:id", app.lesson)
	g.GET("/certificate/:hash", app.certificate)
}

// maybeGenerateCertificate runs on every course and lesson page viewed by a logged-in user.
// It never fails the page.
func (app *pagesApp) maybeGenerateCertificate(ctx context.Context, usr *user.User, courseID string) {
	if usr == nil || courseID == "" {
		return
	}
	if _, err := app.certs.MaybeIssue(ctx, usr.ID, courseID); err != nil {
		app.logger.Error(fmt.Sprintf("pages: generating certificate: %v", err), err, *usr)
	}
}

func (app *pagesApp) getCourse(ctx context.Context, id string, usr *user.User) (course.Course, error) {
	crs, err := app.courses.GetCourse(ctx, id)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return course.Course{}, errHttpNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course")
	}
	if !crs.IsPublished() && (usr == nil || !usr.IsAdmin()) {
		return course.Course{}, errHttpNotFound
	}
	return crs, nil
}

func (app *pagesApp) course(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr := pageUser(ctx)

	crs, err := app.getCourse(reqCtx, ctx.Param("id"), usr)
	if err != nil {
		return err
	}
	app.maybeGenerateCertificate(reqCtx, usr, crs.ID)

	lessons, err := app.courses.PublishedLessons(reqCtx, crs.ID)
	if err != nil {
		return errors.Wrap(err, "getting lessons")
	}

	data := coursePage{
		Page:    pageMeta{Title: crs.Title, User: usr},
		Course:  crs,
		Lessons: lessons,
	}
	if usr != nil {
		passed, err := app.courses.CourseCompleted(reqCtx, usr.ID, crs.ID)
		if err != nil {
			app.logger.Warn(fmt.Sprintf("pages: checking course completion: %v", err), err, *usr)
		}
		data.Passed = app.certs.CompletionDecision(reqCtx, passed, usr.ID, crs.ID)

		if app.certs.CanUserView(reqCtx, usr.ID, crs.ID) {
			if cert, err := app.certs.CertificateFor(reqCtx, usr.ID, crs.ID); err == nil {
				data.CertificatePath = certificate.Path(cert.Hash)
			}
		}
	}
	return ctx.Render(http.StatusOK, "course", data)
}

func (app *pagesApp) lesson(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr := pageUser(ctx)

	lesson, err := app.courses.GetLesson(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting lesson")
	}
	if !lesson.IsPublished() && (usr == nil || !usr.IsAdmin()) {
		return errHttpNotFound
	}
	crs, err := app.getCourse(reqCtx, lesson.CourseID, usr)
	if err != nil {
		return err
	}
	app.maybeGenerateCertificate(reqCtx, usr, crs.ID)

	if usr != nil && ctx.QueryParam(getCertificateParam) == "1" {
		cert, err := app.certs.CertificateFor(reqCtx, usr.ID, crs.ID)
		switch {
		case err == nil:
			return ctx.Redirect(http.StatusSeeOther, certificate.Path(cert.Hash))
		case errors.Cause(err) != certificate.ErrNotFound:
			app.logger.Error(fmt.Sprintf("pages: getting certificate: %v", err), err, *usr)
		}
	}

	data := lessonPage{
		Page:   pageMeta{Title: lesson.Title, User: usr},
		Course: crs,
		Lesson: lesson,
	}
	// two render hooks, one banner
	data.ContentAfter = app.certificateBanner(ctx, usr, lesson)
	data.Page.Footer = app.certificateBanner(ctx, usr, lesson)
	return ctx.Render(http.StatusOK, "lesson", data)
}

// certificateBanner returns the "Certificate Earned!" banner on the final lesson of a course
// whose policy the user satisfies. It returns it once per request, then nothing.
func (app *pagesApp) certificateBanner(ctx echo.Context, usr *user.User, lesson course.Lesson) template.HTML {
	state := getPageState(ctx)
	if !state.bannerEvaluated {
		state.bannerEvaluated = true
		state.banner = app.evaluateBanner(ctx, usr, lesson)
	}
	if state.bannerShown || state.banner == "" {
		return ""
	}
	state.bannerShown = true
	return state.banner
}

func (app *pagesApp) evaluateBanner(ctx echo.Context, usr *user.User, lesson course.Lesson) template.HTML {
	if usr == nil {
		return ""
	}
	reqCtx := ctx.Request().Context()

	last, err := app.courses.IsLastLesson(reqCtx, lesson)
	if err != nil || !last {
		return ""
	}
	res, _, err := app.certs.Evaluate(reqCtx, usr.ID, lesson.CourseID)
	if err != nil {
		app.logger.Warn(fmt.Sprintf("pages: evaluating certificate policy: %v", err), err, *usr)
		return ""
	}
	if !res.Satisfied {
		return ""
	}

	rdr, ok := ctx.Echo().Renderer.(*renderer)
	if !ok {
		return ""
	}
	banner, err := rdr.renderBanner(res.Stats)
	if err != nil {
		app.logger.Error(fmt.Sprintf("pages: rendering banner: %v", err), err)
		return ""
	}
	return banner
}

// certificate shows a certificate to admins, and to its learner when they may view it.
func (app *pagesApp) certificate(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	usr := pageUser(ctx)
	if usr == nil {
		return errUnauthorized
	}

	cert, err := app.certs.GetByHash(reqCtx, ctx.Param("hash"))
	if err != nil {
		if errors.Cause(err) == certificate.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting certificate")
	}

	if !usr.IsAdmin() {
		if usr.ID != cert.LearnerID {
			return errHttpNotFound
		}
		completed, err := app.courses.CourseCompleted(reqCtx, cert.LearnerID, cert.CourseID)
		if err != nil {
			app.logger.Warn(fmt.Sprintf("pages: checking course completion: %v", err), err, *usr)
		}
		if !app.certs.AllowView(reqCtx, completed, cert.LearnerID, cert.CourseID) {
			return errHttpForbidden
		}
	}

	learner, err := app.users.GetByID(reqCtx, cert.LearnerID)
	if err != nil {
		return errors.Wrap(err, "getting learner")
	}
	crs, err := app.courses.GetCourse(reqCtx, cert.CourseID)
	if err != nil {
		return errors.Wrap(err, "getting course")
	}

	return ctx.Render(http.StatusOK, "certificate", certificatePage{
		Page:        pageMeta{Title: "Certificate " + cert.Hash, User: usr},
		Certificate: cert,
		Learner:     learner,
		Course:      crs,
	})
}
