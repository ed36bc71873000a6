package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/nonce"
	"github.com/trezcool/certify/core/settings"
)

const (
	settingsPath   = "/admin/settings"
	adminPostPath  = "/admin/post"
	nonceField     = "_csrf"
	actionField    = "action"
	dataField      = "data"
	updateCertReqs = "update_cert_requirements"
)

// Settings form failures, as carried by the "error" query parameter.
const (
	settingsErrNonce   = 1 // missing or invalid nonce
	settingsErrMissing = 2 // no data field
	settingsErrInvalid = 3 // data is not a non-negative integer
)

var settingsErrMessages = map[string]string{
	strconv.Itoa(settingsErrNonce):   "The link you followed has expired. Please try again.",
	strconv.Itoa(settingsErrMissing): "No value was submitted.",
	strconv.Itoa(settingsErrInvalid): "The required number of middle lessons must be a whole number of 0 or more.",
}

type (
	settingsPage struct {
		Page       pageMeta
		Updated    bool
		Error      string
		Action     string
		Nonce      string
		Required   int
		MinLessons int
	}

	requirementsForm struct {
		Data string `form:"data" validate:"required,digits"`
	}
)

type settingsApp struct {
	conf     *core.Config
	svc      *settings.Service
	nonces   *nonce.Generator
	validate *validator.Validate
	auth     *authenticator
}

func registerSettings(g *echo.Group, deps ServerDeps, auth *authenticator) {
	app := settingsApp{
		conf:     deps.Conf,
		svc:      deps.SettingsSvc,
		nonces:   deps.Nonces,
		validate: deps.Validate,
		auth:     auth,
	}

	g.GET(settingsPath, app.page, adminMiddleware(auth))
	g.POST(adminPostPath, app.post, adminMiddleware(auth))
}

func (app *settingsApp) page(ctx echo.Context) error {
	usr, err := app.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	required, err := app.svc.RequiredMiddleLessons(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "reading required middle lessons")
	}

	return ctx.Render(http.StatusOK, "settings", settingsPage{
		Page:       pageMeta{Title: "Certificate Requirements", User: &usr},
		Updated:    ctx.QueryParam("updated") == "1",
		Error:      settingsErrMessages[ctx.QueryParam("error")],
		Action:     updateCertReqs,
		Nonce:      app.nonces.Make(updateCertReqs, usr.ID),
		Required:   required,
		MinLessons: app.conf.Certify.MinLessons,
	})
}

// post dispatches the admin form submissions on their action field.
func (app *settingsApp) post(ctx echo.Context) error {
	switch ctx.FormValue(actionField) {
	case updateCertReqs:
		return app.updateCertRequirements(ctx)
	default:
		return errUnknownAction
	}
}

func (app *settingsApp) updateCertRequirements(ctx echo.Context) error {
	usr, err := app.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	fail := func(code int) error {
		return ctx.Redirect(http.StatusFound, settingsPath+"?updated=0&error="+strconv.Itoa(code))
	}

	if err = app.nonces.Verify(ctx.FormValue(nonceField), updateCertReqs, usr.ID); err != nil {
		return fail(settingsErrNonce)
	}

	form, err := ctx.FormParams()
	if err != nil {
		return errors.Wrap(err, "parsing form")
	}
	values, ok := form[dataField]
	if !ok || len(values) == 0 {
		return fail(settingsErrMissing)
	}

	data := requirementsForm{Data: strings.TrimSpace(values[0])}
	if err = app.validate.Struct(data); err != nil {
		return fail(settingsErrInvalid)
	}
	n, err := strconv.Atoi(data.Data)
	if err != nil { // out of int range
		return fail(settingsErrInvalid)
	}

	if err = app.svc.SetRequiredMiddleLessons(ctx.Request().Context(), n); err != nil {
		return errors.Wrap(err, "saving required middle lessons")
	}
	return ctx.Redirect(http.StatusFound, settingsPath+"?updated=1")
}
