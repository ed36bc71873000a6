package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
	errUnknownAction        = echo.NewHTTPError(http.StatusBadRequest, "unknown action")
)

type errorHandler struct {
	logger         core.Logger
	translator     ut.Translator
	signalShutdown func()
}

// newAppHTTPErrorHandler maps app errors to JSON responses. Unexpected errors are reported
// with the requesting user, and a core shutdown error stops the server.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	h := errorHandler{logger: logger, translator: translator, signalShutdown: signalShutdown}
	return h.handle
}

func (h errorHandler) handle(err error, ctx echo.Context) {
	err = core.CheckConnection(err)
	code, message := h.classify(err)
	if code == http.StatusInternalServerError {
		h.report(err, ctx)
		if ctx.Echo().Debug {
			message = err.Error()
		}
	}
	if m, ok := message.(string); ok {
		message = echo.Map{"error": m}
	}

	if ctx.Response().Committed {
		return
	}
	if ctx.Request().Method == http.MethodHead {
		err = ctx.NoContent(code)
	} else {
		err = ctx.JSON(code, message)
	}
	if err != nil {
		ctx.Echo().Logger.Error(err)
	}
}

// classify returns the status code and body of err.
func (h errorHandler) classify(err error) (int, interface{}) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		// echo reports a missing token as a bad request
		if cause == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, cause.Message
		}
		if inner, ok := cause.Internal.(*echo.HTTPError); ok {
			cause = inner
		}
		return cause.Code, cause.Message
	case validator.ValidationErrors:
		fields := make(map[string]string, len(cause))
		for _, fe := range cause {
			fields[fe.Field()] = fe.Translate(h.translator)
		}
		return http.StatusBadRequest, fields
	case *core.ValidationError:
		if cause.Fields == nil {
			return http.StatusBadRequest, cause.Error()
		}
		fields := make(map[string]string, len(cause.Fields))
		for _, fe := range cause.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func (h errorHandler) report(err error, ctx echo.Context) {
	var usr user.User
	if claims, cErr := getContextClaims(ctx); cErr == nil {
		usr.ID = claims.Subject
		usr.Username = claims.Username
		usr.Email = claims.Email
	}
	msg := "request failed: " + ctx.Request().Method + " " + ctx.Path()
	h.logger.Error(msg, errors.Wrap(err, msg), usr)

	if core.IsShutdown(err) {
		h.signalShutdown()
	}
}
