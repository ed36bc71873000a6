package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/user"
)

type userApi struct {
	conf     *core.Config
	svc      *user.Service
	validate *validator.Validate
	auth     *authenticator
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps, auth *authenticator) {
	api := userApi{
		conf:     deps.Conf,
		svc:      deps.UserSvc,
		validate: deps.Validate,
		auth:     auth,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	ug.POST("/login", api.login)
	ug.POST("/logout", api.logout)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me, loginRequired(auth))
}

// Handlers

// login answers with a bearer token for the API and sets the same token as the
// session cookie read by the HTML pages.
func (api *userApi) login(ctx echo.Context) error {
	var data user.LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Username, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrNotFound:
			return errAuthenticationFailed
		case user.ErrInactive:
			return errAccountDeactivated
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(api.conf, GetUserClaims(api.conf, usr))
	if err != nil {
		return err
	}

	ctx.SetCookie(api.auth.sessionCookie(token))
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) logout(ctx echo.Context) error {
	cookie := api.auth.sessionCookie("")
	cookie.Expires = time.Unix(0, 0)
	cookie.MaxAge = -1
	ctx.SetCookie(cookie)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	ctx.SetCookie(api.auth.sessionCookie(token))
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

type LoginResponse struct {
	Token string `json:"token"`
}
