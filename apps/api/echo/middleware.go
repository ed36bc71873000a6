package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/certify/core/user"
)

// loginRequired loads the context user, rejecting anonymous and deactivated accounts.
func loginRequired(a *authenticator) echo.MiddlewareFunc {
	return userPasses(a, func(*user.User) bool { return true })
}

// adminMiddleware only lets through users holding the "manage options" capability.
func adminMiddleware(a *authenticator) echo.MiddlewareFunc {
	return userPasses(a, (*user.User).IsAdmin)
}

// authorMiddleware lets through admins and instructors.
func authorMiddleware(a *authenticator) echo.MiddlewareFunc {
	return userPasses(a, func(u *user.User) bool { return u.IsAdmin() || u.IsInstructor() })
}

func userPasses(a *authenticator, test func(*user.User) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := a.contextUser(ctx)
			if err != nil {
				return err
			}
			if !test(&usr) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
