package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/access"
	"github.com/xronos/xronos/core/user"
)

// checkerMiddleware loads the authenticated user and their concerns once per request.
// It must run after the JWT middleware.
func checkerMiddleware(users *user.Service, concerns access.ConcernSource, conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, users)
			if err != nil {
				return err
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			chk, err := access.NewChecker(ctx.Request().Context(), usr, concerns, conf)
			if err != nil {
				return errors.Wrap(err, "building permission checker")
			}
			ctx.Set(contextCheckerKey, chk)
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			chk, err := getContextChecker(ctx)
			if err != nil {
				return err
			}
			if chk.Admin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
