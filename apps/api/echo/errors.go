package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/element"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
	"github.com/xronos/xronos/services/roster"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")

	// domain errors which are the client's doing
	errorCodes = map[error]int{
		user.ErrNotFound:              http.StatusNotFound,
		element.ErrNotFound:           http.StatusNotFound,
		element.ErrMembershipNotFound: http.StatusNotFound,
		element.ErrConcernNotFound:    http.StatusNotFound,
		event.ErrNotFound:             http.StatusNotFound,
		event.ErrCategoryNotFound:     http.StatusNotFound,
		event.ErrCommitmentNotFound:   http.StatusNotFound,
		event.ErrNoteNotFound:         http.StatusNotFound,
		event.ErrCollectionNotFound:   http.StatusNotFound,
		core.ErrPermissionDenied:      http.StatusForbidden,
		event.ErrReadOnlyNote:         http.StatusForbidden,
		element.ErrNotAGroup:          http.StatusBadRequest,
		event.ErrNotControlled:        http.StatusBadRequest,
		event.ErrCannotRepeat:         http.StatusBadRequest,
		roster.ErrUnsupportedFormat:   http.StatusBadRequest,
		user.ErrInvalidCredentials:    http.StatusBadRequest,
		event.ErrInvalidCollectionDay: http.StatusBadRequest,
		event.ErrCategoryExists:       http.StatusBadRequest,
		event.ErrAlreadyCommitted:     http.StatusBadRequest,
		element.ErrConcernExists:      http.StatusBadRequest,
		element.ErrSelfMembership:     http.StatusBadRequest,
		event.ErrCategoryInUse:        http.StatusConflict,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if c, ok := domainErrorCode(cause); ok {
			code = c
			message = cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					fldErrs := make(map[string]string, len(origErr.Fields))
					for _, fErr := range origErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var usr user.User
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					usr.ID = claims.Subject
					usr.Username = claims.Username
					usr.Email = claims.Email
				}
				if logger != nil {
					logger.Error(msg, errors.Wrap(err, msg), usr)
				}

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = echo.Map{"error": err.Error()}
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// domainErrorCode compares by value: errors of uncomparable types never match a sentinel.
func domainErrorCode(err error) (int, bool) {
	for sentinel, code := range errorCodes {
		if err == sentinel {
			return code, true
		}
	}
	return 0, false
}
