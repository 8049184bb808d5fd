package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/user"
)

const storeUnavailableMsg = "data store unavailable, please retry"

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
			if herr == middleware.ErrJWTMissing {
				herr = echo.NewHTTPError(http.StatusUnauthorized, herr.Message)
			} else if internal, ok := herr.Internal.(*echo.HTTPError); ok {
				herr = internal
			}
			code = herr.Code
			message = herr.Message
		} else {
			kind, kErr := core.Classify(err)
			switch kind {
			case core.KindValidation:
				code = http.StatusBadRequest
				vErr := kErr.(*core.ValidationError)
				if vErr.Err == nil && len(vErr.Fields) > 0 {
					fldErrs := make(map[string]string, len(vErr.Fields))
					for _, fErr := range vErr.Fields {
						fldErrs[fErr.Field] = fErr.Error
					}
					message = fldErrs
				} else {
					message = vErr.Error()
				}
			case core.KindNotFound:
				code = http.StatusNotFound
				message = kErr.Error()
			case core.KindConflict:
				code = http.StatusConflict
				message = kErr.Error()
			case core.KindStore:
				code = http.StatusServiceUnavailable
				message = storeUnavailableMsg
				logger.Error(storeUnavailableMsg, err, contextUser(ctx))
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), contextUser(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
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

// contextUser returns the authenticated user as far as the token tells.
func contextUser(ctx echo.Context) user.User {
	var usr user.User
	if claims, err := getContextClaims(ctx); err == nil {
		usr.ID = claims.Subject
		usr.Name = claims.Name
		usr.Email = claims.Email
		usr.Role = claims.Role
	}
	return usr
}
