// Package jwtecho runs the bearer token middleware and the greeting routes
// on an echo server.
package jwtecho

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/example/oauth-demo/api"
	"github.com/example/oauth-demo/core"
	"github.com/example/oauth-demo/jwtmiddleware"
)

// ClaimsKey is the echo.Context key the principal is stored under, next to
// the copy in the request context.
const ClaimsKey = "jwt"

// Middleware adapts m to echo. Rejections are answered by m's error handler
// and the rest of the chain is skipped.
func Middleware(m *jwtmiddleware.JWTMiddleware) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var nextErr error
			inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				if claims, err := core.GetClaims[any](r.Context()); err == nil {
					c.Set(ClaimsKey, claims)
				}
				nextErr = next(c)
			})

			m.CheckJWT(inner).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}
}

// GetPrincipal returns the principal Middleware stored in c.
func GetPrincipal(c echo.Context) (api.Principal, error) {
	return core.GetClaims[api.Principal](c.Request().Context())
}

// Authenticated hands the principal to next, or answers 500 when the route
// is missing Middleware.
func Authenticated(next func(c echo.Context, p api.Principal) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		p, err := GetPrincipal(c)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, api.ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "no authenticated principal for a protected route",
			})
		}
		return next(c, p)
	}
}

// RegisterRoutes mounts the public greeting on e and the private one behind
// Middleware(m).
func RegisterRoutes(e *echo.Echo, m *jwtmiddleware.JWTMiddleware) {
	e.GET(api.PublicHelloPath, func(c echo.Context) error {
		return c.JSON(http.StatusOK, api.PublicHello())
	})

	e.GET(api.PrivateHelloPath, Authenticated(func(c echo.Context, p api.Principal) error {
		return c.JSON(http.StatusOK, api.PrivateHello(p))
	}), Middleware(m))
}

// NewEcho builds an echo server with logrus access logging and the greeting
// routes.
func NewEcho(m *jwtmiddleware.JWTMiddleware, logger logrus.FieldLogger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(AccessLog(logger))
	RegisterRoutes(e, m)
	return e
}

// AccessLog logs one line per request, like api.AccessLog does for chi.
func AccessLog(logger logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			resp := c.Response()
			entry := logger.WithFields(logrus.Fields{
				"method":   c.Request().Method,
				"path":     c.Request().URL.Path,
				"status":   resp.Status,
				"bytes":    resp.Size,
				"duration": time.Since(start),
			})
			if resp.Status >= http.StatusInternalServerError {
				entry.Warn("request served")
			} else {
				entry.Info("request served")
			}
			return nil
		}
	}
}
