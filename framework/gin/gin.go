// Package jwtgin runs the bearer token middleware and the greeting routes on
// a gin engine.
package jwtgin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/oauth-demo/api"
	"github.com/example/oauth-demo/core"
	"github.com/example/oauth-demo/jwtmiddleware"
)

// ClaimsKey is the gin.Context key the principal is stored under, next to
// the copy in the request context.
const ClaimsKey = "jwt"

// Middleware adapts m to gin. Rejections are answered by m's error handler
// and abort the chain.
func Middleware(m *jwtmiddleware.JWTMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			if claims, err := core.GetClaims[any](r.Context()); err == nil {
				c.Set(ClaimsKey, claims)
			}
			c.Next()
		})

		m.CheckJWT(next).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}

// GetPrincipal returns the principal Middleware stored in c.
func GetPrincipal(c *gin.Context) (api.Principal, error) {
	return core.GetClaims[api.Principal](c.Request.Context())
}

// Authenticated hands the principal to next, or answers 500 when the route
// is missing Middleware.
func Authenticated(next func(c *gin.Context, p api.Principal)) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := GetPrincipal(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, api.ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "no authenticated principal for a protected route",
			})
			return
		}
		next(c, p)
	}
}

// RegisterRoutes mounts the public greeting on r and the private one behind
// Middleware(m).
func RegisterRoutes(r gin.IRouter, m *jwtmiddleware.JWTMiddleware) {
	r.GET(api.PublicHelloPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, api.PublicHello())
	})

	private := r.Group("", Middleware(m))
	private.GET(api.PrivateHelloPath, Authenticated(func(c *gin.Context, p api.Principal) {
		c.JSON(http.StatusOK, api.PrivateHello(p))
	}))
}

// NewEngine builds a gin engine with recovery, logrus access logging and the
// greeting routes.
func NewEngine(m *jwtmiddleware.JWTMiddleware, logger logrus.FieldLogger) *gin.Engine {
	engine := gin.New()
	engine.Use(AccessLog(logger), gin.Recovery())
	RegisterRoutes(engine, m)
	return engine
}

// AccessLog logs one line per request, like api.AccessLog does for chi.
func AccessLog(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"bytes":    c.Writer.Size(),
			"duration": time.Since(start),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request served")
			return
		}
		entry.Info("request served")
	}
}
