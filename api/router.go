package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	PublicHelloPath  = "/api/public/hello"
	PrivateHelloPath = "/api/private/hello"
)

// NewRouter routes the public and private greetings. authenticate wraps
// every private route; it is normally (*jwtmiddleware.JWTMiddleware).CheckJWT.
// extra, when non-nil, is called with the root router to mount more routes
// such as /metrics.
func NewRouter(authenticate func(http.Handler) http.Handler, logger logrus.FieldLogger, extra func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get(PublicHelloPath, PublicHelloHandler)

	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get(PrivateHelloPath, PrivateHelloHandler)
	})

	if extra != nil {
		extra(r)
	}

	return r
}

// AccessLog logs one line per request once the response is written.
func AccessLog(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				entry := logger.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     status,
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start),
					"request_id": middleware.GetReqID(r.Context()),
				})
				if status >= http.StatusInternalServerError {
					entry.Warn("request served")
					return
				}
				entry.Info("request served")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
