// Package server assembles the validator, the authentication middleware and
// the HTTP and gRPC front ends from a Config, and runs them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/example/oauth-demo/api"
	"github.com/example/oauth-demo/core"
	jwtecho "github.com/example/oauth-demo/framework/echo"
	jwtgin "github.com/example/oauth-demo/framework/gin"
	jwtgrpc "github.com/example/oauth-demo/framework/grpc"
	"github.com/example/oauth-demo/grpcapi"
	"github.com/example/oauth-demo/jwks"
	"github.com/example/oauth-demo/jwtmiddleware"
	"github.com/example/oauth-demo/validator"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	metricsPath            = "/metrics"
)

// Server is the assembled service.
type Server struct {
	cfg        Config
	logger     logrus.FieldLogger
	handler    http.Handler
	grpcServer *grpc.Server
}

// Option configures New.
type Option func(*options)

type options struct {
	logger     logrus.FieldLogger
	authLogger core.Logger
	httpClient *http.Client
}

// WithLogger sets the logger for access logs and lifecycle messages.
// Defaults to logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAuthLogger sets the logger the token checks report to. Defaults to the
// WithLogger logger.
func WithAuthLogger(logger core.Logger) Option {
	return func(o *options) { o.authLogger = logger }
}

// WithHTTPClient sets the client used for OIDC discovery and JWKS fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// New validates cfg and builds every component. Nothing listens until Run.
func New(cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(o)
	}
	if o.authLogger == nil {
		o.authLogger = jwtmiddleware.NewLogrusLogger(o.logger)
	}

	keyFunc, err := newKeyFunc(cfg, o)
	if err != nil {
		return nil, err
	}

	v, err := validator.New(
		validator.WithKeyFunc(keyFunc),
		validator.WithAlgorithm(validator.SignatureAlgorithm(cfg.Algorithm)),
		validator.WithIssuer(cfg.Issuer),
		validator.WithAudiences(cfg.Audiences),
		validator.WithAllowedClockSkew(cfg.ClockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the validator: %w", err)
	}

	var registry *prometheus.Registry
	mwOpts := []jwtmiddleware.Option{
		jwtmiddleware.WithValidator(v),
		jwtmiddleware.WithLogger(o.authLogger),
		jwtmiddleware.WithTokenExtractor(tokenExtractor(cfg)),
	}
	if cfg.Metrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := jwtmiddleware.NewPrometheusMetrics(registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		mwOpts = append(mwOpts, jwtmiddleware.WithMetrics(metrics))
	}

	mw, err := jwtmiddleware.New(mwOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the middleware: %w", err)
	}

	s := &Server{cfg: cfg, logger: o.logger}
	s.handler = newHandler(cfg.Engine, mw, o.logger, registry)

	if cfg.GRPCAddr != "" {
		interceptor, err := jwtgrpc.New(
			jwtgrpc.WithValidator(v),
			jwtgrpc.WithLogger(o.authLogger),
			jwtgrpc.WithExcludedMethods(grpcapi.PublicHelloMethod),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to set up the gRPC interceptor: %w", err)
		}
		s.grpcServer = grpc.NewServer(
			grpc.ChainUnaryInterceptor(interceptor.UnaryServerInterceptor()),
			grpc.ChainStreamInterceptor(interceptor.StreamServerInterceptor()),
		)
		grpcapi.RegisterHelloServer(s.grpcServer, grpcapi.Server{})
	}

	return s, nil
}

func newKeyFunc(cfg Config, o *options) (func(context.Context) (any, error), error) {
	if cfg.SigningSecret != "" {
		secret := []byte(cfg.SigningSecret)
		return func(context.Context) (any, error) { return secret, nil }, nil
	}

	issuerURL, err := url.Parse(cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer URL: %w", err)
	}

	providerOpts := []jwks.Option{
		jwks.WithIssuerURL(issuerURL),
		jwks.WithCacheTTL(cfg.JWKSCacheTTL),
		jwks.WithLogger(o.authLogger),
	}
	if cfg.JWKSURI != "" {
		jwksURI, err := url.Parse(cfg.JWKSURI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse the JWKS URI: %w", err)
		}
		providerOpts = append(providerOpts, jwks.WithCustomJWKSURI(jwksURI))
	}
	if o.httpClient != nil {
		providerOpts = append(providerOpts, jwks.WithCustomClient(o.httpClient))
	}

	provider, err := jwks.NewCachingProvider(providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the JWKS provider: %w", err)
	}
	return provider.KeyFunc, nil
}

func tokenExtractor(cfg Config) jwtmiddleware.TokenExtractor {
	extractors := []jwtmiddleware.TokenExtractor{jwtmiddleware.AuthHeaderTokenExtractor}
	if cfg.TokenCookie != "" {
		extractors = append(extractors, jwtmiddleware.CookieTokenExtractor(cfg.TokenCookie))
	}
	if cfg.TokenQueryParam != "" {
		extractors = append(extractors, jwtmiddleware.ParameterTokenExtractor(cfg.TokenQueryParam))
	}
	if len(extractors) == 1 {
		return extractors[0]
	}
	return jwtmiddleware.MultiTokenExtractor(extractors...)
}

func newHandler(engine string, mw *jwtmiddleware.JWTMiddleware, logger logrus.FieldLogger, registry *prometheus.Registry) http.Handler {
	var metricsHandler http.Handler
	if registry != nil {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	switch engine {
	case EngineGin:
		e := jwtgin.NewEngine(mw, logger)
		if metricsHandler != nil {
			e.GET(metricsPath, gin.WrapH(metricsHandler))
		}
		return e
	case EngineEcho:
		e := jwtecho.NewEcho(mw, logger)
		if metricsHandler != nil {
			e.GET(metricsPath, echo.WrapHandler(metricsHandler))
		}
		return e
	default:
		return api.NewRouter(mw.CheckJWT, logger, func(r chi.Router) {
			if metricsHandler != nil {
				r.Method(http.MethodGet, metricsPath, metricsHandler)
			}
		})
	}
}

// Handler returns the HTTP handler Run serves.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured addresses and serves until ctx is done or a
// listener fails, then shuts every server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	var grpcLis net.Listener
	if s.grpcServer != nil {
		grpcLis, err = net.Listen("tcp", s.cfg.GRPCAddr)
		if err != nil {
			_ = httpLis.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.GRPCAddr, err)
		}
	}

	return s.Serve(ctx, httpLis, grpcLis)
}

// Serve is Run on listeners the caller opened. grpcLis is ignored when gRPC
// is disabled.
func (s *Server) Serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.WithField("addr", httpLis.Addr().String()).Info("HTTP server listening")
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if s.grpcServer != nil {
		g.Go(func() error {
			s.logger.WithField("addr", grpcLis.Addr().String()).Info("gRPC server listening")
			if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("gRPC server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if s.grpcServer != nil {
			stopped := make(chan struct{})
			go func() {
				s.grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-shutdownCtx.Done():
				s.grpcServer.Stop()
			}
		}

		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("failed shutting down HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}
