package cli

import (
	"fmt"
	"time"

	"github.com/example/oauth-demo/server"
)

// Serve starts the servers.
type Serve struct {
	Addr     string `default:":8080" help:"HTTP listen address."`
	GRPCAddr string `name:"grpc-addr" help:"gRPC listen address. gRPC is disabled when empty."`
	Engine   string `enum:"chi,gin,echo" default:"chi" help:"HTTP router to serve the API with."`

	Issuer        string        `required:"" help:"Trusted token issuer URL."`
	Audience      []string      `required:"" help:"Accepted token audience. Repeat for more than one."`
	Algorithm     string        `enum:"HS256,HS384,HS512,RS256,RS384,RS512,ES256,ES384,ES512,PS256,PS384,PS512,EdDSA" default:"RS256" help:"Expected token signing algorithm."`
	JWKSURI       string        `name:"jwks-uri" help:"Fetch signing keys from this URL instead of discovering them from the issuer."`
	SigningSecret string        `help:"Shared HMAC secret for HS* tokens. Development only."`
	JWKSCacheTTL  time.Duration `name:"jwks-cache-ttl" default:"15m" help:"How long fetched signing keys are reused."`
	ClockSkew     time.Duration `default:"0s" help:"Leeway when checking exp, nbf and iat."`

	TokenCookie     string `help:"Also read the token from this cookie."`
	TokenQueryParam string `help:"Also read the token from this query parameter."`

	Metrics         bool          `help:"Serve Prometheus metrics at /metrics."`
	ShutdownTimeout time.Duration `default:"10s" help:"How long to wait for in-flight requests on shutdown."`
}

// Config converts the flags into a server configuration.
func (s *Serve) Config() server.Config {
	return server.Config{
		Addr:            s.Addr,
		GRPCAddr:        s.GRPCAddr,
		Engine:          s.Engine,
		Issuer:          s.Issuer,
		Audiences:       s.Audience,
		Algorithm:       s.Algorithm,
		JWKSURI:         s.JWKSURI,
		SigningSecret:   s.SigningSecret,
		JWKSCacheTTL:    s.JWKSCacheTTL,
		ClockSkew:       s.ClockSkew,
		TokenCookie:     s.TokenCookie,
		TokenQueryParam: s.TokenQueryParam,
		Metrics:         s.Metrics,
		ShutdownTimeout: s.ShutdownTimeout,
	}
}

// Run the serve command.
func (s *Serve) Run(appCtx *AppContext, loggers *Loggers) error {
	srv, err := server.New(s.Config(),
		server.WithLogger(loggers.Process),
		server.WithAuthLogger(loggers.Auth),
	)
	if err != nil {
		return fmt.Errorf("failed starting the server: %w", err)
	}

	return srv.Run(appCtx.Ctx)
}
