package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Addr:          ":8080",
		Engine:        EngineChi,
		Issuer:        "https://issuer.example.com/",
		Audiences:     []string{"oauth-demo"},
		Algorithm:     "HS256",
		SigningSecret: "secret",
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr []string
	}{
		{
			name:   "static secret",
			mutate: func(*Config) {},
		},
		{
			name: "discovered keys",
			mutate: func(c *Config) {
				c.SigningSecret = ""
				c.Algorithm = "RS256"
			},
		},
		{
			name: "custom JWKS URI",
			mutate: func(c *Config) {
				c.SigningSecret = ""
				c.Algorithm = "ES256"
				c.JWKSURI = "https://keys.example.com/jwks.json"
				c.JWKSCacheTTL = time.Minute
			},
		},
		{
			name: "every field wrong at once",
			mutate: func(c *Config) {
				*c = Config{Engine: "fiber", ClockSkew: -time.Second, JWKSCacheTTL: -time.Second}
			},
			wantErr: []string{
				"listen address is required",
				`unknown engine "fiber"`,
				"issuer is required",
				"at least one audience is required",
				"algorithm is required",
				"JWKS cache TTL cannot be negative",
				"clock skew cannot be negative",
			},
		},
		{
			name:    "HMAC without a secret",
			mutate:  func(c *Config) { c.SigningSecret = "" },
			wantErr: []string{"HS256 needs a signing secret"},
		},
		{
			name:    "secret with an asymmetric algorithm",
			mutate:  func(c *Config) { c.Algorithm = "RS256" },
			wantErr: []string{"a signing secret only works with HS256, HS384 or HS512, not RS256"},
		},
		{
			name:    "secret and JWKS URI together",
			mutate:  func(c *Config) { c.JWKSURI = "https://keys.example.com/jwks.json" },
			wantErr: []string{"mutually exclusive"},
		},
		{
			name: "issuer that is not a URL",
			mutate: func(c *Config) {
				c.SigningSecret = ""
				c.Algorithm = "RS256"
				c.Issuer = "issuer"
			},
			wantErr: []string{"issuer must be a URL when keys are discovered"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := validConfig()
			testCase.mutate(&cfg)

			err := cfg.Validate()
			if len(testCase.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, want := range testCase.wantErr {
				assert.ErrorContains(t, err, want)
			}
		})
	}
}
