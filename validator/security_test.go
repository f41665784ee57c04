package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/oauth-demo/core"
)

func TestValidateTokenFormat(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "JWS compact", token: "header.payload.signature"},
		{name: "JWE compact", token: "header.key.iv.ciphertext.tag"},
		{name: "five dots", token: "a.b.c.d.e.f", wantErr: ErrExcessiveTokenDots},
		{name: "no dots", token: "opaque-token", wantErr: ErrTokenNotCompact},
		{name: "one dot", token: "header.payload", wantErr: ErrTokenNotCompact},
		{name: "three dots", token: "a.b.c.d", wantErr: ErrTokenNotCompact},
		{name: "JSON serialization", token: `{"payload":"e30","signatures":[]}`, wantErr: ErrTokenNotCompact},
		{name: "JSON with compact dot count", token: `{"payload":"a.b","kid":"c.d"}`, wantErr: ErrTokenNotCompact},
		{name: "ten thousand dots", token: strings.Repeat(".", 10000), wantErr: ErrExcessiveTokenDots},
		{name: "empty", token: "", wantErr: ErrTokenEmpty},
		{name: "over one MiB", token: strings.Repeat("a", maxTokenSize+1), wantErr: ErrTokenTooLarge},
		{name: "just under one MiB", token: "h." + strings.Repeat("a", maxTokenSize-10) + ".s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTokenFormat(tt.token)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateToken_RejectsDotFloodBeforeParsing(t *testing.T) {
	keyFuncCalled := false
	v, err := New(
		WithKeyFunc(func(context.Context) (any, error) {
			keyFuncCalled = true
			return []byte("secret"), nil
		}),
		WithAlgorithm(HS256),
		WithIssuer("https://issuer.example.com/"),
		WithAudience("audience"),
	)
	require.NoError(t, err)

	_, err = v.ValidateToken(context.Background(), strings.Repeat("a.", 1000)+"z")

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, core.ErrorCodeTokenMalformed, verr.Code)
	assert.ErrorIs(t, err, ErrExcessiveTokenDots)
	assert.False(t, keyFuncCalled)
}

func BenchmarkValidateTokenFormat(b *testing.B) {
	for _, token := range []string{
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature",
		strings.Repeat("a.", 1000) + "z",
	} {
		b.Run(token[:8], func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = validateTokenFormat(token)
			}
		})
	}
}
