package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/example/oauth-demo/core"
)

// Signature algorithms.
const (
	EdDSA = SignatureAlgorithm("EdDSA")
	HS256 = SignatureAlgorithm("HS256") // HMAC using SHA-256
	HS384 = SignatureAlgorithm("HS384") // HMAC using SHA-384
	HS512 = SignatureAlgorithm("HS512") // HMAC using SHA-512
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// SignatureAlgorithm is a JWS "alg" value.
type SignatureAlgorithm string

var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	EdDSA: true,
	HS256: true,
	HS384: true,
	HS512: true,
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
}

// Validator verifies bearer tokens and turns them into *ValidatedClaims.
// It is immutable after New and safe for concurrent use.
type Validator struct {
	keyFunc            func(context.Context) (any, error)
	signatureAlgorithm SignatureAlgorithm
	issuer             string
	audiences          []string
	customClaims       func() CustomClaims
	allowedClockSkew   time.Duration
	now                func() time.Time
}

// New builds a Validator. WithKeyFunc, WithAlgorithm, WithIssuer and one of
// WithAudience or WithAudiences are required.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{now: time.Now}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	switch {
	case v.keyFunc == nil:
		return nil, errors.New("keyFunc is required (use WithKeyFunc)")
	case v.signatureAlgorithm == "":
		return nil, errors.New("signature algorithm is required (use WithAlgorithm)")
	case v.issuer == "":
		return nil, errors.New("issuer is required (use WithIssuer)")
	case len(v.audiences) == 0:
		return nil, errors.New("audience is required (use WithAudience or WithAudiences)")
	}

	return v, nil
}

// ValidateToken verifies tokenString and returns a *ValidatedClaims.
// Every rejection is a *core.ValidationError.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (any, error) {
	if err := validateTokenFormat(tokenString); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "token is malformed", err)
	}

	msg, err := jws.Parse([]byte(tokenString))
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeTokenMalformed, "could not parse the token", err)
	}

	signatures := msg.Signatures()
	if len(signatures) != 1 {
		return nil, core.NewValidationError(
			core.ErrorCodeTokenMalformed,
			"token must carry exactly one signature",
			fmt.Errorf("found %d", len(signatures)),
		)
	}

	tokenAlg := signatures[0].ProtectedHeaders().Algorithm().String()
	if err = validateSigningMethod(string(v.signatureAlgorithm), tokenAlg); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidAlgorithm, "signing method is invalid", err)
	}

	key, err := v.keyFunc(ctx)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "could not get the verification key", err)
	}

	keyOption, err := verificationKey(jwa.SignatureAlgorithm(v.signatureAlgorithm), key)
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "could not use the verification key", err)
	}

	if _, err = jws.Verify([]byte(tokenString), keyOption); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidSignature, "signature verification failed", err)
	}

	token, err := jwt.ParseInsecure([]byte(tokenString))
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidClaims, "could not decode the token claims", err)
	}

	if err = v.validateRegisteredClaims(token); err != nil {
		return nil, err
	}

	claims, err := decodeClaims(msg.Payload())
	if err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidClaims, "could not decode the token claims", err)
	}

	customClaims, err := v.validateCustomClaims(ctx, msg.Payload())
	if err != nil {
		return nil, err
	}

	return &ValidatedClaims{
		RegisteredClaims: RegisteredClaims{
			Issuer:    token.Issuer(),
			Subject:   token.Subject(),
			Audience:  token.Audience(),
			ID:        token.JwtID(),
			Expiry:    unixOrZero(token.Expiration()),
			NotBefore: unixOrZero(token.NotBefore()),
			IssuedAt:  unixOrZero(token.IssuedAt()),
		},
		CustomClaims: customClaims,
		claims:       claims,
	}, nil
}

func (v *Validator) validateRegisteredClaims(token jwt.Token) error {
	err := jwt.Validate(token,
		jwt.WithClock(jwt.ClockFunc(v.now)),
		jwt.WithAcceptableSkew(v.allowedClockSkew),
		jwt.WithIssuer(v.issuer),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired()):
		return core.NewValidationError(core.ErrorCodeTokenExpired, "token has expired", err)
	case errors.Is(err, jwt.ErrTokenNotYetValid()):
		return core.NewValidationError(core.ErrorCodeTokenNotYetValid, "token is not valid yet", err)
	case errors.Is(err, jwt.ErrInvalidIssuer()):
		return core.NewValidationError(core.ErrorCodeInvalidIssuer, "token issuer is invalid", err)
	default:
		return core.NewValidationError(core.ErrorCodeInvalidClaims, "token claims are invalid", err)
	}

	for _, want := range v.audiences {
		for _, got := range token.Audience() {
			if got == want {
				return nil
			}
		}
	}
	return core.NewValidationError(
		core.ErrorCodeInvalidAudience,
		"token audience is invalid",
		fmt.Errorf("expected one of %q, token has %q", v.audiences, token.Audience()),
	)
}

func (v *Validator) validateCustomClaims(ctx context.Context, payload []byte) (CustomClaims, error) {
	if v.customClaims == nil {
		return nil, nil
	}

	customClaims := v.customClaims()
	if customClaims == nil {
		return nil, nil
	}

	if err := json.Unmarshal(payload, customClaims); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidClaims, "could not decode custom claims", err)
	}
	if err := customClaims.Validate(ctx); err != nil {
		return nil, core.NewValidationError(core.ErrorCodeInvalidClaims, "custom claims not validated", err)
	}

	return customClaims, nil
}

func validateSigningMethod(validAlg, tokenAlg string) error {
	if validAlg != tokenAlg {
		return fmt.Errorf("expected %q signing algorithm but token specified %q", validAlg, tokenAlg)
	}
	return nil
}

// verificationKey accepts what a key func may return: a jwk.Set from the
// jwks package, a single jwk.Key, or a raw key such as []byte or
// *rsa.PublicKey.
func verificationKey(alg jwa.SignatureAlgorithm, key any) (jws.VerifyOption, error) {
	switch k := key.(type) {
	case nil:
		return nil, errors.New("key func returned a nil key")
	case jwk.Set:
		return jws.WithKeySet(k, jws.WithInferAlgorithmFromKey(true)), nil
	default:
		return jws.WithKey(alg, k), nil
	}
}

// decodeClaims keeps every claim of the payload as sent, with numbers held
// as json.Number so they re-encode unchanged.
func decodeClaims(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	claims := map[string]any{}
	if err := dec.Decode(&claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
