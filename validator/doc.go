/*
Package validator verifies JWS compact bearer tokens with lestrrat-go/jwx.

A token is accepted only when its header "alg" equals the configured
algorithm, its signature verifies against the key returned by the key func,
its exp/nbf/iat hold (with the allowed clock skew), its "iss" matches and its
"aud" contains one of the configured audiences.

	v, err := validator.New(
	    validator.WithKeyFunc(provider.KeyFunc),
	    validator.WithAlgorithm(validator.RS256),
	    validator.WithIssuer("https://issuer.example.com/"),
	    validator.WithAudience("oauth-demo"),
	)

The result is a *ValidatedClaims carrying the registered claims and every
claim of the payload exactly as sent.
*/
package validator
