/*
Package jwks fetches the JSON Web Key Set an issuer publishes and exposes it
through a KeyFunc the validator package can call on every request.

Provider performs OIDC discovery (unless a JWKS URI is configured) and
fetches the key set on every call. CachingProvider keeps each key set for a
TTL, refreshes it in the background once 80% of the TTL has passed, and
makes sure only one request per URI is in flight.

	provider, err := jwks.NewCachingProvider(
	    jwks.WithIssuerURL(issuerURL),
	    jwks.WithCacheTTL(5*time.Minute),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyFunc(provider.KeyFunc),
	    validator.WithAlgorithm(validator.RS256),
	    validator.WithIssuer(issuerURL.String()),
	    validator.WithAudience("my-api"),
	)

Cache-Control max-age sent by the key server extends the configured TTL when
it is longer, bounded to between one second and seven days.
*/
package jwks
