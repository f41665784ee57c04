/*
Package jwtmiddleware authenticates net/http requests with bearer tokens.

CheckJWT extracts the token, hands it to core.Core for validation and stores
the resulting principal in the request context before calling the next
handler. Failures never reach the next handler; they are answered by the
configured ErrorHandler, which by default writes an RFC 6750 response.

	v, err := validator.New(
	    validator.WithKeyFunc(provider.KeyFunc),
	    validator.WithAlgorithm(validator.RS256),
	    validator.WithIssuer(issuer),
	    validator.WithAudience("my-api"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	mw, err := jwtmiddleware.New(
	    jwtmiddleware.WithValidator(v),
	    jwtmiddleware.WithLogger(jwtmiddleware.NewLogrusLogger(logrus.StandardLogger())),
	)
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/api/private/hello", mw.CheckJWT(handler))

Handlers read the principal back with GetClaims:

	claims, err := jwtmiddleware.GetClaims[*validator.ValidatedClaims](r.Context())

Every check is counted through the Metrics interface and wrapped in an
OpenTelemetry span. PrometheusMetrics registers its collectors on a
caller-supplied registry.
*/
package jwtmiddleware
