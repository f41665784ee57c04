package jwtmiddleware

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractor pulls the raw token out of a request. A request that simply
// has no token yields "" and a nil error; an error means a token was offered
// in an unusable form.
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor reads "Authorization: Bearer <token>". The scheme
// is matched case-insensitively.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}

	authHeaderParts := strings.Fields(authHeader)
	if len(authHeaderParts) != 2 || !strings.EqualFold(authHeaderParts[0], "bearer") {
		return "", errors.New("authorization header format must be Bearer {token}")
	}

	return authHeaderParts[1], nil
}

// CookieTokenExtractor reads the token from the named cookie.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor reads the token from the named query parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor returns the first non-empty token any extractor finds,
// in order. The first error stops the search.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
