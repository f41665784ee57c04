package jwtmiddleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/oauth-demo/core"
)

// Realm is the protection space announced in WWW-Authenticate.
const Realm = "api"

// ErrorHandler answers a request that failed authentication. err matches
// ErrJWTMissing, ErrJWTInvalid or ErrTokenExtraction, and errors.As finds a
// *core.ValidationError for validator failures. A custom handler must answer
// every case, or the request would silently go unanswered.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorResponse is the JSON body written by DefaultErrorHandler.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        string `json:"error_code,omitempty"`
}

// DefaultErrorHandler answers in the form RFC 6750 section 3 describes:
//
//   - missing token: 401 invalid_request, WWW-Authenticate carries only the realm
//   - malformed credentials: 400 invalid_request
//   - rejected token: 401 invalid_token with the validation error code
//   - key set unavailable and anything else: 500 server_error
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ErrorResponseFor(err)

	switch {
	case errors.Is(err, ErrJWTMissing):
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm=%q`, Realm))
	case status == http.StatusUnauthorized || status == http.StatusBadRequest:
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm=%q, error=%q, error_description=%q`,
			Realm, resp.Error, sanitizeHeaderValue(resp.ErrorDescription)))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// ErrorResponseFor maps err to a status code and body. The gin and echo
// adapters share it so every engine answers identically.
func ErrorResponseFor(err error) (int, ErrorResponse) {
	if errors.Is(err, ErrJWTMissing) {
		return http.StatusUnauthorized, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Authorization header required",
			ErrorCode:        core.ErrorCodeTokenMissing,
		}
	}

	if errors.Is(err, ErrTokenExtraction) {
		return http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Authorization header format must be Bearer {token}",
		}
	}

	var validationErr *core.ValidationError
	if errors.As(err, &validationErr) {
		if validationErr.Code == core.ErrorCodeJWKSFetchFailed {
			return http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Unable to verify the access token",
				ErrorCode:        validationErr.Code,
			}
		}
		return http.StatusUnauthorized, ErrorResponse{
			Error:            "invalid_token",
			ErrorDescription: describe(validationErr.Code),
			ErrorCode:        validationErr.Code,
		}
	}

	if errors.Is(err, ErrJWTInvalid) {
		return http.StatusUnauthorized, ErrorResponse{
			Error:            "invalid_token",
			ErrorDescription: describe(""),
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error:            "server_error",
		ErrorDescription: "An internal error occurred while processing the request",
	}
}

func describe(code string) string {
	switch code {
	case core.ErrorCodeTokenMalformed:
		return "The access token is malformed"
	case core.ErrorCodeTokenExpired:
		return "The access token expired"
	case core.ErrorCodeTokenNotYetValid:
		return "The access token is not yet valid"
	case core.ErrorCodeInvalidSignature:
		return "The access token signature is invalid"
	case core.ErrorCodeInvalidAlgorithm:
		return "The access token uses an unsupported algorithm"
	case core.ErrorCodeInvalidIssuer:
		return "The access token issuer is not trusted"
	case core.ErrorCodeInvalidAudience:
		return "The access token audience is not accepted"
	default:
		return "The access token is invalid"
	}
}

// sanitizeHeaderValue keeps a description from breaking out of its quoted
// string in WWW-Authenticate.
func sanitizeHeaderValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
