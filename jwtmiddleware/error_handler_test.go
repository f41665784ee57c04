package jwtmiddleware

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/example/oauth-demo/core"
)

func Test_ErrorResponseFor(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   ErrorResponse
	}{
		{
			name:       "missing token",
			err:        ErrJWTMissing,
			wantStatus: http.StatusUnauthorized,
			wantBody: ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "Authorization header required",
				ErrorCode:        core.ErrorCodeTokenMissing,
			},
		},
		{
			name:       "extraction failure",
			err:        fmt.Errorf("%w: %w", ErrTokenExtraction, errors.New("bad header")),
			wantStatus: http.StatusBadRequest,
			wantBody:   ErrorResponse{Error: "invalid_request", ErrorDescription: "Authorization header format must be Bearer {token}"},
		},
		{
			name:       "invalid signature",
			err:        &invalidError{details: core.NewValidationError(core.ErrorCodeInvalidSignature, "signature verification failed", nil)},
			wantStatus: http.StatusUnauthorized,
			wantBody: ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: "The access token signature is invalid",
				ErrorCode:        core.ErrorCodeInvalidSignature,
			},
		},
		{
			name:       "invalid issuer",
			err:        core.NewValidationError(core.ErrorCodeInvalidIssuer, "token issuer is invalid", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody: ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: "The access token issuer is not trusted",
				ErrorCode:        core.ErrorCodeInvalidIssuer,
			},
		},
		{
			name:       "custom claims rejected",
			err:        core.NewValidationError(core.ErrorCodeInvalidClaims, "custom claims not validated", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody: ErrorResponse{
				Error:            "invalid_token",
				ErrorDescription: "The access token is invalid",
				ErrorCode:        core.ErrorCodeInvalidClaims,
			},
		},
		{
			name:       "plain validator error",
			err:        &invalidError{details: errors.New("nope")},
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrorResponse{Error: "invalid_token", ErrorDescription: "The access token is invalid"},
		},
		{
			name:       "key set unavailable",
			err:        &invalidError{details: core.NewValidationError(core.ErrorCodeJWKSFetchFailed, "could not get the verification key", nil)},
			wantStatus: http.StatusInternalServerError,
			wantBody: ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Unable to verify the access token",
				ErrorCode:        core.ErrorCodeJWKSFetchFailed,
			},
		},
		{
			name:       "unknown error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorResponse{Error: "server_error", ErrorDescription: "An internal error occurred while processing the request"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			status, body := ErrorResponseFor(testCase.err)
			if status != testCase.wantStatus {
				t.Errorf("status = %d, want %d", status, testCase.wantStatus)
			}
			if diff := cmp.Diff(testCase.wantBody, body); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_sanitizeHeaderValue(t *testing.T) {
	if got := sanitizeHeaderValue("a \"quoted\"\\ value\r\n"); got != "a quoted value" {
		t.Errorf("sanitizeHeaderValue() = %q", got)
	}
}
