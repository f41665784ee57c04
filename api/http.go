package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/oauth-demo/core"
)

// PrincipalHandlerFunc is an http.HandlerFunc that also receives the
// authenticated caller.
type PrincipalHandlerFunc func(w http.ResponseWriter, r *http.Request, p Principal)

// PublicHelloHandler serves PublicHello. It ignores every request header.
func PublicHelloHandler(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, PublicHello())
}

// PrivateHelloHandler serves PrivateHello. It must sit behind the
// authentication middleware.
var PrivateHelloHandler = Authenticated(func(w http.ResponseWriter, _ *http.Request, p Principal) {
	WriteJSON(w, http.StatusOK, PrivateHello(p))
})

// Authenticated passes the principal the authentication middleware stored in
// the request context to next. Without one the route was wired without the
// middleware, so it answers 500 and next never runs.
func Authenticated(next PrincipalHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := core.GetClaims[Principal](r.Context())
		if err != nil {
			WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "no authenticated principal for a protected route",
			})
			return
		}
		next(w, r, p)
	}
}

// ErrorResponse is written when a handler cannot produce its normal body.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes body as the response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
