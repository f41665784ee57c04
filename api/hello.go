// Package api holds the two greeting endpoints of the demo service and the
// net/http wiring around them.
package api

const (
	publicMessage  = "Hello from a public endpoint! No authentication required."
	privateMessage = "Hello from a secured endpoint!"
)

// Principal is the authenticated caller of a protected endpoint.
// *validator.ValidatedClaims satisfies it.
type Principal interface {
	// Subject returns the "sub" claim.
	Subject() string
	// Claims returns every claim of the validated token.
	Claims() map[string]any
}

// PublicHelloResponse is the body of GET /api/public/hello.
type PublicHelloResponse struct {
	Message string `json:"message"`
}

// PrivateHelloResponse is the body of GET /api/private/hello.
type PrivateHelloResponse struct {
	Message string         `json:"message"`
	User    string         `json:"user"`
	Claims  map[string]any `json:"claims"`
}

// PublicHello greets anyone.
func PublicHello() PublicHelloResponse {
	return PublicHelloResponse{Message: publicMessage}
}

// PrivateHello greets p and echoes its subject and claims unchanged.
func PrivateHello(p Principal) PrivateHelloResponse {
	return PrivateHelloResponse{
		Message: privateMessage,
		User:    p.Subject(),
		Claims:  p.Claims(),
	}
}
