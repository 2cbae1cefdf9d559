package model

// AuthorizationHeader is the header name every strategy writes.
const AuthorizationHeader = "Authorization"

// AuthHeader is a computed authorization header. It is attached to a single
// outbound request and never persisted.
type AuthHeader struct {
	Name  string
	Value string
}
