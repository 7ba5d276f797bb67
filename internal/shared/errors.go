package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid indicates a missing, malformed, or revoked bearer token.
	ErrTokenInvalid = errors.New("invalid token")
)

// UserSafeMessage returns an error message safe to surface to API clients.
// Known domain errors pass through verbatim; anything else collapses into a
// generic message so infrastructure details never leak.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrTokenInvalid):
		return "invalid token"
	}
	return "something went wrong, please try again"
}
