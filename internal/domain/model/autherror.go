package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated matches every AuthError regardless of kind.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoCredential matches AuthErrors raised because no credential is stored.
	ErrNoCredential = errors.New("no credential available")

	// ErrRefreshFailed matches AuthErrors raised because a token could not be obtained.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrCleared is the cause of a refresh that completed after storage was cleared.
	// It is always wrapped in a RefreshFailed AuthError.
	ErrCleared = errors.New("credential storage cleared during refresh")
)

// AuthErrorKind distinguishes the two ways authorization can fail.
type AuthErrorKind int

const (
	AuthErrorNoCredential AuthErrorKind = iota + 1
	AuthErrorRefreshFailed
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthErrorNoCredential:
		return "no_credential"
	case AuthErrorRefreshFailed:
		return "refresh_failed"
	default:
		return "unknown"
	}
}

// AuthError reports that a request could not be authorized. Err carries the
// underlying cause when there is one (issuer error, storage error, ErrCleared).
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

// NoCredentialError builds an AuthError of kind NoCredential. cause may be nil.
func NoCredentialError(cause error) *AuthError {
	return &AuthError{Kind: AuthErrorNoCredential, Err: cause}
}

// RefreshFailedError builds an AuthError of kind RefreshFailed.
func RefreshFailedError(cause error) *AuthError {
	return &AuthError{Kind: AuthErrorRefreshFailed, Err: cause}
}

func (e *AuthError) Error() string {
	var base string
	switch e.Kind {
	case AuthErrorNoCredential:
		base = ErrNoCredential.Error()
	case AuthErrorRefreshFailed:
		base = ErrRefreshFailed.Error()
	default:
		base = ErrNotAuthenticated.Error()
	}
	if e.Err == nil {
		return base
	}
	return fmt.Sprintf("%s: %v", base, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches the umbrella sentinel and the sentinel for this error's kind.
func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrNotAuthenticated:
		return true
	case ErrNoCredential:
		return e.Kind == AuthErrorNoCredential
	case ErrRefreshFailed:
		return e.Kind == AuthErrorRefreshFailed
	}
	return false
}

// IsAuthError reports whether err, or anything it wraps, is an AuthError.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}
