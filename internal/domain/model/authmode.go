package model

import "fmt"

// AuthMode selects how outbound requests are authorized. It is fixed for
// the lifetime of a configuration.
type AuthMode string

const (
	AuthModeBasic AuthMode = "basic"
	AuthModeToken AuthMode = "token"
)

// ParseAuthMode converts configuration text into an AuthMode.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case AuthModeBasic, AuthModeToken:
		return AuthMode(s), nil
	default:
		return "", fmt.Errorf("unknown auth mode %q: must be %q or %q", s, AuthModeBasic, AuthModeToken)
	}
}

// UnmarshalText lets configuration loaders parse an AuthMode directly.
func (m *AuthMode) UnmarshalText(text []byte) error {
	parsed, err := ParseAuthMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m AuthMode) String() string {
	return string(m)
}
