package model

import (
	"fmt"
	"log/slog"
	"time"
)

// Token is a bearer token obtained from the token issuer.
//
// A nil Expiry means the token is valid until explicitly invalidated.
// RefreshToken is empty when the issuer did not return a refresh artifact.
type Token struct {
	Value        string     `json:"value"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ObtainedAt   time.Time  `json:"obtained_at"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// Expired reports whether the token's expiry is at or before now.
func (t Token) Expired(now time.Time) bool {
	return t.ExpiresWithin(now, 0)
}

// ExpiresWithin reports whether the token expires within leeway of now.
// Tokens without an expiry never expire.
func (t Token) ExpiresWithin(now time.Time, leeway time.Duration) bool {
	if t.Expiry == nil {
		return false
	}
	return !now.Add(leeway).Before(*t.Expiry)
}

func (t Token) String() string {
	if t.Expiry == nil {
		return fmt.Sprintf("Token{obtained %s, no expiry}", t.ObtainedAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("Token{obtained %s, expires %s}",
		t.ObtainedAt.Format(time.RFC3339), t.Expiry.Format(time.RFC3339))
}

// GoString keeps %#v from printing the token value.
func (t Token) GoString() string {
	return t.String()
}

// LogValue implements slog.LogValuer. Only timing metadata is logged.
func (t Token) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Time("obtained_at", t.ObtainedAt),
		slog.Bool("refreshable", t.RefreshToken != ""),
	}
	if t.Expiry != nil {
		attrs = append(attrs, slog.Time("expiry", *t.Expiry))
	}
	return slog.GroupValue(attrs...)
}
