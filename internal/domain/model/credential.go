package model

import (
	"fmt"
	"log/slog"
)

// Credential is a static identifier/secret pair (username and password or
// app password). It is used directly by basic authorization and as the input
// to token issuance. The secret never appears in formatted or logged output.
type Credential struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

// Valid reports whether both halves of the pair are present.
func (c Credential) Valid() bool {
	return c.Identifier != "" && c.Secret != ""
}

func (c Credential) String() string {
	return fmt.Sprintf("Credential{%s, ****}", c.Identifier)
}

// GoString keeps %#v from printing the secret.
func (c Credential) GoString() string {
	return c.String()
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(slog.String("identifier", c.Identifier))
}
