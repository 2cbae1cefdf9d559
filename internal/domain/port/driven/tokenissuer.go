package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

// ErrGrantRejected is matched by issuer errors meaning the token endpoint
// refused the credential or refresh token itself, as opposed to being
// unreachable or failing.
var ErrGrantRejected = errors.New("grant rejected by token endpoint")

// IssueRequest selects a grant. A non-empty RefreshToken requests the refresh
// exchange; otherwise Credential is exchanged for a new token.
type IssueRequest struct {
	Credential   *model.Credential
	RefreshToken string
}

// IssuedToken is the issuer's answer. Expiry is nil when the issuer did not
// report a lifetime.
type IssuedToken struct {
	Value        string
	RefreshToken string
	Expiry       *time.Time
}

// TokenIssuer defines the driven port for the external token endpoint.
// Calls are network I/O and may be slow or fail.
type TokenIssuer interface {
	Issue(ctx context.Context, req IssueRequest) (IssuedToken, error)
}
