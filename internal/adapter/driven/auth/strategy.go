// Package auth attaches credentials to outbound HTTP requests. A Strategy
// computes the Authorization header; Transport applies it to every request
// and refuses to send a request it could not authorize.
package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

// CredentialSource yields the stored credential, or nil when none is stored.
type CredentialSource interface {
	LoadCredentials(ctx context.Context) (*model.Credential, error)
}

// TokenSource yields a currently valid bearer token.
type TokenSource interface {
	GetValidToken(ctx context.Context) (model.Token, error)
}

// Repository is what NewStrategy needs to build either variant.
// *application.CredentialRepository satisfies it.
type Repository interface {
	CredentialSource
	TokenSource
}

// Strategy computes the Authorization header for one request. The set of
// implementations is closed: BasicStrategy and TokenStrategy.
type Strategy interface {
	Mode() model.AuthMode
	header(ctx context.Context) (model.AuthHeader, error)
}

// NewStrategy selects the variant for mode. The choice is made once, when the
// client is configured.
func NewStrategy(mode model.AuthMode, repo Repository) (Strategy, error) {
	switch mode {
	case model.AuthModeBasic:
		return NewBasicStrategy(repo), nil
	case model.AuthModeToken:
		return NewTokenStrategy(repo), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", mode)
	}
}

// BasicStrategy authorizes with the stored identifier and secret.
type BasicStrategy struct {
	creds CredentialSource
}

func NewBasicStrategy(creds CredentialSource) *BasicStrategy {
	return &BasicStrategy{creds: creds}
}

func (s *BasicStrategy) Mode() model.AuthMode { return model.AuthModeBasic }

func (s *BasicStrategy) header(ctx context.Context) (model.AuthHeader, error) {
	cred, err := s.creds.LoadCredentials(ctx)
	if cred == nil {
		return model.AuthHeader{}, model.NoCredentialError(err)
	}
	return model.AuthHeader{
		Name:  model.AuthorizationHeader,
		Value: BasicHeaderValue(cred.Identifier, cred.Secret),
	}, nil
}

// TokenStrategy authorizes with a bearer token, refreshing it when needed.
type TokenStrategy struct {
	tokens TokenSource
}

func NewTokenStrategy(tokens TokenSource) *TokenStrategy {
	return &TokenStrategy{tokens: tokens}
}

func (s *TokenStrategy) Mode() model.AuthMode { return model.AuthModeToken }

func (s *TokenStrategy) header(ctx context.Context) (model.AuthHeader, error) {
	tok, err := s.tokens.GetValidToken(ctx)
	if err != nil {
		return model.AuthHeader{}, err
	}
	return model.AuthHeader{
		Name:  model.AuthorizationHeader,
		Value: BearerHeaderValue(tok.Value),
	}, nil
}

// BasicHeaderValue returns "Basic " + base64(identifier:secret).
func BasicHeaderValue(identifier, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(identifier+":"+secret))
}

// BearerHeaderValue returns "Bearer " + token.
func BearerHeaderValue(token string) string {
	return "Bearer " + token
}

// Authorize returns a clone of req carrying the strategy's Authorization
// header. req itself is not modified.
func Authorize(ctx context.Context, s Strategy, req *http.Request) (*http.Request, error) {
	h, err := s.header(ctx)
	if err != nil {
		return nil, err
	}
	out := req.Clone(ctx)
	out.Header.Set(h.Name, h.Value)
	return out, nil
}
