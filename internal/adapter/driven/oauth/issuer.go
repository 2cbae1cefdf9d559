// Package oauth implements the TokenIssuer port against an OAuth 2.0 token
// endpoint using the resource-owner password and refresh-token grants.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// DefaultTokenURL is Bitbucket Cloud's token endpoint.
const DefaultTokenURL = "https://bitbucket.org/site/oauth2/access_token"

var (
	// ErrEmptyRequest is returned when neither a credential nor a refresh token is supplied.
	ErrEmptyRequest = errors.New("token request has neither credential nor refresh token")

	// ErrNoAccessToken is returned when the endpoint answers 2xx without an access token.
	ErrNoAccessToken = errors.New("token endpoint returned no access token")
)

// Compile-time interface satisfaction check.
var _ driven.TokenIssuer = (*Issuer)(nil)

// Issuer exchanges credentials or refresh tokens for bearer tokens. It uses
// its own plain HTTP client, never the authenticated pipeline.
type Issuer struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewIssuer creates an Issuer for the given OAuth consumer. The client id and
// secret are sent with HTTP basic auth. An empty tokenURL selects
// DefaultTokenURL; a nil httpClient selects http.DefaultClient.
func NewIssuer(clientID, clientSecret, tokenURL string, httpClient *http.Client) *Issuer {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Issuer{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
	}
}

// Issue performs the refresh grant when req.RefreshToken is set, otherwise
// the password grant with req.Credential.
func (i *Issuer) Issue(ctx context.Context, req driven.IssueRequest) (driven.IssuedToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, i.httpClient)

	var (
		tok   *oauth2.Token
		err   error
		grant string
	)
	switch {
	case req.RefreshToken != "":
		grant = "refresh_token"
		tok, err = i.config.TokenSource(ctx, &oauth2.Token{RefreshToken: req.RefreshToken}).Token()
	case req.Credential != nil:
		grant = "password"
		tok, err = i.config.PasswordCredentialsToken(ctx, req.Credential.Identifier, req.Credential.Secret)
	default:
		return driven.IssuedToken{}, ErrEmptyRequest
	}
	if err != nil {
		return driven.IssuedToken{}, fmt.Errorf("%s grant: %w", grant, describe(err))
	}
	if tok.AccessToken == "" {
		return driven.IssuedToken{}, fmt.Errorf("%s grant: %w", grant, ErrNoAccessToken)
	}

	issued := driven.IssuedToken{
		Value:        tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		issued.Expiry = &expiry
	}
	return issued, nil
}

// describe replaces an oauth2.RetrieveError with a summary that omits the
// response body, which may echo request parameters.
func describe(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if re.ErrorCode != "" {
		return &EndpointError{StatusCode: status, Code: re.ErrorCode, Description: re.ErrorDescription}
	}
	return &EndpointError{StatusCode: status}
}

// EndpointError is a non-2xx answer from the token endpoint.
type EndpointError struct {
	StatusCode  int
	Code        string
	Description string
}

// Is matches driven.ErrGrantRejected for 4xx answers other than 408 and 429.
func (e *EndpointError) Is(target error) bool {
	if target != driven.ErrGrantRejected {
		return false
	}
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func (e *EndpointError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("token endpoint returned %d: %s: %s", e.StatusCode, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("token endpoint returned %d: %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("token endpoint returned %d", e.StatusCode)
	}
}
