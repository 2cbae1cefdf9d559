package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ericfisherdev/bitbrowse/internal/domain/model"
)

// CallState tracks one request through the authenticator.
type CallState int

const (
	CallPending CallState = iota
	CallAuthorizing
	CallAuthorized
	CallSent
	CallFailed
)

func (s CallState) String() string {
	switch s {
	case CallPending:
		return "pending"
	case CallAuthorizing:
		return "authorizing"
	case CallAuthorized:
		return "authorized"
	case CallSent:
		return "sent"
	case CallFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Failure is returned by Transport when a request could not be authorized.
// The request was not sent. Err is the *model.AuthError. A caller's own
// cancellation or deadline while authorizing is returned as is, not as a
// Failure.
type Failure struct {
	Method string
	URL    string
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s not sent: %v", f.Method, f.URL, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsAuthFailure reports whether err is, or wraps, a Failure. It distinguishes
// "never sent" from transport errors and server responses, including through
// the *url.Error that http.Client adds.
func IsAuthFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// Invalidator discards the current bearer token.
type Invalidator interface {
	InvalidateToken(ctx context.Context)
}

// Transport is an http.RoundTripper that authorizes every request with its
// Strategy before handing it to Base. It never retries.
type Transport struct {
	Strategy Strategy
	Base     http.RoundTripper

	// Invalidator, when set, is told to discard the bearer token after the
	// host answers 401 to a token-authorized request. The response is still
	// returned to the caller unchanged.
	Invalidator Invalidator
}

// Option configures a Transport.
type Option func(*Transport)

// WithInvalidateOn401 enables the reactive 401 hook.
func WithInvalidateOn401(inv Invalidator) Option {
	return func(t *Transport) { t.Invalidator = inv }
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(strategy Strategy, base http.RoundTripper, opts ...Option) *Transport {
	t := &Transport{Strategy: strategy, Base: base}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	callID := uuid.NewString()
	log := slog.With("call_id", callID, "method", req.Method, "host", req.URL.Host, "path", req.URL.Path)

	state := CallPending
	log.Debug("auth call", "state", state)

	state = CallAuthorizing
	authed, err := Authorize(req.Context(), t.Strategy, req)
	if err != nil {
		state = CallFailed
		log.Debug("auth call", "state", state, "error", err)
		if req.Body != nil {
			_ = req.Body.Close()
		}
		if !model.IsAuthError(err) {
			return nil, err
		}
		return nil, &Failure{Method: req.Method, URL: redactedURL(req), Err: err}
	}

	state = CallAuthorized
	log.Debug("auth call", "state", state, "mode", t.Strategy.Mode())

	resp, err := t.base().RoundTrip(authed)
	state = CallSent
	if err != nil {
		log.Debug("auth call", "state", state, "error", err)
		return nil, err
	}
	log.Debug("auth call", "state", state, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized && t.Invalidator != nil && t.Strategy.Mode() == model.AuthModeToken {
		log.Info("host rejected bearer token; next request will refresh")
		t.Invalidator.InvalidateToken(req.Context())
	}
	return resp, nil
}

// Client returns an *http.Client that uses t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func redactedURL(req *http.Request) string {
	u := *req.URL
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
