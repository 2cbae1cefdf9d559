package bitbucket

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/ericfisherdev/bitbrowse/internal/domain/port/driven"
)

// APIError is a non-2xx response other than 401 and 404.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bitbucket returned %d", e.StatusCode)
	}
	return fmt.Sprintf("bitbucket returned %d: %s", e.StatusCode, e.Message)
}

// checkStatus maps an error response to driven.ErrUnauthorized,
// driven.ErrNotFound or an *APIError.
func checkStatus(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	msg := gjson.GetBytes(resp.Body(), "error.message").String()
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		if msg == "" {
			return driven.ErrUnauthorized
		}
		return fmt.Errorf("%w: %s", driven.ErrUnauthorized, msg)
	case http.StatusNotFound:
		if msg == "" {
			return driven.ErrNotFound
		}
		return fmt.Errorf("%w: %s", driven.ErrNotFound, msg)
	default:
		return &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
}
