package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/RestaurantPOS/pkg/errors"
)

// remoteError is the error body written by httputil.WriteError.
type remoteError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ParseResponseError consumes and closes a non-2xx response and converts it
// into an AppError. The remote error code is kept so that error kinds survive
// the hop; the HTTP status picks the category.
func ParseResponseError(resp *http.Response, upstream string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (read body: %w)", upstream, resp.StatusCode, err)
	}

	var re remoteError
	if json.Unmarshal(body, &re) != nil || re.Error == "" {
		return fmt.Errorf("%s returned status %d: %s", upstream, resp.StatusCode, string(body))
	}
	if re.Code == "" {
		re.Code = http.StatusText(resp.StatusCode)
	}

	category, ok := categoryFor(resp.StatusCode)
	if !ok {
		return fmt.Errorf("%s server error (%d/%s): %s", upstream, resp.StatusCode, re.Code, re.Error)
	}
	return apperrors.New(re.Code, re.Error, category)
}

func categoryFor(status int) (error, bool) {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.ErrInvalidInput, true
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized, true
	case http.StatusPaymentRequired:
		return apperrors.ErrPaymentFailed, true
	case http.StatusForbidden:
		return apperrors.ErrForbidden, true
	case http.StatusNotFound:
		return apperrors.ErrNotFound, true
	case http.StatusConflict:
		return apperrors.ErrConflict, true
	case http.StatusGone:
		return apperrors.ErrGone, true
	case http.StatusTooManyRequests:
		return apperrors.ErrRateLimited, true
	case http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavail, true
	}
	return nil, false
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
