package httpclient

import (
	"fmt"
	"io"
	"net/http"
)

// StatusError reports a non-2xx response from an upstream service.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.Status, e.Body)
}

// Temporary reports whether the upstream may succeed if asked again later.
func (e *StatusError) Temporary() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// CheckResponse returns nil for 2xx responses. Otherwise it consumes and
// closes the body (first 4 KiB kept) and returns a *StatusError.
func CheckResponse(resp *http.Response, service string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{Service: service, Status: resp.StatusCode, Body: string(body)}
}
