// Package apierr classifies failures from model-serving HTTP APIs.
package apierr

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// maxBodyBytes bounds how much of an error response is kept.
const maxBodyBytes = 4 << 10

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Code, e.Body)
}

// FromResponse reads a failed response into a StatusError.
func FromResponse(provider string, resp *http.Response) *StatusError {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &StatusError{Provider: provider, Code: resp.StatusCode, Body: "failed to read response"}
	}
	return &StatusError{Provider: provider, Code: resp.StatusCode, Body: string(body)}
}

// Unreachable reports whether err means the server could not be contacted:
// connection refused, DNS failure or a dial error.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// MissingModel reports whether err is a provider response saying the model
// does not exist.
func MissingModel(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Classify wraps err with unavailable when the server is unreachable or the
// model is missing. Other errors are returned unchanged.
func Classify(err, unavailable error) error {
	if err == nil {
		return nil
	}
	if Unreachable(err) || MissingModel(err) {
		return fmt.Errorf("%w: %w", unavailable, err)
	}
	return err
}
