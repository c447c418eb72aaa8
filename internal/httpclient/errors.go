package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Category groups upstream failures the way callers report them.
type Category string

const (
	// CategoryAPI is an application-level error reported in a 2xx response body.
	CategoryAPI Category = "api"
	// CategoryHTTP is a non-2xx HTTP status.
	CategoryHTTP Category = "http"
	// CategoryConnection is a failure to reach the upstream host.
	CategoryConnection Category = "connection"
	// CategoryTimeout is a request that ran out of time.
	CategoryTimeout Category = "timeout"
	// CategoryRequest is any other request-layer failure.
	CategoryRequest Category = "request"
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// APIError is an error the upstream reported inside an otherwise successful response.
type APIError struct {
	Service string // Service that reported the error, e.g. "amap".
	Info    string // Human readable message from the service.
	Code    string // Service specific error code, may be empty.
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s API error: %s", e.Service, e.Info)
	}

	return fmt.Sprintf("%s API error: %s (code %s)", e.Service, e.Info, e.Code)
}

// Classify maps an error returned by GetJSON (or a provider built on it) onto a Category.
// A nil error has no category.
func Classify(err error) Category {
	if err == nil {
		return ""
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return CategoryHTTP
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return CategoryAPI
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return CategoryConnection
	}

	return CategoryRequest
}
