package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// HTTP methods used by the endpoints
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Identity is what the transport needs to know about the calling account
type Identity interface {
	AuthToken() string
	ProxyURL() string
	AccountIndex() int
}

// Transport sends one request and returns the decoded envelope. An error
// means no usable response was received.
type Transport interface {
	Send(ctx context.Context, url string, payload interface{}, id Identity, method string) (*Response, error)
}

// TransportFunc adapts a function to Transport
type TransportFunc func(ctx context.Context, url string, payload interface{}, id Identity, method string) (*Response, error)

func (f TransportFunc) Send(ctx context.Context, url string, payload interface{}, id Identity, method string) (*Response, error) {
	return f(ctx, url, payload, id, method)
}

// TransportError wraps a network or HTTP level failure
type TransportError struct {
	URL      string
	Status   int
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "request %s failed", e.URL)
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is or wraps a TransportError
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
