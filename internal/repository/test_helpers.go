package repository

import (
	"io"
	"net/http"
	"strings"
)

// RoundTripperFunc allows us to easily mock http.Client responses in tests.
type RoundTripperFunc func(*http.Request) *http.Response

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

// FailingRoundTripper simulates a transport failure on every request.
type FailingRoundTripper struct {
	Err error
}

func (f FailingRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, f.Err
}

// JSONResponse builds a canned provider response.
func JSONResponse(status int, body string) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     header,
	}
}

// NewMockHTTPClient wraps fn in an *http.Client.
func NewMockHTTPClient(fn func(req *http.Request) *http.Response) *http.Client {
	return &http.Client{Transport: RoundTripperFunc(fn)}
}
