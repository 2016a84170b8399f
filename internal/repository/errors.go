package repository

import (
	"errors"
	"fmt"

	"github.com/fakhrymubarak/skyglow-weather/internal/model"
)

// Custom error types
var (
	ErrAPIKeyMissing = errors.New("API key missing")
	ErrDecode        = errors.New("malformed provider response")
)

// NetworkError is a transport failure talking to the provider.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProviderError is a non-success status reported in the provider's response body.
type ProviderError struct {
	Code    model.StatusCode
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error %d", e.Code)
	}
	return e.Message
}
