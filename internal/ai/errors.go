package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type ErrorKind string

const (
	KindRateLimited      ErrorKind = "rate_limited"
	KindMalformedRequest ErrorKind = "malformed_request"
	KindProvider         ErrorKind = "provider_error"
	KindUnexpected       ErrorKind = "unexpected"
)

var ErrAPIKeyMissing = errors.New("ai api key is missing")

// APIError is a provider failure that has already been classified.
type APIError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s api error (%d): %s", e.Provider, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindForStatus сопоставляет HTTP-статус провайдера с классом ошибки.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnprocessableEntity:
		return KindMalformedRequest
	default:
		return KindProvider
	}
}

// Classify определяет класс ошибки вызова модели.
// Таймауты и сетевые сбои считаются ошибками провайдера.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindProvider
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindProvider
	}

	return KindUnexpected
}

func transportError(provider string, err error) *APIError {
	return &APIError{Provider: provider, Kind: KindProvider, Message: err.Error(), Err: err}
}
