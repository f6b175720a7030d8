package service

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrServiceNotFound = errors.New("service not found")

// Error codes carried in ErrorEnvelope.
const (
	CodeBadRequest      = "bad_request"
	CodeServiceNotFound = "service_not_found"
	CodeRetrieveFailed  = "retrieve_failed"
	CodeRateLimited     = "rate_limited"
	CodeTimeout         = "timeout"
)

// RetrieveResponse is the body of a successful
// GET /v1/services/:id/retrieve.
type RetrieveResponse struct {
	Service string `json:"service"`
	Input   string `json:"input"`
	Value   string `json:"value"`
}

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RemoteError is a non-200 answer from a remote fanin server.
type RemoteError struct {
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("remote %s (%d): %s", e.Code, e.Status, msg)
	}
	return fmt.Sprintf("remote error (%d): %s", e.Status, msg)
}

// Retryable reports whether the same request may succeed later.
func (e *RemoteError) Retryable() bool {
	if e.Code == CodeRetrieveFailed || e.Code == CodeServiceNotFound || e.Code == CodeBadRequest {
		return false
	}
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}
