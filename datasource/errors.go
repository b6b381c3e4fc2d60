package datasource

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned by LoadConfig when TZ_API_KEY is not set
var ErrMissingAPIKey = errors.New("TZ_API_KEY is not set")

// TransportError means the request never produced an HTTP response
type TransportError struct {
	Zone string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request for %s failed: %v", e.Zone, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is returned for any status other than 200 OK
type HTTPError struct {
	Zone       string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error for %s (status %d)", e.Zone, e.StatusCode)
	}
	return fmt.Sprintf("API error for %s (status %d): %s", e.Zone, e.StatusCode, e.Body)
}

// APIError is reported by the service inside an otherwise successful response,
// e.g. for an unknown zone or an invalid token.
type APIError struct {
	Zone string
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API rejected %s with code %s", e.Zone, e.Code)
}

// DecodeError means the body was not the JSON document we expect
type DecodeError struct {
	Zone string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse response for %s: %v", e.Zone, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FieldParseError is returned when a response field has an unusable value
type FieldParseError struct {
	Zone  string
	Field string
	Value string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("invalid %s %q for %s: %v", e.Field, e.Value, e.Zone, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }
