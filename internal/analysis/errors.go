package analysis

import (
	"fmt"
	"net/http"
)

// ExternalAPIError reports a failed call to a completion provider. Status
// is the HTTP status code when one was received, 0 otherwise.
type ExternalAPIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ExternalAPIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s api error (%d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s api error: %s", e.Provider, e.Message)
}

// RateLimited reports whether the call failed on a provider rate limit.
func (e *ExternalAPIError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// ValidationError reports that a repaired response parsed as JSON but did
// not satisfy the typed result's schema.
type ValidationError struct {
	Subject string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Subject, e.Reason)
}
