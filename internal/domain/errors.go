package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when neither a usable wallet nor any
	// contract address was supplied. It is raised before any network call.
	ErrInvalidInput = errors.New("invalid input: wallet address, name or contracts required")

	// ErrResolutionFailed is returned when no resolver endpoint produced a
	// valid address for a name.
	ErrResolutionFailed = errors.New("name resolution failed")
)

// UpstreamError is a non-transient or retry-exhausted provider failure.
// Status is 0 when no HTTP response was received.
type UpstreamError struct {
	Status int
	Body   string
	URL    string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream request failed: %s", e.Body)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}
