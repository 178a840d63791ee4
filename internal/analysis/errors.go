package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInProgress rejects an analyze call issued while a prior
	// call's response has not yet arrived. The pending call is unaffected.
	ErrAlreadyInProgress = errors.New("analysis already in progress")

	// ErrMissingCredential rejects an analyze call before any network I/O
	// when no API credential is configured.
	ErrMissingCredential = errors.New("no API credential configured")

	// ErrEmptyResponse marks a well-formed response that carried no content.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// TransportError is a network-level failure: the request never produced an
// HTTP response, or the response body could not be read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError is a structured rejection from the remote service: a non-2xx
// status or an error field in the response body.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider rejected request (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider rejected request: %s", e.Message)
}

// MalformedResponseError marks a response body that did not parse into the
// expected shape.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response body: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
