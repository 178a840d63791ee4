package analysis

import (
	"context"

	"snaplens/internal/imaging"
)

// Config holds the client-side request parameters. Mutated only through
// Client.Configure; providers receive a copy per request.
type Config struct {
	Endpoint    string
	Credential  string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Request is one outbound analysis exchange: the user's description plus the
// encoded image, with the configuration captured at issue time.
type Request struct {
	Description string
	Image       *imaging.Encoded
	Config      Config
}

// Provider turns a request into response text against one wire format.
// Implementations classify failures with the package error taxonomy:
// TransportError, ProviderError, MalformedResponseError, ErrEmptyResponse.
type Provider interface {
	Send(ctx context.Context, req *Request) (string, error)
}

type EventType int

const (
	// EventResponse carries the extracted response text of a successful call.
	EventResponse EventType = iota
	// EventError carries the terminal error of a failed call.
	EventError
	// EventLoading signals the in-flight state changing; Loading false is
	// always the last event of a call so observers can re-enable interaction.
	EventLoading
)

// Event is one observer notification from the analysis client. Exactly one of
// the payload fields is meaningful, selected by Type. Seq identifies the
// analyze call that produced the event; a consumer that gave up on an earlier
// call uses it to discard that call's late outcome.
type Event struct {
	Seq     uint64
	Type    EventType
	Text    string
	Err     error
	Loading bool
}
