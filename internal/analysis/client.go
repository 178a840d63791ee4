package analysis

import (
	"context"
	"image"
	"log/slog"
	"sync"

	"snaplens/internal/imaging"
)

// Client drives the capture-to-analysis exchange. At most one request may be
// in flight per instance; a second analyze call while one is pending is
// rejected, not queued. Calls return immediately and deliver their terminal
// outcome on the Events channel.
//
//	Idle --Analyze--> InFlight --success--> Idle (EventResponse)
//	Idle --Analyze--> InFlight --failure--> Idle (EventError)
//	InFlight --Analyze--> ErrAlreadyInProgress, no state change
type Client struct {
	primary Provider
	custom  Provider
	logger  *slog.Logger

	mu       sync.Mutex
	cfg      Config
	inFlight bool
	seq      uint64

	events chan Event
}

// NewClient wires the client to its providers. primary serves Analyze;
// custom serves AnalyzeCustom.
func NewClient(primary, custom Provider, logger *slog.Logger) *Client {
	return &Client{
		primary: primary,
		custom:  custom,
		logger:  logger,
		// Each call emits at most three events; 16 gives slack for a
		// consumer that lags a call or two behind.
		events: make(chan Event, 16),
	}
}

// Configure replaces the request parameters. Pure mutation, no I/O; safe to
// call between requests.
func (c *Client) Configure(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// Events delivers response, error and loading-state notifications. Consumers
// must drain it; events are dropped with a warning once the buffer fills.
func (c *Client) Events() <-chan Event {
	return c.events
}

// InFlight reports whether a request is pending.
func (c *Client) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Analyze sends img and description to the configured provider. It fails
// synchronously with ErrAlreadyInProgress or ErrMissingCredential; otherwise
// the outcome arrives as events: loading(true), then exactly one of
// EventResponse or EventError, then loading(false). The returned sequence
// number tags every event of this call, so a caller that stops waiting can
// tell the call's late outcome apart from the next call's.
func (c *Client) Analyze(ctx context.Context, img image.Image, description string) (uint64, error) {
	return c.start(ctx, c.primary, img, description, "", true)
}

// AnalyzeCustom is Analyze against the minimal provider-agnostic schema at
// endpoint. Custom endpoints are caller-trusted and need no credential; the
// in-flight and event discipline is unchanged.
func (c *Client) AnalyzeCustom(ctx context.Context, img image.Image, description, endpoint string) (uint64, error) {
	return c.start(ctx, c.custom, img, description, endpoint, false)
}

func (c *Client) start(ctx context.Context, p Provider, img image.Image, description, endpoint string, needCredential bool) (uint64, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return 0, ErrAlreadyInProgress
	}
	cfg := c.cfg
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if needCredential && cfg.Credential == "" {
		c.mu.Unlock()
		return 0, ErrMissingCredential
	}
	c.inFlight = true
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.emit(Event{Seq: seq, Type: EventLoading, Loading: true})

	go func() {
		text, err := c.run(ctx, p, cfg, img, description)

		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()

		if err != nil {
			c.logger.Error("analysis failed", "endpoint", cfg.Endpoint, "error", err)
			c.emit(Event{Seq: seq, Type: EventError, Err: err})
		} else {
			c.logger.Info("analysis complete", "endpoint", cfg.Endpoint, "chars", len(text))
			c.emit(Event{Seq: seq, Type: EventResponse, Text: text})
		}
		c.emit(Event{Seq: seq, Type: EventLoading, Loading: false})
	}()

	return seq, nil
}

func (c *Client) run(ctx context.Context, p Provider, cfg Config, img image.Image, description string) (string, error) {
	enc, err := imaging.EncodeForUpload(img)
	if err != nil {
		return "", err
	}
	return p.Send(ctx, &Request{Description: description, Image: enc, Config: cfg})
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event dropped: channel full", "type", ev.Type)
	}
}
