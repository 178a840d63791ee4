package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"snaplens/internal/domain"
)

var (
	// ErrNoDevice means no camera hardware is available to select.
	ErrNoDevice = errors.New("no camera device available")

	// ErrNotReady rejects a capture before the feed is streaming.
	ErrNotReady = errors.New("capture source not ready")

	// ErrClosed rejects operations on a torn-down source.
	ErrClosed = errors.New("capture source closed")
)

type Facing int

const (
	FacingUnknown Facing = iota
	FacingFront
	FacingRear
)

// Device is a single camera that can stream live frames. The frame channel is
// closed when the passed context is cancelled or the device is closed.
type Device interface {
	Name() string
	Facing() Facing
	Frames(ctx context.Context) (<-chan image.Image, error)
	Close() error
}

// PermissionGate resolves a camera permission request. Request blocks until
// the permission is granted or refused, so callers that must stay responsive
// run Initialize from its own goroutine.
type PermissionGate interface {
	Request(ctx context.Context) error
}

// AllowAll grants every permission request immediately.
type AllowAll struct{}

func (AllowAll) Request(context.Context) error { return nil }

// Source owns a camera device and its live preview feed, and produces
// standalone snapshots on demand. The preview keeps exactly one latest frame,
// overwritten on every frame boundary; Capture hands out an independent pixel
// copy so the snapshot survives the feed moving on.
type Source struct {
	devices []Device
	gate    PermissionGate
	logger  *slog.Logger

	mu          sync.Mutex
	device      Device
	initialized bool
	streaming   bool
	closed      bool
	pending     bool
	latest      image.Image
	cancel      context.CancelFunc
	done        chan struct{}

	snapshots chan domain.Snapshot
}

func NewSource(devices []Device, gate PermissionGate, logger *slog.Logger) *Source {
	if gate == nil {
		gate = AllowAll{}
	}
	return &Source{
		devices:   devices,
		gate:      gate,
		logger:    logger,
		snapshots: make(chan domain.Snapshot, 4),
	}
}

// Initialize waits for camera permission, selects a device (rear-facing
// preferred, else the first available) and starts the preview feed. It blocks
// until permission resolves.
func (s *Source) Initialize(ctx context.Context) error {
	if err := s.gate.Request(ctx); err != nil {
		return fmt.Errorf("camera permission: %w", err)
	}

	dev := pickDevice(s.devices)
	if dev == nil {
		return ErrNoDevice
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.device = dev
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("camera selected", "device", dev.Name(), "facing", dev.Facing())
	return s.startStream()
}

func pickDevice(devices []Device) Device {
	for _, d := range devices {
		if d.Facing() == FacingRear {
			return d
		}
	}
	if len(devices) > 0 {
		return devices[0]
	}
	return nil
}

func (s *Source) startStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.streaming || s.device == nil {
		return nil
	}

	// The stream outlives the Initialize call; only Pause and Close end it.
	streamCtx, cancel := context.WithCancel(context.Background())
	frames, err := s.device.Frames(streamCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start camera stream: %w", err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	s.streaming = true
	go s.pump(frames, s.done)
	return nil
}

// pump drains the live feed into the latest-frame slot. A pending capture is
// satisfied at the next frame boundary with an independent copy of the frame.
func (s *Source) pump(frames <-chan image.Image, done chan struct{}) {
	defer close(done)
	for frame := range frames {
		s.mu.Lock()
		s.latest = frame
		capture := s.pending
		s.pending = false
		s.mu.Unlock()

		if capture {
			snap := cloneFrame(frame)
			select {
			case s.snapshots <- snap:
			default:
				s.logger.Warn("snapshot dropped: channel full")
			}
		}
	}
	s.mu.Lock()
	s.streaming = false
	s.mu.Unlock()
}

// cloneFrame copies a frame into a buffer decoupled from the feed.
func cloneFrame(frame image.Image) domain.Snapshot {
	b := frame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)
	return domain.Snapshot{
		Image:  dst,
		Width:  b.Dx(),
		Height: b.Dy(),
		Taken:  time.Now(),
	}
}

// Ready is true only after a device is selected and the feed is streaming.
func (s *Source) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming && s.device != nil
}

// Capture requests a snapshot of the next rendered frame. The snapshot is
// delivered on Snapshots once the frame boundary is reached; the call itself
// never hands back an image.
func (s *Source) Capture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming || s.device == nil {
		return ErrNotReady
	}
	s.pending = true
	return nil
}

// Snapshots delivers captured frames.
func (s *Source) Snapshots() <-chan domain.Snapshot {
	return s.snapshots
}

// Pause stops the feed, mirroring the host moving to the background. The
// selected device is kept.
func (s *Source) Pause() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	s.logger.Debug("camera paused")
}

// Resume restarts the feed after a Pause. It is a no-op unless Initialize
// previously succeeded.
func (s *Source) Resume() error {
	s.mu.Lock()
	ok := s.initialized && !s.streaming && !s.closed
	s.mu.Unlock()
	if !ok {
		return nil
	}
	s.logger.Debug("camera resumed")
	return s.startStream()
}

// Close releases the device and stops the feed. Idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, done, dev := s.cancel, s.done, s.device
	s.cancel, s.done, s.device = nil, nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	if dev != nil {
		if err := dev.Close(); err != nil {
			return fmt.Errorf("failed to close camera device: %w", err)
		}
	}
	return nil
}
