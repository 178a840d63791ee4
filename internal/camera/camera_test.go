package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice feeds frames pushed by the test.
type fakeDevice struct {
	name   string
	facing Facing

	mu     sync.Mutex
	frames chan image.Image
	closed bool
}

func newFakeDevice(name string, facing Facing) *fakeDevice {
	return &fakeDevice{name: name, facing: facing, frames: make(chan image.Image)}
}

func (d *fakeDevice) Name() string   { return d.name }
func (d *fakeDevice) Facing() Facing { return d.facing }

func (d *fakeDevice) Frames(ctx context.Context) (<-chan image.Image, error) {
	out := make(chan image.Image)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-d.frames:
				if !ok {
					return
				}
				select {
				case out <- frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) push(t *testing.T, frame image.Image) {
	t.Helper()
	select {
	case d.frames <- frame:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out pushing frame")
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func frame(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func waitReady(t *testing.T, s *Source) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !s.Ready() {
		if time.Now().After(deadline) {
			t.Fatal("source never became ready")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestInitializeNoDevices(t *testing.T) {
	s := NewSource(nil, nil, testLogger())
	err := s.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
	assert.False(t, s.Ready())
}

func TestInitializePrefersRearFacing(t *testing.T) {
	front := newFakeDevice("front", FacingFront)
	rear := newFakeDevice("rear", FacingRear)
	s := NewSource([]Device{front, rear}, nil, testLogger())
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	waitReady(t, s)

	s.mu.Lock()
	selected := s.device.Name()
	s.mu.Unlock()
	assert.Equal(t, "rear", selected)
}

func TestInitializePermissionDenied(t *testing.T) {
	dev := newFakeDevice("cam", FacingRear)
	s := NewSource([]Device{dev}, denyGate{}, testLogger())

	err := s.Initialize(context.Background())
	assert.Error(t, err)
	assert.False(t, s.Ready())
}

type denyGate struct{}

func (denyGate) Request(context.Context) error { return errors.New("permission denied") }

func TestCaptureBeforeReady(t *testing.T) {
	dev := newFakeDevice("cam", FacingRear)
	s := NewSource([]Device{dev}, nil, testLogger())

	err := s.Capture()
	assert.ErrorIs(t, err, ErrNotReady)

	// No snapshot event may ever arrive.
	select {
	case snap := <-s.Snapshots():
		t.Fatalf("unexpected snapshot: %dx%d", snap.Width, snap.Height)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCaptureDeliversNextFrame(t *testing.T) {
	dev := newFakeDevice("cam", FacingRear)
	s := NewSource([]Device{dev}, nil, testLogger())
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	waitReady(t, s)

	require.NoError(t, s.Capture())
	dev.push(t, frame(color.RGBA{R: 200, A: 255}))

	select {
	case snap := <-s.Snapshots():
		assert.Equal(t, 4, snap.Width)
		assert.Equal(t, 4, snap.Height)
		assert.Equal(t, uint8(200), snap.Image.RGBAAt(0, 0).R)
		assert.False(t, snap.Taken.IsZero())
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestSnapshotBufferDecoupledFromFeed(t *testing.T) {
	dev := newFakeDevice("cam", FacingRear)
	s := NewSource([]Device{dev}, nil, testLogger())
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	waitReady(t, s)

	live := frame(color.RGBA{R: 10, A: 255})
	require.NoError(t, s.Capture())
	dev.push(t, live)

	var snap image.RGBA
	select {
	case got := <-s.Snapshots():
		snap = *got.Image
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot delivered")
	}

	// The feed overwrites its buffer in place; the snapshot must not change.
	live.SetRGBA(0, 0, color.RGBA{R: 99, A: 255})
	assert.Equal(t, uint8(10), snap.RGBAAt(0, 0).R)
}

func TestCaptureOnlyFiresOncePerRequest(t *testing.T) {
	dev := newFakeDevice("cam", FacingRear)
	s := NewSource([]Device{dev}, nil, testLogger())
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	waitReady(t, s)

	require.NoError(t, s.Capture())
	dev.push(t, frame(color.RGBA{R: 1, A: 255}))
	dev.push(t, frame(color.RGBA{R: 2, A: 255}))

	select {
	case <-s.Snapshots():
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	select {
	case snap := <-s.Snapshots():
		t.Fatalf("second snapshot without a capture request: %v", snap.Taken)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPauseAndResume(t *testing.T) {
	dev := newFakeDevice("cam", FacingRear)
	s := NewSource([]Device{dev}, nil, testLogger())
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	waitReady(t, s)

	s.Pause()
	assert.False(t, s.Ready())
	assert.ErrorIs(t, s.Capture(), ErrNotReady)

	require.NoError(t, s.Resume())
	waitReady(t, s)

	require.NoError(t, s.Capture())
	dev.push(t, frame(color.RGBA{G: 50, A: 255}))
	select {
	case snap := <-s.Snapshots():
		assert.Equal(t, uint8(50), snap.Image.RGBAAt(0, 0).G)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot after resume")
	}
}

func TestResumeWithoutInitialize(t *testing.T) {
	s := NewSource(nil, nil, testLogger())
	assert.NoError(t, s.Resume())
	assert.False(t, s.Ready())
}

func TestCloseIdempotent(t *testing.T) {
	dev := newFakeDevice("cam", FacingRear)
	s := NewSource([]Device{dev}, nil, testLogger())

	require.NoError(t, s.Initialize(context.Background()))
	waitReady(t, s)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	dev.mu.Lock()
	closed := dev.closed
	dev.mu.Unlock()
	assert.True(t, closed)
	assert.ErrorIs(t, s.Capture(), ErrNotReady)

	err := s.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
