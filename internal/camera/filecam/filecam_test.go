package filecam

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplens/internal/camera"
)

func writeTestImage(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 30, B: 60, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestOpenEmptyDir(t *testing.T) {
	_, err := Open(t.TempDir(), 10*time.Millisecond, camera.FacingRear)
	assert.Error(t, err)
}

func TestOpenMissingDir(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"), 10*time.Millisecond, camera.FacingRear)
	assert.Error(t, err)
}

func TestFramesLoop(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "a.png")
	writeTestImage(t, dir, "b.png")

	dev, err := Open(dir, time.Millisecond, camera.FacingRear)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })

	assert.Equal(t, camera.FacingRear, dev.Facing())
	assert.Contains(t, dev.Name(), "filecam:")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames, err := dev.Frames(ctx)
	require.NoError(t, err)

	// With two source files the loop must produce more frames than files.
	for i := 0; i < 3; i++ {
		select {
		case frame := <-frames:
			require.NotNil(t, frame)
			assert.Equal(t, 8, frame.Bounds().Dx())
		case <-time.After(5 * time.Second):
			t.Fatal("no frame delivered")
		}
	}
}

func TestCloseStopsStream(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "a.png")

	dev, err := Open(dir, time.Millisecond, camera.FacingUnknown)
	require.NoError(t, err)

	frames, err := dev.Frames(context.Background())
	require.NoError(t, err)

	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())

	// The channel closes once the stream winds down.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frame channel never closed")
		}
	}
}

func TestFramesAfterClose(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "a.png")

	dev, err := Open(dir, time.Millisecond, camera.FacingUnknown)
	require.NoError(t, err)
	require.NoError(t, dev.Close())

	_, err = dev.Frames(context.Background())
	assert.Error(t, err)
}
