package filecam

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"snaplens/internal/camera"
)

// Device streams image files from a directory in a loop at a fixed interval.
// It stands in for a hardware camera in development and tests.
type Device struct {
	dir      string
	facing   camera.Facing
	interval time.Duration
	files    []string

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
}

// Open scans dir for JPEG and PNG files and prepares a device looping over
// them. It fails when the directory holds no usable images.
func Open(dir string, interval time.Duration, facing camera.Facing) (*Device, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read camera feed directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}

	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Device{dir: dir, facing: facing, interval: interval, files: files}, nil
}

func (d *Device) Name() string {
	return "filecam:" + d.dir
}

func (d *Device) Facing() camera.Facing {
	return d.facing
}

func (d *Device) Frames(ctx context.Context) (<-chan image.Image, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, fmt.Errorf("device closed")
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	ch := make(chan image.Image)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			img, err := load(d.files[i%len(d.files)])
			i++
			if err != nil {
				// Unreadable file; skip to the next frame tick.
				continue
			}

			select {
			case ch <- img:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame file: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame file: %w", err)
	}
	return img, nil
}

// Close stops any active stream. Idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.cancel != nil {
		d.cancel()
	}
	return nil
}
