package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"golang.org/x/image/draw"
)

const (
	// MaxDimension bounds the longer side of an image sent for analysis.
	// Larger uploads cost tokens without improving model output.
	MaxDimension = 1024

	jpegQuality = 85
)

// Encoded is an image prepared for an analysis request.
type Encoded struct {
	JPEG    []byte
	Base64  string
	DataURL string
	Width   int
	Height  int
}

// Downscale returns img scaled so its longer side is at most bound, preserving
// aspect ratio. Images already within the bound are returned untouched.
func Downscale(img image.Image, bound int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= bound && h <= bound {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = bound
		nh = int(math.Round(float64(h) * float64(bound) / float64(w)))
	} else {
		nh = bound
		nw = int(math.Round(float64(w) * float64(bound) / float64(h)))
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img as a quality-85 JPEG. Encoding is deterministic for
// identical pixel input.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps JPEG bytes in a data URL suitable for inlining into a JSON
// request body.
func DataURL(jpegData []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegData)
}

// EncodeForUpload downsizes img to MaxDimension and produces the JPEG, base64
// and data URL forms a provider request needs.
func EncodeForUpload(img image.Image) (*Encoded, error) {
	scaled := Downscale(img, MaxDimension)

	data, err := EncodeJPEG(scaled)
	if err != nil {
		return nil, err
	}

	b := scaled.Bounds()
	return &Encoded{
		JPEG:    data,
		Base64:  base64.StdEncoding.EncodeToString(data),
		DataURL: DataURL(data),
		Width:   b.Dx(),
		Height:  b.Dy(),
	}, nil
}
