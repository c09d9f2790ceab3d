// Package encoder turns raw frames into JPEG payloads for the vision API.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/bdougie/visionstream/internal/frame"
)

// Quality is the fixed JPEG quality used for raw frames.
const Quality = 85

// MIMEType is the content type of every payload produced by Encode.
const MIMEType = "image/jpeg"

var (
	ErrInvalidDimensions = errors.New("invalid frame dimensions")
	ErrShortBuffer       = errors.New("buffer smaller than frame size")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrPlanarFormat      = errors.New("planar YUV formats are not supported")
)

// CheckFormat reports whether frames in format f can be encoded.
func CheckFormat(f frame.Format) error {
	switch {
	case f == frame.FormatJPEG, f.IsPacked():
		return nil
	case f.IsPlanar():
		return fmt.Errorf("%w: got %s, convert frames to RGB, BGR, RGBA or BGRA before analysis", ErrPlanarFormat, f)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// CheckDimensions validates the geometry of a packed frame. Every byte
// count derived from info, including the RGBA image built for encoding,
// must fit in an int.
func CheckDimensions(info frame.Info) error {
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, info.Width, info.Height)
	}
	if info.Width > math.MaxInt/4/info.Height {
		return fmt.Errorf("%w: %dx%d too large", ErrInvalidDimensions, info.Width, info.Height)
	}
	row := info.Width * info.Format.BytesPerPixel()
	if info.Stride > 0 && info.Stride < row {
		return fmt.Errorf("%w: stride %d shorter than row of %d bytes", ErrInvalidDimensions, info.Stride, row)
	}
	if info.Stride > math.MaxInt/info.Height {
		return fmt.Errorf("%w: stride %d too large for %d rows", ErrInvalidDimensions, info.Stride, info.Height)
	}
	return nil
}

// Encode returns a JPEG image for the frame described by info. JPEG input is
// copied verbatim; packed RGB layouts are normalized and compressed.
func Encode(info frame.Info, data []byte) ([]byte, error) {
	if err := CheckFormat(info.Format); err != nil {
		return nil, err
	}

	if info.Format == frame.FormatJPEG {
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty JPEG buffer", ErrShortBuffer)
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	if err := CheckDimensions(info); err != nil {
		return nil, err
	}
	if len(data) < info.Size() {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrShortBuffer, len(data), info.Size())
	}

	img := normalize(info, data)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// normalize converts the frame row by row into opaque RGBA, the layout the
// jpeg encoder handles without per-pixel interface calls. Channel order is
// canonical R, G, B; any source alpha is discarded.
func normalize(info frame.Info, data []byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))
	bpp := info.Format.BytesPerPixel()
	stride := info.RowStride()

	// Offsets of R, G and B inside a source pixel
	r, g, b := 0, 1, 2
	if info.Format == frame.FormatBGR || info.Format == frame.FormatBGRA {
		r, b = 2, 0
	}

	for y := 0; y < info.Height; y++ {
		src := data[y*stride : y*stride+info.Width*bpp]
		dst := img.Pix[y*img.Stride : y*img.Stride+info.Width*4]
		for x := 0; x < info.Width; x++ {
			s := src[x*bpp:]
			d := dst[x*4:]
			d[0] = s[r]
			d[1] = s[g]
			d[2] = s[b]
			d[3] = 0xff
		}
	}
	return img
}
