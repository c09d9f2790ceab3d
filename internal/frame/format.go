package frame

import "fmt"

// Format identifies the pixel layout of a frame buffer.
type Format int

const (
	FormatUnknown Format = iota
	FormatRGB
	FormatBGR
	FormatRGBA
	FormatBGRA
	FormatJPEG

	// Planar/sub-sampled formats are recognised only so they can be
	// rejected with a useful message.
	FormatI420
	FormatYV12
	FormatNV12
	FormatNV21
)

var formatNames = map[Format]string{
	FormatUnknown: "unknown",
	FormatRGB:     "RGB",
	FormatBGR:     "BGR",
	FormatRGBA:    "RGBA",
	FormatBGRA:    "BGRA",
	FormatJPEG:    "JPEG",
	FormatI420:    "I420",
	FormatYV12:    "YV12",
	FormatNV12:    "NV12",
	FormatNV21:    "NV21",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat maps a format name (as used in configuration) to a Format.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name && f != FormatUnknown {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unknown pixel format %q", name)
}

// BytesPerPixel returns the packed pixel size, or 0 for formats that are
// not packed RGB layouts.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGB, FormatBGR:
		return 3
	case FormatRGBA, FormatBGRA:
		return 4
	default:
		return 0
	}
}

// IsPacked reports whether f is one of the packed RGB-family layouts.
func (f Format) IsPacked() bool {
	return f.BytesPerPixel() > 0
}

// IsPlanar reports whether f is a planar or chroma sub-sampled YUV layout.
func (f Format) IsPlanar() bool {
	switch f {
	case FormatI420, FormatYV12, FormatNV12, FormatNV21:
		return true
	default:
		return false
	}
}

// Info describes the geometry of a frame.
type Info struct {
	Format Format
	Width  int
	Height int
	// Stride is the length in bytes of one row of the first plane. Zero
	// means tightly packed rows.
	Stride int
}

// IsZero reports whether no format information has been set.
func (i Info) IsZero() bool {
	return i == Info{}
}

// RowStride returns the effective stride of a packed layout.
func (i Info) RowStride() int {
	if i.Stride > 0 {
		return i.Stride
	}
	return i.Width * i.Format.BytesPerPixel()
}

// Size returns the number of bytes a packed frame with this geometry
// occupies.
func (i Info) Size() int {
	return i.RowStride() * i.Height
}

func (i Info) String() string {
	return fmt.Sprintf("%s %dx%d stride=%d", i.Format, i.Width, i.Height, i.RowStride())
}
