package extractor

import (
	"context"
	"log/slog"

	"github.com/bdougie/visionstream/internal/frame"
)

// barColors are the classic eight vertical test bars.
var barColors = [][3]byte{
	{0xff, 0xff, 0xff},
	{0xff, 0xff, 0x00},
	{0x00, 0xff, 0xff},
	{0x00, 0xff, 0x00},
	{0xff, 0x00, 0xff},
	{0xff, 0x00, 0x00},
	{0x00, 0x00, 0xff},
	{0x00, 0x00, 0x00},
}

// TestPattern emits count frames of scrolling color bars. A count of zero
// or less runs until ctx is done or emit fails.
func TestPattern(ctx context.Context, opts Options, count int64, logger *slog.Logger, emit EmitFunc) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "extractor")
	logger.Info("generating test pattern", "frames", count, "fps", opts.FPS)

	info := opts.info()
	p := newPacer(opts)
	defer p.stop()

	for n := int64(0); count <= 0 || n < count; n++ {
		if err := p.wait(ctx); err != nil {
			return nil
		}
		buf := frame.NewBuffer(renderBars(info, int(n)), opts.frameTime(n), frame.WithInfo(info))
		if err := emit(buf); err != nil {
			return err
		}
	}
	return nil
}

// renderBars draws the bars shifted left by offset pixels.
func renderBars(info frame.Info, offset int) []byte {
	data := make([]byte, info.Size())
	stride := info.RowStride()
	barWidth := info.Width / len(barColors)
	if barWidth == 0 {
		barWidth = 1
	}
	for y := 0; y < info.Height; y++ {
		row := data[y*stride:]
		for x := 0; x < info.Width; x++ {
			c := barColors[((x+offset)/barWidth)%len(barColors)]
			copy(row[x*3:x*3+3], c[:])
		}
	}
	return data
}
