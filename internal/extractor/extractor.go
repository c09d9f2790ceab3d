// Package extractor produces raw frames for the analyzer, either decoded
// from a video file by ffmpeg or generated as a synthetic test pattern.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/bdougie/visionstream/internal/frame"
)

// Options describes the frames to produce.
type Options struct {
	Width  int
	Height int
	FPS    float64

	// Realtime paces output at FPS instead of producing frames as fast as
	// possible.
	Realtime bool
}

// DefaultOptions returns 640x480 at 10 frames per second.
func DefaultOptions() Options {
	return Options{Width: 640, Height: 480, FPS: 10, Realtime: true}
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", o.Width, o.Height)
	}
	if o.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %v", o.FPS)
	}
	return nil
}

func (o Options) info() frame.Info {
	return frame.Info{Format: frame.FormatRGB, Width: o.Width, Height: o.Height}
}

// frameTime returns the timestamp of frame n.
func (o Options) frameTime(n int64) time.Duration {
	return time.Duration(float64(n) * float64(time.Second) / o.FPS)
}

// EmitFunc receives each frame. The callee owns the reference it is given.
// Returning an error stops the source.
type EmitFunc func(buf *frame.Buffer) error

// Stream decodes videoPath with ffmpeg and emits RGB frames scaled to the
// requested size and rate. It returns when the video ends, ctx is done or
// emit fails.
func Stream(ctx context.Context, videoPath string, opts Options, logger *slog.Logger, emit EmitFunc) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("video file does not exist at path: '%s'", videoPath)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "extractor")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%g,scale=%d:%d", opts.FPS, opts.Width, opts.Height),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg output: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %v", err)
	}

	logger.Info("streaming video", "path", videoPath, "size", fmt.Sprintf("%dx%d", opts.Width, opts.Height), "fps", opts.FPS)

	n, readErr := readFrames(ctx, stdout, opts, emit)
	// Unblock ffmpeg if we stopped reading early
	cancel()
	waitErr := cmd.Wait()

	logger.Info("video stream finished", "frames", n)

	if readErr != nil {
		return readErr
	}
	if waitErr != nil && ctx.Err() == nil {
		return fmt.Errorf("ffmpeg failed: %v\nOutput: %s", waitErr, stderr.String())
	}
	return nil
}

// readFrames splits a raw RGB byte stream into buffers. A trailing partial
// frame is dropped.
func readFrames(ctx context.Context, r io.Reader, opts Options, emit EmitFunc) (int64, error) {
	info := opts.info()
	size := info.Size()
	p := newPacer(opts)
	defer p.stop()

	var n int64
	for {
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return n, nil
			}
			if ctx.Err() != nil {
				return n, nil
			}
			return n, fmt.Errorf("failed to read frame %d: %v", n, err)
		}
		if err := p.wait(ctx); err != nil {
			return n, nil
		}
		buf := frame.NewBuffer(data, opts.frameTime(n), frame.WithInfo(info))
		if err := emit(buf); err != nil {
			return n, err
		}
		n++
	}
}

// pacer releases one frame per tick in realtime mode.
type pacer struct {
	ticker *time.Ticker
}

func newPacer(opts Options) *pacer {
	if !opts.Realtime {
		return &pacer{}
	}
	return &pacer{ticker: time.NewTicker(opts.frameTime(1))}
}

func (p *pacer) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil || p.ticker == nil {
		return err
	}
	select {
	case <-p.ticker.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pacer) stop() {
	if p.ticker != nil {
		p.ticker.Stop()
	}
}
