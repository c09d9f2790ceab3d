package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/bdougie/visionstream/internal/analyzer"
	"github.com/bdougie/visionstream/internal/config"
	"github.com/bdougie/visionstream/internal/extractor"
	"github.com/bdougie/visionstream/internal/frame"
	"github.com/bdougie/visionstream/internal/mainloop"
)

// errStopped ends the run group without being reported as a failure.
var errStopped = errors.New("stopped")

type options struct {
	configPath string
	videoPath  string
	frames     int64
	source     extractor.Options
	interval   float64
	prompt     string
	debug      bool

	// metadata overrides output_metadata only when given on the command line
	metadata    bool
	metadataSet bool
}

func main() {
	var opts options
	opts.source = extractor.DefaultOptions()

	flag.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flag.StringVar(&opts.videoPath, "video", "", "video file to analyze (test pattern if empty)")
	flag.Int64Var(&opts.frames, "frames", 0, "number of test pattern frames, 0 runs until interrupted")
	flag.IntVar(&opts.source.Width, "width", opts.source.Width, "frame width")
	flag.IntVar(&opts.source.Height, "height", opts.source.Height, "frame height")
	flag.Float64Var(&opts.source.FPS, "fps", opts.source.FPS, "frame rate")
	flag.Float64Var(&opts.interval, "interval", 0, "seconds between analyses (overrides config)")
	flag.StringVar(&opts.prompt, "prompt", "", "prompt sent with each frame (overrides config)")
	flag.BoolVar(&opts.metadata, "metadata", false, "attach descriptions to frames instead of emitting events (overrides config)")
	flag.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "metadata" {
			opts.metadataSet = true
		}
	})

	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
		}),
	)

	// A missing .env file is fine, the environment may already be set
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.HasCredential() {
		logger.Warn("no API key configured, set " + config.EnvAPIKey + " to enable analysis")
	}

	if err := run(context.Background(), opts, cfg, logger); err != nil {
		logger.Error("Error processing stream", "error", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	if opts.interval > 0 {
		cfg.AnalysisInterval = opts.interval
	}
	if opts.prompt != "" {
		cfg.Prompt = opts.prompt
	}
	if opts.metadataSet {
		cfg.OutputMetadata = opts.metadata
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts options, cfg config.Config, logger *slog.Logger) error {
	loop := mainloop.New(0)

	element, err := analyzer.New(loop, analyzer.NewDescriber(cfg, logger), logger)
	if err != nil {
		return err
	}
	if err := element.Configure(cfg); err != nil {
		return err
	}
	if err := element.OnConfigChange(frame.Info{
		Format: frame.FormatRGB,
		Width:  opts.source.Width,
		Height: opts.source.Height,
	}); err != nil {
		return err
	}

	element.OnDescription(func(description string, buf *frame.Buffer) {
		fmt.Printf("[%s] %s\n", frame.FormatTimestamp(buf.PTS), description)
	})

	if err := element.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})

	g.Go(func() error {
		if err := pump(gctx, opts, loop, element, logger); err != nil {
			return err
		}
		waitIdle(gctx, loop, element)
		return errStopped
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			return errStopped
		case <-gctx.Done():
			return nil
		}
	})

	err = g.Wait()

	if stopErr := element.Stop(); stopErr != nil {
		logger.Warn("failed to stop analyzer", "error", stopErr)
	}
	if closeErr := element.Close(); closeErr != nil {
		logger.Warn("failed to close analyzer", "error", closeErr)
	}

	stats := element.Stats()
	logger.Info("analysis finished",
		"frames", stats.FramesSeen,
		"jobs", stats.JobsSubmitted,
		"results", stats.ResultsDelivered,
		"transport_errors", stats.TransportErrors,
		"api_errors", stats.APIErrors)

	if errors.Is(err, errStopped) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pump feeds frames from the configured source into the analyzer on the
// loop goroutine.
func pump(ctx context.Context, opts options, loop *mainloop.Loop, element *analyzer.Element, logger *slog.Logger) error {
	var lastSource frame.DescriptionMeta

	emit := func(buf *frame.Buffer) error {
		err := loop.Invoke(ctx, func() {
			defer buf.Unref()
			if err := element.OnFrame(buf); err != nil {
				logger.Warn("frame not analyzed", "error", err)
			}
			// Metadata mode: print each description once, on the first frame carrying it
			if meta, ok := buf.Description(); ok && meta.SourceID != lastSource.SourceID {
				lastSource = meta
				fmt.Printf("[%s] %s (from %s)\n", frame.FormatTimestamp(buf.PTS), meta.Description, frame.FormatTimestamp(meta.SourcePTS))
			}
		})
		if err != nil {
			buf.Unref()
		}
		return err
	}

	if opts.videoPath != "" {
		return extractor.Stream(ctx, opts.videoPath, opts.source, logger, emit)
	}
	return extractor.TestPattern(ctx, opts.source, opts.frames, logger, emit)
}

// waitIdle gives the last in-flight analysis a chance to be delivered once
// the source has ended.
func waitIdle(ctx context.Context, loop *mainloop.Loop, element *analyzer.Element) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		var busy bool
		if err := loop.InvokeSync(ctx, func() { busy = element.AnalysisInProgress() }); err != nil || !busy {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
