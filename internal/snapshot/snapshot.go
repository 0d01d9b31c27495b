package snapshot

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/schollz/progressbar/v3"

	"github.com/delsi82/color-recognition/internal/camera"
	"github.com/delsi82/color-recognition/internal/config"
	"github.com/delsi82/color-recognition/internal/services"
)

const jpegQuality = 95

// Options adjusts a single capture.
type Options struct {
	// OutputPath overrides the generated file name under the output
	// directory. The extension selects the encoder.
	OutputPath string
	// ThumbWidth, when positive, writes a thumbnail scaled to that width
	// next to the snapshot.
	ThumbWidth int
	// Progress receives the warm-up progress bar. Nil disables it.
	Progress io.Writer
}

// Result describes the files a capture produced.
type Result struct {
	Path      string
	ThumbPath string
	Width     int
	Height    int
	Discarded int
}

// Capture opens the source, discards the configured warm-up frames, and
// writes the next complete frame to disk.
func Capture(ctx context.Context, cfg *config.Config, source camera.FrameSource, opts Options) (*Result, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "snapshot", "capture", "configuration is required", nil)
	}
	if source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "snapshot", "capture", "frame source is required", nil)
	}

	path := strings.TrimSpace(opts.OutputPath)
	if path == "" {
		name := fmt.Sprintf("snapshot-%s.%s", time.Now().UTC().Format("20060102-150405"), cfg.OutputExtension())
		path = filepath.Join(cfg.Paths.OutputDir, name)
	}
	encoder, err := encoderFor(path)
	if err != nil {
		return nil, err
	}

	if err := source.BeginAcquisition(ctx); err != nil {
		return nil, err
	}
	defer source.EndAcquisition()

	discarded, err := warmup(ctx, cfg, source, opts.Progress)
	if err != nil {
		return nil, err
	}

	frame, err := nextComplete(ctx, cfg, source)
	if err != nil {
		return nil, err
	}
	img, err := camera.Convert(frame)
	frame.Release()
	if err != nil {
		return nil, err
	}

	if err := save(path, img, encoder); err != nil {
		return nil, err
	}

	result := &Result{
		Path:      path,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
		Discarded: discarded,
	}
	if opts.ThumbWidth > 0 {
		thumbPath, err := writeThumbnail(path, img, opts.ThumbWidth, encoder)
		if err != nil {
			return nil, err
		}
		result.ThumbPath = thumbPath
	}
	return result, nil
}

// warmup pulls and drops frames until the configured budget is spent.
// Incomplete readouts count against the budget too: warm-up is about
// letting exposure settle, and a partial readout still advances time.
func warmup(ctx context.Context, cfg *config.Config, source camera.FrameSource, progress io.Writer) (int, error) {
	total := cfg.Camera.WarmupFrames
	if total <= 0 {
		return 0, nil
	}
	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Warming up"),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionShowCount(),
		)
	}
	discarded := 0
	for discarded < total {
		frame, err := source.NextFrame(ctx)
		switch {
		case err == nil:
			frame.Release()
		case errors.Is(err, camera.ErrIncompleteFrame):
		case errors.Is(err, services.ErrTransient):
			if err := pause(ctx, cfg.RetryDelay()); err != nil {
				return discarded, err
			}
			continue
		default:
			return discarded, err
		}
		discarded++
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return discarded, nil
}

func nextComplete(ctx context.Context, cfg *config.Config, source camera.FrameSource) (*camera.Frame, error) {
	for {
		frame, err := source.NextFrame(ctx)
		if err == nil {
			return frame, nil
		}
		if errors.Is(err, camera.ErrIncompleteFrame) {
			continue
		}
		if errors.Is(err, services.ErrTransient) {
			if err := pause(ctx, cfg.RetryDelay()); err != nil {
				return nil, err
			}
			continue
		}
		return nil, err
	}
}

func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func encoderFor(path string) (imgio.Encoder, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "png":
		return imgio.PNGEncoder(), nil
	case "jpg", "jpeg":
		return imgio.JPEGEncoder(jpegQuality), nil
	case "bmp":
		return imgio.BMPEncoder(), nil
	default:
		return nil, services.Wrap(services.ErrValidation, "snapshot", "encode",
			fmt.Sprintf("unsupported snapshot extension %q (use png, jpeg, or bmp)", filepath.Ext(path)), nil)
	}
}

func save(path string, img image.Image, encoder imgio.Encoder) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return services.Wrap(services.ErrStorage, "snapshot", "save", fmt.Sprintf("create directory %s", dir), err)
		}
	}
	if err := imgio.Save(path, img, encoder); err != nil {
		return services.Wrap(services.ErrStorage, "snapshot", "save", fmt.Sprintf("write %s", path), err)
	}
	return nil
}

func writeThumbnail(path string, img *image.NRGBA, width int, encoder imgio.Encoder) (string, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return "", services.Wrap(services.ErrValidation, "snapshot", "thumbnail", "source image is empty", nil)
	}
	if width > bounds.Dx() {
		width = bounds.Dx()
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	thumb := transform.Resize(img, width, height, transform.Linear)
	ext := filepath.Ext(path)
	thumbPath := strings.TrimSuffix(path, ext) + "-thumb" + ext
	if err := save(thumbPath, thumb, encoder); err != nil {
		return "", err
	}
	return thumbPath, nil
}
