package gallery

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/delsi82/color-recognition/internal/services"
)

// Writer encodes images into a gallery directory. Every save is atomic:
// the image is encoded to a temporary file in the target directory and
// renamed over the final name, so readers never observe partial files.
type Writer struct {
	dir    string
	format imaging.Format
	ext    string
}

// NewWriter builds a writer for the directory and encoding format
// ("png", "jpeg", "bmp", "tiff"). The directory must already exist.
func NewWriter(dir, format string) (*Writer, error) {
	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gallery", "new_writer",
			fmt.Sprintf("unsupported output format %q", format), err)
	}
	return &Writer{dir: dir, format: f, ext: format}, nil
}

// Extension returns the file extension the writer encodes to.
func (w *Writer) Extension() string {
	return w.ext
}

// Dir returns the gallery directory.
func (w *Writer) Dir() string {
	return w.dir
}

// SaveImage encodes img under name in the gallery directory and returns
// the final path.
func (w *Writer) SaveImage(name string, img image.Image) (string, error) {
	final := filepath.Join(w.dir, name)

	tmp, err := os.CreateTemp(w.dir, ".gallery-*.tmp")
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "gallery", "save",
			fmt.Sprintf("create temp file for %s", name), err)
	}
	tmpPath := tmp.Name()

	opts := []imaging.EncodeOption{}
	if w.format == imaging.JPEG {
		opts = append(opts, imaging.JPEGQuality(95))
	}
	if err := imaging.Encode(tmp, img, w.format, opts...); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrStorage, "gallery", "save",
			fmt.Sprintf("encode %s", name), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrStorage, "gallery", "save",
			fmt.Sprintf("flush %s", name), err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrStorage, "gallery", "save",
			fmt.Sprintf("chmod %s", name), err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		_ = os.Remove(tmpPath)
		return "", services.Wrap(services.ErrStorage, "gallery", "save",
			fmt.Sprintf("rename into place %s", name), err)
	}
	return final, nil
}

// CropCell copies one cell's pixels out of a converted frame. The result
// owns its backing array, so it stays valid after the frame is released.
func CropCell(img image.Image, bounds image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, bounds)
}
