package extract

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuanying/epub2jpg/internal/raster"
)

// JPEGQuality is the quality used when a PNG is re-encoded.
const JPEGQuality = 95

// Converter writes archive entries to disk as JPEG files.
type Converter struct {
	JPEGQuality int
}

// NewConverter creates a converter with the fixed output quality.
func NewConverter() *Converter {
	return &Converter{JPEGQuality: JPEGQuality}
}

// Convert writes the entry read from src to dst in JPEG form according to
// the suffix of entryPath (case-insensitive):
//
//	.png          decoded, forced to RGB and re-encoded
//	.jpg, .jpeg   copied byte for byte under dst's .jpg name
//
// The data goes to a temporary file next to dst, which replaces dst only
// once it is complete, so a failed entry never disturbs an earlier file of
// the same name. A PNG that does not decode yields *ImageDecodeError.
// Directory, write and rename failures yield *FilesystemError.
func (c *Converter) Convert(src io.Reader, entryPath, dst string) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".epub2jpg-*.part")
	if err != nil {
		return &FilesystemError{Op: "create", Path: dst, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if strings.ToLower(path.Ext(entryPath)) == ".png" {
		err = c.reencode(src, entryPath, tmp)
	} else if _, copyErr := io.Copy(tmp, src); copyErr != nil {
		err = &FilesystemError{Op: "write", Path: dst, Err: fmt.Errorf("copy entry: %w", copyErr)}
	}
	closeErr := tmp.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return &FilesystemError{Op: "write", Path: dst, Err: closeErr}
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return &FilesystemError{Op: "rename", Path: dst, Err: err}
	}
	return nil
}

func (c *Converter) reencode(src io.Reader, entryPath string, w io.Writer) error {
	img, err := raster.Decode(src)
	if err != nil {
		return &ImageDecodeError{Path: entryPath, Err: err}
	}

	if err := raster.EncodeJPEG(w, img, c.JPEGQuality); err != nil {
		return &FilesystemError{Op: "encode", Path: entryPath, Err: err}
	}
	return nil
}
