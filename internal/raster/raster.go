// Package raster holds the pixel-level helpers shared by the extractor and
// the spread stitcher: decoding into a 3-channel RGB buffer, shape
// comparison, and JPEG encoding.
package raster

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"

	// Extra decoders so content sniffing accepts payloads whose suffix lies.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Channels is the channel count of every decoded image (R, G, B).
const Channels = 3

// Shape is the (H, W, C) triple of a decoded image.
type Shape struct {
	Width    int
	Height   int
	Channels int
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}

// ShapeOf returns the shape of img as seen after Decode.
func ShapeOf(img image.Image) Shape {
	b := img.Bounds()
	return Shape{Width: b.Dx(), Height: b.Dy(), Channels: Channels}
}

// Decode reads an image of any registered format and converts it to RGB.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, err
	}
	return ToRGB(img), nil
}

// Open decodes the image file at path. See Decode.
func Open(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// ToRGB copies img into an origin-based NRGBA buffer with every alpha
// value set to opaque. Transparency is discarded, not composited, so the
// stored color of a transparent pixel survives.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// EncodeJPEG writes img to w as a JPEG at the given quality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("jpeg encode failed: %w", err)
	}
	return nil
}

// SaveJPEG writes img to path as a JPEG at the given quality. On failure
// no partial file is left at path.
func SaveJPEG(img image.Image, path string, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := EncodeJPEG(f, img, quality); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
