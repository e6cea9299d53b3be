package stitch

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// DefaultThreshold is the fraction of rows whose edge pixels must match
// exactly for a pair to be treated as one spread.
const DefaultThreshold = 0.15

// Order says which member of a pair goes into the left half.
type Order int

const (
	// NoMatch means neither edge hypothesis passed.
	NoMatch Order = iota
	// LeftRight puts the lower-numbered page on the left: its last column
	// continues into the first column of the higher page.
	LeftRight
	// RightLeft puts the higher-numbered page on the left: its last column
	// continues into the first column of the lower page.
	RightLeft
)

func (o Order) String() string {
	switch o {
	case LeftRight:
		return "left-right"
	case RightLeft:
		return "right-left"
	default:
		return "none"
	}
}

// columnAgreement returns the fraction of rows where pixel (xa, y) of a and
// pixel (xb, y) of b agree in every channel. Both images must have the
// same height and origin-based bounds.
func columnAgreement(a *image.NRGBA, xa int, b *image.NRGBA, xb int) float64 {
	h := a.Bounds().Dy()
	if h == 0 {
		return 0
	}

	same := 0
	for y := 0; y < h; y++ {
		pa := a.PixOffset(xa, y)
		pb := b.PixOffset(xb, y)
		if a.Pix[pa] == b.Pix[pb] && a.Pix[pa+1] == b.Pix[pb+1] && a.Pix[pa+2] == b.Pix[pb+2] {
			same++
		}
	}
	return float64(same) / float64(h)
}

// matchEdges tests both hypotheses for the pair (a, b). a is the lower page.
// When both pass, RightLeft wins.
func matchEdges(a, b *image.NRGBA, threshold float64) Order {
	w := a.Bounds().Dx()
	if w == 0 || b.Bounds().Dx() != w || b.Bounds().Dy() != a.Bounds().Dy() {
		return NoMatch
	}

	if columnAgreement(a, 0, b, w-1) >= threshold {
		return RightLeft
	}
	if columnAgreement(a, w-1, b, 0) >= threshold {
		return LeftRight
	}
	return NoMatch
}

// composite places left and right side by side in one (H, 2W) image.
func composite(left, right *image.NRGBA) *image.NRGBA {
	w, h := left.Bounds().Dx(), left.Bounds().Dy()
	dst := imaging.New(2*w, h, color.Black)
	dst = imaging.Paste(dst, left, image.Pt(0, 0))
	dst = imaging.Paste(dst, right, image.Pt(w, 0))
	return dst
}
