// Package stitch re-joins two-page spreads that were exported as separate
// page images. It works on a directory of N.jpg files produced by extract.
package stitch

import (
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fvbommel/sortorder"

	"github.com/yuanying/epub2jpg/internal/layout"
	"github.com/yuanying/epub2jpg/internal/raster"
)

const (
	// JPEGQuality is used for composite spreads.
	JPEGQuality = 95
	// StitchedPrefix may precede the page number of a candidate file.
	StitchedPrefix = "stitched_"
)

// Status is the terminal state of a run.
type Status int

const (
	StatusCompleted Status = iota
	// StatusNoValidImages means no file in the directory decoded.
	StatusNoValidImages
)

func (s Status) String() string {
	if s == StatusNoValidImages {
		return "no valid images"
	}
	return "completed"
}

// Pair is one stitched spread.
type Pair struct {
	Low, High         int
	LowFile, HighFile string
	Output            string
	Order             Order

	spread *image.NRGBA
}

// SkippedFile is an image file that was left in place, with the reason.
type SkippedFile struct {
	Name   string
	Reason string
}

// FileError is a write or move failure; the run continued past it.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e FileError) Unwrap() error { return e.Err }

// Report summarizes one stitching run.
type Report struct {
	Status    Status
	Reference raster.Shape
	Pairs     []Pair
	Skipped   []SkippedFile
	Errors    []FileError
}

// Options configures a Stitcher.
type Options struct {
	Dir string
	// Threshold overrides DefaultThreshold when positive.
	Threshold float64
	Logger    *slog.Logger
	// OnProgress, if set, is called as the pairing loop advances.
	OnProgress func(done, total int)
}

// Stitcher runs the single-pass pairing state machine over Options.Dir.
type Stitcher struct {
	Options Options
}

// NewStitcher creates a stitcher.
func NewStitcher(opts Options) *Stitcher {
	return &Stitcher{Options: opts}
}

// Spreads stitches dir with default options.
func Spreads(dir string) *Report {
	return NewStitcher(Options{Dir: dir}).Run()
}

type candidate struct {
	name  string
	value int
}

// Run executes one pass. It never fails as a whole: undecodable or
// mismatched pairs are skipped and filesystem failures are collected.
func (s *Stitcher) Run() *Report {
	logger := s.logger()
	report := &Report{}

	entries, err := os.ReadDir(s.Options.Dir)
	if err != nil {
		logger.Error("failed to read directory", "dir", s.Options.Dir, "error", err)
		report.Status = StatusNoValidImages
		report.Errors = append(report.Errors, FileError{Path: s.Options.Dir, Err: err})
		return report
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && isCandidateExt(e.Name()) {
			names = append(names, e.Name())
		}
	}

	ref, ok := s.referenceShape(names)
	if !ok {
		logger.Info("no valid images", "dir", s.Options.Dir)
		report.Status = StatusNoValidImages
		return report
	}
	report.Reference = ref
	logger.Debug("reference resolution", "shape", ref.String())

	candidates, skipped := orderCandidates(names)
	report.Skipped = append(report.Skipped, skipped...)

	processed := make(map[string]bool)
	attempted := make(map[string]string)

	for i := 0; i < len(candidates)-1; {
		a, b := candidates[i], candidates[i+1]
		if processed[a.name] || processed[b.name] || !isEven(a.value) || isEven(b.value) {
			i++
			s.progress(i, len(candidates))
			continue
		}

		pair, reason := s.tryPair(a, b, ref)
		if pair != nil {
			if err := s.commit(pair); err != nil {
				logger.Warn("failed to write spread", "low", a.name, "high", b.name, "error", err)
				report.Errors = append(report.Errors, *err)
				attempted[a.name] = "write failed"
				attempted[b.name] = "write failed"
			} else {
				logger.Info("stitched spread", "output", pair.Output, "order", pair.Order.String())
				report.Pairs = append(report.Pairs, *pair)
				processed[a.name] = true
				processed[b.name] = true
			}
		} else {
			logger.Debug("pair not stitched", "low", a.name, "high", b.name, "reason", reason)
			attempted[a.name] = reason
			attempted[b.name] = reason
		}
		i += 2
		s.progress(i, len(candidates))
	}

	for _, c := range candidates {
		if processed[c.name] {
			continue
		}
		reason, ok := attempted[c.name]
		if !ok {
			reason = "no adjacent page"
		}
		report.Skipped = append(report.Skipped, SkippedFile{Name: c.name, Reason: reason})
	}
	sort.Slice(report.Skipped, func(i, j int) bool {
		return sortorder.NaturalLess(report.Skipped[i].Name, report.Skipped[j].Name)
	})

	return report
}

// referenceShape decodes names in listing order and returns the shape of
// the first one that decodes.
func (s *Stitcher) referenceShape(names []string) (raster.Shape, bool) {
	for _, name := range names {
		img, err := raster.Open(filepath.Join(s.Options.Dir, name))
		if err != nil {
			continue
		}
		return raster.ShapeOf(img), true
	}
	return raster.Shape{}, false
}

// orderCandidates keeps names whose stem parses as an integer and sorts
// them by that value. The rest are returned as skipped.
func orderCandidates(names []string) ([]candidate, []SkippedFile) {
	var candidates []candidate
	var skipped []SkippedFile
	for _, name := range names {
		v, ok := pageNumber(name)
		if !ok {
			skipped = append(skipped, SkippedFile{Name: name, Reason: "not numeric"})
			continue
		}
		candidates = append(candidates, candidate{name: name, value: v})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].value < candidates[j].value })
	return candidates, skipped
}

func pageNumber(name string) (int, bool) {
	stem := strings.TrimPrefix(stemOf(name), StitchedPrefix)
	v, err := strconv.Atoi(stem)
	if err != nil {
		return 0, false
	}
	return v, true
}

// tryPair decodes both files and runs the edge test. On a miss it returns
// the reason.
func (s *Stitcher) tryPair(a, b candidate, ref raster.Shape) (*Pair, string) {
	imgA, err := raster.Open(filepath.Join(s.Options.Dir, a.name))
	if err != nil {
		return nil, "decode failed"
	}
	imgB, err := raster.Open(filepath.Join(s.Options.Dir, b.name))
	if err != nil {
		return nil, "decode failed"
	}
	if raster.ShapeOf(imgA) != ref || raster.ShapeOf(imgB) != ref {
		return nil, "resolution differs from reference"
	}

	order := matchEdges(imgA, imgB, s.threshold())
	if order == NoMatch {
		return nil, "edges do not match"
	}

	left, right := imgA, imgB
	if order == RightLeft {
		left, right = imgB, imgA
	}

	return &Pair{
		Low:      a.value,
		High:     b.value,
		LowFile:  a.name,
		HighFile: b.name,
		Output:   stemOf(a.name) + "-" + stemOf(b.name) + ".jpg",
		Order:    order,
		spread:   composite(left, right),
	}, ""
}

// commit writes the spread and moves both sources into Stitched/. On
// failure the composite is removed and moved sources are put back.
func (s *Stitcher) commit(p *Pair) *FileError {
	dir := s.Options.Dir
	out := filepath.Join(dir, p.Output)
	if err := raster.SaveJPEG(p.spread, out, JPEGQuality); err != nil {
		return &FileError{Path: out, Err: err}
	}
	p.spread = nil

	stitchedDir := filepath.Join(dir, layout.StitchedDir)
	if err := os.MkdirAll(stitchedDir, 0o755); err != nil {
		os.Remove(out)
		return &FileError{Path: stitchedDir, Err: err}
	}

	var moved []string
	for _, name := range []string{p.LowFile, p.HighFile} {
		if err := os.Rename(filepath.Join(dir, name), filepath.Join(stitchedDir, name)); err != nil {
			for _, m := range moved {
				os.Rename(filepath.Join(stitchedDir, m), filepath.Join(dir, m))
			}
			os.Remove(out)
			return &FileError{Path: filepath.Join(dir, name), Err: err}
		}
		moved = append(moved, name)
	}
	return nil
}

func (s *Stitcher) threshold() float64 {
	if s.Options.Threshold > 0 {
		return s.Options.Threshold
	}
	return DefaultThreshold
}

func (s *Stitcher) progress(done, total int) {
	if s.Options.OnProgress == nil {
		return
	}
	if done > total {
		done = total
	}
	s.Options.OnProgress(done, total)
}

func (s *Stitcher) logger() *slog.Logger {
	if s.Options.Logger != nil {
		return s.Options.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// isEven also holds for negative values, where v%2 is 0 or -1.
func isEven(v int) bool { return v%2 == 0 }

func isCandidateExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".png":
		return true
	}
	return false
}

func stemOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
