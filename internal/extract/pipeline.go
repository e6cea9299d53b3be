// Package extract pulls the page images out of an EPUB and writes them as
// a flat set of N.jpg files.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yuanying/epub2jpg/internal/archive"
	"github.com/yuanying/epub2jpg/internal/layout"
)

// Options holds options for the extraction pipeline.
type Options struct {
	InputPath string
	OutputDir string
	// TempDir receives the temporary zip copy; empty means os.TempDir().
	TempDir string
	Logger  *slog.Logger
	// OnProgress, if set, is called after each image entry.
	OnProgress func(done, total int)
}

// Pipeline orchestrates the EPUB to JPEG extraction.
type Pipeline struct {
	Options   Options
	converter *Converter
}

type job struct {
	entryPath string
	output    string // relative to OutputDir
}

// NewPipeline creates a new extraction pipeline.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{Options: opts, converter: NewConverter()}
}

// Images extracts epubPath into outputDir with default options.
func Images(epubPath, outputDir string) *Report {
	return NewPipeline(Options{InputPath: epubPath, OutputDir: outputDir}).Run()
}

// Run executes the pipeline. Failures never escape: an archive that cannot
// be opened sets Report.Aborted, per-file failures land in Report.Errors.
// The temporary zip copy is removed on every path.
func (p *Pipeline) Run() *Report {
	logger := p.logger()
	report := &Report{InputPath: p.Options.InputPath, OutputDir: p.Options.OutputDir}

	var opts []archive.Option
	if p.Options.TempDir != "" {
		opts = append(opts, archive.WithTempDir(p.Options.TempDir))
	}
	reader, err := archive.Open(p.Options.InputPath, opts...)
	if err != nil {
		logger.Error("failed to open archive", "path", p.Options.InputPath, "error", err)
		report.Aborted = true
		report.addError(p.Options.InputPath, err)
		return report
	}
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("failed to remove temporary archive copy", "path", reader.TempPath(), "error", err)
		}
	}()

	written := make(map[string]string) // output -> entry
	write := func(j job) {
		dst := p.outputPath(j)
		if err := p.extractEntry(reader, j); err != nil {
			if prev, ok := written[dst]; ok {
				logger.Warn("failed to extract image, keeping earlier output", "entry", j.entryPath, "output", dst, "previous", prev, "error", err)
			} else {
				logger.Warn("failed to extract image, skipping", "entry", j.entryPath, "error", err)
			}
			report.addError(j.entryPath, err)
			return
		}
		if prev, ok := written[dst]; ok {
			logger.Warn("output overwritten by later entry", "output", dst, "previous", prev, "entry", j.entryPath)
			report.Overwrites = append(report.Overwrites, Overwrite{Output: dst, Previous: prev, By: j.entryPath})
		} else {
			report.FilesWritten = append(report.FilesWritten, dst)
		}
		written[dst] = j.entryPath
		logger.Debug("extracted image", "entry", j.entryPath, "output", dst)
	}

	if reader.Has(layout.CoverName) {
		write(job{entryPath: layout.CoverName, output: layout.CoverName})
	}

	jobs := collectJobs(reader)
	logger.Info("found images", "count", len(jobs), "folders", ImageFolders(reader.Paths()))

	for i, j := range jobs {
		write(j)
		if p.Options.OnProgress != nil {
			p.Options.OnProgress(i+1, len(jobs))
		}
	}

	report.sortFiles()
	return report
}

// collectJobs walks every image folder and picks its image entries in
// archive order.
func collectJobs(reader *archive.Reader) []job {
	var jobs []job
	entries := reader.Entries()
	for _, folder := range ImageFolders(reader.Paths()) {
		for _, e := range entries {
			if e.IsDir || !strings.HasPrefix(e.Path, folder) || !IsImageEntry(e.Path) {
				continue
			}
			jobs = append(jobs, job{entryPath: e.Path, output: Normalize(e.Path, folder)})
		}
	}
	return jobs
}

func (p *Pipeline) extractEntry(reader *archive.Reader, j job) error {
	if !archive.IsSafePath(j.entryPath) || !archive.IsSafePath(j.output) || !filepath.IsLocal(j.output) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, j.entryPath)
	}

	rc, err := reader.Open(j.entryPath)
	if err != nil {
		return err
	}
	defer rc.Close()

	return p.converter.Convert(rc, j.entryPath, p.outputPath(j))
}

func (p *Pipeline) outputPath(j job) string {
	return filepath.Join(p.Options.OutputDir, filepath.FromSlash(j.output))
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Options.Logger != nil {
		return p.Options.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
