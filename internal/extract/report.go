package extract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fvbommel/sortorder"

	"github.com/yuanying/epub2jpg/internal/archive"
)

// FileError records a failure that was collected instead of aborting the run.
type FileError struct {
	Path   string // archive entry path, or the EPUB path for archive-level failures
	Reason string
	Err    error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Overwrite records two entries of one run that normalized to the same
// output file. The later entry wins.
type Overwrite struct {
	Output   string
	Previous string
	By       string
}

// Report summarizes one extraction run.
type Report struct {
	InputPath    string
	OutputDir    string
	FilesWritten []string
	Overwrites   []Overwrite
	Errors       []FileError
	// Aborted is set when the archive itself could not be opened.
	Aborted bool
}

// Err joins every collected error, or returns nil.
func (r *Report) Err() error {
	errs := make([]error, len(r.Errors))
	for i := range r.Errors {
		errs[i] = r.Errors[i]
	}
	return errors.Join(errs...)
}

func (r *Report) addError(path string, err error) {
	r.Errors = append(r.Errors, FileError{Path: path, Reason: reasonFor(err), Err: err})
}

func (r *Report) sortFiles() {
	sort.Slice(r.FilesWritten, func(i, j int) bool {
		return sortorder.NaturalLess(r.FilesWritten[i], r.FilesWritten[j])
	})
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, archive.ErrArchiveOpen):
		return "archive open failed"
	case errors.Is(err, ErrUnsafePath):
		return "unsafe path"
	case errors.Is(err, ErrImageDecode):
		return "image decode failed"
	case errors.Is(err, ErrFilesystem):
		return "filesystem error"
	default:
		return "read failed"
	}
}
