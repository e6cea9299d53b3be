package archive

import (
	"errors"
	"fmt"
)

// ErrArchiveOpen is matched by every *ArchiveOpenError.
var ErrArchiveOpen = errors.New("archive: cannot open")

// ArchiveOpenError reports that the EPUB could not be copied or read as zip.
type ArchiveOpenError struct {
	Path string
	Err  error
}

func (e *ArchiveOpenError) Error() string {
	return fmt.Sprintf("archive: cannot open %s: %v", e.Path, e.Err)
}

func (e *ArchiveOpenError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrArchiveOpen) true.
func (e *ArchiveOpenError) Is(target error) bool { return target == ErrArchiveOpen }
