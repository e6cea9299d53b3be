package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrImageDecode is matched by every *ImageDecodeError.
	ErrImageDecode = errors.New("image decode failed")
	// ErrFilesystem is matched by every *FilesystemError.
	ErrFilesystem = errors.New("filesystem operation failed")
	// ErrUnsafePath marks entries whose path would escape the output directory.
	ErrUnsafePath = errors.New("unsafe archive path")
)

// ImageDecodeError is returned when an entry must be re-encoded but its
// bytes do not decode.
type ImageDecodeError struct {
	Path string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }

func (e *ImageDecodeError) Is(target error) bool { return target == ErrImageDecode }

// FilesystemError wraps a failed directory creation, write, rename or move.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

func (e *FilesystemError) Is(target error) bool { return target == ErrFilesystem }
