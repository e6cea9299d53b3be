// Package archive gives read access to the entries of an EPUB container.
// The EPUB is copied to a temporary .zip file first; the copy lives until
// Close.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// MaxEntrySize caps the decompressed size of a single entry (zip bomb guard).
const MaxEntrySize int64 = 256 * 1024 * 1024

// Entry is one path in the archive listing.
type Entry struct {
	Path  string
	IsDir bool
}

// Reader provides access to the entries of the temporary zip copy.
type Reader struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	entries   []Entry
	tempPath  string
	maxSize   int64
	closed    bool
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	tempDir string
	maxSize int64
}

// WithTempDir places the temporary zip copy in dir instead of os.TempDir().
func WithTempDir(dir string) Option {
	return func(c *openConfig) { c.tempDir = dir }
}

// WithMaxEntrySize overrides MaxEntrySize.
func WithMaxEntrySize(n int64) Option {
	return func(c *openConfig) { c.maxSize = n }
}

// Open copies the EPUB at epubPath to a temporary zip file and opens it.
// Any failure is an *ArchiveOpenError and leaves no temporary file behind.
func Open(epubPath string, opts ...Option) (*Reader, error) {
	cfg := openConfig{maxSize: MaxEntrySize}
	for _, opt := range opts {
		opt(&cfg)
	}

	tempPath, err := copyToTemp(epubPath, cfg.tempDir)
	if err != nil {
		return nil, &ArchiveOpenError{Path: epubPath, Err: err}
	}

	// Insecure names are still listed; callers filter them with IsSafePath.
	zr, err := zip.OpenReader(tempPath)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		os.Remove(tempPath)
		return nil, &ArchiveOpenError{Path: epubPath, Err: fmt.Errorf("not a zip archive: %w", err)}
	}

	reader := &Reader{
		zipReader: zr,
		files:     make(map[string]*zip.File),
		tempPath:  tempPath,
		maxSize:   cfg.maxSize,
	}
	reader.buildListing()

	return reader, nil
}

// copyToTemp writes a byte-identical copy of src into a new *.zip file.
func copyToTemp(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, "epub2jpg-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary copy: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to copy archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to copy archive: %w", err)
	}

	return out.Name(), nil
}

// buildListing records entries in archive order. Parent directories that
// the zip does not store explicitly are added right after the first file
// that implies them.
func (r *Reader) buildListing() {
	seenDirs := make(map[string]bool)

	addDir := func(dir string) {
		if seenDirs[dir] {
			return
		}
		seenDirs[dir] = true
		r.entries = append(r.entries, Entry{Path: dir, IsDir: true})
	}

	for _, f := range r.zipReader.File {
		name := normalizePath(f.Name)
		if name == "" {
			continue
		}

		if strings.HasSuffix(name, "/") {
			addDir(name)
			continue
		}

		if _, dup := r.files[name]; dup {
			continue
		}
		r.files[name] = f
		r.entries = append(r.entries, Entry{Path: name})

		for _, dir := range parentDirs(name) {
			addDir(dir)
		}
	}
}

// Close closes the zip and deletes the temporary copy. Safe to call twice.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	closeErr := r.zipReader.Close()
	removeErr := os.Remove(r.tempPath)
	if errors.Is(removeErr, os.ErrNotExist) {
		removeErr = nil
	}
	return errors.Join(closeErr, removeErr)
}

// TempPath returns the location of the temporary zip copy.
func (r *Reader) TempPath() string {
	return r.tempPath
}

// Entries returns the archive listing in archive order.
func (r *Reader) Entries() []Entry {
	return r.entries
}

// Paths returns the paths of all entries, directories included.
func (r *Reader) Paths() []string {
	paths := make([]string, len(r.entries))
	for i, e := range r.entries {
		paths[i] = e.Path
	}
	return paths
}

// Has reports whether a file entry exists at path.
func (r *Reader) Has(name string) bool {
	_, ok := r.files[normalizePath(name)]
	return ok
}

// Open returns a stream of the decompressed entry contents.
func (r *Reader) Open(name string) (io.ReadCloser, error) {
	name = normalizePath(name)
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}

	if f.UncompressedSize64 > uint64(r.maxSize) {
		return nil, fmt.Errorf("entry %s too large: %d bytes (max %d)", name, f.UncompressedSize64, r.maxSize)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}

	return &limitedReadCloser{
		r:     io.LimitReader(rc, r.maxSize+1),
		c:     rc,
		name:  name,
		limit: r.maxSize,
	}, nil
}

// ReadFile reads the full contents of an entry.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	rc, err := r.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// limitedReadCloser fails once more than limit bytes have been read; the
// declared size in the zip header may be forged.
type limitedReadCloser struct {
	r     io.Reader
	c     io.Closer
	name  string
	limit int64
	n     int64
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.limit {
		return n, fmt.Errorf("entry %s decompressed size exceeds limit (%d bytes)", l.name, l.limit)
	}
	return n, err
}

func (l *limitedReadCloser) Close() error {
	return l.c.Close()
}

// IsSafePath reports whether an entry path stays inside the extraction root.
func IsSafePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\") {
		return false
	}
	cleaned := path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// parentDirs returns "a/", "a/b/" for "a/b/c.jpg".
func parentDirs(name string) []string {
	var dirs []string
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			dirs = append(dirs, name[:i+1])
		}
	}
	return dirs
}

// normalizePath normalizes file paths (removes ./ prefix)
func normalizePath(p string) string {
	return strings.TrimPrefix(p, "./")
}
