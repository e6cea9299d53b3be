package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

type zipEntry struct {
	name string
	data string
}

// createTestEPUB writes a zip container with the given entries, in order.
func createTestEPUB(t *testing.T, dir string, entries []zipEntry) string {
	t.Helper()
	epubPath := filepath.Join(dir, "test.epub")
	f, err := os.Create(epubPath)
	if err != nil {
		t.Fatalf("failed to create test epub: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		ew, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", e.name, err)
		}
		if _, err := ew.Write([]byte(e.data)); err != nil {
			t.Fatalf("failed to write %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to finish zip: %v", err)
	}
	return epubPath
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	epubPath := createTestEPUB(t, dir, []zipEntry{
		{"mimetype", "application/epub+zip"},
		{"images/0001.jpg", "jpegdata"},
	})

	reader, err := Open(epubPath, WithTempDir(dir))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer reader.Close()

	if !strings.HasSuffix(reader.TempPath(), ".zip") {
		t.Fatalf("TempPath() = %q, want .zip suffix", reader.TempPath())
	}
	if !reader.Has("images/0001.jpg") {
		t.Fatal("Has(images/0001.jpg) = false")
	}
	data, err := reader.ReadFile("images/0001.jpg")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "jpegdata" {
		t.Fatalf("ReadFile() = %q", data)
	}
}

func TestOpen_TempCopyIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	epubPath := createTestEPUB(t, dir, []zipEntry{{"cover.jpg", "c"}})

	reader, err := Open(epubPath, WithTempDir(dir))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer reader.Close()

	orig, _ := os.ReadFile(epubPath)
	cp, err := os.ReadFile(reader.TempPath())
	if err != nil {
		t.Fatalf("temp copy missing: %v", err)
	}
	if string(orig) != string(cp) {
		t.Fatal("temp copy differs from source")
	}
}

func TestClose_RemovesTempCopy(t *testing.T) {
	dir := t.TempDir()
	epubPath := createTestEPUB(t, dir, []zipEntry{{"cover.jpg", "c"}})

	reader, err := Open(epubPath, WithTempDir(dir))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	tempPath := reader.TempPath()

	if err := reader.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(tempPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp copy still present: %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestOpen_FileNotFound(t *testing.T) {
	_, err := Open("/nonexistent/file.epub")
	if !errors.Is(err, ErrArchiveOpen) {
		t.Fatalf("Open() error = %v, want ErrArchiveOpen", err)
	}
	var openErr *ArchiveOpenError
	if !errors.As(err, &openErr) || openErr.Path != "/nonexistent/file.epub" {
		t.Fatalf("Open() error = %#v, want *ArchiveOpenError with path", err)
	}
}

func TestOpen_NotAZipLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	epubPath := filepath.Join(dir, "broken.epub")
	if err := os.WriteFile(epubPath, []byte("definitely not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	tempDir := filepath.Join(dir, "tmp")
	if err := os.Mkdir(tempDir, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := Open(epubPath, WithTempDir(tempDir))
	if !errors.Is(err, ErrArchiveOpen) {
		t.Fatalf("Open() error = %v, want ErrArchiveOpen", err)
	}

	left, _ := os.ReadDir(tempDir)
	if len(left) != 0 {
		t.Fatalf("temp dir not empty: %v", left)
	}
}

func TestEntries_SynthesizesDirectories(t *testing.T) {
	dir := t.TempDir()
	epubPath := createTestEPUB(t, dir, []zipEntry{
		{"./cover.jpg", "c"},
		{"images/", ""},
		{"images/0001.jpg", "a"},
		{"ch1_files/images/0002.png", "b"},
	})

	reader, err := Open(epubPath, WithTempDir(dir))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer reader.Close()

	want := []string{
		"cover.jpg",
		"images/",
		"images/0001.jpg",
		"ch1_files/images/0002.png",
		"ch1_files/",
		"ch1_files/images/",
	}
	if got := reader.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Paths() = %v, want %v", got, want)
	}

	for _, e := range reader.Entries() {
		if wantDir := strings.HasSuffix(e.Path, "/"); e.IsDir != wantDir {
			t.Fatalf("entry %q IsDir = %v", e.Path, e.IsDir)
		}
	}
}

func TestOpen_EntryOverLimit(t *testing.T) {
	dir := t.TempDir()
	epubPath := createTestEPUB(t, dir, []zipEntry{{"images/big.jpg", strings.Repeat("x", 64)}})

	reader, err := Open(epubPath, WithTempDir(dir), WithMaxEntrySize(16))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.ReadFile("images/big.jpg"); err == nil {
		t.Fatal("ReadFile() should fail above the size limit")
	}
}

func TestOpen_MissingEntry(t *testing.T) {
	dir := t.TempDir()
	epubPath := createTestEPUB(t, dir, []zipEntry{{"a.txt", "a"}})

	reader, err := Open(epubPath, WithTempDir(dir))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Open("missing.jpg"); err == nil {
		t.Fatal("Open() should fail for missing entry")
	}
}

func TestLimitedReadCloser(t *testing.T) {
	rc := &limitedReadCloser{
		r:     io.LimitReader(strings.NewReader("abcdef"), 5),
		c:     io.NopCloser(nil),
		name:  "x",
		limit: 4,
	}
	if _, err := io.ReadAll(rc); err == nil {
		t.Fatal("ReadAll() should fail when limit is exceeded")
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"images/1.jpg", true},
		{"a/../b.jpg", true},
		{"../evil.jpg", false},
		{"images/../../evil.jpg", false},
		{"/etc/passwd", false},
		{`..\evil.jpg`, false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSafePath(tt.path); got != tt.want {
			t.Errorf("IsSafePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
