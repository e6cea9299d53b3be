// Test program for the EPUB archive reader and image folder discovery
//
// Usage:
//
//	go run ./cmd/test/archive_reader/main.go <epub-file> [entry ...]
//
// This program exercises the following:
// - Copying the EPUB to a temporary zip and opening it
// - Listing all entries, including synthesized directories
// - Locating image folders (images/ and *_files/images/)
// - Reading selected entries
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/yuanying/epub2jpg/internal/archive"
	"github.com/yuanying/epub2jpg/internal/extract"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test/archive_reader/main.go <epub-file> [entry ...]")
		os.Exit(1)
	}

	epubPath := os.Args[1]
	entryPaths := os.Args[2:]

	fmt.Printf("Opening EPUB file: %s\n", epubPath)
	reader, err := archive.Open(epubPath)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	defer reader.Close()

	fmt.Printf("✓ EPUB opened (temporary copy: %s)\n\n", reader.TempPath())

	entries := reader.Entries()
	fmt.Printf("Total entries: %d\n", len(entries))
	for _, e := range entries {
		marker := " "
		if e.IsDir {
			marker = "d"
		} else if extract.IsImageEntry(e.Path) {
			marker = "i"
		}
		fmt.Printf("  %s %s\n", marker, e.Path)
	}

	folders := extract.ImageFolders(reader.Paths())
	fmt.Printf("\nImage folders: %d\n", len(folders))
	for _, folder := range folders {
		n := 0
		for _, e := range entries {
			if !e.IsDir && extract.IsImageEntry(e.Path) && strings.HasPrefix(e.Path, folder) {
				fmt.Printf("  %s -> %s\n", e.Path, extract.Normalize(e.Path, folder))
				n++
			}
		}
		fmt.Printf("  (%s: %d images)\n", folder, n)
	}

	for _, p := range entryPaths {
		data, err := reader.ReadFile(p)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", p, err)
		}
		fmt.Printf("\n✓ %s read successfully (%d bytes)\n", p, len(data))
	}

	fmt.Println("\n✓ Done")
}
