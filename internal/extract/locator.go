package extract

import (
	"path"
	"sort"
	"strings"
)

const (
	// RootImagesFolder is the top-level image directory of an EPUB export.
	RootImagesFolder = "images/"
	// FragmentSuffix marks per-chapter fragment directories ("ch1_files/").
	FragmentSuffix = "_files/"
)

// ImageFolders returns the image folder prefixes found in an archive
// listing: "images/" plus "<p>images/" for every listed p ending in
// "_files/". The result is de-duplicated and sorted.
func ImageFolders(listing []string) []string {
	set := map[string]struct{}{RootImagesFolder: {}}
	for _, p := range listing {
		if strings.HasSuffix(p, FragmentSuffix) {
			set[p+RootImagesFolder] = struct{}{}
		}
	}

	folders := make([]string, 0, len(set))
	for f := range set {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders
}

// IsImageEntry reports whether an entry path carries one of the extracted
// image suffixes (.jpeg, .jpg, .png; any case).
func IsImageEntry(entryPath string) bool {
	switch strings.ToLower(path.Ext(entryPath)) {
	case ".jpeg", ".jpg", ".png":
		return true
	}
	return false
}
