package extract

import (
	"path"
	"strings"
)

// OutputExt is the suffix of every normalized image.
const OutputExt = ".jpg"

// Normalize maps an archive image path to its output name: the folder
// prefix is removed, leading '0' characters are stripped from the stem
// ("0" if nothing remains) and the extension becomes .jpg.
//
//	Normalize("images/0007.jpeg", "images/") == "7.jpg"
//	Normalize("images/0000.png", "images/") == "0.jpg"
//
// Non-numeric stems are stripped the same way, so distinct names can
// collide ("0a.png" and "a.png" both give "a.jpg").
func Normalize(entryPath, folder string) string {
	rest := strings.TrimPrefix(entryPath, folder)
	stem := strings.TrimSuffix(rest, path.Ext(rest))

	stem = strings.TrimLeft(stem, "0")
	if stem == "" {
		stem = "0"
	}
	return stem + OutputExt
}
