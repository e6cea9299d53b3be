// Package layout names the fixed entries of the output directory and
// implements the final "pack into digital/" step.
package layout

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultOutputDir is used when neither a flag nor the environment names one.
	DefaultOutputDir = "FFOutput"
	// OutputDirEnv overrides DefaultOutputDir.
	OutputDirEnv = "EPUB2JPG_OUTPUT_DIR"

	CoverName   = "cover.jpg"
	StitchedDir = "Stitched"
	DigitalDir  = "digital"
)

// Pack moves everything in outputDir except the digital/ folder itself
// into outputDir/digital/, replacing entries of the same name. It returns
// the moved names in directory order.
func Pack(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	target := filepath.Join(outputDir, DigitalDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", target, err)
	}

	var moved []string
	for _, e := range entries {
		if e.Name() == DigitalDir {
			continue
		}
		dst := filepath.Join(target, e.Name())
		if err := os.RemoveAll(dst); err != nil {
			return moved, fmt.Errorf("failed to replace %s: %w", dst, err)
		}
		if err := os.Rename(filepath.Join(outputDir, e.Name()), dst); err != nil {
			return moved, fmt.Errorf("failed to move %s: %w", e.Name(), err)
		}
		moved = append(moved, e.Name())
	}
	return moved, nil
}
