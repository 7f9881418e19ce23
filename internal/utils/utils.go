package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"
)

// --- 1. Error Reporting ---

// ShowError prints a formatted error box to stderr without exiting.
// Commands return the error afterwards so cobra can set the exit code.
func ShowError(context string, err error) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "🚨 EMOTISCAN ERROR: %s\n", context)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DETAILS: %v\n", err)
	}
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
}

// --- 2. Input Discovery ---

// ListFiles returns the full path of every regular file directly inside dir.
// Subdirectories are not descended into. Results are sorted by name so runs
// are easy to follow in the logs; nothing depends on that order.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		// Resolve symlinks so a link to a regular file still counts
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// SupportedImageTypes are the formats both the detection services and the
// OpenCV annotator can decode. GIF, SVG, HEIC and friends are left out so they
// never reach a paid detection call only to fail at annotation.
var SupportedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/bmp",
	"image/webp",
	"image/tiff",
}

// IsImage sniffs the file content (not the extension) and reports whether it
// is one of SupportedImageTypes.
func IsImage(path string) (bool, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false, err
	}
	for _, t := range SupportedImageTypes {
		if mt.Is(t) {
			return true, nil
		}
	}
	return false, nil
}

// GenerateImageID creates a deterministic hash for an input image
// based on its path, size, and modification time.
func GenerateImageID(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	input := fmt.Sprintf("%s-%d-%d", path, info.Size(), info.ModTime().UnixNano())
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:]), nil
}
