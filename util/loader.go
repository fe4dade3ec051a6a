// Package util - Input discovery helpers for batch segmentation.
package util

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-segmentation/images"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Format is the format guessed from the extension.
	Format images.ImageFormat
	// Frame is the number embedded in the name (e.g. frame-12.jpg), or -1.
	Frame int
}

var frameNumber = regexp.MustCompile(`(\d+)$`)

// ListDirectoryImageFiles lists the image files in a directory, without
// recursing. Files whose names end in a number sort by that number, the
// rest by name after them.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The image files, sorted.
// - error: Error if the directory cannot be read.
func ListDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		format, ok := images.FormatFromPath(name)
		if !ok {
			continue
		}

		frame := -1
		stem := name[:len(name)-len(filepath.Ext(name))]
		if m := frameNumber.FindString(stem); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				frame = n
			}
		}
		files = append(files, ImageFile{
			Path:   filepath.Join(dir, name),
			Format: format,
			Frame:  frame,
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if (a.Frame < 0) != (b.Frame < 0) {
			return a.Frame >= 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})

	return files, nil
}
