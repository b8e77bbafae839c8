// Package dataset - Dataset file discovery for benchmark runs.
package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoFiles indicates that no dataset files matched the enumeration options.
var ErrNoFiles = errors.New("no dataset files found")

// AudioExtensions is the extension allow-list for audio datasets.
var AudioExtensions = []string{".wav"}

// ImageExtensions is the extension allow-list for image datasets.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".webp"}

// Options configures dataset enumeration.
type Options struct {
	// Root is the dataset directory.
	Root string
	// Extensions is the lowercase extension allow-list (including the dot).
	// Empty means every regular file matches.
	Extensions []string
	// MaxFiles caps the number of returned paths. Zero or negative means no cap.
	MaxFiles int
	// Recursive walks into subdirectories when true; otherwise only the
	// immediate directory entries are considered.
	Recursive bool
}

// Enumerate collects dataset file paths matching the given options, in
// encounter order.
//
// Arguments:
// - opts: Enumeration options.
//
// Returns:
// - []string: Matching file paths, truncated at opts.MaxFiles.
// - error: ErrNoFiles (wrapped) when nothing matched, or an I/O error.
func Enumerate(opts Options) ([]string, error) {
	var paths []string
	var err error

	if opts.Recursive {
		paths, err = walk(opts)
	} else {
		paths, err = list(opts)
	}
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, opts.Root)
	}
	return paths, nil
}

func list(opts Options) ([]string, error) {
	entries, err := os.ReadDir(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !matches(entry.Name(), opts.Extensions) {
			continue
		}
		paths = append(paths, filepath.Join(opts.Root, entry.Name()))
		if opts.MaxFiles > 0 && len(paths) >= opts.MaxFiles {
			break
		}
	}
	return paths, nil
}

func walk(opts Options) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !matches(d.Name(), opts.Extensions) {
			return nil
		}
		paths = append(paths, path)
		if opts.MaxFiles > 0 && len(paths) >= opts.MaxFiles {
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk dataset directory: %w", err)
	}
	return paths, nil
}

func matches(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
