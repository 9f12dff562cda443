// Package scan enumerates the regular files of a directory tree.
package scan

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"c4/pkg/log"
)

// Entry is one regular file found under a root.
type Entry struct {
	// Index is the 0-based position of the file in discovery order.
	Index int
	// Path is the absolute path of the file.
	Path string
	Size int64
}

// Scan lazily yields every regular file under root in walk order
// (lexical within each directory, directories before their contents).
// Directories themselves are never yielded. Symlinks to regular files are
// yielded; symlinked directories are not descended. A root that is a regular
// file yields itself.
//
// Unreadable directories are yielded as an error paired with an Entry holding
// only Path, and the walk continues. The sequence can be ranged over any
// number of times; each range walks the filesystem afresh.
func Scan(root string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			yield(Entry{Path: root}, errors.Wrapf(err, "resolving %s", root))
			return
		}

		// Follow a symlinked root the way a shell would, but report paths under the name given.
		walkRoot, err := filepath.EvalSymlinks(abs)
		if err != nil {
			yield(Entry{Path: abs}, errors.Wrapf(err, "resolving %s", abs))
			return
		}

		index := 0
		walkErr := filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
			reported := abs
			if rel, relErr := filepath.Rel(walkRoot, path); relErr == nil && rel != "." {
				reported = filepath.Join(abs, rel)
			}

			if err != nil {
				log.Warn().Err(err).Str("path", reported).Msg("Failed to read directory entry")
				if !yield(Entry{Path: reported}, errors.Wrapf(err, "walking %s", reported)) {
					return filepath.SkipAll
				}
				return nil
			}

			info, ok := regularFile(path, d)
			if !ok {
				return nil
			}

			entry := Entry{Index: index, Path: reported, Size: info.Size()}
			index++
			if !yield(entry, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if walkErr != nil {
			yield(Entry{Path: abs}, errors.Wrapf(walkErr, "walking %s", abs))
		}
	}
}

// regularFile reports whether d is a regular file, or a symlink resolving to one.
func regularFile(path string, d fs.DirEntry) (fs.FileInfo, bool) {
	switch {
	case d.Type().IsRegular():
		info, err := d.Info()
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("File vanished during scan")
			return nil, false
		}
		return info, true
	case d.Type()&fs.ModeSymlink != 0:
		info, err := os.Stat(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping dangling symlink")
			return nil, false
		}
		return info, info.Mode().IsRegular()
	default:
		return nil, false
	}
}

// Count returns the number of regular files under root.
// It walks the tree completely; the first walk error is returned with the
// count of files that could be seen.
func Count(root string) (int, error) {
	var (
		count    int
		firstErr error
	)
	for _, err := range Scan(root) {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		count++
	}
	return count, firstErr
}
