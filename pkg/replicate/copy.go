package replicate

import (
	"context"
	stderrs "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"c4/pkg/log"
)

const (
	copyBufferSize = 1024 * 1024
	// Directories are created owner-writable and get their real mode once filled.
	dirCreatePerm = 0o700
	parentDirPerm = 0o755
)

var errSymlinkLoop = stderrs.New("symlink loop")

// copier duplicates one source into one destination and tallies what it wrote.
type copier struct {
	ctx   context.Context
	buf   []byte
	files int
	bytes int64
}

func newCopier(ctx context.Context) *copier {
	return &copier{ctx: ctx, buf: make([]byte, copyBufferSize)}
}

// ctxReader stops reading once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// copyTree recreates src under dst. Symlinks are followed. A failing entry
// does not stop its siblings; all failures are joined into the result.
// ancestors holds the directories above src, for loop detection.
func (c *copier) copyTree(src, dst string, info fs.FileInfo, ancestors []fs.FileInfo) error {
	for _, a := range ancestors {
		if os.SameFile(a, info) {
			return errors.Wrapf(errSymlinkLoop, "%s", src)
		}
	}
	ancestors = append(ancestors, info)

	if err := os.MkdirAll(dst, info.Mode().Perm()|dirCreatePerm); err != nil {
		return errors.Wrapf(err, "creating directory %s", dst)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return errors.Wrapf(err, "reading directory %s", src)
	}

	var errs []error
	for _, entry := range entries {
		if err := c.ctx.Err(); err != nil {
			return err
		}

		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())

		// Stat, not Lstat: symlinks are copied as what they point to.
		child, err := os.Stat(from)
		if err != nil {
			log.Error().Err(err).Str("source", from).Msg("Failed to stat source entry")
			errs = append(errs, errors.Wrapf(err, "stat %s", from))
			continue
		}

		switch {
		case child.IsDir():
			err = c.copyTree(from, to, child, ancestors)
		case child.Mode().IsRegular():
			err = c.copyFile(from, to, child)
		default:
			log.Warn().Str("source", from).Str("mode", child.Mode().String()).Msg("Skipping special file")
			continue
		}
		if err != nil {
			if c.ctx.Err() != nil {
				return c.ctx.Err()
			}
			errs = append(errs, err)
		}
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		errs = append(errs, errors.Wrapf(err, "setting mode of %s", dst))
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		errs = append(errs, errors.Wrapf(err, "setting times of %s", dst))
	}

	return stderrs.Join(errs...)
}

// copyFile copies one regular file byte-for-byte, keeping its mode and modification time.
func (c *copier) copyFile(src, dst string, info fs.FileInfo) error {
	in, err := os.Open(src) //nolint:gosec // src comes from walking the source tree
	if err != nil {
		log.Error().Err(err).Str("source", src).Msg("Failed to open source file")
		return errors.Wrapf(err, "opening %s", src)
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.Error().Err(err).Str("source", src).Msg("Failed to close source file")
		}
	}()

	//nolint:gosec // dst is the caller's destination joined with a source entry name
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		log.Error().Err(err).Str("target", dst).Msg("Failed to create destination file")
		return errors.Wrapf(err, "creating %s", dst)
	}

	n, err := io.CopyBuffer(out, ctxReader{ctx: c.ctx, r: in}, c.buf)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := os.Remove(dst); removeErr != nil {
			log.Error().Err(removeErr).Str("target", dst).Msg("Failed to remove partial file after copy error")
		}
		log.Error().Err(err).Str("source", src).Str("target", dst).Msg("Failed to copy file")
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}

	// OpenFile's mode is filtered by the umask and ignored for existing files.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "setting mode of %s", dst)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return errors.Wrapf(err, "setting times of %s", dst)
	}

	c.files++
	c.bytes += n
	log.Debug().Str("source", src).Str("target", dst).Int64("bytes", n).Msg("File copied")
	return nil
}
