// Package replicate mirrors a source file or tree into one or more destinations,
// removing whatever each destination held before.
package replicate

import (
	"context"
	stderrs "errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"c4/pkg/log"
	"c4/pkg/models"
)

// DefaultWorkers bounds how many destinations are written at once.
const DefaultWorkers = 4

var (
	errOverlap = stderrs.New("destination overlaps source")
	errNoDest  = stderrs.New("empty destination path")
)

// Outcome is the result of replicating into one destination.
type Outcome struct {
	Destination string
	// Cleared reports that something existed at Destination and was removed.
	Cleared bool
	Files   int
	Bytes   int64
	Elapsed time.Duration
	Err     error
}

// Result converts the outcome to its wire form.
func (o Outcome) Result() models.ReplicaResult {
	res := models.ReplicaResult{
		Destination: o.Destination,
		Cleared:     o.Cleared,
		Files:       o.Files,
		Bytes:       o.Bytes,
	}
	if o.Err != nil {
		res.Error = o.Err.Error()
	}
	return res
}

// Engine replicates a source into destinations.
type Engine struct {
	workers int
}

// New creates an Engine writing up to workers destinations concurrently.
// Non-positive values fall back to DefaultWorkers.
func New(workers int) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{workers: workers}
}

// Replicate clears dst and copies src into it. A directory src is copied
// recursively; a file src is copied as a single file. Failures are reported in
// Outcome.Err as DeleteError or CopyError.
func (e *Engine) Replicate(ctx context.Context, src, dst string) Outcome {
	start := time.Now()
	out := Outcome{Destination: dst}

	srcAbs, dstAbs, err := resolve(src, dst)
	if err != nil {
		log.Error().Err(err).Str("source", src).Str("destination", dst).Msg("Refusing to replicate")
		out.Err = CopyError{Source: src, Dest: dst, Err: err}
		return out
	}

	info, err := os.Stat(srcAbs)
	if err != nil {
		log.Error().Err(err).Str("source", src).Msg("Source is not accessible")
		out.Err = CopyError{Source: src, Dest: dst, Err: err}
		return out
	}

	out.Cleared, err = clearDestination(dstAbs)
	if err != nil {
		out.Err = err
		return out
	}

	log.Info().Str("source", src).Str("destination", dst).Msg("Copying file(s)...")

	c := newCopier(ctx)
	if info.IsDir() {
		err = c.copyTree(srcAbs, dstAbs, info, nil)
	} else {
		err = os.MkdirAll(filepath.Dir(dstAbs), parentDirPerm)
		if err == nil {
			err = c.copyFile(srcAbs, dstAbs, info)
		}
	}

	out.Files, out.Bytes, out.Elapsed = c.files, c.bytes, time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("source", src).Str("destination", dst).Msg("Failed to copy")
		out.Err = CopyError{Source: src, Dest: dst, Err: err}
		return out
	}

	log.Info().
		Str("source", src).
		Str("destination", dst).
		Int("files", out.Files).
		Str("size", humanize.Bytes(uint64(out.Bytes))).
		Dur("elapsed", out.Elapsed).
		Msgf("Copied %s to %s", src, dst)
	return out
}

// ReplicateAll replicates src into every destination, several at a time.
// Destinations naming the same place, directly or through a symlink, are
// replicated once. Destinations nested in one another are replicated one after
// the other in the order given, so a later one may clear what an earlier one
// wrote. One destination failing never stops the others; the returned error
// joins every failure and the outcomes follow the order of first appearance
// in dsts.
func (e *Engine) ReplicateAll(ctx context.Context, src string, dsts []string) ([]Outcome, error) {
	targets := dedupe(dsts)
	outcomes := make([]Outcome, len(targets))

	var pool errgroup.Group
	pool.SetLimit(e.workers)
	for _, batch := range batches(targets) {
		pool.Go(func() error {
			for _, i := range batch {
				outcomes[i] = e.Replicate(ctx, src, targets[i])
			}
			return nil
		})
	}
	// Outcomes carry the errors; the group itself never fails.
	_ = pool.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return outcomes, stderrs.Join(errs...)
}

// clearDestination removes whatever exists at dst. A missing dst, or one whose parent is
// not a directory, is left for the copy phase to deal with.
func clearDestination(dst string) (bool, error) {
	info, err := os.Lstat(dst)
	if err != nil {
		if os.IsNotExist(err) || stderrs.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		log.Error().Err(err).Str("destination", dst).Msg("Failed to inspect destination")
		return false, DeleteError{Path: dst, Err: err}
	}

	if info.IsDir() {
		log.Info().Str("destination", dst).Msg("Directory already exists.. deleting...")
	} else {
		log.Info().Str("destination", dst).Msg("File already exists.. deleting...")
	}

	if err := os.RemoveAll(dst); err != nil {
		log.Error().Err(err).Str("destination", dst).Msg("Failed to delete destination")
		return false, DeleteError{Path: dst, Err: err}
	}
	return true, nil
}

// resolve makes both paths absolute and rejects a destination that equals,
// contains, or sits inside the source.
func resolve(src, dst string) (string, string, error) {
	if strings.TrimSpace(dst) == "" {
		return "", "", errNoDest
	}

	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolving %s", src)
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolving %s", dst)
	}

	realSrc := realPath(srcAbs)
	realDst := realPath(dstAbs)
	if within(realSrc, realDst) || within(realDst, realSrc) {
		return "", "", errors.Wrapf(errOverlap, "%s and %s", src, dst)
	}
	return srcAbs, dstAbs, nil
}

// realPath resolves symlinks in the longest existing prefix of path.
func realPath(path string) string {
	rest := ""
	for dir := path; ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return path
		}
		rest = filepath.Join(filepath.Base(dir), rest)
	}
}

// within reports whether path is base or lies beneath it.
func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// destKey names the place dst refers to: its absolute path with symlinks in the
// existing prefix resolved. Blank destinations keep their raw form.
func destKey(dst string) string {
	if strings.TrimSpace(dst) == "" {
		return dst
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return dst
	}
	return realPath(abs)
}

// dedupe drops destinations that name a place already listed.
func dedupe(dsts []string) []string {
	seen := make(map[string]bool, len(dsts))
	out := make([]string, 0, len(dsts))
	for _, dst := range dsts {
		key := destKey(dst)
		if seen[key] {
			log.Warn().Str("destination", dst).Msg("Skipping repeated destination")
			continue
		}
		seen[key] = true
		out = append(out, dst)
	}
	return out
}

// batches groups target indexes so that destinations nested in one another,
// directly or transitively, share a batch. Batches are ordered by their first
// member and list members in ascending order.
func batches(targets []string) [][]int {
	keys := make([]string, len(targets))
	parent := make([]int, len(targets))
	for i, dst := range targets {
		keys[i] = destKey(dst)
		parent[i] = i
	}

	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := range targets {
		for j := 0; j < i; j++ {
			if within(keys[i], keys[j]) || within(keys[j], keys[i]) {
				parent[find(i)] = find(j)
			}
		}
	}

	slot := make(map[int]int, len(targets))
	var out [][]int
	for i := range targets {
		root := find(i)
		n, ok := slot[root]
		if !ok {
			n = len(out)
			slot[root] = n
			out = append(out, nil)
		} else {
			log.Debug().Str("destination", targets[i]).Msg("Destination nests with an earlier one, replicating in order")
		}
		out[n] = append(out[n], i)
	}
	return out
}
