// Package identify computes the C4 ID of every file in a tree and reports
// them in discovery order, hashing on a bounded pool of workers.
package identify

import (
	"context"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"c4/pkg/c4"
	"c4/pkg/log"
	"c4/pkg/scan"
)

// Digester hashes one file. c4.Digester satisfies it.
type Digester interface {
	Digest(ctx context.Context, path string) (c4.Digest, error)
}

// Result is the outcome of identifying one file. Exactly one of ID and Err is set.
type Result struct {
	Entry scan.Entry
	ID    c4.ID
	Err   error
}

// Summary counts what a pass saw.
type Summary struct {
	Identified int
	Failed     int
	// WalkErrors counts directories that could not be read.
	WalkErrors int
}

// Pass is one identification run over a tree.
type Pass struct {
	Digester Digester
	// Workers bounds concurrent hashing; non-positive means runtime.NumCPU().
	Workers  int
	Reporter Reporter
	// CountFirst walks the tree once up front so the reporter can announce the total.
	CountFirst bool
}

// Run identifies every regular file under root. Per-file read failures are
// logged, handed to the reporter and counted; they never stop the pass.
// The returned error is non-nil only when root is unusable, the reporter
// fails, or ctx is canceled.
func (p *Pass) Run(ctx context.Context, root string) (Summary, error) {
	var summary Summary

	if _, err := os.Stat(root); err != nil {
		log.Error().Err(err).Str("root", root).Msg("Cannot identify files under root")
		return summary, errors.Wrapf(err, "identifying files under %s", root)
	}

	digester := p.Digester
	if digester == nil {
		digester = c4.NewDigester(0)
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	reporter := p.Reporter
	if reporter == nil {
		reporter = Discard
	}

	if p.CountFirst {
		total, err := scan.Count(root)
		if err != nil {
			log.Warn().Err(err).Str("root", root).Msg("File count is incomplete")
		}
		if err := reporter.Total(total); err != nil {
			return summary, errors.Wrap(err, "reporting file count")
		}
	}

	results := make(chan Result, workers)
	walkErrors := make(chan int, 1)

	go func() {
		defer close(results)

		var (
			pool   errgroup.Group
			broken int
		)
		pool.SetLimit(workers)

		for entry, err := range scan.Scan(root) {
			if ctx.Err() != nil {
				break
			}
			if err != nil {
				broken++
				log.Error().Err(err).Str("path", entry.Path).Msg("Skipping unreadable part of tree")
				continue
			}
			pool.Go(func() error {
				digest, err := digester.Digest(ctx, entry.Path)
				if err != nil {
					results <- Result{Entry: entry, Err: err}
					return nil
				}
				results <- Result{Entry: entry, ID: c4.Encode(digest)}
				return nil
			})
		}

		// Workers never fail the group; errors travel inside Results.
		_ = pool.Wait()
		walkErrors <- broken
	}()

	var (
		pending   = make(map[int]Result)
		next      int
		reportErr error
	)
	for res := range results {
		pending[res.Entry.Index] = res
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			if ctx.Err() != nil || reportErr != nil {
				continue
			}
			reportErr = deliver(reporter, ready, &summary)
		}
	}
	summary.WalkErrors = <-walkErrors

	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Str("root", root).Int("identified", summary.Identified).Msg("Identification interrupted")
		return summary, err
	}
	if reportErr != nil {
		log.Error().Err(reportErr).Msg("Failed to report identifiers")
		return summary, errors.Wrap(reportErr, "reporting identifiers")
	}

	log.Debug().
		Str("root", root).
		Int("identified", summary.Identified).
		Int("failed", summary.Failed).
		Int("walk_errors", summary.WalkErrors).
		Msg("Identification finished")
	return summary, nil
}

func deliver(reporter Reporter, res Result, summary *Summary) error {
	if res.Err != nil {
		summary.Failed++
		log.Error().Err(res.Err).Str("path", res.Entry.Path).Msg("Failed to generate c4 id")
	} else {
		summary.Identified++
	}
	return reporter.Report(res)
}
