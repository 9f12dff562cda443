package main

import (
	"context"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"c4/pkg/c4"
	"c4/pkg/identify"
	"c4/pkg/log"
	"c4/pkg/replicate"
)

func (c maincmd) cp(ctx context.Context, args []string) error {
	fs := c.flagSet("cp")
	var (
		recursive   = fs.Bool("R", false, "copy directories recursively")
		recursiveLC = fs.Bool("r", false, "same as -R")
		workers     = fs.Int("workers", runtime.NumCPU(), "files hashed concurrently")
		copyWorkers = fs.Int("copy-workers", replicate.DefaultWorkers, "destinations written concurrently")
		blockSize   = fs.Int("block-size", c4.DefaultBlockSize, "bytes read per hashing block")
		noID        = fs.Bool("no-id", false, "copy without printing C4 IDs first")
	)
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if !*recursive && !*recursiveLC {
		return usageError{msg: "-R is required"}
	}

	src, dsts, err := parseCopyArgs(fs.Args())
	if err != nil {
		return err
	}

	startRun()
	log.Info().Str("source", src).Strs("destinations", dsts).Msg("Starting copy")
	start := time.Now()

	if !*noID {
		pass := &identify.Pass{
			Digester:   c4.NewDigester(*blockSize),
			Workers:    *workers,
			Reporter:   identify.TextReporter{W: c.stdout},
			CountFirst: true,
		}
		summary, err := pass.Run(ctx, src)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			log.Warn().Err(err).Str("source", src).Msg("C4 IDs were not generated")
		case summary.Failed > 0 || summary.WalkErrors > 0:
			log.Warn().Int("failed", summary.Failed).Int("unreadable_dirs", summary.WalkErrors).Msg("Some C4 IDs were not generated")
		}
	}

	outcomes, err := replicate.New(*copyWorkers).ReplicateAll(ctx, src, dsts)

	var files int
	var size int64
	for _, o := range outcomes {
		files += o.Files
		size += o.Bytes
		log.Debug().Interface("replica", o.Result()).Msg("Destination finished")
	}
	log.Info().
		Int("destinations", len(outcomes)).
		Int("files", files).
		Str("size", humanize.Bytes(uint64(size))).
		Dur("elapsed", time.Since(start)).
		Msg("Copy finished")

	return err
}
