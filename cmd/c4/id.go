package main

import (
	"context"
	"runtime"

	"github.com/pkg/errors"

	"c4/pkg/c4"
	"c4/pkg/identify"
	"c4/pkg/log"
)

func (c maincmd) id(ctx context.Context, args []string) error {
	fs := c.flagSet("id")
	var (
		asJSON    = fs.Bool("json", false, "print one JSON object per file")
		workers   = fs.Int("workers", runtime.NumCPU(), "files hashed concurrently")
		blockSize = fs.Int("block-size", c4.DefaultBlockSize, "bytes read per hashing block")
	)
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 1 {
		return usageError{msg: "id takes exactly one path"}
	}
	root := stripWildcard(fs.Arg(0))

	var reporter identify.Reporter = identify.TextReporter{W: c.stdout}
	if *asJSON {
		reporter = identify.NewJSONReporter(c.stdout)
	}

	pass := &identify.Pass{
		Digester:   c4.NewDigester(*blockSize),
		Workers:    *workers,
		Reporter:   reporter,
		CountFirst: !*asJSON,
	}
	summary, err := pass.Run(ctx, root)
	if err != nil {
		return err
	}

	log.Debug().Int("identified", summary.Identified).Int("failed", summary.Failed).Msg("Identification finished")
	if summary.Failed > 0 || summary.WalkErrors > 0 {
		return errors.Errorf("%d file(s) and %d directory(ies) could not be read", summary.Failed, summary.WalkErrors)
	}
	return nil
}
