package main

import (
	"context"
	"net"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"c4/pkg/c4"
	"c4/pkg/server"
)

func (c maincmd) serve(ctx context.Context, args []string) error {
	fs := c.flagSet("serve")
	var (
		root      = fs.String("root", ".", "directory whose files can be identified")
		port      = fs.String("port", "8080", "server port")
		cacheSize = fs.Int("cache", server.DefaultCacheSize, "number of file IDs to cache")
		workers   = fs.Int("workers", runtime.NumCPU(), "files hashed concurrently for /tree")
		blockSize = fs.Int("block-size", c4.DefaultBlockSize, "bytes read per hashing block")
	)
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() != 0 {
		return usageError{msg: "serve takes no positional arguments"}
	}

	info, err := os.Stat(*root)
	if err != nil {
		return errors.Wrapf(err, "checking root %s", *root)
	}
	if !info.IsDir() {
		return errors.Errorf("root %s is not a directory", *root)
	}

	startRun()
	srv, err := server.NewIDServer(*root, strings.TrimSpace(Version), c4.NewDigester(*blockSize), *cacheSize, *workers)
	if err != nil {
		return errors.Wrap(err, "creating server")
	}
	return srv.Start(ctx, net.JoinHostPort("", *port))
}
