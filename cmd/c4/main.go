// Command c4 prints C4 IDs for a tree and replicates it into one or more destinations.
package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bobg/subcmd"
	"github.com/google/uuid"

	"c4/pkg/log"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

//go:embed VERSION
var Version string

const usage = `Usage:
  c4 [-debug] cp -R <src> <dst>
  c4 [-debug] cp -R <src> -t <dst1> <dst2> ...
  c4 [-debug] id [-json] <path>
  c4 [-debug] serve [-root dir] [-port 8080] [-cache 4096]
  c4 version

Examples:
  c4 cp -R /src-dir/* /dst-dir
  c4 cp -R /src-dir/*.* -t /dst-dir1 /dst-dir2
`

// usageError marks a malformed command line.
type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}

type maincmd struct {
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("c4", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *debug {
		log.SetDebugMode()
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	err := subcmd.Run(ctx, maincmd{stdout: stdout, stderr: stderr}, fs.Args())
	var uerr usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &uerr), errors.Is(err, flag.ErrHelp):
		if uerr.msg != "" {
			fmt.Fprintf(stderr, "Incorrect arguments specified: %s\n", uerr.msg)
		}
		fmt.Fprint(stderr, usage)
		return exitUsage
	case errors.Is(err, subcmd.ErrUnknown):
		fmt.Fprintf(stderr, "Unknown command %q\n", fs.Arg(0))
		fmt.Fprint(stderr, usage)
		return exitUsage
	default:
		log.Error().Err(err).Str("command", fs.Arg(0)).Msg("Command failed")
		return exitError
	}
}

// Subcmds lists the subcommands. Each parses its own flags.
func (c maincmd) Subcmds() subcmd.Map {
	return subcmd.Commands(
		"cp", c.cp, nil,
		"id", c.id, nil,
		"serve", c.serve, nil,
		"version", c.version, nil,
	)
}

// flagSet creates the flag set for one subcommand, reporting to stderr.
func (c maincmd) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c maincmd) version(_ context.Context, args []string) error {
	fs := c.flagSet("version")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	_, err := fmt.Fprintln(c.stdout, strings.TrimSpace(Version))
	return err
}

// startRun tags every log line of one invocation with a fresh id.
func startRun() {
	log.WithRun(uuid.NewString())
}
