package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/danmuck/exireq/internal/logging"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := logging.RuntimeConfig(stderr)
	logging.Apply(cfg)

	root := newRootCmd(stdin, stdout, logging.New(cfg))
	root.SetArgs(args)
	root.SetOut(stderr)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "exireq: %v\n", err)
	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprint(stderr, root.UsageString())
		return exitUsage
	}
	return exitFailure
}
