// Command wlgen compiles protocol schemas into Go bindings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// version is stamped at release time with -ldflags "-X main.version=...".
var version = "dev"

const usage = `usage: wlgen <command> [flags]

commands:
  generate   compile schemas into Go bindings
  validate   check schemas without writing anything
  dump       print the decoded model of a schema as JSON
  init       write a starter wlgen.toml
  serve      run the HTTP compiler service
  version    print the wlgen version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "generate":
		err = runGenerate(ctx, args[1:], stdout, stderr)
	case "validate":
		err = runValidate(args[1:], stdout, stderr)
	case "dump":
		err = runDump(args[1:], stdout, stderr)
	case "init":
		err = runInit(args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "version":
		fmt.Fprintf(stdout, "wlgen %s\n", version)
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "wlgen: unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "wlgen %s: %v\n", args[0], err)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "wlgen %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}
