package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/oauth-demo/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	c, err := cli.New()
	if err != nil {
		return err
	}
	if err = c.Parse(args); err != nil {
		return err
	}

	return c.Execute(&cli.AppContext{
		Ctx:     ctx,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Version: version,
	})
}
