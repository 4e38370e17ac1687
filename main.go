// Command livetodo is the same program as cmd/todo, installable from the module root.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/idilsaglam/livetodo/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Main(ctx)
	stop()
	os.Exit(code)
}
