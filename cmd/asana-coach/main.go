package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vango-go/asana-coach/internal/dotenv"
)

var version = "dev"

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps serveDeps) int {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	if err := dotenv.LoadFile(".env.local", ".env"); err != nil {
		fmt.Fprintf(stderr, "asana-coach: %v\n", err)
		return 1
	}

	root := newRootCmd(deps, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "asana-coach: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr, defaultServeDeps()))
}
