package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"deepfake-guard/internal/cli"
	"github.com/fatih/color"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.Run(ctx, os.Args[1:], os.Stdin, color.Output, color.Error); err != nil {
		fmt.Fprintln(color.Error, color.RedString("error:"), err)
		cancel()
		os.Exit(1)
	}
}
