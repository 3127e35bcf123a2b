package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"assembly/internal/app/bootstrap"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "assemblyctl",
	Short:         "Operate the agenda voting service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withRuntime wires the module for one command invocation.
func withRuntime(cmd *cobra.Command, fn func(runtime *bootstrap.Runtime) error) error {
	runtime, err := bootstrap.BuildRuntime(cmd.Context(), "cli")
	if err != nil {
		return err
	}
	defer runtime.Close()
	return fn(runtime)
}
