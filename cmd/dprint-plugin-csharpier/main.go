package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/dprint-plugin-csharpier/internal/config"
	"github.com/danmuck/dprint-plugin-csharpier/internal/logging"
	"github.com/danmuck/dprint-plugin-csharpier/internal/worker"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(os.Stdin, os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "dprint-plugin-csharpier: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	var (
		parentPID  int32
		configPath string
	)
	cmd := &cobra.Command{
		Use:   "dprint-plugin-csharpier",
		Short: "dprint process plugin formatting C# with csharpier",
		// stdout carries the plugin protocol
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.ConfigureRuntime()
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if _, set := os.LookupEnv(logging.EnvLogLevel); !set {
				logging.SetLevel(cfg.LogLevel)
			}
			svc, err := worker.NewService(worker.ServiceConfig{
				Worker:    cfg,
				ParentPID: parentPID,
				Version:   version,
			})
			if err != nil {
				return err
			}
			return svc.Run(cmd.Context(), in, out)
		},
	}
	cmd.SetErr(os.Stderr)
	flags := cmd.Flags()
	flags.Int32Var(&parentPID, "parent-pid", 0, "exit when this process id is gone (0 disables the check)")
	flags.StringVar(&configPath, "config", os.Getenv("DPRINT_CSHARPIER_CONFIG"), "worker settings file (TOML)")
	cmd.AddCommand(newVersionCommand())
	return cmd
}
