package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/vango-dev/firebolt/internal/compile"
	"github.com/vango-dev/firebolt/internal/config"
)

func devCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Build the application, run it, and rebuild on file changes.

Connected browsers reload after every restart and show build
errors in the console.

Examples:
  firebolt dev
  firebolt dev --port=8080
  firebolt dev --host=0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := exec.LookPath("go"); err != nil {
				warn(cmd.ErrOrStderr(), "Go is not installed or not in PATH")
				info(cmd.ErrOrStderr(), "Install Go from https://go.dev/dl/")
				return err
			}

			cfg, err := config.LoadFromWorkingDir()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printBanner(out)
			fmt.Fprintln(out, "  dev")
			fmt.Fprintln(out)
			info(out, "Local: %s", cfg.DevURL())
			fmt.Fprintln(out)

			ctx, cancel := signalContext()
			defer cancel()

			err = compile.Dev(ctx, cfg, compile.DevOptions{
				Logger: newLogger(),
				Stdout: os.Stdout,
				Stderr: os.Stderr,
				OnBuild: func(result *compile.Result, err error) {
					if err == nil {
						success(out, "Built in %s", result.Duration.Round(1000000))
					}
				},
			})
			fmt.Fprintln(out, "\n  Shutting down...")
			return err
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from firebolt.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from firebolt.json)")

	return cmd
}
