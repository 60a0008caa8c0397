package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/firebolt/internal/compile"
	"github.com/vango-dev/firebolt/internal/config"
)

func startCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve a production build",
		Long: `Run the server binary produced by 'firebolt build'.

Examples:
  firebolt start
  firebolt start --port=8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromWorkingDir()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Start.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			info(cmd.OutOrStdout(), "Serving %s on port %d", cfg.BinaryPath(), cfg.Start.Port)
			return compile.Start(ctx, cfg, os.Stdout, os.Stderr, newLogger())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port passed to the server as $PORT")

	return cmd
}
