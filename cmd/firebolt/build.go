package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/firebolt/internal/compile"
	"github.com/vango-dev/firebolt/internal/config"
)

func buildCmd() *cobra.Command {
	var (
		output  string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for production",
		Long: `Build the application for production deployment.

This command:
  • Compiles a stripped, static Go binary
  • Copies the public directory next to it
  • Optionally uploads the output to S3

Examples:
  firebolt build
  firebolt build --output=out
  firebolt build --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromWorkingDir()
			if err != nil {
				return err
			}
			if output != "" {
				cfg.Build.Output = output
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "  Building for production...")
			fmt.Fprintln(out)

			ctx, cancel := signalContext()
			defer cancel()

			result, err := compile.NewBuilder(cfg, compile.BuildOptions{Production: true}).Build(ctx)
			if err != nil {
				return err
			}

			success(out, "Build complete in %s", result.Duration.Round(1000000))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "  Output:")
			fmt.Fprintf(out, "    %s/\n", cfg.Build.Output)
			fmt.Fprintf(out, "    ├── server\n")
			fmt.Fprintf(out, "    └── public/  (%d files)\n", result.Files)
			fmt.Fprintln(out)

			if publish {
				p := compile.NewPublisher(cfg.Build.Publish)
				keys, err := p.Publish(ctx, cfg.OutputPath())
				if err != nil {
					return err
				}
				success(out, "Published %d files to s3://%s/%s", len(keys), p.Bucket, p.Prefix)
				fmt.Fprintln(out)
			}

			fmt.Fprintln(out, "  To run:")
			fmt.Fprintln(out, "    firebolt start")
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from firebolt.json)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Upload the build output to build.publish.bucket")

	return cmd
}
