package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	ferrors "github.com/vango-dev/firebolt/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬┬─┐┌─┐┌┐ ┌─┐┬ ┌┬┐
  ├┤ │├┬┘├┤ ├┴┐│ ││  │
  └  ┴┴└─└─┘└─┘└─┘┴─┘┴
`

var verbose bool

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		ferrors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "firebolt",
		Short: "Server-rendered Go applications with client navigation",
		Long: `Firebolt renders pages on the server, hydrates them in the
client, and navigates between routes without full reloads.

  • First-match route patterns with params and rest segments
  • Resources computed once on the server and reused on hydration
  • Head tags merged per page and kept in sync during navigation
  • Live reload development server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		devCmd(),
		buildCmd(),
		startCmd(),
		versionCmd(),
	)
	return rootCmd
}

// newLogger returns the CLI logger.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printBanner prints the Firebolt ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
