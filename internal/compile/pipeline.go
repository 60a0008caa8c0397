package compile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/firebolt/internal/config"
	ferrors "github.com/vango-dev/firebolt/internal/errors"
)

// DevEnv marks a server started by Dev.
const DevEnv = "FIREBOLT_DEV=1"

// DevOptions configures Dev.
type DevOptions struct {
	Logger *slog.Logger

	// OnBuild is called after every build attempt.
	OnBuild func(*Result, error)

	// Stdout and Stderr receive the server's output.
	Stdout io.Writer
	Stderr io.Writer
}

// Dev builds and runs the application, rebuilding and restarting it when
// a watched file changes, until ctx is done. A failed rebuild keeps the
// previous server running.
func Dev(ctx context.Context, cfg *config.Config, opts DevOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	builder := NewBuilder(cfg, BuildOptions{
		Output: filepath.Join(cfg.Dir(), ".firebolt", config.DefaultBinary),
	})
	proc := &Process{
		Binary: builder.Binary(),
		Dir:    cfg.Dir(),
		Port:   cfg.Dev.Port,
		Env:    []string{DevEnv},
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
		Logger: logger,
	}
	defer proc.Stop()

	rebuild := func(ctx context.Context) {
		result, err := builder.Build(ctx)
		if opts.OnBuild != nil {
			opts.OnBuild(result, err)
		}
		if err != nil {
			if !errors.Is(ctx.Err(), context.Canceled) {
				logger.Warn("build failed", "error", err)
			}
			return
		}
		logger.Debug("build finished", "duration", result.Duration)
		if err := proc.Start(); err != nil {
			logger.Error("server start failed", "error", err)
		}
	}

	rebuild(ctx)

	changes := make(chan Change, 16)
	watcher := NewWatcher(cfg.WatchPaths(), ignorePatterns(cfg), cfg.DebounceInterval())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx, func(c Change) {
			select {
			case changes <- c:
			default:
			}
		})
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case c := <-changes:
				logger.Info("change detected", "kind", c.Kind.String(), "files", len(c.Paths))
				switch c.Kind {
				case KindGo:
					rebuild(gctx)
				default:
					// Public files are served from disk; a restart is
					// enough to make the browser reconnect and reload.
					if err := proc.Start(); err != nil {
						logger.Error("server restart failed", "error", err)
					}
				}
			}
		}
	})
	return g.Wait()
}

// Start runs a built binary until it exits or ctx is done.
func Start(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	binary := cfg.BinaryPath()
	if _, err := os.Stat(binary); err != nil {
		return ferrors.New("E031").
			WithField("binary", binary).
			WithSuggestion("Run 'firebolt build' first.").
			Wrap(err)
	}

	proc := &Process{
		Binary: binary,
		Dir:    cfg.OutputPath(),
		Port:   cfg.Start.Port,
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
	}
	if err := proc.Start(); err != nil {
		return err
	}
	defer proc.Stop()
	proc.Wait(ctx)
	return nil
}

func ignorePatterns(cfg *config.Config) []string {
	patterns := make([]string, 0, len(DefaultIgnore)+len(cfg.Dev.Ignore)+1)
	patterns = append(patterns, DefaultIgnore...)
	patterns = append(patterns, cfg.Dev.Ignore...)
	if out := cfg.Build.Output; out != "" {
		patterns = append(patterns, filepath.Base(out))
	}
	return patterns
}
