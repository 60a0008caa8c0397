package compile

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/vango-dev/firebolt/internal/config"
	"github.com/vango-dev/firebolt/internal/errors"
)

// Result describes a finished build.
type Result struct {
	// Binary is the path to the compiled server.
	Binary string

	// Public is the copied public directory, empty when there was none.
	Public string

	// Files is the number of public files copied.
	Files int

	// Duration is how long the build took.
	Duration time.Duration
}

// BuildOptions configures a Builder. Zero fields fall back to the
// project configuration.
type BuildOptions struct {
	// Output overrides the binary path.
	Output string

	// Production strips debug information and trims paths.
	Production bool

	// LDFlags are linker flags for go build.
	LDFlags string

	// Tags are build tags.
	Tags []string

	// Env is appended to the build environment.
	Env []string

	// GoBinary is the go command (default "go").
	GoBinary string
}

// Builder compiles a firebolt application.
type Builder struct {
	config  *config.Config
	options BuildOptions
}

// NewBuilder creates a builder for cfg.
func NewBuilder(cfg *config.Config, options BuildOptions) *Builder {
	if options.Output == "" {
		options.Output = cfg.BinaryPath()
	}
	if options.LDFlags == "" {
		options.LDFlags = cfg.Build.LDFlags
	}
	if len(options.Tags) == 0 {
		options.Tags = cfg.Build.Tags
	}
	if options.GoBinary == "" {
		options.GoBinary = "go"
	}
	return &Builder{config: cfg, options: options}
}

// Binary returns the output binary path.
func (b *Builder) Binary() string { return b.options.Output }

// Args returns the go command arguments used by Build.
func (b *Builder) Args() []string {
	args := []string{"build", "-o", b.options.Output}

	ldflags := b.options.LDFlags
	if b.options.Production {
		ldflags = strings.TrimSpace(ldflags + " -s -w")
		args = append(args, "-trimpath")
	}
	if ldflags != "" {
		args = append(args, "-ldflags", ldflags)
	}
	if len(b.options.Tags) > 0 {
		args = append(args, "-tags", strings.Join(b.options.Tags, ","))
	}
	return append(args, b.config.Build.Main)
}

// Build compiles the binary. In production mode the public directory is
// copied into the output directory as well.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(b.options.Output), 0o755); err != nil {
		return nil, errors.New("E030").Wrap(err)
	}

	cmd := exec.CommandContext(ctx, b.options.GoBinary, b.Args()...)
	cmd.Dir = b.config.Dir()
	cmd.Env = append(os.Environ(), b.options.Env...)
	if b.options.Production {
		cmd.Env = append(cmd.Env, "CGO_ENABLED=0")
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return nil, errors.New("E030").
			WithDetail(strings.TrimSpace(output.String())).
			WithSuggestion("Fix the compile errors above and run the command again.").
			Wrap(err)
	}

	result := &Result{Binary: b.options.Output}
	if b.options.Production {
		public := b.config.PublicPath()
		if info, err := os.Stat(public); err == nil && info.IsDir() {
			dest := filepath.Join(b.config.OutputPath(), "public")
			n, err := copyDir(public, dest)
			if err != nil {
				return nil, errors.New("E030").WithDetail("copying public files").Wrap(err)
			}
			result.Public = dest
			result.Files = n
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// copyDir copies the regular files under src into dst and returns how
// many were copied.
func copyDir(src, dst string) (int, error) {
	var n int
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
