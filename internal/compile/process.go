package compile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// StopTimeout is how long a server gets to exit before it is killed.
const StopTimeout = 5 * time.Second

// Process runs and restarts one server binary.
type Process struct {
	Binary string
	Dir    string
	Port   int
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// Start runs the binary. A running instance is stopped first.
func (p *Process) Start() error {
	p.Stop()

	cmd := exec.Command(p.Binary)
	cmd.Dir = p.Dir
	cmd.Env = append(os.Environ(), "PORT="+strconv.Itoa(p.Port))
	cmd.Env = append(cmd.Env, p.Env...)
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		err := cmd.Wait()
		p.logger().Debug("server exited", "pid", cmd.Process.Pid, "error", err)
		close(done)
	}()

	p.mu.Lock()
	p.cmd, p.done = cmd, done
	p.mu.Unlock()
	p.logger().Debug("server started", "binary", p.Binary, "pid", cmd.Process.Pid, "port", p.Port)
	return nil
}

// Stop terminates the running instance, killing it after StopTimeout.
func (p *Process) Stop() {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	p.cmd, p.done = nil, nil
	p.mu.Unlock()
	if cmd == nil {
		return
	}

	terminate(cmd)
	select {
	case <-done:
	case <-time.After(StopTimeout):
		kill(cmd)
		<-done
	}
}

// Wait blocks until the running instance exits or ctx is done. It
// returns immediately when nothing is running.
func (p *Process) Wait(ctx context.Context) {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (p *Process) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
