//go:build !windows

package compile

import (
	"os/exec"
	"syscall"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalProcess(cmd *exec.Cmd, sig syscall.Signal) {
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, sig)
		return
	}
	_ = cmd.Process.Signal(sig)
}

func terminate(cmd *exec.Cmd) { signalProcess(cmd, syscall.SIGTERM) }

func kill(cmd *exec.Cmd) { signalProcess(cmd, syscall.SIGKILL) }
