//go:build unix

package tts

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts cmd in its own process group so a wrapper script
// and everything it spawns can be stopped together.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcess kills cmd's process group.
func killProcess(cmd *exec.Cmd) error {
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
