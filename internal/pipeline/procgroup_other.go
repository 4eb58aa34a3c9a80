//go:build !unix

package pipeline

import (
	"os/exec"

	"github.com/shirou/gopsutil/v3/process"
)

func setupProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the child's descendants depth-first, then the child.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	proc, err := process.NewProcess(int32(cmd.Process.Pid))
	if err != nil {
		return cmd.Process.Kill()
	}
	killDescendants(proc)
	return cmd.Process.Kill()
}

func killDescendants(proc *process.Process) {
	children, err := proc.Children()
	if err != nil {
		return
	}
	for _, child := range children {
		killDescendants(child)
		_ = child.Kill()
	}
}
