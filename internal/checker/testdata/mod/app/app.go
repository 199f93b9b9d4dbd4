package app

import "os/exec"

// Run shells out directly.
func Run() error {
	return exec.Command("true").Run()
}

// Launcher is allowed to build commands.
type Launcher struct{}

// Start builds a command but still runs it directly.
func (Launcher) Start() error {
	cmd := exec.Command("true")
	return cmd.Run()
}
