package a

import "os/exec"

type Launcher struct{}

func (Launcher) Start() error {
	return exec.Command("ls").Run() // want `unwanted method "os/exec.Cmd.Run" called`
}

func bad() {
	cmd := exec.Command("ls") // want `unwanted method "os/exec.Command" called: use the sandbox runner`
	_ = cmd.Run()             // want `unwanted method "os/exec.Cmd.Run" called`
}

func fine() {
	_ = exec.ErrNotFound
	_, _ = exec.LookPath("ls")
	cmd := &exec.Cmd{Path: "ls"}
	_ = cmd.Start()
}
