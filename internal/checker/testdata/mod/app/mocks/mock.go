package mocks

import "os/exec"

// Fake returns a command for tests.
func Fake() *exec.Cmd { return exec.Command("true") }
