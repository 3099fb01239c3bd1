package gateway

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes a program and captures its output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run executes name with args. A non-zero exit is returned as
// *exec.ExitError alongside the captured output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	command := exec.CommandContext(ctx, name, args...)

	var stdoutBuf bytes.Buffer
	var stderrBuf bytes.Buffer
	command.Stdout = &stdoutBuf
	command.Stderr = &stderrBuf

	err := command.Run()
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), err
}

type exitCoder interface {
	ExitCode() int
}
