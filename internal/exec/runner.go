// Package exec runs the external tools reroll shells out to: tesseract,
// ImageMagick import and xdotool.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after ctx is done.
const waitDelay = 2 * time.Second

// CommandRunner abstracts command execution for dependency injection.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner executes real commands using os/exec.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner for production use.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a command and returns its standard output. A non-zero exit
// is reported with the command's trimmed stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := execCommand(ctx, name, args...).Output()
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%s: %w", name, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg := bytes.TrimSpace(exitErr.Stderr); len(msg) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
	}
	return nil, fmt.Errorf("%s: %w", name, err)
}

// Available reports whether name resolves to an executable on PATH.
func Available(name string) bool {
	_, err := lookPath(name)
	return err == nil
}

// execCommand and lookPath are variables to allow testing.
var (
	execCommand = execCommandImpl
	lookPath    = exec.LookPath
)

func execCommandImpl(ctx context.Context, name string, args ...string) execCmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	return realExecCmd{cmd: cmd}
}

// execCmd abstracts exec.Cmd for testing.
type execCmd interface {
	Output() ([]byte, error)
}

type realExecCmd struct {
	cmd *exec.Cmd
}

func (c realExecCmd) Output() ([]byte, error) {
	return c.cmd.Output()
}
