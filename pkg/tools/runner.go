// Package tools runs external database utilities (pg_dump, pg_restore, psql)
// as subprocesses and reports their outcome.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ErrToolUnavailable indicates a required external binary is not installed on
// the execution host. It is raised by the pre-flight Look gate, never by Run.
var ErrToolUnavailable = errors.New("required tool is not installed")

// Result captures the buffered output of a completed subprocess.
type Result struct {
	Stdout string
	Stderr string
}

// ExecError is returned when a subprocess exits non-zero. Stderr carries the
// failure detail for history records.
type ExecError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
}

// Runner abstracts subprocess execution so orchestrators can be tested
// without spawning real tools.
type Runner interface {
	Run(ctx context.Context, tool string, args []string, env map[string]string, stream bool) (Result, error)
}

// ExecRunner runs tools via os/exec with the inherited environment plus
// per-invocation overrides. Standard input is always closed.
type ExecRunner struct {
	// Stdout and Stderr receive streamed output when stream is true.
	// They default to the process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner that streams to the current process's
// standard streams.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run spawns the tool and blocks until it exits. Output is always buffered
// into the Result; when stream is true it is additionally forwarded chunk by
// chunk to the runner's output streams so operators can watch long-running
// restores. Exit code 0 returns a nil error; any other exit code returns an
// *ExecError with the captured stderr.
func (r *ExecRunner) Run(ctx context.Context, tool string, args []string, env map[string]string, stream bool) (Result, error) {
	cmd := exec.CommandContext(ctx, tool, args...)

	cmd.Env = os.Environ()
	for key, value := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	var stdout, stderr bytes.Buffer
	if stream {
		cmd.Stdout = io.MultiWriter(r.stdout(), &stdout)
		cmd.Stderr = io.MultiWriter(r.stderr(), &stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}
	cmd.Stdin = nil

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, &ExecError{
				Tool:     tool,
				ExitCode: exitErr.ExitCode(),
				Stderr:   result.Stderr,
			}
		}
		return result, fmt.Errorf("failed to run %s: %w", tool, err)
	}

	return result, nil
}

func (r *ExecRunner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *ExecRunner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// Look verifies that the named tool exists on PATH. Callers must gate every
// destructive flow on this check so a missing binary is reported before any
// state is touched.
func Look(tool string) error {
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("%w: %s", ErrToolUnavailable, tool)
	}
	return nil
}
