package dbt

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// CommandResult is the outcome of a process that started.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandRunner starts a process in dir and waits for it. A nonzero exit is
// a result, not an error; errors mean the process could not be started.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (*CommandResult, error)
}

// ExecRunner runs commands with os/exec. The context only gates the start:
// a started child is never killed and runs to exit.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (*CommandResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	waitErr := cmd.Wait()
	result := &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, waitErr
	}
	return result, nil
}

var _ CommandRunner = ExecRunner{}
