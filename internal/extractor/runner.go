package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"mediagrab/pkg/logger"

	"go.uber.org/zap"
)

// Result is the outcome of one external process run. A non-zero ExitCode is
// not an error at this level; callers decide how to react to it.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Runner starts an external command and waits for it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// waitDelay bounds how long Wait keeps reading output after the process was
// killed or exited while something else still holds its pipes.
const waitDelay = 2 * time.Second

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts the command and waits for it. os/exec copies stdout and stderr
// on separate goroutines, so a full stderr pipe never stalls the child. On
// cancellation the whole process group is killed, which also stops helpers
// the tool spawned (the ffmpeg yt-dlp starts for merging and extraction).
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	waitErr := cmd.Wait()
	res := &Result{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Duration: time.Since(start),
	}

	if waitErr != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s interrupted: %w", name, ctx.Err())
		}
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// exited cleanly but a leftover child kept the pipes open
			logger.Logger.Warn("Output pipes held open after exit, output may be truncated",
				zap.String("command", name))
		default:
			return res, fmt.Errorf("%s failed: %w", name, waitErr)
		}
	}

	logger.Logger.Debug("External process finished",
		zap.String("command", name),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration))

	return res, nil
}
