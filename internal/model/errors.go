package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedSource means the URL does not belong to a recognised source.
	ErrUnsupportedSource = errors.New("source not supported")
	// ErrProbeFailed means the format catalog could not be obtained or parsed.
	ErrProbeFailed = errors.New("source unreachable or format probe failed")
	// ErrProcessFailed means an external process exited non-zero.
	ErrProcessFailed = errors.New("download failed after retries")
	// ErrNoOutputProduced means a process succeeded but left no output file.
	ErrNoOutputProduced = errors.New("downloader reported success but produced no file")
	// ErrInvalidFormatID means the requested format id is not a safe selector.
	ErrInvalidFormatID = errors.New("invalid format id")
)

// ProbeError carries the reason a probe failed and the tool's stderr, if any.
type ProbeError struct {
	Reason string
	Stderr string
}

func (e *ProbeError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %s", ErrProbeFailed, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrProbeFailed, e.Reason, tail(e.Stderr))
}

func (e *ProbeError) Unwrap() error { return ErrProbeFailed }

// ProcessError records a non-zero exit of an external tool.
type ProcessError struct {
	Tool     string
	Stage    string
	ExitCode int
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s (%s exited %d during %s): %s", ErrProcessFailed, e.Tool, e.ExitCode, e.Stage, tail(e.Stderr))
}

func (e *ProcessError) Unwrap() error { return ErrProcessFailed }

// tail keeps the last lines of tool output, which is where yt-dlp and ffmpeg
// put the actual error.
func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 1024
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
