// Package ytdlp runs the yt-dlp command line tool.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"ytrag/internal/contextutil"
)

// ErrNotInstalled is returned when the yt-dlp binary cannot be found.
var ErrNotInstalled = errors.New("yt-dlp is not installed")

// ExecFunc runs a command and returns its stdout.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Runner invokes yt-dlp with shared flags.
type Runner struct {
	path       string
	cookieFile string
	exec       ExecFunc
}

// NewRunner creates a Runner for the binary at path.
// cookieFile, when set, is passed to yt-dlp with --cookies and never read here.
func NewRunner(path, cookieFile string) *Runner {
	if path == "" {
		path = "yt-dlp"
	}
	return &Runner{
		path:       path,
		cookieFile: cookieFile,
		exec:       execCommand,
	}
}

// WithExec replaces how commands are executed. It is meant for tests.
func (r *Runner) WithExec(fn ExecFunc) *Runner {
	r.exec = fn
	return r
}

// Available reports whether the binary can be found on PATH.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.path)
	return err == nil
}

// Run executes yt-dlp with args followed by --no-warnings and, if configured, the cookie file.
func (r *Runner) Run(ctx context.Context, args ...string) ([]byte, error) {
	logger := contextutil.LoggerFromContext(ctx)

	full := make([]string, 0, len(args)+3)
	full = append(full, "--no-warnings")
	if r.cookieFile != "" {
		full = append(full, "--cookies", r.cookieFile)
	}
	full = append(full, args...)

	logger.DebugContext(ctx, "running yt-dlp", "args", full)
	out, err := r.exec(ctx, r.path, full...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrNotInstalled
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 500 {
			msg = msg[:500] + "..."
		}
		if msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", name, err)
	}
	return out, nil
}
