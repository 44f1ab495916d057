// SPDX-License-Identifier: MIT

// Package runner executes external tools with a hard wall-clock timeout.
// Timed-out processes are reaped as a whole process group so downloader or
// summarizer children never outlive the request.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"captiond/internal/procgroup"
)

// ErrTimeout reports a process that exceeded its wall-clock budget and was
// forcibly terminated.
var ErrTimeout = errors.New("process timed out")

// Spec describes one external-tool invocation.
type Spec struct {
	Path string   // binary to execute
	Args []string // arguments, no shell involved
	Dir  string   // working directory, empty for inherit
	Env  []string // extra KEY=VALUE entries appended to the inherited env
}

// Result carries the captured output of a finished process.
type Result struct {
	Stdout string
	Stderr string
}

// Run executes the spec and waits for completion or timeout, whichever comes
// first. On timeout the whole process group receives SIGTERM then SIGKILL
// and ErrTimeout is returned. A non-zero exit returns the Result alongside
// the *exec.ExitError so callers can classify stderr. A missing binary
// surfaces exec.ErrNotFound.
func Run(ctx context.Context, spec Spec, timeout time.Duration) (*Result, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	procgroup.Set(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-runCtx.Done():
		_ = procgroup.KillGroup(cmd.Process.Pid, 2*time.Second, 5*time.Second)
		<-done // reap; exit status is irrelevant after a kill
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrTimeout
		}
		return nil, runCtx.Err()
	case err := <-done:
		res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
		if err != nil {
			return res, err
		}
		return res, nil
	}
}

// Tail returns the last n non-empty lines of s, for bounded diagnostics
// logging of subprocess output.
func Tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var kept []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}
