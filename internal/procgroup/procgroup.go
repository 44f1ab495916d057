// SPDX-License-Identifier: MIT

// Package procgroup spawns external tools in their own process group so a
// timed-out downloader or summarizer can be reaped together with any
// children it forked.
package procgroup

import (
	"errors"
	"os/exec"
	"time"
)

// ErrKillFailed reports a process group that survived SIGTERM, SIGKILL and
// the reap timeout.
var ErrKillFailed = errors.New("kill operation failed")

// Set configures the command to start in a new process group.
// Mandatory for KillGroup to function as a group reaper.
func Set(cmd *exec.Cmd) {
	set(cmd)
}

// KillGroup terminates an entire process group tree: SIGTERM, grace period,
// then SIGKILL. The process must have been spawned with Set.
func KillGroup(pid int, grace, timeout time.Duration) error {
	return killGroup(pid, grace, timeout)
}
