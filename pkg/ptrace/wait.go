// Copyright 2026 The trapdbg Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux

package ptrace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sys/unix"
)

// SyscallStop is the stop signal reported for syscall-stops when
// Options.SysGood is set.
const SyscallStop = unix.SIGTRAP | 0x80

// WaitStatus is the result of a wait: which process changed state and how.
type WaitStatus struct {
	Pid    int
	Status unix.WaitStatus
}

// Stopped returns true if the process is in a stop.
func (w WaitStatus) Stopped() bool { return w.Status.Stopped() }

// StopSignal returns the signal that caused the stop.
func (w WaitStatus) StopSignal() unix.Signal { return w.Status.StopSignal() }

// Exited returns true if the process exited normally.
func (w WaitStatus) Exited() bool { return w.Status.Exited() }

// Signaled returns true if the process was killed by a signal.
func (w WaitStatus) Signaled() bool { return w.Status.Signaled() }

// TrapCause returns the PTRACE_EVENT_* of an event-stop, 0 for a plain
// SIGTRAP stop and -1 for anything else.
func (w WaitStatus) TrapCause() int { return w.Status.TrapCause() }

// IsSyscallStop returns true for a syscall-entry or syscall-exit stop.
func (w WaitStatus) IsSyscallStop() bool {
	return w.Stopped() && w.StopSignal() == SyscallStop
}

// IsEventStop returns true for a PTRACE_EVENT_* stop.
func (w WaitStatus) IsEventStop() bool {
	return w.Stopped() && w.TrapCause() > 0
}

// Gone returns true if the process no longer exists.
func (w WaitStatus) Gone() bool {
	return w.Exited() || w.Signaled()
}

// String implements fmt.Stringer.
func (w WaitStatus) String() string {
	switch {
	case w.Exited():
		return fmt.Sprintf("pid %d exited with status %d", w.Pid, w.Status.ExitStatus())
	case w.Signaled():
		return fmt.Sprintf("pid %d killed by %v", w.Pid, w.Status.Signal())
	case w.IsSyscallStop():
		return fmt.Sprintf("pid %d in syscall-stop", w.Pid)
	case w.IsEventStop():
		return fmt.Sprintf("pid %d in event-stop %d", w.Pid, w.TrapCause())
	case w.Stopped():
		return fmt.Sprintf("pid %d stopped by %v", w.Pid, w.StopSignal())
	case w.Status.Continued():
		return fmt.Sprintf("pid %d continued", w.Pid)
	}
	return fmt.Sprintf("pid %d status %#x", w.Pid, uint32(w.Status))
}

func wait(pid int) (WaitStatus, error) {
	var status unix.WaitStatus
	wpid, err := unix.Wait4(pid, &status, unix.WALL, nil)
	if err != nil {
		return WaitStatus{Pid: pid}, newError("wait", pid, err)
	}
	return WaitStatus{Pid: wpid, Status: status}, nil
}

// Wait blocks until the tracee changes state.
func (t *Tracee) Wait() (WaitStatus, error) {
	return wait(t.pid)
}

// Waiter is implemented by Tracee.
type Waiter interface {
	Wait() (WaitStatus, error)
}

// waitRetryInterval is the pause between interrupted waits.
const waitRetryInterval = time.Millisecond

// WaitRetry calls w.Wait, reissuing it up to retries more times while it
// fails with ErrInterrupted. Other errors are returned at once.
func WaitRetry(ctx context.Context, w Waiter, retries uint64) (WaitStatus, error) {
	var ws WaitStatus
	op := func() error {
		var err error
		ws, err = w.Wait()
		if err != nil && !errors.Is(err, ErrInterrupted) {
			return backoff.Permanent(err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(waitRetryInterval), retries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return ws, err
	}
	return ws, nil
}
