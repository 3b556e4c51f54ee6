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
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Error kinds. An *Error matches exactly one of these with errors.Is, and
// also matches its underlying unix.Errno.
var (
	// ErrNoSuchProcess: the target does not exist or is not our tracee.
	ErrNoSuchProcess = errors.New("no such process")

	// ErrPermissionDenied: the caller may not trace the target.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotStopped: the request needs the tracee in a trace-stop.
	ErrNotStopped = errors.New("process is not stopped")

	// ErrInterrupted: the call was interrupted and may be reissued.
	ErrInterrupted = errors.New("interrupted")

	// ErrUnsupported: any other kernel response.
	ErrUnsupported = errors.New("unsupported kernel response")
)

// Error is a failed trace request.
type Error struct {
	// Op is the request, e.g. "attach" or "peek".
	Op string

	// Pid is the target.
	Pid int

	// Errno is the kernel's answer.
	Errno unix.Errno

	// Kind is one of the Err* kinds above.
	Kind error
}

// Error implements error.Error.
func (e *Error) Error() string {
	return fmt.Sprintf("ptrace %s pid %d: %v (%v)", e.Op, e.Pid, e.Kind, e.Errno)
}

// Unwrap returns the kind and the errno.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Errno}
}

// processExists probes pid with the null signal.
func processExists(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// newError classifies err returned by request op on pid. A nil err yields
// nil.
//
// ESRCH is ambiguous for every request but attach: the kernel also returns it
// when the tracee exists but is running. The process is probed to tell the
// two apart.
func newError(op string, pid int, err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return fmt.Errorf("ptrace %s pid %d: %w", op, pid, err)
	}
	e := &Error{Op: op, Pid: pid, Errno: errno}
	switch errno {
	case unix.ESRCH:
		e.Kind = ErrNoSuchProcess
		if op != "attach" && processExists(pid) {
			e.Kind = ErrNotStopped
		}
	case unix.ECHILD:
		e.Kind = ErrNoSuchProcess
	case unix.EPERM, unix.EACCES:
		e.Kind = ErrPermissionDenied
	case unix.EINTR:
		e.Kind = ErrInterrupted
	default:
		e.Kind = ErrUnsupported
	}
	return e
}
