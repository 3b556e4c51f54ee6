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

// Package ptrace is a thin wrapper over the kernel's process tracing
// requests.
//
// All requests for a tracee must come from the OS thread that attached to
// it. Callers should hold runtime.LockOSThread for the lifetime of a Tracee.
package ptrace

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Options selects which events produce additional trace-stops.
type Options struct {
	// SysGood marks syscall-stops with SIGTRAP|0x80.
	SysGood bool
	Fork    bool
	Exec    bool
	Clone   bool
	Exit    bool
}

func (o Options) bits() int {
	var b int
	if o.SysGood {
		b |= unix.PTRACE_O_TRACESYSGOOD
	}
	if o.Fork {
		b |= unix.PTRACE_O_TRACEFORK
	}
	if o.Exec {
		b |= unix.PTRACE_O_TRACEEXEC
	}
	if o.Clone {
		b |= unix.PTRACE_O_TRACECLONE
	}
	if o.Exit {
		b |= unix.PTRACE_O_TRACEEXIT
	}
	return b
}

// WordSize is the unit of PeekWord and PokeWord. The kernel's word may be
// smaller; the peek and poke helpers transfer it in as many requests as
// needed.
const WordSize = 8

// Regs is the general-purpose register set.
type Regs = unix.PtraceRegs

// Tracee is a process traced by the calling thread.
type Tracee struct {
	pid int
}

// New returns a Tracee for pid. It does not attach.
func New(pid int) *Tracee {
	return &Tracee{pid: pid}
}

// Pid returns the traced process ID.
func (t *Tracee) Pid() int {
	return t.pid
}

// String implements fmt.Stringer.
func (t *Tracee) String() string {
	return fmt.Sprintf("tracee %d", t.pid)
}

// Attach attaches to the process. The kernel sends it SIGSTOP; the caller
// must wait for that stop before issuing further requests.
func (t *Tracee) Attach() error {
	return newError("attach", t.pid, unix.PtraceAttach(t.pid))
}

// Detach detaches and lets the process run.
func (t *Tracee) Detach() error {
	return newError("detach", t.pid, unix.PtraceDetach(t.pid))
}

// SetOptions configures event stops.
//
// Precondition: the tracee is in a trace-stop.
func (t *Tracee) SetOptions(o Options) error {
	return newError("setoptions", t.pid, unix.PtraceSetOptions(t.pid, o.bits()))
}

// Cont resumes the tracee, delivering sig if non-zero.
func (t *Tracee) Cont(sig unix.Signal) error {
	return newError("cont", t.pid, unix.PtraceCont(t.pid, int(sig)))
}

// Step executes a single instruction.
func (t *Tracee) Step() error {
	return newError("singlestep", t.pid, unix.PtraceSingleStep(t.pid))
}

// Syscall resumes the tracee until the next syscall entry or exit.
func (t *Tracee) Syscall() error {
	return newError("syscall", t.pid, unix.PtraceSyscall(t.pid, 0))
}

// GetRegs returns a snapshot of the general-purpose registers.
func (t *Tracee) GetRegs() (*Regs, error) {
	var regs Regs
	if err := unix.PtraceGetRegs(t.pid, &regs); err != nil {
		return nil, newError("getregs", t.pid, err)
	}
	return &regs, nil
}

// SetRegs writes the general-purpose registers.
func (t *Tracee) SetRegs(regs *Regs) error {
	return newError("setregs", t.pid, unix.PtraceSetRegs(t.pid, regs))
}

// EventMsg returns the message of the last event-stop. For fork, vfork and
// clone events it is the new process or thread ID.
func (t *Tracee) EventMsg() (uint64, error) {
	msg, err := unix.PtraceGetEventMsg(t.pid)
	if err != nil {
		return 0, newError("geteventmsg", t.pid, err)
	}
	return uint64(msg), nil
}

// PeekWord reads the word at addr.
func (t *Tracee) PeekWord(addr uint64) (uint64, error) {
	var buf [WordSize]byte
	n, err := unix.PtracePeekText(t.pid, uintptr(addr), buf[:])
	if err != nil {
		return 0, newError("peek", t.pid, err)
	}
	if n != WordSize {
		return 0, newError("peek", t.pid, unix.EIO)
	}
	return binary.NativeEndian.Uint64(buf[:]), nil
}

// PokeWord writes the word at addr.
func (t *Tracee) PokeWord(addr, word uint64) error {
	var buf [WordSize]byte
	binary.NativeEndian.PutUint64(buf[:], word)
	n, err := unix.PtracePokeText(t.pid, uintptr(addr), buf[:])
	if err != nil {
		return newError("poke", t.pid, err)
	}
	if n != WordSize {
		return newError("poke", t.pid, unix.EIO)
	}
	return nil
}

// WordPeeker reads tracee memory a word at a time.
type WordPeeker interface {
	PeekWord(addr uint64) (uint64, error)
}

// ReadBytes reads n bytes at addr through p.
func ReadBytes(p WordPeeker, addr uint64, n int) ([]byte, error) {
	out := make([]byte, 0, n+WordSize)
	for a := addr; len(out) < n; a += WordSize {
		w, err := p.PeekWord(a)
		if err != nil {
			return nil, err
		}
		out = binary.NativeEndian.AppendUint64(out, w)
	}
	return out[:n], nil
}
