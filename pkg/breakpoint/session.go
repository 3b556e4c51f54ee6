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

//go:build linux && amd64

package breakpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trapdbg/trapdbg/pkg/cleanup"
	"github.com/trapdbg/trapdbg/pkg/log"
	"github.com/trapdbg/trapdbg/pkg/ptrace"
	"golang.org/x/sys/unix"
)

// Tracer issues trace requests against one process. *ptrace.Tracee
// implements it.
type Tracer interface {
	Pid() int
	Attach() error
	Detach() error
	SetOptions(ptrace.Options) error
	Cont(sig unix.Signal) error
	Step() error
	Syscall() error
	EventMsg() (uint64, error)
	GetRegs() (*ptrace.Regs, error)
	SetRegs(*ptrace.Regs) error
	PeekWord(addr uint64) (uint64, error)
	PokeWord(addr, word uint64) error
	Wait() (ptrace.WaitStatus, error)
}

// Inspector is called each time the breakpoint is hit, with the registers
// as captured at the trap. Returning an error stops Run.
type Inspector interface {
	Trapped(s *Session, regs *ptrace.Regs) error
}

// InspectorFunc adapts a function to Inspector.
type InspectorFunc func(s *Session, regs *ptrace.Regs) error

// Trapped implements Inspector.Trapped.
func (f InspectorFunc) Trapped(s *Session, regs *ptrace.Regs) error {
	return f(s, regs)
}

// Options configure a Session.
type Options struct {
	// Trace selects the event stops enabled at attach.
	Trace ptrace.Options

	// WaitRetries is how often an interrupted wait is reissued.
	WaitRetries uint64

	// Logger receives session progress. Nil means the global logger.
	Logger log.Logger

	// StopLogInterval rate limits the messages about stops that are not the
	// breakpoint. Zero means one per second.
	StopLogInterval time.Duration

	// NewTracer returns a Tracer for a process or thread the kernel attached
	// because of Trace.Fork or Trace.Clone. Nil means ptrace.New.
	NewTracer func(pid int) Tracer
}

// stopLogBurst is how many stop messages may be logged back to back.
const stopLogBurst = 5

// Session is the trace state for one process and one breakpoint.
type Session struct {
	t    Tracer
	addr uint64
	opts Options
	log  log.Logger

	// stops logs stops that are not the breakpoint.
	stops log.Logger

	state State

	// orig is the word at addr before the trap was written. It is valid
	// while armed.
	orig  uint64
	armed bool

	// regs is the snapshot taken at the last trap.
	regs *ptrace.Regs

	// pending is a signal that arrived while the session was not waiting
	// for the trap. It is delivered on the next Continue.
	pending unix.Signal
}

// New returns a session that will break at addr in the process traced by t.
// It does not attach.
func New(t Tracer, addr uint64, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Log()
	}
	every := opts.StopLogInterval
	if every == 0 {
		every = time.Second
	}
	if opts.NewTracer == nil {
		opts.NewTracer = func(pid int) Tracer { return ptrace.New(pid) }
	}
	return &Session{
		t:     t,
		addr:  addr,
		opts:  opts,
		log:   logger,
		stops: log.BurstRateLimitedLogger(logger, every, stopLogBurst),
		state: Resolving,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Addr returns the breakpoint address.
func (s *Session) Addr() uint64 {
	return s.addr
}

// Pid returns the target's process ID.
func (s *Session) Pid() int {
	return s.t.Pid()
}

// Regs returns the registers captured at the last trap, or nil.
func (s *Session) Regs() *ptrace.Regs {
	return s.regs
}

// Armed returns true while the trap instruction is written to the target.
func (s *Session) Armed() bool {
	return s.armed
}

// OriginalWord returns the word the trap replaced. It is only meaningful
// while armed.
func (s *Session) OriginalWord() uint64 {
	return s.orig
}

func (s *Session) expect(op string, states ...State) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%s while %v: %w", op, s.state, ErrBadState)
}

func (s *Session) setState(st State) {
	s.log.Debugf("pid %d: %v -> %v", s.t.Pid(), s.state, st)
	s.state = st
}

func (s *Session) wait(ctx context.Context) (ptrace.WaitStatus, error) {
	ws, err := ptrace.WaitRetry(ctx, s.t, s.opts.WaitRetries)
	if err != nil {
		return ws, err
	}
	if ws.Gone() {
		s.armed = false
		s.setState(Detached)
		return ws, fmt.Errorf("%v: %w", ws, ErrTargetExited)
	}
	return ws, nil
}

// Attach attaches to the target and waits for it to stop. The target is then
// resumed to its next syscall boundary and stopped again, so that later
// requests find it in a known place.
//
// If any step after the attach itself fails, the target is detached.
func (s *Session) Attach(ctx context.Context) error {
	if err := s.expect("attach", Resolving); err != nil {
		return err
	}
	pid := s.t.Pid()
	if err := s.t.Attach(); err != nil {
		return fmt.Errorf("attach to pid %d: %w", pid, err)
	}
	cu := cleanup.Make(func() {
		if err := s.t.Detach(); err != nil {
			s.log.Warningf("detach from pid %d after failed attach: %v", pid, err)
		}
	})
	defer cu.Clean()

	ws, err := s.wait(ctx)
	if err != nil {
		if errors.Is(err, ErrTargetExited) {
			cu.Release()
		}
		return fmt.Errorf("attach to pid %d: %w", pid, err)
	}
	if !ws.Stopped() || ws.StopSignal() != unix.SIGSTOP {
		return fmt.Errorf("attach to pid %d: got %v, want SIGSTOP: %w", pid, ws, ptrace.ErrNotStopped)
	}
	if err := s.t.SetOptions(s.opts.Trace); err != nil {
		return fmt.Errorf("attach to pid %d: %w", pid, err)
	}
	if err := s.t.Syscall(); err != nil {
		return fmt.Errorf("attach to pid %d: %w", pid, err)
	}
	ws, err = s.wait(ctx)
	if err != nil {
		if errors.Is(err, ErrTargetExited) {
			cu.Release()
		}
		return fmt.Errorf("attach to pid %d: %w", pid, err)
	}
	s.deferSignal(ws)

	cu.Release()
	s.log.Infof("attached to pid %d (%v)", pid, ws)
	s.setState(Attached)
	return nil
}

// deferSignal records the signal of a signal-delivery stop so that it is
// not lost when the target is next resumed.
func (s *Session) deferSignal(ws ptrace.WaitStatus) {
	if !ws.Stopped() || ws.IsSyscallStop() || ws.IsEventStop() {
		return
	}
	if sig := ws.StopSignal(); sig != unix.SIGTRAP && sig != unix.SIGSTOP {
		s.stops.Infof("pid %d: deferring %v", ws.Pid, sig)
		s.pending = sig
	}
}

// Arm writes the trap instruction at the breakpoint address, saving the
// word it replaces.
func (s *Session) Arm() error {
	if err := s.expect("arm", Attached, Disarmed); err != nil {
		return err
	}
	word, err := s.t.PeekWord(s.addr)
	if err != nil {
		return fmt.Errorf("arm %#x: %w", s.addr, err)
	}
	if err := s.t.PokeWord(s.addr, ptrace.PatchTrap(word)); err != nil {
		return fmt.Errorf("arm %#x: %w", s.addr, err)
	}
	s.orig = word
	s.armed = true
	s.setState(Armed)
	return nil
}

// Continue resumes the target until it hits the breakpoint and returns the
// registers at the trap. Their instruction pointer is one trap width past
// the breakpoint address.
//
// Stops on the way are not reported: syscall and event stops are resumed,
// other signals are delivered to the target. If the target execs, the
// breakpoint is gone with the old image and ErrTargetExeced is returned.
func (s *Session) Continue(ctx context.Context) (*ptrace.Regs, error) {
	if err := s.expect("continue", Armed); err != nil {
		return nil, err
	}
	sig := s.pending
	s.pending = 0
	for {
		if err := s.t.Cont(sig); err != nil {
			return nil, fmt.Errorf("continue: %w", err)
		}
		sig = 0

		ws, err := s.wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("continue: %w", err)
		}
		switch {
		case ws.IsSyscallStop():
			s.stops.Debugf("resuming after %v", ws)
		case ws.IsEventStop():
			if err := s.event(ctx, ws); err != nil {
				return nil, fmt.Errorf("continue: %w", err)
			}
		case ws.Stopped() && ws.StopSignal() == unix.SIGTRAP:
			regs, err := s.t.GetRegs()
			if err != nil {
				return nil, fmt.Errorf("continue: %w", err)
			}
			if pc := regs.PC(); pc != s.addr+ptrace.TrapWidth {
				s.stops.Infof("pid %d: SIGTRAP at %#x is not the breakpoint", ws.Pid, pc)
				continue
			}
			s.regs = regs
			s.setState(Trapped)
			return regs, nil
		case ws.Stopped():
			sig = ws.StopSignal()
			s.stops.Infof("pid %d: forwarding %v", ws.Pid, sig)
		default:
			s.stops.Warningf("pid %d: unexpected %v", ws.Pid, ws)
		}
	}
}

// event handles a PTRACE_EVENT_* stop of the target.
func (s *Session) event(ctx context.Context, ws ptrace.WaitStatus) error {
	switch cause := ws.TrapCause(); cause {
	case unix.PTRACE_EVENT_EXEC:
		// The trap was in the old image; nothing may be written back.
		s.armed = false
		s.setState(Attached)
		s.log.Infof("pid %d: exec, breakpoint %#x dropped", ws.Pid, s.addr)
		return fmt.Errorf("%v: %w", ws, ErrTargetExeced)
	case unix.PTRACE_EVENT_FORK, unix.PTRACE_EVENT_VFORK, unix.PTRACE_EVENT_CLONE:
		return s.release(ctx, cause)
	default:
		s.stops.Debugf("resuming after %v", ws)
		return nil
	}
}

// release detaches the process or thread created by a fork, vfork or clone
// event. The kernel attached it and left it in a stop. A forked child has its
// own copy of the text, so the trap is removed from it first.
func (s *Session) release(ctx context.Context, cause int) error {
	msg, err := s.t.EventMsg()
	if err != nil {
		return err
	}
	child := s.opts.NewTracer(int(msg))
	ws, err := ptrace.WaitRetry(ctx, child, s.opts.WaitRetries)
	if err != nil {
		return fmt.Errorf("new tracee %d: %w", msg, err)
	}
	if ws.Gone() {
		s.stops.Infof("pid %d: new tracee %v", s.t.Pid(), ws)
		return nil
	}
	if cause == unix.PTRACE_EVENT_FORK && s.armed {
		if err := child.PokeWord(s.addr, s.orig); err != nil {
			return fmt.Errorf("new tracee %d: restore %#x: %w", msg, s.addr, err)
		}
	}
	if err := child.Detach(); err != nil {
		return fmt.Errorf("new tracee %d: %w", msg, err)
	}
	s.stops.Infof("pid %d: released new tracee %d", s.t.Pid(), msg)
	return nil
}

// Disarm puts the original word back and rewinds the instruction pointer to
// the breakpoint address, so that the replaced instruction runs next.
func (s *Session) Disarm() error {
	if err := s.expect("disarm", Trapped); err != nil {
		return err
	}
	if err := s.t.PokeWord(s.addr, s.orig); err != nil {
		return fmt.Errorf("disarm %#x: %w", s.addr, err)
	}
	s.armed = false

	regs := *s.regs
	regs.SetPC(s.addr)
	if err := s.t.SetRegs(&regs); err != nil {
		return fmt.Errorf("disarm %#x: %w", s.addr, err)
	}
	s.setState(Disarmed)
	return nil
}

// StepOver executes the original instruction at the breakpoint address. A
// signal that stops the target before the instruction has run is deferred to
// the next Continue and the step is retried.
func (s *Session) StepOver(ctx context.Context) error {
	if err := s.expect("step", Disarmed); err != nil {
		return err
	}
	for {
		if err := s.t.Step(); err != nil {
			return fmt.Errorf("step: %w", err)
		}
		ws, err := s.wait(ctx)
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		switch {
		case ws.IsEventStop():
			if err := s.event(ctx, ws); err != nil {
				return fmt.Errorf("step: %w", err)
			}
		case ws.Stopped() && ws.StopSignal() == unix.SIGTRAP:
			return nil
		default:
			s.deferSignal(ws)
		}
		regs, err := s.t.GetRegs()
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		if regs.PC() != s.addr {
			return nil
		}
		s.stops.Infof("pid %d: step interrupted by %v, retrying", ws.Pid, ws)
	}
}

// Detach restores the original word if the trap is still written and
// detaches from the target. A target stopped at the trap is first rewound to
// the breakpoint address. It is a no-op once detached.
func (s *Session) Detach() error {
	switch s.state {
	case Detached:
		return nil
	case Resolving:
		s.setState(Detached)
		return nil
	}
	cu := cleanup.MakeErr(func() error {
		if err := s.t.Detach(); err != nil {
			return fmt.Errorf("detach: %w", err)
		}
		return nil
	})
	if s.state == Trapped {
		cu.AddErr(func() error {
			regs := *s.regs
			regs.SetPC(s.addr)
			if err := s.t.SetRegs(&regs); err != nil {
				return fmt.Errorf("rewind to %#x: %w", s.addr, err)
			}
			return nil
		})
	}
	if s.armed {
		cu.AddErr(func() error {
			if err := s.t.PokeWord(s.addr, s.orig); err != nil {
				return fmt.Errorf("restore %#x: %w", s.addr, err)
			}
			s.armed = false
			return nil
		})
	}
	err := cu.CleanErr()
	s.setState(Detached)
	if err == nil {
		s.log.Infof("detached from pid %d", s.t.Pid())
	}
	return err
}

// Run repeats the breakpoint cycle until in returns an error, the target
// exits, a trace request fails or ctx is done. Each cycle arms the
// breakpoint, continues to the trap, calls in, disarms and steps over the
// original instruction. ctx is only checked between cycles.
func (s *Session) Run(ctx context.Context, in Inspector) error {
	for hits := 1; ; hits++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Arm(); err != nil {
			return err
		}
		regs, err := s.Continue(ctx)
		if err != nil {
			return err
		}
		s.log.Infof("pid %d: breakpoint %#x hit (%d)", s.t.Pid(), s.addr, hits)
		if err := in.Trapped(s, regs); err != nil {
			return err
		}
		if err := s.Disarm(); err != nil {
			return err
		}
		if err := s.StepOver(ctx); err != nil {
			return err
		}
	}
}
