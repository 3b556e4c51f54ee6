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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/trapdbg/trapdbg/pkg/elf"
	"github.com/trapdbg/trapdbg/pkg/elf/elftest"
	"github.com/trapdbg/trapdbg/pkg/log"
	"github.com/trapdbg/trapdbg/pkg/ptrace"
	"github.com/trapdbg/trapdbg/pkg/symtab"
	"golang.org/x/sys/unix"
)

const (
	testBase = 0x555500000000
	testAddr = testBase + 0x1000

	// push %rbp; mov %rsp,%rbp; sub $0x10,%rsp
	prologue     = 0x10ec8348e5894855
	prologueNext = 0x9090909090909090
)

func stopped(sig unix.Signal) ptrace.WaitStatus {
	return ptrace.WaitStatus{Pid: testPid, Status: unix.WaitStatus(uint32(sig)<<8 | 0x7f)}
}

func exited(code int) ptrace.WaitStatus {
	return ptrace.WaitStatus{Pid: testPid, Status: unix.WaitStatus(code << 8)}
}

const testPid = 4242

var errNoStop = errors.New("fake: nothing to wait for")

// fakeTracer simulates a process that reaches bp every time it is
// continued, and exits when continued without the trap in place.
type fakeTracer struct {
	mem  map[uint64]uint64
	regs ptrace.Regs
	bp   uint64

	// attachStop replaces the SIGSTOP reported after Attach.
	attachStop *ptrace.WaitStatus

	// script is reported by Cont, one per call, before bp is reached.
	script []ptrace.WaitStatus

	// stepScript is reported by Step, one per call, before a step completes.
	stepScript []ptrace.WaitStatus

	// eventMsg is returned by EventMsg. children are the tracers handed out
	// for new tracees, by pid.
	eventMsg uint64
	children map[int]*fakeTracer

	// maxTraps ends the process after that many traps. Zero is no limit.
	maxTraps int
	traps    int

	pending  []ptrace.WaitStatus
	contSigs []unix.Signal
	opts     ptrace.Options
	calls    []string
}

func newFake() *fakeTracer {
	return &fakeTracer{
		mem: map[uint64]uint64{testAddr: prologue, testAddr + 8: prologueNext},
		bp:  testAddr,
	}
}

func (f *fakeTracer) push(ws ptrace.WaitStatus) { f.pending = append(f.pending, ws) }
func (f *fakeTracer) call(name string)          { f.calls = append(f.calls, name) }

func (f *fakeTracer) Pid() int { return testPid }

func (f *fakeTracer) Attach() error {
	f.call("attach")
	if f.attachStop != nil {
		f.push(*f.attachStop)
	} else {
		f.push(stopped(unix.SIGSTOP))
	}
	return nil
}

func (f *fakeTracer) Detach() error {
	f.call("detach")
	return nil
}

func (f *fakeTracer) SetOptions(o ptrace.Options) error {
	f.call("setoptions")
	f.opts = o
	return nil
}

func (f *fakeTracer) Cont(sig unix.Signal) error {
	f.call("cont")
	f.contSigs = append(f.contSigs, sig)
	switch {
	case len(f.script) > 0:
		f.push(f.script[0])
		f.script = f.script[1:]
	case f.maxTraps > 0 && f.traps == f.maxTraps:
		f.push(exited(0))
	case f.mem[f.bp]&0xff == ptrace.TrapInstruction:
		f.traps++
		f.regs.Rip = f.bp + ptrace.TrapWidth
		f.push(stopped(unix.SIGTRAP))
	default:
		f.push(exited(0))
	}
	return nil
}

func (f *fakeTracer) Step() error {
	f.call("step")
	if len(f.stepScript) > 0 {
		f.push(f.stepScript[0])
		f.stepScript = f.stepScript[1:]
		return nil
	}
	f.regs.Rip += 4
	f.push(stopped(unix.SIGTRAP))
	return nil
}

func (f *fakeTracer) Syscall() error {
	f.call("syscall")
	f.push(stopped(ptrace.SyscallStop))
	return nil
}

func (f *fakeTracer) EventMsg() (uint64, error) {
	return f.eventMsg, nil
}

func (f *fakeTracer) GetRegs() (*ptrace.Regs, error) {
	r := f.regs
	return &r, nil
}

func (f *fakeTracer) SetRegs(r *ptrace.Regs) error {
	f.call("setregs")
	f.regs = *r
	return nil
}

func (f *fakeTracer) PeekWord(addr uint64) (uint64, error) {
	w, ok := f.mem[addr]
	if !ok {
		return 0, fmt.Errorf("fake: peek %#x: %w", addr, ptrace.ErrUnsupported)
	}
	return w, nil
}

func (f *fakeTracer) PokeWord(addr, word uint64) error {
	if _, ok := f.mem[addr]; !ok {
		return fmt.Errorf("fake: poke %#x: %w", addr, ptrace.ErrUnsupported)
	}
	f.call("poke")
	f.mem[addr] = word
	return nil
}

func (f *fakeTracer) Wait() (ptrace.WaitStatus, error) {
	if len(f.pending) == 0 {
		return ptrace.WaitStatus{}, errNoStop
	}
	ws := f.pending[0]
	f.pending = f.pending[1:]
	return ws, nil
}

func testSession(t *testing.T, f *fakeTracer) *Session {
	t.Helper()
	return New(f, testAddr, Options{
		Trace:  ptrace.Options{SysGood: true, Exec: true},
		Logger: &log.BasicLogger{Level: log.Debug, Emitter: &log.TestEmitter{TestLogger: t}},
		NewTracer: func(pid int) Tracer {
			c, ok := f.children[pid]
			if !ok {
				t.Fatalf("no tracer for new tracee %d", pid)
			}
			return c
		},
	})
}

func attached(t *testing.T, f *fakeTracer) *Session {
	t.Helper()
	s := testSession(t, f)
	if err := s.Attach(context.Background()); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	return s
}

func testImage(t *testing.T, typ elf.FileType, syms ...elftest.Sym) (*elf.File, []symtab.Symbol) {
	t.Helper()
	b := elftest.New64(syms...)
	b.Type = typ
	f, err := elf.Parse(b.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	all, err := symtab.FindAll(f)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	return f, all
}

func TestResolve(t *testing.T) {
	f, syms := testImage(t, elf.ET_DYN,
		elftest.Sym{},
		elftest.Func("foo", 0x1000),
		elftest.Func("foobar", 0x2000),
		elftest.Func("bar", 0x3000),
		elftest.Func("dup", 0x4000),
		elftest.Func("dup", 0x4000),
		elftest.Func("twice", 0x5000),
		elftest.Func("twice", 0x6000),
	)
	for _, tc := range []struct {
		name       string
		want       uint64
		exact      bool
		candidates int
		msg        string
	}{
		{name: "foo", want: testBase + 0x1000},
		{name: "bar", want: testBase + 0x3000},
		{name: "oba", candidates: 1, msg: `"oba" matched 0 entries, 1 similar: foobar@0x2000`},
		{name: "ba", candidates: 2, msg: "matched 0 entries, 2 similar"},
		{name: "dup", exact: true, candidates: 2, msg: `"dup" matched 2 entries`},
		{name: "twice", exact: true, candidates: 2, msg: "twice@0x5000, twice@0x6000"},
		{name: "zzz", msg: `"zzz" matched 0 entries, 0 similar`},
		{name: "fo", candidates: 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			addr, sym, err := Resolve(f, syms, tc.name, testBase)
			if tc.want == 0 {
				var ae *AmbiguousError
				if !errors.As(err, &ae) || !errors.Is(err, ErrAmbiguousSymbol) {
					t.Fatalf("Resolve(%q) = %#x, %v, want *AmbiguousError", tc.name, addr, err)
				}
				if len(ae.Candidates) != tc.candidates || ae.Exact != tc.exact {
					t.Errorf("Resolve(%q) candidates = %v (exact %v), want %d (exact %v)", tc.name, ae.Candidates, ae.Exact, tc.candidates, tc.exact)
				}
				if !strings.Contains(err.Error(), tc.msg) {
					t.Errorf("error %q does not contain %q", err, tc.msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tc.name, err)
			}
			if addr != tc.want || addr != testBase+sym.Value || sym.Name != tc.name {
				t.Errorf("Resolve(%q) = %#x (%v), want %#x", tc.name, addr, sym, tc.want)
			}
		})
	}
}

func TestResolveExec(t *testing.T) {
	f, syms := testImage(t, elf.ET_EXEC, elftest.Func("foo", 0x401000))
	addr, _, err := Resolve(f, syms, "foo", testBase)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if addr != 0x401000 {
		t.Errorf("Resolve = %#x, want the absolute value 0x401000", addr)
	}
}

func TestAttach(t *testing.T) {
	f := newFake()
	s := attached(t, f)
	if s.State() != Attached {
		t.Errorf("State() = %v, want %v", s.State(), Attached)
	}
	if diff := cmp.Diff([]string{"attach", "setoptions", "syscall"}, f.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if !f.opts.SysGood || !f.opts.Exec || f.opts.Fork {
		t.Errorf("options = %+v, want SysGood and Exec", f.opts)
	}
	if err := s.Attach(context.Background()); !errors.Is(err, ErrBadState) {
		t.Errorf("second Attach: got err %v, want %v", err, ErrBadState)
	}
}

func TestAttachNotStopped(t *testing.T) {
	f := newFake()
	ws := stopped(unix.SIGUSR1)
	f.attachStop = &ws
	s := testSession(t, f)
	if err := s.Attach(context.Background()); !errors.Is(err, ptrace.ErrNotStopped) {
		t.Fatalf("Attach: got err %v, want %v", err, ptrace.ErrNotStopped)
	}
	if diff := cmp.Diff([]string{"attach", "detach"}, f.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if s.State() != Resolving {
		t.Errorf("State() = %v, want %v", s.State(), Resolving)
	}
}

func TestAttachExited(t *testing.T) {
	f := newFake()
	ws := exited(1)
	f.attachStop = &ws
	s := testSession(t, f)
	if err := s.Attach(context.Background()); !errors.Is(err, ErrTargetExited) {
		t.Fatalf("Attach: got err %v, want %v", err, ErrTargetExited)
	}
	if s.State() != Detached {
		t.Errorf("State() = %v, want %v", s.State(), Detached)
	}
	if diff := cmp.Diff([]string{"attach"}, f.calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

// TestBreakpointCycle walks one breakpoint hit by hand: the word round-trips
// and the instruction pointer is rewound by exactly the trap width.
func TestBreakpointCycle(t *testing.T) {
	f := newFake()
	s := attached(t, f)
	ctx := context.Background()

	if err := s.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if got, want := f.mem[testAddr], uint64(prologue&^0xff|0xcc); got != want {
		t.Errorf("armed word = %#x, want %#x", got, want)
	}
	if !s.Armed() || s.OriginalWord() != prologue {
		t.Errorf("Armed() = %v, OriginalWord() = %#x, want true, %#x", s.Armed(), s.OriginalWord(), uint64(prologue))
	}
	if err := s.Arm(); !errors.Is(err, ErrBadState) {
		t.Errorf("second Arm: got err %v, want %v", err, ErrBadState)
	}

	regs, err := s.Continue(ctx)
	if err != nil {
		t.Fatalf("Continue failed: %v", err)
	}
	if regs.PC() != testAddr+1 {
		t.Errorf("trap PC = %#x, want %#x", regs.PC(), uint64(testAddr+1))
	}
	if s.State() != Trapped || s.Regs().PC() != testAddr+1 {
		t.Errorf("after trap: state %v, snapshot PC %#x", s.State(), s.Regs().PC())
	}

	if err := s.Disarm(); err != nil {
		t.Fatalf("Disarm failed: %v", err)
	}
	if f.mem[testAddr] != prologue {
		t.Errorf("restored word = %#x, want %#x", f.mem[testAddr], uint64(prologue))
	}
	if f.regs.Rip != testAddr {
		t.Errorf("rewound PC = %#x, want %#x", f.regs.Rip, uint64(testAddr))
	}

	if err := s.StepOver(ctx); err != nil {
		t.Fatalf("StepOver failed: %v", err)
	}
	if s.State() != Disarmed {
		t.Errorf("State() = %v, want %v", s.State(), Disarmed)
	}
	if err := s.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if s.State() != Detached || f.calls[len(f.calls)-1] != "detach" {
		t.Errorf("State() = %v, last call %q, want detached", s.State(), f.calls[len(f.calls)-1])
	}
	if err := s.Detach(); err != nil {
		t.Errorf("second Detach = %v, want nil", err)
	}
}

func TestBadState(t *testing.T) {
	s := testSession(t, newFake())
	ctx := context.Background()
	if err := s.Arm(); !errors.Is(err, ErrBadState) {
		t.Errorf("Arm before attach: got err %v, want %v", err, ErrBadState)
	}
	if _, err := s.Continue(ctx); !errors.Is(err, ErrBadState) {
		t.Errorf("Continue before attach: got err %v, want %v", err, ErrBadState)
	}
	if err := s.Disarm(); !errors.Is(err, ErrBadState) {
		t.Errorf("Disarm before attach: got err %v, want %v", err, ErrBadState)
	}
	if err := s.StepOver(ctx); !errors.Is(err, ErrBadState) {
		t.Errorf("StepOver before attach: got err %v, want %v", err, ErrBadState)
	}
}

func TestArmUnmapped(t *testing.T) {
	f := newFake()
	delete(f.mem, testAddr)
	s := attached(t, f)
	if err := s.Arm(); !errors.Is(err, ptrace.ErrUnsupported) {
		t.Fatalf("Arm: got err %v, want %v", err, ptrace.ErrUnsupported)
	}
	if s.State() != Attached || s.Armed() {
		t.Errorf("after failed Arm: state %v, armed %v", s.State(), s.Armed())
	}
}

func TestContinueSkipsOtherStops(t *testing.T) {
	f := newFake()
	f.script = []ptrace.WaitStatus{
		stopped(unix.SIGUSR1),
		stopped(ptrace.SyscallStop),
		stopped(unix.SIGTRAP | unix.PTRACE_EVENT_EXIT<<8),
		stopped(unix.SIGTRAP),
	}
	s := attached(t, f)
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	regs, err := s.Continue(context.Background())
	if err != nil {
		t.Fatalf("Continue failed: %v", err)
	}
	if regs.PC() != testAddr+1 {
		t.Errorf("trap PC = %#x, want %#x", regs.PC(), uint64(testAddr+1))
	}
	want := []unix.Signal{0, unix.SIGUSR1, 0, 0, 0}
	if diff := cmp.Diff(want, f.contSigs); diff != "" {
		t.Errorf("delivered signals mismatch (-want +got):\n%s", diff)
	}
}

// TestContinueExec checks that a breakpoint lost to exec is never written
// back into the new image.
func TestContinueExec(t *testing.T) {
	f := newFake()
	f.script = []ptrace.WaitStatus{stopped(unix.SIGTRAP | unix.PTRACE_EVENT_EXEC<<8)}
	s := attached(t, f)
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	const newImage = 0x00000000c3c3c3c3
	f.mem[testAddr] = newImage

	if _, err := s.Continue(context.Background()); !errors.Is(err, ErrTargetExeced) {
		t.Fatalf("Continue: got err %v, want %v", err, ErrTargetExeced)
	}
	if s.State() != Attached || s.Armed() {
		t.Errorf("after exec: state %v, armed %v, want attached, not armed", s.State(), s.Armed())
	}
	if err := s.Disarm(); !errors.Is(err, ErrBadState) {
		t.Errorf("Disarm after exec: got err %v, want %v", err, ErrBadState)
	}
	pokes := strings.Count(strings.Join(f.calls, " "), "poke")
	if err := s.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if got := strings.Count(strings.Join(f.calls, " "), "poke"); got != pokes {
		t.Errorf("Detach after exec poked the target (%v)", f.calls)
	}
	if f.mem[testAddr] != newImage {
		t.Errorf("word after detach = %#x, want %#x", f.mem[testAddr], uint64(newImage))
	}
	if s.State() != Detached {
		t.Errorf("State() = %v, want %v", s.State(), Detached)
	}
}

// TestNewTraceeReleased checks that processes and threads attached through
// the fork and clone options are detached, and that a forked copy of the
// text loses the trap.
func TestNewTraceeReleased(t *testing.T) {
	const childPid = 5000
	for _, tc := range []struct {
		name      string
		event     int
		childStop ptrace.WaitStatus
		wantCalls []string
		wantWord  uint64
	}{
		{
			name:      "fork",
			event:     unix.PTRACE_EVENT_FORK,
			childStop: stopped(unix.SIGSTOP),
			wantCalls: []string{"poke", "detach"},
			wantWord:  prologue,
		},
		{
			name:      "vfork",
			event:     unix.PTRACE_EVENT_VFORK,
			childStop: stopped(unix.SIGSTOP),
			wantCalls: []string{"detach"},
			wantWord:  prologue&^0xff | ptrace.TrapInstruction,
		},
		{
			name:      "clone",
			event:     unix.PTRACE_EVENT_CLONE,
			childStop: stopped(unix.SIGSTOP),
			wantCalls: []string{"detach"},
			wantWord:  prologue&^0xff | ptrace.TrapInstruction,
		},
		{
			name:      "child gone",
			event:     unix.PTRACE_EVENT_FORK,
			childStop: exited(0),
			wantWord:  prologue&^0xff | ptrace.TrapInstruction,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFake()
			f.script = []ptrace.WaitStatus{stopped(unix.SIGTRAP | unix.Signal(tc.event<<8))}
			f.eventMsg = childPid
			s := attached(t, f)
			if err := s.Arm(); err != nil {
				t.Fatalf("Arm failed: %v", err)
			}

			child := &fakeTracer{mem: map[uint64]uint64{testAddr: f.mem[testAddr]}, bp: testAddr}
			child.push(tc.childStop)
			f.children = map[int]*fakeTracer{childPid: child}

			regs, err := s.Continue(context.Background())
			if err != nil {
				t.Fatalf("Continue failed: %v", err)
			}
			if regs.PC() != testAddr+1 || s.State() != Trapped {
				t.Errorf("after trap: PC %#x, state %v", regs.PC(), s.State())
			}
			if diff := cmp.Diff(tc.wantCalls, child.calls); diff != "" {
				t.Errorf("new tracee calls mismatch (-want +got):\n%s", diff)
			}
			if child.mem[testAddr] != tc.wantWord {
				t.Errorf("new tracee word = %#x, want %#x", child.mem[testAddr], tc.wantWord)
			}
			if !s.Armed() || f.mem[testAddr]&0xff != ptrace.TrapInstruction {
				t.Errorf("target lost the trap after the event")
			}
		})
	}
}

// TestStepOverInterrupted checks that a signal arriving before the replaced
// instruction ran is kept for the next resume and the step is reissued.
func TestStepOverInterrupted(t *testing.T) {
	f := newFake()
	s := attached(t, f)
	ctx := context.Background()
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if _, err := s.Continue(ctx); err != nil {
		t.Fatalf("Continue failed: %v", err)
	}
	if err := s.Disarm(); err != nil {
		t.Fatalf("Disarm failed: %v", err)
	}

	f.stepScript = []ptrace.WaitStatus{stopped(unix.SIGUSR1)}
	if err := s.StepOver(ctx); err != nil {
		t.Fatalf("StepOver failed: %v", err)
	}
	if got := strings.Count(strings.Join(f.calls, " "), "step"); got != 2 {
		t.Errorf("StepOver issued %d steps, want 2", got)
	}
	if f.regs.Rip != testAddr+4 {
		t.Errorf("PC after StepOver = %#x, want %#x", f.regs.Rip, uint64(testAddr+4))
	}

	if err := s.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if _, err := s.Continue(ctx); err != nil {
		t.Fatalf("Continue failed: %v", err)
	}
	if got := f.contSigs[len(f.contSigs)-1]; got != unix.SIGUSR1 {
		t.Errorf("next resume delivered %v, want %v", got, unix.SIGUSR1)
	}
}

func TestRun(t *testing.T) {
	f := newFake()
	f.maxTraps = 3
	s := attached(t, f)

	hits := 0
	err := s.Run(context.Background(), InspectorFunc(func(s *Session, regs *ptrace.Regs) error {
		hits++
		if regs.PC() != testAddr+1 {
			t.Errorf("hit %d: PC = %#x, want %#x", hits, regs.PC(), uint64(testAddr+1))
		}
		if f.mem[testAddr]&0xff != ptrace.TrapInstruction {
			t.Errorf("hit %d: trap not in place", hits)
		}
		return nil
	}))
	if !errors.Is(err, ErrTargetExited) {
		t.Fatalf("Run: got err %v, want %v", err, ErrTargetExited)
	}
	if hits != 3 {
		t.Errorf("Run saw %d hits, want 3", hits)
	}
	if s.State() != Detached || s.Armed() {
		t.Errorf("after exit: state %v, armed %v", s.State(), s.Armed())
	}
	if err := s.Detach(); err != nil {
		t.Errorf("Detach after exit = %v, want nil", err)
	}
}

func TestRunCancel(t *testing.T) {
	f := newFake()
	s := attached(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hits := 0
	err := s.Run(ctx, InspectorFunc(func(*Session, *ptrace.Regs) error {
		hits++
		if hits == 2 {
			cancel()
		}
		return nil
	}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got err %v, want %v", err, context.Canceled)
	}
	if hits != 2 || s.State() != Disarmed {
		t.Errorf("Run stopped after %d hits in state %v, want 2 hits, disarmed", hits, s.State())
	}
	if f.mem[testAddr] != prologue {
		t.Errorf("word after cancel = %#x, want %#x", f.mem[testAddr], uint64(prologue))
	}
}

func TestDetachWhileTrapped(t *testing.T) {
	f := newFake()
	s := attached(t, f)
	errStop := errors.New("operator quit")
	err := s.Run(context.Background(), InspectorFunc(func(*Session, *ptrace.Regs) error {
		return errStop
	}))
	if !errors.Is(err, errStop) {
		t.Fatalf("Run: got err %v, want %v", err, errStop)
	}
	if err := s.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if f.mem[testAddr] != prologue {
		t.Errorf("word after detach = %#x, want %#x", f.mem[testAddr], uint64(prologue))
	}
	if f.regs.Rip != testAddr {
		t.Errorf("PC after detach = %#x, want %#x", f.regs.Rip, uint64(testAddr))
	}
	if got := f.calls[len(f.calls)-3:]; !cmp.Equal(got, []string{"poke", "setregs", "detach"}) {
		t.Errorf("last calls = %v, want poke, setregs, detach", got)
	}
}

func TestInstruction(t *testing.T) {
	f := newFake()
	s := attached(t, f)
	if err := s.Arm(); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if _, err := s.Continue(context.Background()); err != nil {
		t.Fatalf("Continue failed: %v", err)
	}

	got, err := s.Instruction(nil)
	if err != nil {
		t.Fatalf("Instruction failed: %v", err)
	}
	if !strings.HasPrefix(got, "push") || !strings.Contains(got, "rbp") {
		t.Errorf("Instruction() = %q, want push %%rbp", got)
	}
}

func TestEndToEnd(t *testing.T) {
	img, syms := testImage(t, elf.ET_DYN, elftest.Sym{}, elftest.Func("foo", 0x1000))
	addr, _, err := Resolve(img, syms, "foo", 0x555500000000)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if addr != 0x555500001000 {
		t.Fatalf("Resolve = %#x, want 0x555500001000", addr)
	}

	f := newFake()
	f.maxTraps = 1
	s := New(f, addr, Options{Logger: &log.BasicLogger{Level: log.Debug, Emitter: &log.TestEmitter{TestLogger: t}}})
	if err := s.Attach(context.Background()); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	var pcs []uint64
	err = s.Run(context.Background(), InspectorFunc(func(_ *Session, regs *ptrace.Regs) error {
		pcs = append(pcs, regs.PC())
		return nil
	}))
	if !errors.Is(err, ErrTargetExited) {
		t.Fatalf("Run: got err %v, want %v", err, ErrTargetExited)
	}
	if diff := cmp.Diff([]uint64{0x555500001001}, pcs); diff != "" {
		t.Errorf("trap PCs mismatch (-want +got):\n%s", diff)
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		Resolving: "resolving",
		Armed:     "armed",
		Detached:  "detached",
		State(42): "State(42)",
	} {
		if got := st.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(st), got, want)
		}
	}
}

func TestSymLookup(t *testing.T) {
	_, syms := testImage(t, elf.ET_DYN, elftest.Func("foo", 0x1000))
	lookup := SymLookup(symtab.NewIndex(syms), testBase)
	if name, base := lookup(testBase + 0x1004); name != "foo" || base != testBase+0x1000 {
		t.Errorf("lookup = %q, %#x, want foo, %#x", name, base, uint64(testBase+0x1000))
	}
	if name, _ := lookup(0x10); name != "" {
		t.Errorf("lookup below the base = %q, want none", name)
	}
	if name, _ := SymLookup(nil, 0)(0x1000); name != "" {
		t.Errorf("nil index lookup = %q, want none", name)
	}
}
