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

package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"

	"github.com/google/subcommands"
	"github.com/trapdbg/trapdbg/pkg/breakpoint"
	"github.com/trapdbg/trapdbg/pkg/log"
	"github.com/trapdbg/trapdbg/pkg/procfs"
	"github.com/trapdbg/trapdbg/pkg/prompt"
	"github.com/trapdbg/trapdbg/pkg/ptrace"
	"github.com/trapdbg/trapdbg/pkg/symtab"
	"github.com/trapdbg/trapdbg/trapdbg/cmd/util"
	"github.com/trapdbg/trapdbg/trapdbg/config"
	"golang.org/x/sys/unix"
)

// Break implements subcommands.Command for the "break" command.
type Break struct {
	filter   string
	noWait   bool
	maxHits  int
	showRegs bool
}

// Name implements subcommands.Command.Name.
func (*Break) Name() string {
	return "break"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Break) Synopsis() string {
	return "attach to a process and stop it every time it reaches a function"
}

// Usage implements subcommands.Command.Usage.
func (*Break) Usage() string {
	return `break [flags] <pid> [symbol] - break on symbol in a running process.

Without symbol, the symbols matching -filter are listed and the name is read
from stdin. On every hit the registers are shown and, unless -no-wait is set,
trapdbg waits for Enter before resuming the process. Interrupt detaches at the
next hit.

The symbol must match exactly one symbol table entry. For a position
independent executable (ELF type DYN) the load base of the process is added
to the symbol value. Symbols of a non-PIE executable (ELF type EXEC) are
absolute and used as they are.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (b *Break) SetFlags(f *flag.FlagSet) {
	f.StringVar(&b.filter, "filter", "", "only list symbols containing this string when asking for the symbol.")
	f.BoolVar(&b.noWait, "no-wait", false, "resume immediately after every hit.")
	f.IntVar(&b.maxHits, "max-hits", 0, "detach after this many hits. 0 means no limit.")
	f.BoolVar(&b.showRegs, "regs", true, "show all general purpose registers on every hit.")
}

// errMaxHits ends a session once -max-hits is reached.
var errMaxHits = errors.New("hit limit reached")

// traceOptions returns the ptrace options selected by conf.
func traceOptions(conf *config.Config) ptrace.Options {
	return ptrace.Options{
		SysGood: conf.TraceSysGood,
		Fork:    conf.TraceFork,
		Exec:    conf.TraceExec,
		Clone:   conf.TraceClone,
		Exit:    conf.TraceExit,
	}
}

// Execute implements subcommands.Command.Execute.
func (b *Break) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 || f.NArg() > 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	pid, err := strconv.Atoi(f.Arg(0))
	if err != nil || pid <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	tgt, err := resolveTarget(conf, f.Arg(0), false)
	if err != nil {
		return util.Errorf("break: %v", err)
	}
	img, syms, err := tgt.load(conf, "")
	if err != nil {
		return util.Errorf("break: %v", err)
	}

	p := prompt.New(os.Stdin, os.Stdout)
	name := f.Arg(1)
	if name == "" {
		listed, err := newResolver(conf).FindSymbol(img, b.filter)
		if err != nil {
			return util.Errorf("break: %v", err)
		}
		if err := p.ListSymbols(listed); err != nil {
			return util.Errorf("break: %v", err)
		}
		if name, err = p.AskSymbol(); err != nil {
			return util.Errorf("break: reading symbol name: %v", err)
		}
	}

	base, err := procfs.FS{Root: conf.ProcRoot}.LoadBase(pid)
	if err != nil {
		return util.Errorf("break: %v", err)
	}
	addr, sym, err := breakpoint.Resolve(img, syms, name, base)
	if err != nil {
		return util.Errorf("break: %v", err)
	}
	log.Infof("Breaking on %v at %#x (load base %#x)", sym, addr, base)

	// All ptrace requests must come from the thread that attached.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, unix.SIGTERM)
	defer stop()

	s := breakpoint.New(ptrace.New(pid), addr, breakpoint.Options{
		Trace:       traceOptions(conf),
		WaitRetries: conf.WaitRetries,
	})
	if err := s.Attach(ctx); err != nil {
		return util.Errorf("break: %v", err)
	}
	defer func() {
		if err := s.Detach(); err != nil {
			util.Errorf("break: %v", err)
		}
	}()
	fmt.Fprintf(os.Stdout, "Attached to pid %d, breakpoint at %v+%#x\n", pid, sym.Name, addr-sym.Value)

	in := &hitPrinter{
		cmd:    b,
		conf:   conf,
		out:    os.Stdout,
		prompt: p,
		lookup: breakpoint.SymLookup(symtab.NewIndex(syms), addr-sym.Value),
		sym:    sym,
	}
	err = s.Run(ctx, in)
	switch {
	case errors.Is(err, breakpoint.ErrTargetExited):
		fmt.Fprintf(os.Stdout, "Process %d exited after %d hits\n", pid, in.hits)
	case errors.Is(err, breakpoint.ErrTargetExeced):
		fmt.Fprintf(os.Stdout, "Process %d replaced its image after %d hits, detaching\n", pid, in.hits)
	case errors.Is(err, context.Canceled), errors.Is(err, errMaxHits), errors.Is(err, io.EOF):
		fmt.Fprintf(os.Stdout, "Detaching from pid %d after %d hits\n", pid, in.hits)
	default:
		return util.Errorf("break: %v", err)
	}
	return subcommands.ExitSuccess
}

// hitPrinter reports breakpoint hits to the operator.
type hitPrinter struct {
	cmd    *Break
	conf   *config.Config
	out    io.Writer
	prompt *prompt.Prompter
	lookup func(uint64) (string, uint64)
	sym    symtab.Symbol
	hits   int
}

// Trapped implements breakpoint.Inspector.Trapped.
func (h *hitPrinter) Trapped(s *breakpoint.Session, regs *ptrace.Regs) error {
	h.hits++
	fmt.Fprintf(h.out, "\nHit %d: pid %d stopped at %s (%#x)\n", h.hits, s.Pid(), h.sym.Name, s.Addr())
	if h.cmd.showRegs {
		if err := ptrace.FormatRegs(h.out, regs); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(h.out, "rip %#x rsp %#x rbp %#x\n", regs.Rip, regs.Rsp, regs.Rbp)
	}
	if h.conf.Disassemble {
		inst, err := s.Instruction(h.lookup)
		if err != nil {
			log.Warningf("Decoding instruction at %#x: %v", s.Addr(), err)
		} else {
			fmt.Fprintf(h.out, "=> %#x: %s\n", s.Addr(), inst)
		}
	}
	if h.cmd.maxHits > 0 && h.hits >= h.cmd.maxHits {
		return errMaxHits
	}
	if !h.cmd.noWait {
		return h.prompt.WaitEnter()
	}
	return nil
}
