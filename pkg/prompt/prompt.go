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

// Package prompt talks to the operator over a line-oriented terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/trapdbg/trapdbg/pkg/symtab"
	"golang.org/x/term"
)

// Prompter reads operator answers from in and writes to out. Prompt text is
// only written when in is a terminal, so scripted input produces clean
// output.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// New returns a Prompter on in and out.
func New(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
	if f, ok := in.(*os.File); ok {
		p.interactive = term.IsTerminal(int(f.Fd()))
	}
	return p
}

// Interactive returns true if input comes from a terminal.
func (p *Prompter) Interactive() bool {
	return p.interactive
}

// SetInteractive overrides terminal detection.
func (p *Prompter) SetInteractive(v bool) {
	p.interactive = v
}

// Printf writes to the output unconditionally.
func (p *Prompter) Printf(format string, v ...any) {
	fmt.Fprintf(p.out, format, v...)
}

func (p *Prompter) prompt(s string) {
	if p.interactive {
		fmt.Fprint(p.out, s)
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ListSymbols writes syms, one per line, for the operator to choose from.
func (p *Prompter) ListSymbols(syms []symtab.Symbol) error {
	return WriteSymbols(p.out, syms)
}

// AskSymbol asks for the name of the function to break on. Blank lines are
// skipped. io.EOF is returned if input ends first.
func (p *Prompter) AskSymbol() (string, error) {
	for {
		p.prompt("Function to break on: ")
		name, err := p.readLine()
		if err != nil {
			return "", err
		}
		if name != "" {
			return name, nil
		}
	}
}

// WaitEnter blocks until the operator sends a line.
func (p *Prompter) WaitEnter() error {
	p.prompt("Press Enter to continue...")
	_, err := p.readLine()
	return err
}

// WriteSymbols writes one symbol per line: address, size, type, binding,
// a "*" when the name was demangled, and the name.
func WriteSymbols(w io.Writer, syms []symtab.Symbol) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', 0)
	for _, s := range syms {
		mark := ""
		if s.Demangled {
			mark = "*"
		}
		fmt.Fprintf(tw, "%016x\t%d\t%v\t%v\t%s\t%s\n", s.Value, s.Size, s.Type, s.Bind, mark, s.Name)
	}
	return tw.Flush()
}
