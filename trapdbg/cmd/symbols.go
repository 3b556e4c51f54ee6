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

package cmd

import (
	"context"
	"flag"
	"io"

	"github.com/google/subcommands"
	"github.com/trapdbg/trapdbg/pkg/prompt"
	"github.com/trapdbg/trapdbg/trapdbg/cmd/util"
	"github.com/trapdbg/trapdbg/trapdbg/config"
)

// Symbols implements subcommands.Command for the "symbols" command.
type Symbols struct {
	file bool

	// out is where the listing goes. Nil means stdout.
	out io.Writer
}

// Name implements subcommands.Command.Name.
func (*Symbols) Name() string {
	return "symbols"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Symbols) Synopsis() string {
	return "list the symbols of a binary or of a process's executable"
}

// Usage implements subcommands.Command.Usage.
func (*Symbols) Usage() string {
	return `symbols [flags] <pid|path> [filter] - list symbols whose name contains filter.

Columns are address, size, type, binding, "*" for demangled names, and name.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Symbols) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&s.file, "file", false, "treat the argument as a path even if it is a number.")
}

// Execute implements subcommands.Command.Execute.
func (s *Symbols) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() < 1 || f.NArg() > 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	tgt, err := resolveTarget(conf, f.Arg(0), s.file)
	if err != nil {
		return util.Errorf("symbols: %v", err)
	}
	_, syms, err := tgt.load(conf, f.Arg(1))
	if err != nil {
		return util.Errorf("symbols: %v", err)
	}
	if err := prompt.WriteSymbols(output(s.out), syms); err != nil {
		return util.Errorf("symbols: %v", err)
	}
	return subcommands.ExitSuccess
}
