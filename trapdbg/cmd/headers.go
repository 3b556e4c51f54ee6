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
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/subcommands"
	"github.com/trapdbg/trapdbg/pkg/elf"
	"github.com/trapdbg/trapdbg/trapdbg/cmd/util"
	"github.com/trapdbg/trapdbg/trapdbg/config"
)

// Headers implements subcommands.Command for the "headers" command.
type Headers struct {
	file     bool
	programs bool
	sections bool

	// out is where the dump goes. Nil means stdout.
	out io.Writer
}

// Name implements subcommands.Command.Name.
func (*Headers) Name() string {
	return "headers"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Headers) Synopsis() string {
	return "dump the ELF, program and section headers of a binary or of a process's executable"
}

// Usage implements subcommands.Command.Usage.
func (*Headers) Usage() string {
	return "headers [flags] <pid|path>\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (h *Headers) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&h.file, "file", false, "treat the argument as a path even if it is a number.")
	f.BoolVar(&h.programs, "programs", true, "dump program headers.")
	f.BoolVar(&h.sections, "sections", true, "dump section headers.")
}

// Execute implements subcommands.Command.Execute.
func (h *Headers) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	tgt, err := resolveTarget(conf, f.Arg(0), h.file)
	if err != nil {
		return util.Errorf("headers: %v", err)
	}
	img, err := elf.Open(tgt.path)
	if err != nil {
		return util.Errorf("headers: %v", err)
	}
	if err := writeHeaders(output(h.out), img, h.programs, h.sections); err != nil {
		return util.Errorf("headers: %v", err)
	}
	return subcommands.ExitSuccess
}

func writeHeaders(w io.Writer, f *elf.File, programs, sections bool) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	id, hdr := f.Ident, f.Header
	fmt.Fprintf(tw, "ELF Header:\n")
	fmt.Fprintf(tw, "  Magic:\t% x\n", id.Magic[:])
	fmt.Fprintf(tw, "  Class:\t%v\n", id.Class)
	fmt.Fprintf(tw, "  Data:\t%v\n", id.Data)
	fmt.Fprintf(tw, "  Version:\t%d\n", id.Version)
	fmt.Fprintf(tw, "  OS/ABI:\t%d (ABI version %d)\n", id.OSABI, id.ABIVersion)
	fmt.Fprintf(tw, "  Type:\t%v\n", hdr.Type)
	fmt.Fprintf(tw, "  Machine:\t%v\n", hdr.Machine)
	fmt.Fprintf(tw, "  Entry:\t%#x\n", hdr.Entry)
	fmt.Fprintf(tw, "  Program headers:\t%d at %#x, %d bytes each\n", hdr.Phnum, hdr.Phoff, hdr.Phentsize)
	fmt.Fprintf(tw, "  Section headers:\t%d at %#x, %d bytes each\n", hdr.Shnum, hdr.Shoff, hdr.Shentsize)
	fmt.Fprintf(tw, "  Flags:\t%#x\n", hdr.Flags)
	fmt.Fprintf(tw, "  Section names:\t%d\n", hdr.Shstrndx)
	if err := tw.Flush(); err != nil {
		return err
	}

	if programs {
		fmt.Fprintf(w, "\nProgram Headers:\n")
		tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintf(tw, "  Type\tOffset\tVirtAddr\tPhysAddr\tFileSiz\tMemSiz\tFlags\tAlign\n")
		for _, p := range f.Progs {
			fmt.Fprintf(tw, "  %v\t%#x\t%#x\t%#x\t%#x\t%#x\t%v\t%#x\n", p.Type, p.Off, p.Vaddr, p.Paddr, p.Filesz, p.Memsz, p.Flags, p.Align)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if sections {
		fmt.Fprintf(w, "\nSection Headers:\n")
		tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintf(tw, "  [Nr]\tName\tType\tAddress\tOffset\tSize\tEntSize\tFlags\tLink\tInfo\tAlign\n")
		for i, s := range f.Sections {
			name, err := f.SectionName(i)
			if err != nil {
				name = fmt.Sprintf("<%v>", err)
			}
			fmt.Fprintf(tw, "  [%d]\t%s\t%v\t%#x\t%#x\t%#x\t%#x\t%#x\t%d\t%d\t%d\n", i, name, s.Type, s.Addr, s.Off, s.Size, s.Entsize, s.Flags, s.Link, s.Info, s.Addralign)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
