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

package ptrace

import (
	"fmt"
	"io"
	"text/tabwriter"
)

const (
	// TrapInstruction is int3.
	TrapInstruction = 0xcc

	// TrapWidth is the length of TrapInstruction. After the trap executes
	// the instruction pointer is this far past the breakpoint address.
	TrapWidth = 1
)

// PatchTrap returns word with its lowest-addressed byte replaced by the trap
// instruction.
func PatchTrap(word uint64) uint64 {
	return word&^0xff | TrapInstruction
}

// FormatRegs writes every general-purpose register of regs to w, one per
// line.
func FormatRegs(w io.Writer, regs *Regs) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, r := range []struct {
		name string
		val  uint64
	}{
		{"rip", regs.Rip},
		{"rsp", regs.Rsp},
		{"rbp", regs.Rbp},
		{"rax", regs.Rax},
		{"rbx", regs.Rbx},
		{"rcx", regs.Rcx},
		{"rdx", regs.Rdx},
		{"rsi", regs.Rsi},
		{"rdi", regs.Rdi},
		{"r8", regs.R8},
		{"r9", regs.R9},
		{"r10", regs.R10},
		{"r11", regs.R11},
		{"r12", regs.R12},
		{"r13", regs.R13},
		{"r14", regs.R14},
		{"r15", regs.R15},
		{"orig_rax", regs.Orig_rax},
		{"eflags", regs.Eflags},
		{"cs", regs.Cs},
		{"ss", regs.Ss},
		{"ds", regs.Ds},
		{"es", regs.Es},
		{"fs", regs.Fs},
		{"gs", regs.Gs},
		{"fs_base", regs.Fs_base},
		{"gs_base", regs.Gs_base},
	} {
		fmt.Fprintf(tw, "%s\t0x%016x\t%d\n", r.name, r.val, int64(r.val))
	}
	return tw.Flush()
}
