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
	"fmt"

	"github.com/trapdbg/trapdbg/pkg/ptrace"
	"github.com/trapdbg/trapdbg/pkg/symtab"
	"golang.org/x/arch/x86/x86asm"
)

// maxInstLen is the longest x86 instruction.
const maxInstLen = 15

// SymLookup returns an x86asm.SymLookup over idx for an image loaded bias
// bytes above its symbol values.
func SymLookup(idx *symtab.Index, bias uint64) x86asm.SymLookup {
	return func(addr uint64) (string, uint64) {
		if idx == nil || addr < bias {
			return "", 0
		}
		sym, _, ok := idx.Lookup(addr - bias)
		if !ok {
			return "", 0
		}
		return sym.Name, sym.Value + bias
	}
}

// Instruction decodes the instruction at the breakpoint address as it is
// without the trap, in GNU syntax. lookup may be nil.
func (s *Session) Instruction(lookup x86asm.SymLookup) (string, error) {
	code, err := ptrace.ReadBytes(s.t, s.addr, maxInstLen)
	if err != nil {
		// The instruction may end the mapping; the first word must exist.
		if code, err = ptrace.ReadBytes(s.t, s.addr, ptrace.WordSize); err != nil {
			return "", fmt.Errorf("read %#x: %w", s.addr, err)
		}
	}
	if s.armed {
		code[0] = byte(s.orig)
	}
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return "", fmt.Errorf("decode %#x: %w", s.addr, err)
	}
	return x86asm.GNUSyntax(inst, s.addr, lookup), nil
}
