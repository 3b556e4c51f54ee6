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

package elf

import (
	"fmt"
	"strings"
)

// Program header record sizes.
const (
	Prog32Size = 32
	Prog64Size = 56
)

// ProgType is a segment type.
type ProgType uint32

// Segment types.
const (
	PT_NULL         ProgType = 0
	PT_LOAD         ProgType = 1
	PT_DYNAMIC      ProgType = 2
	PT_INTERP       ProgType = 3
	PT_NOTE         ProgType = 4
	PT_SHLIB        ProgType = 5
	PT_PHDR         ProgType = 6
	PT_TLS          ProgType = 7
	PT_GNU_EH_FRAME ProgType = 0x6474e550
	PT_GNU_STACK    ProgType = 0x6474e551
	PT_GNU_RELRO    ProgType = 0x6474e552
	PT_GNU_PROPERTY ProgType = 0x6474e553
)

var progTypeNames = map[ProgType]string{
	PT_NULL:         "PT_NULL",
	PT_LOAD:         "PT_LOAD",
	PT_DYNAMIC:      "PT_DYNAMIC",
	PT_INTERP:       "PT_INTERP",
	PT_NOTE:         "PT_NOTE",
	PT_SHLIB:        "PT_SHLIB",
	PT_PHDR:         "PT_PHDR",
	PT_TLS:          "PT_TLS",
	PT_GNU_EH_FRAME: "PT_GNU_EH_FRAME",
	PT_GNU_STACK:    "PT_GNU_STACK",
	PT_GNU_RELRO:    "PT_GNU_RELRO",
	PT_GNU_PROPERTY: "PT_GNU_PROPERTY",
}

// Known reports whether t is one of the named segment types.
func (t ProgType) Known() bool {
	_, ok := progTypeNames[t]
	return ok
}

// String implements fmt.Stringer.
func (t ProgType) String() string {
	if s, ok := progTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("PT_UNKNOWN(%#x)", uint32(t))
}

// ProgFlag is a segment permission bit set.
type ProgFlag uint32

// Segment permissions.
const (
	PF_X ProgFlag = 0x1
	PF_W ProgFlag = 0x2
	PF_R ProgFlag = 0x4
)

// String implements fmt.Stringer in readelf's "RWE" form.
func (f ProgFlag) String() string {
	var b strings.Builder
	for _, p := range []struct {
		bit ProgFlag
		c   byte
	}{{PF_R, 'R'}, {PF_W, 'W'}, {PF_X, 'E'}} {
		if f&p.bit != 0 {
			b.WriteByte(p.c)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// ProgramHeader describes one segment. It is decoded for display only; no
// loading is performed.
type ProgramHeader struct {
	Type   ProgType
	Flags  ProgFlag
	Off    uint64
	Vaddr  uint64
	Paddr  uint64
	Filesz uint64
	Memsz  uint64
	Align  uint64
}

// ParseProgramHeader decodes program header index from the table described
// by h.
func ParseProgramHeader(data []byte, id Ident, h Header, index int) (ProgramHeader, error) {
	var p ProgramHeader
	order, err := id.validate()
	if err != nil {
		return p, err
	}
	what := fmt.Sprintf("program header %d", index)
	size := uint64(Prog32Size)
	if id.Is64() {
		size = Prog64Size
	}
	if index < 0 || uint64(h.Phentsize) < size {
		return p, &RangeError{What: what, Off: h.Phoff, Size: size, Limit: uint64(h.Phentsize)}
	}
	off, err := tableOffset(h.Phoff, uint64(index), uint64(h.Phentsize), what, uint64(len(data)))
	if err != nil {
		return p, err
	}
	b, err := record(data, off, size, what)
	if err != nil {
		return p, err
	}

	p.Type = ProgType(order.Uint32(b[0:]))
	if id.Is64() {
		p.Flags = ProgFlag(order.Uint32(b[4:]))
		p.Off = order.Uint64(b[8:])
		p.Vaddr = order.Uint64(b[16:])
		p.Paddr = order.Uint64(b[24:])
		p.Filesz = order.Uint64(b[32:])
		p.Memsz = order.Uint64(b[40:])
		p.Align = order.Uint64(b[48:])
		return p, nil
	}
	p.Off = uint64(order.Uint32(b[4:]))
	p.Vaddr = uint64(order.Uint32(b[8:]))
	p.Paddr = uint64(order.Uint32(b[12:]))
	p.Filesz = uint64(order.Uint32(b[16:]))
	p.Memsz = uint64(order.Uint32(b[20:]))
	p.Flags = ProgFlag(order.Uint32(b[24:]))
	p.Align = uint64(order.Uint32(b[28:]))
	return p, nil
}
