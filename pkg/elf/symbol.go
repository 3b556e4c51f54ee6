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

import "fmt"

// Symbol record sizes.
const (
	Sym32Size = 16
	Sym64Size = 24
)

// SymType is the low nibble of a symbol's info byte.
type SymType uint8

// Symbol types.
const (
	STT_NOTYPE  SymType = 0
	STT_OBJECT  SymType = 1
	STT_FUNC    SymType = 2
	STT_SECTION SymType = 3
	STT_FILE    SymType = 4
	STT_COMMON  SymType = 5
	STT_TLS     SymType = 6
	STT_IFUNC   SymType = 10
)

var symTypeNames = map[SymType]string{
	STT_NOTYPE:  "NOTYPE",
	STT_OBJECT:  "OBJECT",
	STT_FUNC:    "FUNC",
	STT_SECTION: "SECTION",
	STT_FILE:    "FILE",
	STT_COMMON:  "COMMON",
	STT_TLS:     "TLS",
	STT_IFUNC:   "IFUNC",
}

// String implements fmt.Stringer.
func (t SymType) String() string {
	if s, ok := symTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("STT(%d)", uint8(t))
}

// SymBind is the high nibble of a symbol's info byte.
type SymBind uint8

// Symbol bindings.
const (
	STB_LOCAL  SymBind = 0
	STB_GLOBAL SymBind = 1
	STB_WEAK   SymBind = 2
)

// String implements fmt.Stringer.
func (b SymBind) String() string {
	switch b {
	case STB_LOCAL:
		return "LOCAL"
	case STB_GLOBAL:
		return "GLOBAL"
	case STB_WEAK:
		return "WEAK"
	default:
		return fmt.Sprintf("STB(%d)", uint8(b))
	}
}

// Symbol is one symbol table entry. Name is an offset into the string table
// linked from the owning section.
type Symbol struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx uint16
	Value uint64
	Size  uint64
}

// Type returns the symbol type.
func (s Symbol) Type() SymType { return SymType(s.Info & 0xf) }

// Bind returns the symbol binding.
func (s Symbol) Bind() SymBind { return SymBind(s.Info >> 4) }

// SymbolSize returns the record size of a symbol entry for the class of id.
func SymbolSize(id Ident) uint64 {
	if id.Is64() {
		return Sym64Size
	}
	return Sym32Size
}

// NumSymbols returns the number of entries in symbol table section sec.
func NumSymbols(id Ident, sec SectionHeader) uint64 {
	return sec.Size / SymbolSize(id)
}

// ParseSymbol decodes entry index of symbol table section sec.
func ParseSymbol(data []byte, id Ident, sec SectionHeader, index int) (Symbol, error) {
	var s Symbol
	order, err := id.validate()
	if err != nil {
		return s, err
	}
	what := fmt.Sprintf("symbol %d", index)
	size := SymbolSize(id)
	if index < 0 || uint64(index) >= NumSymbols(id, sec) {
		return s, &RangeError{What: what, Off: sec.Off, Size: size, Limit: sec.Size}
	}
	off, err := tableOffset(sec.Off, uint64(index), size, what, uint64(len(data)))
	if err != nil {
		return s, err
	}
	b, err := record(data, off, size, what)
	if err != nil {
		return s, err
	}

	s.Name = order.Uint32(b[0:])
	if id.Is64() {
		s.Info = b[4]
		s.Other = b[5]
		s.Shndx = order.Uint16(b[6:])
		s.Value = order.Uint64(b[8:])
		s.Size = order.Uint64(b[16:])
		return s, nil
	}
	s.Value = uint64(order.Uint32(b[4:]))
	s.Size = uint64(order.Uint32(b[8:]))
	s.Info = b[12]
	s.Other = b[13]
	s.Shndx = order.Uint16(b[14:])
	return s, nil
}
