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

// Section header record sizes.
const (
	Section32Size = 40
	Section64Size = 64
)

// SectionType is a section type.
type SectionType uint32

// Section types.
const (
	SHT_NULL           SectionType = 0
	SHT_PROGBITS       SectionType = 1
	SHT_SYMTAB         SectionType = 2
	SHT_STRTAB         SectionType = 3
	SHT_RELA           SectionType = 4
	SHT_HASH           SectionType = 5
	SHT_DYNAMIC        SectionType = 6
	SHT_NOTE           SectionType = 7
	SHT_NOBITS         SectionType = 8
	SHT_REL            SectionType = 9
	SHT_SHLIB          SectionType = 10
	SHT_DYNSYM         SectionType = 11
	SHT_INIT_ARRAY     SectionType = 14
	SHT_FINI_ARRAY     SectionType = 15
	SHT_PREINIT_ARRAY  SectionType = 16
	SHT_GROUP          SectionType = 17
	SHT_SYMTAB_SHNDX   SectionType = 18
	SHT_GNU_ATTRIBUTES SectionType = 0x6ffffff5
	SHT_GNU_HASH       SectionType = 0x6ffffff6
	SHT_GNU_LIBLIST    SectionType = 0x6ffffff7
	SHT_GNU_VERDEF     SectionType = 0x6ffffffd
	SHT_GNU_VERNEED    SectionType = 0x6ffffffe
	SHT_GNU_VERSYM     SectionType = 0x6fffffff

	SHT_LOPROC SectionType = 0x70000000
	SHT_HIPROC SectionType = 0x7fffffff
	SHT_LOUSER SectionType = 0x80000000
	SHT_HIUSER SectionType = 0xffffffff
)

var sectionTypeNames = map[SectionType]string{
	SHT_NULL:           "SHT_NULL",
	SHT_PROGBITS:       "SHT_PROGBITS",
	SHT_SYMTAB:         "SHT_SYMTAB",
	SHT_STRTAB:         "SHT_STRTAB",
	SHT_RELA:           "SHT_RELA",
	SHT_HASH:           "SHT_HASH",
	SHT_DYNAMIC:        "SHT_DYNAMIC",
	SHT_NOTE:           "SHT_NOTE",
	SHT_NOBITS:         "SHT_NOBITS",
	SHT_REL:            "SHT_REL",
	SHT_SHLIB:          "SHT_SHLIB",
	SHT_DYNSYM:         "SHT_DYNSYM",
	SHT_INIT_ARRAY:     "SHT_INIT_ARRAY",
	SHT_FINI_ARRAY:     "SHT_FINI_ARRAY",
	SHT_PREINIT_ARRAY:  "SHT_PREINIT_ARRAY",
	SHT_GROUP:          "SHT_GROUP",
	SHT_SYMTAB_SHNDX:   "SHT_SYMTAB_SHNDX",
	SHT_GNU_ATTRIBUTES: "SHT_GNU_ATTRIBUTES",
	SHT_GNU_HASH:       "SHT_GNU_HASH",
	SHT_GNU_LIBLIST:    "SHT_GNU_LIBLIST",
	SHT_GNU_VERDEF:     "SHT_GNU_VERDEF",
	SHT_GNU_VERNEED:    "SHT_GNU_VERNEED",
	SHT_GNU_VERSYM:     "SHT_GNU_VERSYM",
}

// Known reports whether t is one of the named section types.
func (t SectionType) Known() bool {
	_, ok := sectionTypeNames[t]
	return ok
}

// String implements fmt.Stringer. Values in the reserved processor and user
// ranges are printed relative to the start of their range.
func (t SectionType) String() string {
	if s, ok := sectionTypeNames[t]; ok {
		return s
	}
	switch {
	case t >= SHT_LOPROC && t <= SHT_HIPROC:
		return fmt.Sprintf("SHT_LOPROC+%#x", uint32(t-SHT_LOPROC))
	case t >= SHT_LOUSER:
		return fmt.Sprintf("SHT_LOUSER+%#x", uint32(t-SHT_LOUSER))
	}
	return fmt.Sprintf("SHT_UNKNOWN(%#x)", uint32(t))
}

// SectionHeader describes one section. Link is the index of an associated
// section; for SHT_SYMTAB it is the string table holding symbol names.
type SectionHeader struct {
	Name      uint32
	Type      SectionType
	Flags     uint64
	Addr      uint64
	Off       uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

// ParseSectionHeader decodes section header index from the table described
// by h.
func ParseSectionHeader(data []byte, id Ident, h Header, index int) (SectionHeader, error) {
	var s SectionHeader
	order, err := id.validate()
	if err != nil {
		return s, err
	}
	what := fmt.Sprintf("section header %d", index)
	size := uint64(Section32Size)
	if id.Is64() {
		size = Section64Size
	}
	if index < 0 || uint64(h.Shentsize) < size {
		return s, &RangeError{What: what, Off: h.Shoff, Size: size, Limit: uint64(h.Shentsize)}
	}
	off, err := tableOffset(h.Shoff, uint64(index), uint64(h.Shentsize), what, uint64(len(data)))
	if err != nil {
		return s, err
	}
	b, err := record(data, off, size, what)
	if err != nil {
		return s, err
	}

	s.Name = order.Uint32(b[0:])
	s.Type = SectionType(order.Uint32(b[4:]))
	if id.Is64() {
		s.Flags = order.Uint64(b[8:])
		s.Addr = order.Uint64(b[16:])
		s.Off = order.Uint64(b[24:])
		s.Size = order.Uint64(b[32:])
		s.Link = order.Uint32(b[40:])
		s.Info = order.Uint32(b[44:])
		s.Addralign = order.Uint64(b[48:])
		s.Entsize = order.Uint64(b[56:])
		return s, nil
	}
	s.Flags = uint64(order.Uint32(b[8:]))
	s.Addr = uint64(order.Uint32(b[12:]))
	s.Off = uint64(order.Uint32(b[16:]))
	s.Size = uint64(order.Uint32(b[20:]))
	s.Link = order.Uint32(b[24:])
	s.Info = order.Uint32(b[28:])
	s.Addralign = uint64(order.Uint32(b[32:]))
	s.Entsize = uint64(order.Uint32(b[36:]))
	return s, nil
}

// Contents returns the bytes of section s, bounds-checked against data.
// SHT_NOBITS sections occupy no file space and yield nil.
func Contents(data []byte, s SectionHeader, what string) ([]byte, error) {
	if s.Type == SHT_NOBITS {
		return nil, nil
	}
	return record(data, s.Off, s.Size, what)
}

// CString returns the nul-terminated string starting at off within table.
func CString(table []byte, off uint64) (string, error) {
	if off >= uint64(len(table)) {
		return "", &RangeError{What: "string", Off: off, Size: 1, Limit: uint64(len(table))}
	}
	for i := off; i < uint64(len(table)); i++ {
		if table[i] == 0 {
			return string(table[off:i]), nil
		}
	}
	return "", fmt.Errorf("%w at offset %#x", ErrUnterminatedString, off)
}
