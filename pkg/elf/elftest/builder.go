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

// Package elftest builds small synthetic ELF images for tests.
package elftest

import (
	"encoding/binary"

	"github.com/trapdbg/trapdbg/pkg/elf"
)

// Sym is a symbol to emit.
type Sym struct {
	Name  string
	Value uint64
	Size  uint64
	Info  uint8
	Shndx uint16
}

// Func returns a global function symbol.
func Func(name string, value uint64) Sym {
	return Sym{Name: name, Value: value, Size: 0x10, Info: uint8(elf.STB_GLOBAL)<<4 | uint8(elf.STT_FUNC), Shndx: 1}
}

// Table is one symbol table section and its string table.
type Table struct {
	Symbols []Sym
}

// Builder assembles an image with the layout
//
//	file header | program headers | tables... | .shstrtab | section headers
//
// Sections are emitted in the order: null, then for each table a
// .symtab/.strtab pair, then .shstrtab.
type Builder struct {
	Class  elf.Class
	Data   elf.Data
	Type   elf.FileType
	Progs  []elf.ProgramHeader
	Tables []Table
}

// New64 returns a little-endian ELFCLASS64 shared object builder with a single
// symbol table holding syms.
func New64(syms ...Sym) *Builder {
	return &Builder{
		Class:  elf.ELFCLASS64,
		Data:   elf.ELFDATA2LSB,
		Type:   elf.ET_DYN,
		Tables: []Table{{Symbols: syms}},
	}
}

type encoder struct {
	buf   []byte
	order binary.AppendByteOrder
	is64  bool
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16) { e.buf = e.order.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = e.order.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = e.order.AppendUint64(e.buf, v) }

// word emits a class-sized address or offset field.
func (e *encoder) word(v uint64) {
	if e.is64 {
		e.u64(v)
	} else {
		e.u32(uint32(v))
	}
}

func (e *encoder) align(n int) {
	for len(e.buf)%n != 0 {
		e.buf = append(e.buf, 0)
	}
}

type strtab struct {
	data []byte
}

func newStrtab() *strtab { return &strtab{data: []byte{0}} }

func (s *strtab) add(name string) uint32 {
	if name == "" {
		return 0
	}
	off := uint32(len(s.data))
	s.data = append(s.data, name...)
	s.data = append(s.data, 0)
	return off
}

// Bytes encodes the image.
func (b *Builder) Bytes() []byte {
	var order binary.AppendByteOrder = binary.LittleEndian
	if b.Data == elf.ELFDATA2MSB {
		order = binary.BigEndian
	}
	is64 := b.Class == elf.ELFCLASS64
	hsize, psize, ssize, symsize := elf.Header32Size, elf.Prog32Size, elf.Section32Size, elf.Sym32Size
	if is64 {
		hsize, psize, ssize, symsize = elf.Header64Size, elf.Prog64Size, elf.Section64Size, elf.Sym64Size
	}

	body := &encoder{order: order, is64: is64, buf: make([]byte, hsize)}

	phoff := uint64(len(body.buf))
	for _, p := range b.Progs {
		body.u32(uint32(p.Type))
		if is64 {
			body.u32(uint32(p.Flags))
		}
		body.word(p.Off)
		body.word(p.Vaddr)
		body.word(p.Paddr)
		body.word(p.Filesz)
		body.word(p.Memsz)
		if !is64 {
			body.u32(uint32(p.Flags))
		}
		body.word(p.Align)
	}

	shstr := newStrtab()
	sections := []elf.SectionHeader{{}}
	for _, t := range b.Tables {
		names := newStrtab()
		offs := make([]uint32, len(t.Symbols))
		for i, s := range t.Symbols {
			offs[i] = names.add(s.Name)
		}

		body.align(8)
		symoff := uint64(len(body.buf))
		for i, s := range t.Symbols {
			body.u32(offs[i])
			if is64 {
				body.u8(s.Info)
				body.u8(0)
				body.u16(s.Shndx)
				body.u64(s.Value)
				body.u64(s.Size)
			} else {
				body.u32(uint32(s.Value))
				body.u32(uint32(s.Size))
				body.u8(s.Info)
				body.u8(0)
				body.u16(s.Shndx)
			}
		}
		stroff := uint64(len(body.buf))
		body.buf = append(body.buf, names.data...)

		symIdx := uint32(len(sections))
		sections = append(sections,
			elf.SectionHeader{
				Name:      shstr.add(".symtab"),
				Type:      elf.SHT_SYMTAB,
				Off:       symoff,
				Size:      uint64(len(t.Symbols) * symsize),
				Link:      symIdx + 1,
				Addralign: 8,
				Entsize:   uint64(symsize),
			},
			elf.SectionHeader{
				Name:      shstr.add(".strtab"),
				Type:      elf.SHT_STRTAB,
				Off:       stroff,
				Size:      uint64(len(names.data)),
				Addralign: 1,
			})
	}
	shstrIdx := len(sections)
	shstrName := shstr.add(".shstrtab")
	shstrOff := uint64(len(body.buf))
	body.buf = append(body.buf, shstr.data...)
	sections = append(sections, elf.SectionHeader{
		Name:      shstrName,
		Type:      elf.SHT_STRTAB,
		Off:       shstrOff,
		Size:      uint64(len(shstr.data)),
		Addralign: 1,
	})

	body.align(8)
	shoff := uint64(len(body.buf))
	for _, s := range sections {
		body.u32(s.Name)
		body.u32(uint32(s.Type))
		body.word(s.Flags)
		body.word(s.Addr)
		body.word(s.Off)
		body.word(s.Size)
		body.u32(s.Link)
		body.u32(s.Info)
		body.word(s.Addralign)
		body.word(s.Entsize)
	}

	hdr := &encoder{order: order, is64: is64}
	hdr.buf = append(hdr.buf, elf.Magic[:]...)
	hdr.u8(uint8(b.Class))
	hdr.u8(uint8(b.Data))
	hdr.u8(1)
	hdr.buf = append(hdr.buf, make([]byte, elf.IdentSize-len(hdr.buf))...)
	hdr.u16(uint16(b.Type))
	hdr.u16(uint16(elf.EM_X86_64))
	hdr.u32(1)
	hdr.word(0)
	hdr.word(phoff)
	hdr.word(shoff)
	hdr.u32(0)
	hdr.u16(uint16(hsize))
	hdr.u16(uint16(psize))
	hdr.u16(uint16(len(b.Progs)))
	hdr.u16(uint16(ssize))
	hdr.u16(uint16(len(sections)))
	hdr.u16(uint16(shstrIdx))
	copy(body.buf, hdr.buf)
	return body.buf
}
