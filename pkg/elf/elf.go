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

// Package elf decodes the structural records of an ELF image held in memory.
//
// Every record is read field by field from its known offset after the whole
// record has been bounds-checked against the image, so malformed input
// produces an error from this package and never a panic. Both ELFCLASS32 and
// ELFCLASS64 images in either byte order are supported.
package elf

import (
	"fmt"
	"os"
)

// File is a fully decoded ELF image. Data is retained because symbol and
// string tables are read from it lazily by callers.
type File struct {
	Data     []byte
	Ident    Ident
	Header   Header
	Progs    []ProgramHeader
	Sections []SectionHeader
}

// Open reads the file at path into memory and parses it.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes the identification block, the file header and all program
// and section headers of data.
func Parse(data []byte) (*File, error) {
	id, err := ParseIdent(data)
	if err != nil {
		return nil, err
	}
	h, err := ParseHeader(data, id)
	if err != nil {
		return nil, err
	}
	f := &File{
		Data:     data,
		Ident:    id,
		Header:   h,
		Progs:    make([]ProgramHeader, 0, h.Phnum),
		Sections: make([]SectionHeader, 0, h.Shnum),
	}
	for i := 0; i < int(h.Phnum); i++ {
		p, err := ParseProgramHeader(data, id, h, i)
		if err != nil {
			return nil, err
		}
		f.Progs = append(f.Progs, p)
	}
	for i := 0; i < int(h.Shnum); i++ {
		s, err := ParseSectionHeader(data, id, h, i)
		if err != nil {
			return nil, err
		}
		f.Sections = append(f.Sections, s)
	}
	return f, nil
}

// Section returns section header i, or a *RangeError if i is not an index
// into the section table.
func (f *File) Section(i uint32) (SectionHeader, error) {
	if uint64(i) >= uint64(len(f.Sections)) {
		return SectionHeader{}, &RangeError{
			What:  fmt.Sprintf("section index %d", i),
			Off:   uint64(i),
			Size:  1,
			Limit: uint64(len(f.Sections)),
		}
	}
	return f.Sections[i], nil
}

// SectionName returns the name of section i from the section name string
// table.
func (f *File) SectionName(i int) (string, error) {
	if i < 0 || i >= len(f.Sections) {
		return "", &RangeError{What: "section name", Off: uint64(i), Size: 1, Limit: uint64(len(f.Sections))}
	}
	strtab, err := f.Section(uint32(f.Header.Shstrndx))
	if err != nil {
		return "", err
	}
	table, err := Contents(f.Data, strtab, "section name table")
	if err != nil {
		return "", err
	}
	return CString(table, uint64(f.Sections[i].Name))
}

// Symbol decodes entry index of symbol table section sec.
func (f *File) Symbol(sec SectionHeader, index int) (Symbol, error) {
	return ParseSymbol(f.Data, f.Ident, sec, index)
}
