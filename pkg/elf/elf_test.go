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

package elf_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/trapdbg/trapdbg/pkg/elf"
	"github.com/trapdbg/trapdbg/pkg/elf/elftest"
)

func variants() []*elftest.Builder {
	var bs []*elftest.Builder
	for _, class := range []elf.Class{elf.ELFCLASS32, elf.ELFCLASS64} {
		for _, data := range []elf.Data{elf.ELFDATA2LSB, elf.ELFDATA2MSB} {
			bs = append(bs, &elftest.Builder{
				Class: class,
				Data:  data,
				Type:  elf.ET_DYN,
				Progs: []elf.ProgramHeader{
					{Type: elf.PT_PHDR, Flags: elf.PF_R, Off: 0x40, Vaddr: 0x40, Paddr: 0x40, Filesz: 0x38, Memsz: 0x38, Align: 8},
					{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X, Off: 0, Vaddr: 0, Paddr: 0, Filesz: 0x1000, Memsz: 0x1000, Align: 0x1000},
				},
				Tables: []elftest.Table{{Symbols: []elftest.Sym{
					{},
					elftest.Func("foo", 0x1000),
				}}},
			})
		}
	}
	return bs
}

func TestParseIdent(t *testing.T) {
	for _, b := range variants() {
		t.Run(fmt.Sprintf("%v/%v", b.Class, b.Data), func(t *testing.T) {
			id, err := elf.ParseIdent(b.Bytes())
			if err != nil {
				t.Fatalf("ParseIdent failed: %v", err)
			}
			if id.Class != b.Class {
				t.Errorf("Class = %v, want %v", id.Class, b.Class)
			}
			if id.Data != b.Data {
				t.Errorf("Data = %v, want %v", id.Data, b.Data)
			}
		})
	}
}

func TestParseIdentBadMagic(t *testing.T) {
	for i := 1; i <= 3; i++ {
		data := elftest.New64().Bytes()
		data[i] ^= 0x20
		if _, err := elf.ParseIdent(data); !errors.Is(err, elf.ErrNotELF) {
			t.Errorf("byte %d altered: got err %v, want %v", i, err, elf.ErrNotELF)
		}
		if _, err := elf.Parse(data); !errors.Is(err, elf.ErrNotELF) {
			t.Errorf("byte %d altered: Parse got err %v, want %v", i, err, elf.ErrNotELF)
		}
	}
	if _, err := elf.ParseIdent([]byte{0x7f, 'E', 'L'}); !errors.Is(err, elf.ErrNotELF) {
		t.Errorf("short input: got err %v, want %v", err, elf.ErrNotELF)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	data := elftest.New64().Bytes()

	if _, err := elf.Parse(data[:elf.IdentSize+4]); !errors.Is(err, elf.ErrTruncated) {
		t.Errorf("truncated header: got err %v, want %v", err, elf.ErrTruncated)
	}

	bad := append([]byte(nil), data...)
	bad[elf.EI_CLASS] = 3
	if _, err := elf.Parse(bad); !errors.Is(err, elf.ErrUnsupportedClass) {
		t.Errorf("class 3: got err %v, want %v", err, elf.ErrUnsupportedClass)
	}

	bad = append([]byte(nil), data...)
	bad[elf.EI_DATA] = 0
	if _, err := elf.Parse(bad); !errors.Is(err, elf.ErrUnsupportedClass) {
		t.Errorf("data 0: got err %v, want %v", err, elf.ErrUnsupportedClass)
	}
}

func TestParse(t *testing.T) {
	for _, b := range variants() {
		t.Run(fmt.Sprintf("%v/%v", b.Class, b.Data), func(t *testing.T) {
			f, err := elf.Parse(b.Bytes())
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if f.Header.Type != elf.ET_DYN {
				t.Errorf("Type = %v, want %v", f.Header.Type, elf.ET_DYN)
			}
			if f.Header.Machine != elf.EM_X86_64 {
				t.Errorf("Machine = %v, want %v", f.Header.Machine, elf.EM_X86_64)
			}
			if diff := cmp.Diff(b.Progs, f.Progs); diff != "" {
				t.Errorf("program headers mismatch (-want +got):\n%s", diff)
			}

			var types []elf.SectionType
			var names []string
			for i, s := range f.Sections {
				types = append(types, s.Type)
				name, err := f.SectionName(i)
				if err != nil {
					t.Fatalf("SectionName(%d) failed: %v", i, err)
				}
				names = append(names, name)
			}
			wantTypes := []elf.SectionType{elf.SHT_NULL, elf.SHT_SYMTAB, elf.SHT_STRTAB, elf.SHT_STRTAB}
			if diff := cmp.Diff(wantTypes, types); diff != "" {
				t.Errorf("section types mismatch (-want +got):\n%s", diff)
			}
			wantNames := []string{"", ".symtab", ".strtab", ".shstrtab"}
			if diff := cmp.Diff(wantNames, names); diff != "" {
				t.Errorf("section names mismatch (-want +got):\n%s", diff)
			}

			symtab := f.Sections[1]
			if got := elf.NumSymbols(f.Ident, symtab); got != 2 {
				t.Fatalf("NumSymbols = %d, want 2", got)
			}
			sym, err := f.Symbol(symtab, 1)
			if err != nil {
				t.Fatalf("Symbol(1) failed: %v", err)
			}
			if sym.Value != 0x1000 || sym.Type() != elf.STT_FUNC || sym.Bind() != elf.STB_GLOBAL {
				t.Errorf("Symbol(1) = %+v, want global func at 0x1000", sym)
			}
		})
	}
}

func TestHeaderIndexBoundary(t *testing.T) {
	b := variants()[3]
	data := b.Bytes()
	f, err := elf.Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	h := f.Header

	last := int(h.Shnum) - 1
	if _, err := elf.ParseSectionHeader(data, f.Ident, h, last); err != nil {
		t.Errorf("section header %d (last) failed: %v", last, err)
	}
	// The section table is the last thing in the image.
	if _, err := elf.ParseSectionHeader(data, f.Ident, h, int(h.Shnum)); !errors.Is(err, elf.ErrOutOfRange) {
		t.Errorf("section header %d: got err %v, want %v", h.Shnum, err, elf.ErrOutOfRange)
	}
	if _, err := elf.ParseSectionHeader(data, f.Ident, h, -1); !errors.Is(err, elf.ErrOutOfRange) {
		t.Errorf("section header -1: got err %v, want %v", err, elf.ErrOutOfRange)
	}

	lastProg := int(h.Phnum) - 1
	if _, err := elf.ParseProgramHeader(data, f.Ident, h, lastProg); err != nil {
		t.Errorf("program header %d (last) failed: %v", lastProg, err)
	}

	if _, err := f.Symbol(f.Sections[1], 2); !errors.Is(err, elf.ErrOutOfRange) {
		t.Errorf("symbol past the table: got err %v, want %v", err, elf.ErrOutOfRange)
	}
}

func TestBadTableOffsets(t *testing.T) {
	f, err := elf.Parse(elftest.New64().Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	data := f.Data

	for _, tc := range []struct {
		name string
		mod  func(h *elf.Header)
	}{
		{"shoff past end", func(h *elf.Header) { h.Shoff = uint64(len(data)) }},
		{"shoff overflow", func(h *elf.Header) { h.Shoff = ^uint64(0) - 8 }},
		{"small shentsize", func(h *elf.Header) { h.Shentsize = 8 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := f.Header
			tc.mod(&h)
			_, err := elf.ParseSectionHeader(data, f.Ident, h, 1)
			var re *elf.RangeError
			if !errors.As(err, &re) {
				t.Fatalf("got err %v, want *RangeError", err)
			}
			if !errors.Is(err, elf.ErrOutOfRange) {
				t.Errorf("got err %v, want %v", err, elf.ErrOutOfRange)
			}
		})
	}
}

// The section table ends the image, so every strict prefix must fail cleanly.
func TestTruncatedImages(t *testing.T) {
	for _, b := range variants() {
		data := b.Bytes()
		for n := 0; n < len(data); n++ {
			f, err := elf.Parse(data[:n])
			if err == nil {
				t.Errorf("%v/%v: Parse of %d/%d bytes succeeded: %+v", b.Class, b.Data, n, len(data), f.Header)
			}
		}
	}
}

func TestCString(t *testing.T) {
	table := []byte("\x00foo\x00bar")
	for _, tc := range []struct {
		off     uint64
		want    string
		wantErr error
	}{
		{off: 0, want: ""},
		{off: 1, want: "foo"},
		{off: 2, want: "oo"},
		{off: 5, wantErr: elf.ErrUnterminatedString},
		{off: 100, wantErr: elf.ErrOutOfRange},
	} {
		got, err := elf.CString(table, tc.off)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("CString(%d): got err %v, want %v", tc.off, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("CString(%d) failed: %v", tc.off, err)
		} else if got != tc.want {
			t.Errorf("CString(%d) = %q, want %q", tc.off, got, tc.want)
		}
	}
}

func TestTypeStrings(t *testing.T) {
	for _, tc := range []struct {
		v         interface {
			fmt.Stringer
			Known() bool
		}
		want      string
		wantKnown bool
	}{
		{elf.SHT_SYMTAB, "SHT_SYMTAB", true},
		{elf.SectionType(0x1234), "SHT_UNKNOWN(0x1234)", false},
		{elf.SectionType(0x70000001), "SHT_LOPROC+0x1", false},
		{elf.PT_LOAD, "PT_LOAD", true},
		{elf.ProgType(0x99), "PT_UNKNOWN(0x99)", false},
	} {
		if got := tc.v.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
		if got := tc.v.Known(); got != tc.wantKnown {
			t.Errorf("%s: Known() = %v, want %v", tc.want, got, tc.wantKnown)
		}
	}
}
