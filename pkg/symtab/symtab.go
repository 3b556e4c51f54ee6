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

// Package symtab resolves symbol names to virtual addresses from the symbol
// tables of a decoded ELF image.
package symtab

import (
	"fmt"
	"strings"

	"github.com/ianlancetaylor/demangle"
	"github.com/trapdbg/trapdbg/pkg/elf"
)

// Symbol is one resolved symbol table entry.
type Symbol struct {
	// Name is the demangled name, or Raw if demangling did not apply.
	Name string

	// Raw is the name as stored in the string table.
	Raw string

	// Demangled is true if Name was produced by the demangler.
	Demangled bool

	// Value is the symbol value; for functions, its virtual address in the
	// image.
	Value uint64

	Size uint64
	Type elf.SymType
	Bind elf.SymBind
}

// String implements fmt.Stringer.
func (s Symbol) String() string {
	return fmt.Sprintf("%s@%#x", s.Name, s.Value)
}

// Options control name resolution.
type Options struct {
	// Demangle enables the demangling pass.
	Demangle bool
}

// Resolver scans symbol tables.
type Resolver struct {
	opts Options
}

// NewResolver returns a Resolver using opts.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

var defaultResolver = NewResolver(Options{Demangle: true})

// FindSymbol returns every symbol whose resolved name contains query. The
// match is case-sensitive; an empty query matches every symbol.
func FindSymbol(f *elf.File, query string) ([]Symbol, error) {
	return defaultResolver.FindSymbol(f, query)
}

// FindAll returns every symbol of every symbol table in f.
func FindAll(f *elf.File) ([]Symbol, error) {
	return defaultResolver.FindAll(f)
}

// FindSymbol is like the package-level FindSymbol.
func (r *Resolver) FindSymbol(f *elf.File, query string) ([]Symbol, error) {
	return r.scan(f, func(s *Symbol) bool {
		return strings.Contains(s.Name, query)
	})
}

// FindAll is like the package-level FindAll.
func (r *Resolver) FindAll(f *elf.File) ([]Symbol, error) {
	return r.scan(f, nil)
}

// scan walks SHT_SYMTAB sections in section order, then entries in table
// order. Duplicate names are all returned.
func (r *Resolver) scan(f *elf.File, keep func(*Symbol) bool) ([]Symbol, error) {
	var out []Symbol
	for i, sec := range f.Sections {
		if sec.Type != elf.SHT_SYMTAB {
			continue
		}
		strsec, err := f.Section(sec.Link)
		if err != nil {
			return nil, fmt.Errorf("symbol table %d: link: %w", i, err)
		}
		strtab, err := elf.Contents(f.Data, strsec, fmt.Sprintf("string table %d", sec.Link))
		if err != nil {
			return nil, fmt.Errorf("symbol table %d: %w", i, err)
		}

		n := elf.NumSymbols(f.Ident, sec)
		for j := uint64(0); j < n; j++ {
			es, err := f.Symbol(sec, int(j))
			if err != nil {
				return nil, fmt.Errorf("symbol table %d: %w", i, err)
			}
			raw, err := elf.CString(strtab, uint64(es.Name))
			if err != nil {
				return nil, fmt.Errorf("symbol table %d: symbol %d name: %w", i, j, err)
			}
			s := Symbol{
				Name:  raw,
				Raw:   raw,
				Value: es.Value,
				Size:  es.Size,
				Type:  es.Type(),
				Bind:  es.Bind(),
			}
			if r.opts.Demangle {
				if name, err := demangle.ToString(raw); err == nil {
					s.Name = name
					s.Demangled = true
				}
			}
			if keep == nil || keep(&s) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// Exact returns the entries of syms named exactly name.
func Exact(syms []Symbol, name string) []Symbol {
	var out []Symbol
	for _, s := range syms {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// Filter returns the entries of syms whose name contains substr.
func Filter(syms []Symbol, substr string) []Symbol {
	var out []Symbol
	for _, s := range syms {
		if strings.Contains(s.Name, substr) {
			out = append(out, s)
		}
	}
	return out
}
