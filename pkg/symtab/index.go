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

package symtab

import (
	"github.com/google/btree"
	"github.com/trapdbg/trapdbg/pkg/elf"
)

// Index maps addresses back to the function or object symbol covering them.
type Index struct {
	tree *btree.BTreeG[Symbol]
}

func byValue(a, b Symbol) bool {
	return a.Value < b.Value
}

// NewIndex indexes the function and object symbols of syms that have a
// non-zero value. When several symbols share an address, the first sized one
// in scan order wins.
func NewIndex(syms []Symbol) *Index {
	x := &Index{tree: btree.NewG(16, byValue)}
	for _, s := range syms {
		if s.Value == 0 || (s.Type != elf.STT_FUNC && s.Type != elf.STT_OBJECT) {
			continue
		}
		if old, ok := x.tree.Get(s); ok && (old.Size != 0 || s.Size == 0) {
			continue
		}
		x.tree.ReplaceOrInsert(s)
	}
	return x
}

// Len returns the number of indexed symbols.
func (x *Index) Len() int {
	return x.tree.Len()
}

// Lookup returns the symbol containing addr and the offset of addr within
// it. A symbol with unknown (zero) size covers only its own address.
func (x *Index) Lookup(addr uint64) (Symbol, uint64, bool) {
	var (
		found Symbol
		ok    bool
	)
	x.tree.DescendLessOrEqual(Symbol{Value: addr}, func(s Symbol) bool {
		found, ok = s, true
		return false
	})
	if !ok {
		return Symbol{}, 0, false
	}
	off := addr - found.Value
	if off != 0 && off >= found.Size {
		return Symbol{}, 0, false
	}
	return found, off, true
}
