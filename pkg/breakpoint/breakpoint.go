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

// Package breakpoint runs a single software breakpoint against a traced
// process.
//
// A Session moves through these states:
//
//	Resolving -> Attached -> Armed -> Trapped -> Disarmed -> Armed ...
//
// and ends in Detached, either on request or because the target went away.
// Any tracer failure while attaching, arming or disarming ends the session
// with an error; the caller should still call Detach.
package breakpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trapdbg/trapdbg/pkg/elf"
	"github.com/trapdbg/trapdbg/pkg/symtab"
)

// State is the position of a Session in its lifecycle.
type State int

// Session states.
const (
	Resolving State = iota
	Attached
	Armed
	Trapped
	Disarmed
	Detached
)

var stateNames = [...]string{
	Resolving: "resolving",
	Attached:  "attached",
	Armed:     "armed",
	Trapped:   "trapped",
	Disarmed:  "disarmed",
	Detached:  "detached",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// ErrAmbiguousSymbol is matched by *AmbiguousError.
	ErrAmbiguousSymbol = errors.New("symbol does not resolve to exactly one entry")

	// ErrTargetExited is returned once the target has exited or been
	// killed.
	ErrTargetExited = errors.New("target exited")

	// ErrTargetExeced is returned when the target replaced its image, taking
	// the breakpoint with it.
	ErrTargetExeced = errors.New("target executed a new image")

	// ErrBadState is returned for an operation the current state does not
	// allow.
	ErrBadState = errors.New("operation not valid in this state")
)

// maxCandidates bounds the candidates listed in an AmbiguousError message.
const maxCandidates = 10

// AmbiguousError is returned when a name is not the name of exactly one
// symbol.
type AmbiguousError struct {
	Name string

	// Exact is set if Candidates all carry Name. Otherwise they are the
	// symbols whose name contains Name.
	Exact bool

	Candidates []symtab.Symbol
}

// Error implements error.Error.
func (e *AmbiguousError) Error() string {
	var b strings.Builder
	if e.Exact {
		fmt.Fprintf(&b, "symbol %q matched %d entries", e.Name, len(e.Candidates))
	} else {
		fmt.Fprintf(&b, "symbol %q matched 0 entries, %d similar", e.Name, len(e.Candidates))
	}
	for i, s := range e.Candidates {
		if i == maxCandidates {
			fmt.Fprintf(&b, ", ...")
			break
		}
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Unwrap returns ErrAmbiguousSymbol.
func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousSymbol
}

// Resolve picks the breakpoint address for name from syms, the symbols of
// f. Exactly one entry must be named name. Otherwise an *AmbiguousError is
// returned, listing the exact matches or, if there are none, the entries
// containing name.
//
// base is where the image is loaded. It is added for position independent
// (ET_DYN) images only, since the symbol values of other images are already
// absolute.
func Resolve(f *elf.File, syms []symtab.Symbol, name string, base uint64) (uint64, symtab.Symbol, error) {
	matches := symtab.Exact(syms, name)
	switch len(matches) {
	case 1:
	case 0:
		return 0, symtab.Symbol{}, &AmbiguousError{Name: name, Candidates: symtab.Filter(syms, name)}
	default:
		return 0, symtab.Symbol{}, &AmbiguousError{Name: name, Exact: true, Candidates: matches}
	}
	s := matches[0]
	addr := s.Value
	if f.Header.Type == elf.ET_DYN {
		addr += base
	}
	return addr, s, nil
}
