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

// Package cmd holds implementations of the trapdbg commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/trapdbg/trapdbg/pkg/elf"
	"github.com/trapdbg/trapdbg/pkg/log"
	"github.com/trapdbg/trapdbg/pkg/procfs"
	"github.com/trapdbg/trapdbg/pkg/symtab"
	"github.com/trapdbg/trapdbg/trapdbg/config"
)

// target is the binary a command works on: a file, or the executable of a
// running process.
type target struct {
	// path is the file to read. For a process it is the /proc exe link.
	path string

	// pid is the process, or 0 for a plain file.
	pid int
}

// String implements fmt.Stringer.
func (t target) String() string {
	if t.pid != 0 {
		return fmt.Sprintf("pid %d (%s)", t.pid, t.path)
	}
	return t.path
}

// resolveTarget interprets arg as a process ID unless isFile is set or arg
// is not a number.
func resolveTarget(conf *config.Config, arg string, isFile bool) (target, error) {
	if !isFile {
		if pid, err := strconv.Atoi(arg); err == nil {
			if pid <= 0 {
				return target{}, fmt.Errorf("invalid pid %d", pid)
			}
			fs := procfs.FS{Root: conf.ProcRoot}
			path, err := fs.ExePath(pid)
			if err != nil {
				return target{}, err
			}
			return target{path: path, pid: pid}, nil
		}
	}
	return target{path: arg}, nil
}

func newResolver(conf *config.Config) *symtab.Resolver {
	return symtab.NewResolver(symtab.Options{Demangle: conf.Demangle})
}

// load decodes the target's image and the symbols whose name contains query.
// An empty query loads every symbol.
func (t target) load(conf *config.Config, query string) (*elf.File, []symtab.Symbol, error) {
	f, err := elf.Open(t.path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %v: %w", t, err)
	}
	syms, err := newResolver(conf).FindSymbol(f, query)
	if err != nil {
		return nil, nil, fmt.Errorf("reading symbols of %v: %w", t, err)
	}
	log.Debugf("%v: %v %v, %d sections, %d symbols", t, f.Header.Type, f.Header.Machine, len(f.Sections), len(syms))
	return f, syms, nil
}

// output returns w, or stdout if w is nil.
func output(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
