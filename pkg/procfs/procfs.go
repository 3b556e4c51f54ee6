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

// Package procfs reads the few /proc files the debugger needs.
package procfs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultRoot is where procfs is normally mounted.
const DefaultRoot = "/proc"

// ErrNoMappings is returned when a maps file has no mapping lines.
var ErrNoMappings = errors.New("no memory mappings")

// FS is a procfs mount.
type FS struct {
	// Root is the mount point. Empty means DefaultRoot.
	Root string
}

func (fs FS) path(pid int, name string) string {
	root := fs.Root
	if root == "" {
		root = DefaultRoot
	}
	return filepath.Join(root, strconv.Itoa(pid), name)
}

// ExePath returns the path of pid's executable link. The link target must
// be a regular file.
func (fs FS) ExePath(pid int) (string, error) {
	p := fs.path(pid, "exe")
	fi, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("executable of pid %d: %w", pid, err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("executable of pid %d: %s is not a regular file", pid, p)
	}
	return p, nil
}

// LoadBase returns the start address of pid's first memory mapping, which
// is where the executable is loaded.
func (fs FS) LoadBase(pid int) (uint64, error) {
	p := fs.path(pid, "maps")
	f, err := os.Open(p)
	if err != nil {
		return 0, fmt.Errorf("load base of pid %d: %w", pid, err)
	}
	defer f.Close()
	base, err := ParseLoadBase(f)
	if err != nil {
		return 0, fmt.Errorf("load base of pid %d: %s: %w", pid, p, err)
	}
	return base, nil
}

// ParseLoadBase returns the start address on the first line of a maps file.
// Lines look like "55d0c8a00000-55d0c8a02000 r--p 00000000 08:01 1234 /bin/x".
func ParseLoadBase(r io.Reader) (uint64, error) {
	s := bufio.NewScanner(r)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return 0, err
		}
		return 0, ErrNoMappings
	}
	line := s.Text()
	start, _, ok := strings.Cut(line, "-")
	if !ok || start == "" {
		return 0, fmt.Errorf("malformed mapping %q", line)
	}
	base, err := strconv.ParseUint(start, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed mapping %q: %w", line, err)
	}
	return base, nil
}

var defaultFS FS

// ExePath is FS.ExePath on DefaultRoot.
func ExePath(pid int) (string, error) {
	return defaultFS.ExePath(pid)
}

// LoadBase is FS.LoadBase on DefaultRoot.
func LoadBase(pid int) (uint64, error) {
	return defaultFS.LoadBase(pid)
}
