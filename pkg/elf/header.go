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

// File header sizes, including the identification block.
const (
	Header32Size = 52
	Header64Size = 64
)

// FileType is the object file type.
type FileType uint16

// Object file types.
const (
	ET_NONE FileType = 0
	ET_REL  FileType = 1
	ET_EXEC FileType = 2
	ET_DYN  FileType = 3
	ET_CORE FileType = 4
)

var fileTypeNames = map[FileType]string{
	ET_NONE: "ET_NONE",
	ET_REL:  "ET_REL",
	ET_EXEC: "ET_EXEC",
	ET_DYN:  "ET_DYN",
	ET_CORE: "ET_CORE",
}

// String implements fmt.Stringer.
func (t FileType) String() string {
	if s, ok := fileTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ET_UNKNOWN(%#x)", uint16(t))
}

// Machine is the target architecture.
type Machine uint16

// Target architectures that are commonly seen. Others decode fine and print
// numerically.
const (
	EM_NONE    Machine = 0
	EM_386     Machine = 3
	EM_ARM     Machine = 40
	EM_X86_64  Machine = 62
	EM_AARCH64 Machine = 183
	EM_RISCV   Machine = 243
)

var machineNames = map[Machine]string{
	EM_NONE:    "EM_NONE",
	EM_386:     "EM_386",
	EM_ARM:     "EM_ARM",
	EM_X86_64:  "EM_X86_64",
	EM_AARCH64: "EM_AARCH64",
	EM_RISCV:   "EM_RISCV",
}

// String implements fmt.Stringer.
func (m Machine) String() string {
	if s, ok := machineNames[m]; ok {
		return s
	}
	return fmt.Sprintf("EM(%d)", uint16(m))
}

// Header is the file header that follows the identification block. Address
// and offset fields are widened to 64 bits for ELFCLASS32 files.
type Header struct {
	Type      FileType
	Machine   Machine
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// ParseHeader decodes the file header described by id.
func ParseHeader(data []byte, id Ident) (Header, error) {
	var h Header
	order, err := id.validate()
	if err != nil {
		return h, err
	}
	size := uint64(Header32Size)
	if id.Is64() {
		size = Header64Size
	}
	if uint64(len(data)) < size {
		return h, fmt.Errorf("%w: %d bytes, file header needs %d", ErrTruncated, len(data), size)
	}

	h.Type = FileType(order.Uint16(data[16:]))
	h.Machine = Machine(order.Uint16(data[18:]))
	h.Version = order.Uint32(data[20:])
	if id.Is64() {
		h.Entry = order.Uint64(data[24:])
		h.Phoff = order.Uint64(data[32:])
		h.Shoff = order.Uint64(data[40:])
		h.Flags = order.Uint32(data[48:])
		h.Ehsize = order.Uint16(data[52:])
		h.Phentsize = order.Uint16(data[54:])
		h.Phnum = order.Uint16(data[56:])
		h.Shentsize = order.Uint16(data[58:])
		h.Shnum = order.Uint16(data[60:])
		h.Shstrndx = order.Uint16(data[62:])
		return h, nil
	}
	h.Entry = uint64(order.Uint32(data[24:]))
	h.Phoff = uint64(order.Uint32(data[28:]))
	h.Shoff = uint64(order.Uint32(data[32:]))
	h.Flags = order.Uint32(data[36:])
	h.Ehsize = order.Uint16(data[40:])
	h.Phentsize = order.Uint16(data[42:])
	h.Phnum = order.Uint16(data[44:])
	h.Shentsize = order.Uint16(data[46:])
	h.Shnum = order.Uint16(data[48:])
	h.Shstrndx = order.Uint16(data[50:])
	return h, nil
}
