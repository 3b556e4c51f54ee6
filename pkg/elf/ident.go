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

import (
	"encoding/binary"
	"fmt"
)

// Identification block layout.
const (
	// IdentSize is the length of the identification block.
	IdentSize = 16

	EI_CLASS      = 4
	EI_DATA       = 5
	EI_VERSION    = 6
	EI_OSABI      = 7
	EI_ABIVERSION = 8
	EI_PAD        = 9
)

// Magic is the required prefix of every ELF file.
var Magic = [4]byte{0x7f, 'E', 'L', 'F'}

// Class is the word-size class of the file.
type Class uint8

// Word-size classes.
const (
	ELFCLASSNONE Class = 0
	ELFCLASS32   Class = 1
	ELFCLASS64   Class = 2
)

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case ELFCLASSNONE:
		return "ELFCLASSNONE"
	case ELFCLASS32:
		return "ELFCLASS32"
	case ELFCLASS64:
		return "ELFCLASS64"
	default:
		return fmt.Sprintf("ELFCLASS(%d)", uint8(c))
	}
}

// Data is the byte-order class of the file.
type Data uint8

// Byte-order classes.
const (
	ELFDATANONE Data = 0
	ELFDATA2LSB Data = 1
	ELFDATA2MSB Data = 2
)

// String implements fmt.Stringer.
func (d Data) String() string {
	switch d {
	case ELFDATANONE:
		return "ELFDATANONE"
	case ELFDATA2LSB:
		return "ELFDATA2LSB"
	case ELFDATA2MSB:
		return "ELFDATA2MSB"
	default:
		return fmt.Sprintf("ELFDATA(%d)", uint8(d))
	}
}

// Ident is the decoded identification block.
type Ident struct {
	Magic      [4]byte
	Class      Class
	Data       Data
	Version    uint8
	OSABI      uint8
	ABIVersion uint8
	Pad        [7]byte
}

// ParseIdent decodes the identification block at the start of data.
func ParseIdent(data []byte) (Ident, error) {
	var id Ident
	if len(data) < IdentSize {
		return id, fmt.Errorf("%w: %d bytes is shorter than the identification block", ErrNotELF, len(data))
	}
	copy(id.Magic[:], data[:4])
	if id.Magic != Magic {
		return id, fmt.Errorf("%w: bad magic % x", ErrNotELF, id.Magic[:])
	}
	id.Class = Class(data[EI_CLASS])
	id.Data = Data(data[EI_DATA])
	id.Version = data[EI_VERSION]
	id.OSABI = data[EI_OSABI]
	id.ABIVersion = data[EI_ABIVERSION]
	copy(id.Pad[:], data[EI_PAD:IdentSize])
	return id, nil
}

// ByteOrder returns the byte order for multi-byte fields.
func (id Ident) ByteOrder() (binary.ByteOrder, error) {
	switch id.Data {
	case ELFDATA2LSB:
		return binary.LittleEndian, nil
	case ELFDATA2MSB:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%w: byte order %v", ErrUnsupportedClass, id.Data)
	}
}

// Is64 reports whether the file uses 64-bit records.
func (id Ident) Is64() bool {
	return id.Class == ELFCLASS64
}

// validate checks that both class fields are ones this package decodes.
func (id Ident) validate() (binary.ByteOrder, error) {
	if id.Class != ELFCLASS32 && id.Class != ELFCLASS64 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedClass, id.Class)
	}
	return id.ByteOrder()
}
