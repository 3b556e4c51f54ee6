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
	"errors"
	"fmt"
)

// Decoding errors. Every failure returned by this package matches exactly one
// of these with errors.Is.
var (
	// ErrNotELF is returned when the identification block is missing or
	// carries the wrong magic.
	ErrNotELF = errors.New("not an ELF file")

	// ErrTruncated is returned when the file ends before the file header.
	ErrTruncated = errors.New("truncated ELF file")

	// ErrOutOfRange is returned when a record or reference points outside
	// of the file or its table.
	ErrOutOfRange = errors.New("ELF record out of range")

	// ErrUnsupportedClass is returned for word-size or byte-order classes
	// other than 32/64-bit little/big endian.
	ErrUnsupportedClass = errors.New("unsupported ELF class")

	// ErrUnterminatedString is returned when a string table entry has no
	// terminating nul.
	ErrUnterminatedString = errors.New("unterminated string")
)

// RangeError describes a record that does not fit where it was expected.
type RangeError struct {
	// What names the record, e.g. "section header 3".
	What string

	// Off and Size are the requested byte range.
	Off  uint64
	Size uint64

	// Limit is the length of the enclosing region, usually the file.
	Limit uint64
}

// Error implements error.Error.
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: range [%#x, %#x+%#x) exceeds limit %#x", e.What, e.Off, e.Off, e.Size, e.Limit)
}

// Unwrap returns ErrOutOfRange.
func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// record returns data[off:off+size], or a *RangeError if any part of the
// range falls outside of data. Overflowing arithmetic is treated as out of
// range.
func record(data []byte, off, size uint64, what string) ([]byte, error) {
	limit := uint64(len(data))
	if off > limit || size > limit-off {
		return nil, &RangeError{What: what, Off: off, Size: size, Limit: limit}
	}
	return data[off : off+size], nil
}

// tableOffset computes base + index*entsize, failing on overflow.
func tableOffset(base, index, entsize uint64, what string, limit uint64) (uint64, error) {
	if entsize != 0 && index > (^uint64(0)-base)/entsize {
		return 0, &RangeError{What: what, Off: base, Size: index * entsize, Limit: limit}
	}
	return base + index*entsize, nil
}
