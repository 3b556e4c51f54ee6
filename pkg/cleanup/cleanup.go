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

// Package cleanup provides utilities to clean "stuff" on defers.
//
// A typical use undoes a partially completed setup:
//
//	cu := cleanup.Make(func() { t.Detach() })
//	defer cu.Clean()
//	if err := step(); err != nil {
//		return err // detaches
//	}
//	cu.Release() // setup complete, keep the attachment
package cleanup

import "errors"

// Cleanup allows defers to be aborted when cleanup needs to happen
// conditionally. Usage:
//
//	cu := cleanup.Make(func() { f.Close() })
//	defer cu.Clean() // failure before release is called will close the file.
//	...
//	cu.Add(func() { f2.Close() })  // Adds another cleanup function
//	...
//	cu.Release() // on success, aborts closing the file.
//	return f
type Cleanup struct {
	cleaners []func() error
}

// Make creates a new Cleanup object.
func Make(f func()) Cleanup {
	c := Cleanup{}
	c.Add(f)
	return c
}

// MakeErr is Make for a function that can fail.
func MakeErr(f func() error) Cleanup {
	c := Cleanup{}
	c.AddErr(f)
	return c
}

// Add adds a new function to be called on Clean().
func (c *Cleanup) Add(f func()) {
	if f != nil {
		c.AddErr(func() error {
			f()
			return nil
		})
	}
}

// AddErr adds a function that can fail. Its error is reported by CleanErr.
func (c *Cleanup) AddErr(f func() error) {
	if f != nil {
		c.cleaners = append(c.cleaners, f)
	}
}

// Clean calls all cleanup functions in reverse order.
func (c *Cleanup) Clean() {
	c.CleanErr()
}

// CleanErr calls all cleanup functions in reverse order and returns their
// errors joined. Every function runs even if an earlier one fails.
func (c *Cleanup) CleanErr() error {
	cleaners := c.cleaners
	c.cleaners = nil
	return run(cleaners)
}

// Release releases the cleanup from its duties, i.e. cleanup functions are
// not called after this point. Returns a function that calls all registered
// functions in case the caller has use for them.
func (c *Cleanup) Release() func() {
	old := c.cleaners
	c.cleaners = nil
	return func() { run(old) }
}

func run(cleaners []func() error) error {
	var errs []error
	for i := len(cleaners) - 1; i >= 0; i-- {
		if err := cleaners[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
