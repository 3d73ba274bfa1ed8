//----------------------------------------------------------------------
// This file is part of picobeat.
// Copyright (C) 2024-present Bernd Fix   >Y<
//
// picobeat is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// picobeat is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

package picobeat

import (
	"errors"
	"strconv"
)

var errReadOnly = errors.New("write prohibited")

// File in the diagnostics namespace
type File interface {
	Read() ([]byte, error)
	Write([]byte) error
}

//----------------------------------------------------------------------

// ROFile is a read-only file base.
type ROFile struct{}

// Read returns no content.
func (f *ROFile) Read() (data []byte, err error) {
	return
}

// Write is rejected.
func (f *ROFile) Write([]byte) error {
	return errReadOnly
}

//----------------------------------------------------------------------

// TextFile with static content
type TextFile struct {
	ROFile
	body string
}

// NewTextFile with given content.
func NewTextFile(content string) *TextFile {
	return &TextFile{
		body: content,
	}
}

// Read the content.
func (f *TextFile) Read() ([]byte, error) {
	return []byte(f.body), nil
}

//----------------------------------------------------------------------

// FuncFile computes its content on every read.
type FuncFile struct {
	ROFile
	fcn func() ([]byte, error)
}

// NewFuncFile with content function.
func NewFuncFile(fcn func() ([]byte, error)) *FuncFile {
	return &FuncFile{
		fcn: fcn,
	}
}

// NewLineFile returns a single line of text computed on read.
func NewLineFile(fcn func() string) *FuncFile {
	return NewFuncFile(func() ([]byte, error) {
		return []byte(fcn() + "\n"), nil
	})
}

// NewCounterFile shows a counter value.
func NewCounterFile(fcn func() uint64) *FuncFile {
	return NewLineFile(func() string {
		return strconv.FormatUint(fcn(), 10)
	})
}

// Read implementation: return the computed content.
func (f *FuncFile) Read() ([]byte, error) {
	return f.fcn()
}
