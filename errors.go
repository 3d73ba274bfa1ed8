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
	"fmt"
)

// Errors
var (
	ErrNoRoute       = errors.New("no route to destination")
	ErrNotBound      = errors.New("channel not bound")
	ErrNoAddress     = errors.New("no usable peer address")
	ErrJoinExhausted = errors.New("join attempts exhausted")
	ErrNotConfigured = errors.New("address configuration incomplete")
	ErrNotAssociated = errors.New("link not associated")
)

// FatalError terminates the endpoint: there is no recovery action
// for the failed phase.
type FatalError struct {
	Phase string // phase that failed
	Err   error  // cause
}

// Error returns a human-readable message.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal (%s): %v", e.Phase, e.Err)
}

// Unwrap returns the cause.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// fatal wraps err into a FatalError for phase.
func fatal(phase string, err error) error {
	return &FatalError{Phase: phase, Err: err}
}

// IsFatal reports if err (or an error in its chain) is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
