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
	"net/netip"
	"time"
)

// Logger for diagnostic output. The firmware logs through slog on the
// serial console, the host build through zerolog.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is a key/value pair attached to a log message.
type Field struct {
	Key   string
	Value any
}

// String field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Uint64 field
func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

// Duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Addr field
func Addr(key string, value netip.Addr) Field {
	return Field{Key: key, Value: value.String()}
}

// Err creates an error field with key "err".
func Err(err error) Field {
	return Field{Key: "err", Value: err}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
