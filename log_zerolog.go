//go:build !rp2040 && !rp2350

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
	"io"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger logs through zerolog (host build).
type ZerologLogger struct {
	log zerolog.Logger
}

// NewConsoleLogger writes human-readable output to w.
func NewConsoleLogger(w io.Writer, level zerolog.Level) *ZerologLogger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return NewZerologLogger(zerolog.New(out).Level(level).With().Timestamp().Logger())
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(log zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{log: log}
}

func (z *ZerologLogger) Debug(msg string, fields ...Field) { emit(z.log.Debug(), msg, fields) }
func (z *ZerologLogger) Info(msg string, fields ...Field)  { emit(z.log.Info(), msg, fields) }
func (z *ZerologLogger) Warn(msg string, fields ...Field)  { emit(z.log.Warn(), msg, fields) }
func (z *ZerologLogger) Error(msg string, fields ...Field) { emit(z.log.Error(), msg, fields) }

func emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case uint64:
			ev = ev.Uint64(f.Key, v)
		case time.Duration:
			ev = ev.Dur(f.Key, v)
		case error:
			ev = ev.AnErr(f.Key, v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}

// ParseLevel maps a level name to a zerolog level; unknown names
// fall back to info.
func ParseLevel(s string) (zerolog.Level, bool) {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}
