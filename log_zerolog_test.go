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
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestZerologLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	log.Debug("hidden")
	log.Error("heartbeat channel not bound",
		Err(errors.New("socket closed")),
		Int("port", 9400),
		Uint64("periods", 3),
		Duration("hold", 1500*time.Millisecond),
		Field{Key: "flag", Value: true},
	)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "error", rec["level"])
	require.Equal(t, "heartbeat channel not bound", rec["message"])
	require.Equal(t, "socket closed", rec["err"])
	require.Equal(t, float64(9400), rec["port"])
	require.Equal(t, float64(3), rec["periods"])
	require.Equal(t, float64(1500), rec["hold"])
	require.Equal(t, true, rec["flag"])
}

// NotBound escalates at error level while NoRoute stays a warning
func TestHeartbeatLogLevels(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewZerologLogger(zerolog.New(&buf))
	rec := new(recorder)
	ch := &fakeChannel{rec: rec, errs: []error{ErrNoRoute, ErrNotBound}}
	hb, _ := newTestHeartbeat(rec, ch, 2, log)

	for range 2 {
		hb.transmit(t.Context())
	}
	dec := json.NewDecoder(&buf)
	var levels []string
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		levels = append(levels, line["level"].(string))
	}
	require.Equal(t, []string{"warn", "error"}, levels)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	lvl, ok := ParseLevel("debug")
	require.True(t, ok)
	require.Equal(t, zerolog.DebugLevel, lvl)

	lvl, ok = ParseLevel("warn")
	require.True(t, ok)
	require.Equal(t, zerolog.WarnLevel, lvl)

	for _, s := range []string{"", "loud"} {
		lvl, ok = ParseLevel(s)
		require.False(t, ok)
		require.Equal(t, zerolog.InfoLevel, lvl)
	}
}

func TestConsoleLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, zerolog.WarnLevel)
	log.Info("hidden")
	log.Warn("no route to peer", String("peer", "pi2b"))
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "no route to peer")
	require.Contains(t, buf.String(), "pi2b")
}
