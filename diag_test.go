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
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func readDiag(t *testing.T, ns *Namespace, p string) string {
	t.Helper()
	e, err := ns.Get(p)
	require.NoError(t, err)
	data, err := e.Read()
	require.NoError(t, err)
	return string(data)
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()
	rec := new(recorder)
	dev := newFakeDevice(rec)
	dev.stack.answer = []netip.Addr{netip.MustParseAddr("192.168.1.50")}
	dev.stack.ch = &fakeChannel{rec: rec, errs: []error{ErrNoRoute}}
	cfg := testConfig()
	cfg.Periods = 3
	ep, _ := newTestEndpoint(t, dev, cfg)

	ns, err := NewDiagnostics(ep)
	require.NoError(t, err)

	// before bring-up
	require.Equal(t, "disconnected\n", readDiag(t, ns, "/status/phase"))
	require.Equal(t, "0 UNK\n", readDiag(t, ns, "/status/code"))
	require.Equal(t, "picow\n", readDiag(t, ns, "/net/hostname"))
	require.Equal(t, "-\n", readDiag(t, ns, "/net/addr"))
	require.Equal(t, "-\n", readDiag(t, ns, "/net/peer"))
	require.Equal(t, "0\n", readDiag(t, ns, "/heartbeat/periods"))
	require.Equal(t, "-\n", readDiag(t, ns, "/heartbeat/last"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, ep.Run(ctx))

	require.Equal(t, "running\n", readDiag(t, ns, "/status/phase"))
	require.Equal(t, "1 OK\n", readDiag(t, ns, "/status/code"))
	require.Equal(t, "192.168.1.23\n", readDiag(t, ns, "/net/addr"))
	require.Equal(t, "pi2b 192.168.1.50:9932\n", readDiag(t, ns, "/net/peer"))
	require.Equal(t, "3\n", readDiag(t, ns, "/heartbeat/periods"))
	require.Equal(t, "2\n", readDiag(t, ns, "/heartbeat/sent"))
	require.Equal(t, "1\n", readDiag(t, ns, "/heartbeat/noroute"))
	require.Equal(t, "0\n", readDiag(t, ns, "/heartbeat/notbound"))
	require.Equal(t, "0\n", readDiag(t, ns, "/heartbeat/failed"))
	require.Equal(t, "sent\n", readDiag(t, ns, "/heartbeat/last"))
}

func TestServeDiagnosticsWaitsForAddress(t *testing.T) {
	t.Parallel()
	ep, _ := newTestEndpoint(t, newFakeDevice(new(recorder)), testConfig())
	listened := false
	listen := func(uint16) (net.Listener, error) {
		listened = true
		return nil, errors.New("unexpected")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ServeDiagnostics(ctx, ep, listen, DefaultStatusPort, NopLogger{})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, listened)
}

func TestServeDiagnosticsListenError(t *testing.T) {
	t.Parallel()
	dev := newFakeDevice(new(recorder))
	dev.stack.answer = []netip.Addr{netip.MustParseAddr("192.168.1.50")}
	cfg := testConfig()
	cfg.Periods = 1
	ep, _ := newTestEndpoint(t, dev, cfg)
	require.NoError(t, ep.Run(context.Background()))

	errListen := errors.New("no sockets left")
	log := new(logRecorder)
	err := ServeDiagnostics(context.Background(), ep, func(port uint16) (net.Listener, error) {
		require.Equal(t, uint16(DefaultStatusPort), port)
		return nil, errListen
	}, DefaultStatusPort, log)
	require.ErrorIs(t, err, errListen)
	require.True(t, log.has("error: can't listen for diagnostics"))

	code, repeat := ep.Status().Get()
	require.Equal(t, StatSRV, code)
	require.Equal(t, 3, repeat)
}
