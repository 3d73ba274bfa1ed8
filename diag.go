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
	"fmt"
	"net"
)

// NewDiagnostics builds the status namespace of an endpoint:
//
//	/status/phase  /status/code
//	/net/hostname  /net/addr  /net/peer
//	/heartbeat/{periods,sent,noroute,notbound,failed,last}
//
// Send outcomes are only visible here and in the log; the indicators
// keep blinking regardless.
func NewDiagnostics(ep *Endpoint) (ns *Namespace, err error) {
	ns = NewNamespace("sys", "sys")
	for _, dir := range []string{"/status", "/net", "/heartbeat"} {
		if err = ns.NewDir(dir, 0555); err != nil {
			return
		}
	}
	stats := func() StatsSnapshot {
		s, _ := ep.Stats()
		return s
	}
	files := []struct {
		path string
		impl File
	}{
		{"/status/phase", NewLineFile(func() string { return ep.Phase().String() })},
		{"/status/code", NewLineFile(func() string {
			code, _ := ep.Status().Get()
			return fmt.Sprintf("%d %s", code, StatName(code))
		})},
		{"/net/hostname", NewTextFile(ep.cfg.Hostname + "\n")},
		{"/net/addr", NewLineFile(func() string {
			a := ep.LocalAddr()
			if !a.IsValid() {
				return "-"
			}
			return a.String()
		})},
		{"/net/peer", NewLineFile(func() string {
			p := ep.Peer()
			if !p.IsValid() {
				return "-"
			}
			return ep.cfg.PeerHost + " " + p.String()
		})},
		{"/heartbeat/periods", NewCounterFile(func() uint64 { return stats().Periods })},
		{"/heartbeat/sent", NewCounterFile(func() uint64 { return stats().Sent })},
		{"/heartbeat/noroute", NewCounterFile(func() uint64 { return stats().NoRoute })},
		{"/heartbeat/notbound", NewCounterFile(func() uint64 { return stats().NotBound })},
		{"/heartbeat/failed", NewCounterFile(func() uint64 { return stats().Failed })},
		{"/heartbeat/last", NewLineFile(func() string {
			s, ok := ep.Stats()
			if !ok || s.Periods == 0 {
				return "-"
			}
			return s.Last.String()
		})},
	}
	for _, f := range files {
		if err = ns.NewFile(f.path, 0444, f.impl); err != nil {
			return
		}
	}
	return
}

// ServeDiagnostics serves the status namespace of ep on port once the
// endpoint has an address. Returns when ctx is done or listening fails.
func ServeDiagnostics(ctx context.Context, ep *Endpoint, listen func(port uint16) (net.Listener, error), port uint16, log Logger) error {
	ns, err := NewDiagnostics(ep)
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ep.Configured():
	}
	lst, err := listen(port)
	if err != nil {
		log.Error("can't listen for diagnostics", Int("port", int(port)), Err(err))
		ep.Status().Set(StatSRV, 3)
		return err
	}
	log.Info("serving diagnostics (9P)", Int("port", int(port)))
	return ns.ServeListener(ctx, lst, log)
}
