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
	"net/netip"
	"sync/atomic"
	"time"
)

// Outcome of a single transmit step.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeNoRoute
	OutcomeNotBound
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeNoRoute:
		return "no route"
	case OutcomeNotBound:
		return "not bound"
	}
	return "failed"
}

// Stats of the heartbeat loop; safe for concurrent readers.
type Stats struct {
	periods  atomic.Uint64
	sent     atomic.Uint64
	noRoute  atomic.Uint64
	notBound atomic.Uint64
	failed   atomic.Uint64
	last     atomic.Int32 // last Outcome
}

// StatsSnapshot is a copy of the counters at one point in time.
type StatsSnapshot struct {
	Periods  uint64
	Sent     uint64
	NoRoute  uint64
	NotBound uint64
	Failed   uint64
	Last     Outcome
}

// Snapshot of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Periods:  s.periods.Load(),
		Sent:     s.sent.Load(),
		NoRoute:  s.noRoute.Load(),
		NotBound: s.notBound.Load(),
		Failed:   s.failed.Load(),
		Last:     Outcome(s.last.Load()),
	}
}

func (s *Stats) record(o Outcome) {
	switch o {
	case OutcomeSent:
		s.sent.Add(1)
	case OutcomeNoRoute:
		s.noRoute.Add(1)
	case OutcomeNotBound:
		s.notBound.Add(1)
	default:
		s.failed.Add(1)
	}
	s.last.Store(int32(o))
}

// Heartbeat sends a fixed datagram to the peer every period and blinks
// both indicators. The blink signals a running loop, not a successful
// send: send outcomes are only logged and counted.
type Heartbeat struct {
	ch      Channel
	dst     netip.AddrPort
	payload []byte
	hold    time.Duration
	periods int // 0: run forever

	local Indicator
	radio Indicator

	log    Logger
	sleep  Sleeper
	status *Status
	stats  Stats
}

// NewHeartbeat on a bound channel. The channel is owned by the
// heartbeat from now on.
func NewHeartbeat(ch Channel, dst netip.AddrPort, payload []byte, hold time.Duration, local, radio Indicator, log Logger) *Heartbeat {
	if local == nil {
		local = nopIndicator{}
	}
	if radio == nil {
		radio = nopIndicator{}
	}
	return &Heartbeat{
		ch:      ch,
		dst:     dst,
		payload: payload,
		hold:    hold,
		local:   local,
		radio:   radio,
		log:     log,
		sleep:   sleep,
	}
}

// Stats of the loop.
func (hb *Heartbeat) Stats() *Stats {
	return &hb.stats
}

// Run the loop until ctx is done (or the configured number of periods
// elapsed). Send failures never end the loop.
func (hb *Heartbeat) Run(ctx context.Context) error {
	hb.log.Info("heartbeat started", String("peer", hb.dst.String()), Duration("hold", hb.hold))
	for n := 0; hb.periods == 0 || n < hb.periods; n++ {
		if err := hb.period(ctx); err != nil {
			return err
		}
	}
	return nil
}

// period runs one transmit step followed by one indicator step.
func (hb *Heartbeat) period(ctx context.Context) error {
	hb.transmit(ctx)
	hb.stats.periods.Add(1)

	hb.log.Debug("local indicator on, radio off")
	hb.local.Set(true)
	hb.radio.Set(false)
	if err := hb.sleep(ctx, hb.hold); err != nil {
		return err
	}
	hb.log.Debug("local indicator off, radio on")
	hb.local.Set(false)
	hb.radio.Set(true)
	return hb.sleep(ctx, hb.hold)
}

// transmit sends the payload and classifies the result.
func (hb *Heartbeat) transmit(ctx context.Context) Outcome {
	err := hb.ch.SendTo(ctx, hb.payload, hb.dst)
	var o Outcome
	switch {
	case err == nil:
		o = OutcomeSent
		hb.log.Info("heartbeat sent", String("peer", hb.dst.String()))
	case errors.Is(err, ErrNoRoute):
		o = OutcomeNoRoute
		hb.log.Warn("no route to peer", String("peer", hb.dst.String()))
	case errors.Is(err, ErrNotBound):
		o = OutcomeNotBound
		hb.log.Error("heartbeat channel not bound", Err(err))
		hb.status.Set(StatSEND, 0)
	default:
		o = OutcomeFailed
		hb.log.Error("heartbeat send failed", Err(err))
	}
	hb.stats.record(o)
	return o
}
