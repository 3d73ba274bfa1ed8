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
)

// Phase of the endpoint bring-up.
type Phase int32

const (
	PhaseDisconnected Phase = iota
	PhaseAssociated
	PhaseConfigured
	PhaseResolved
	PhaseRunning
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseAssociated:
		return "associated"
	case PhaseConfigured:
		return "configured"
	case PhaseResolved:
		return "resolved"
	case PhaseRunning:
		return "running"
	}
	return "failed"
}

const (
	phaseJoin = "join"
	phaseDHCP = "dhcp"
)

var errStarted = errors.New("endpoint already started")

// Endpoint is the heartbeat device: it brings up the link, waits for an
// address, resolves the peer once and then runs the heartbeat loop.
// Bring-up strictly moves forward; a lost link is not recovered.
type Endpoint struct {
	dev    Device
	cfg    Config
	log    Logger
	sleep  Sleeper
	status *Status

	started atomic.Bool
	phase   atomic.Int32
	local   atomic.Value // netip.Addr
	peer    atomic.Value // netip.AddrPort
	hb      atomic.Pointer[Heartbeat]

	configured chan struct{} // closed once an address is assigned
}

// NewEndpoint for a device and a validated configuration.
func NewEndpoint(dev Device, cfg Config, log Logger) *Endpoint {
	if log == nil {
		log = NopLogger{}
	}
	return &Endpoint{
		dev:    dev,
		cfg:    cfg,
		log:    log,
		sleep:  sleep,
		status: NewStatus(dev.Radio()),

		configured: make(chan struct{}),
	}
}

// Configured is closed when address configuration completed.
func (ep *Endpoint) Configured() <-chan struct{} {
	return ep.configured
}

// Status of the endpoint.
func (ep *Endpoint) Status() *Status {
	return ep.status
}

// Phase of the bring-up.
func (ep *Endpoint) Phase() Phase {
	return Phase(ep.phase.Load())
}

// LocalAddr returns the address assigned by DHCP (if known).
func (ep *Endpoint) LocalAddr() netip.Addr {
	a, _ := ep.local.Load().(netip.Addr)
	return a
}

// Peer returns the heartbeat destination (if resolved).
func (ep *Endpoint) Peer() netip.AddrPort {
	p, _ := ep.peer.Load().(netip.AddrPort)
	return p
}

// Stats of the heartbeat loop; ok is false before the loop started.
func (ep *Endpoint) Stats() (s StatsSnapshot, ok bool) {
	if hb := ep.hb.Load(); hb != nil {
		return hb.stats.Snapshot(), true
	}
	return
}

func (ep *Endpoint) setPhase(p Phase) {
	ep.phase.Store(int32(p))
	ep.log.Debug("phase changed", String("phase", p.String()))
}

// Run the endpoint. It only returns on a fatal error, on cancellation
// or when a bounded heartbeat finished.
func (ep *Endpoint) Run(ctx context.Context) error {
	if !ep.started.CompareAndSwap(false, true) {
		return errStarted
	}
	ep.status.Set(StatOK, 0)
	stack := ep.dev.Stack()

	// packet processing runs for the lifetime of the endpoint
	go stack.Process(ctx)

	lc := NewLinkController(ep.dev.Link(), ep.log, ep.sleep)
	cred := Credentials{SSID: ep.cfg.SSID, Passphrase: ep.cfg.Passphrase}
	if _, err := lc.Associate(ctx, cred, ep.cfg.Retry()); err != nil {
		return ep.fail(ctx, phaseJoin, err)
	}
	ep.setPhase(PhaseAssociated)

	addr, err := WaitForAddress(ctx, stack, ep.cfg.Poll(), ep.log, ep.sleep)
	if err != nil {
		return ep.fail(ctx, phaseDHCP, err)
	}
	ep.local.Store(addr)
	ep.setPhase(PhaseConfigured)
	close(ep.configured)

	peer, err := Resolve(ctx, stack, ep.cfg.PeerHost, ep.log)
	if err != nil {
		return ep.fail(ctx, phaseResolve, err)
	}
	dst := netip.AddrPortFrom(peer, ep.cfg.PeerPort)
	ep.peer.Store(dst)
	ep.setPhase(PhaseResolved)

	ch, err := stack.Bind(ep.cfg.LocalPort)
	if err != nil {
		ep.log.Error("can't bind heartbeat channel", Int("port", int(ep.cfg.LocalPort)), Err(err))
		return ep.fail(ctx, phaseBind, err)
	}

	hb := NewHeartbeat(ch, dst, []byte(ep.cfg.Payload), ep.cfg.Hold, ep.dev.Local(), ep.dev.Radio(), ep.log)
	hb.sleep = ep.sleep
	hb.status = ep.status
	hb.periods = ep.cfg.Periods
	ep.hb.Store(hb)
	ep.setPhase(PhaseRunning)
	return hb.Run(ctx)
}

// fail records a bring-up failure. Cancellation is passed through.
func (ep *Endpoint) fail(ctx context.Context, phase string, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return err
	}
	if !IsFatal(err) {
		err = fatal(phase, err)
	}
	ep.phase.Store(int32(PhaseFailed))
	ep.status.Set(StatCode(err), 0)
	ep.log.Error("endpoint failed", String("phase", phase), Err(err))
	return err
}
