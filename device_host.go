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
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"syscall"

	"golang.org/x/net/ipv4"
)

// HostDevice runs the endpoint on a regular host (for testing
// purposes). The kernel owns the link and address configuration; the
// indicators are log lines.
type HostDevice struct {
	link  *hostLink
	stack *hostStack
	local Indicator
	radio Indicator
}

// InitDevice for the host.
func InitDevice(cfg Config, log Logger) (*HostDevice, error) {
	if cfg.TOS < 0 || cfg.TOS > 255 {
		return nil, errTOS
	}
	if log == nil {
		log = NopLogger{}
	}
	return &HostDevice{
		link:  &hostLink{log: log},
		stack: &hostStack{tos: cfg.TOS, resolver: net.DefaultResolver},
		local: &logIndicator{name: "local", log: log},
		radio: &logIndicator{name: "radio", log: log},
	}, nil
}

func (dev *HostDevice) Link() Link       { return dev.link }
func (dev *HostDevice) Stack() Stack     { return dev.stack }
func (dev *HostDevice) Local() Indicator { return dev.local }
func (dev *HostDevice) Radio() Indicator { return dev.radio }

// Listen returns a TCP listener on the given port (diagnostics).
func (dev *HostDevice) Listen(port uint16) (net.Listener, error) {
	cfg := new(net.ListenConfig)
	return cfg.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
}

//----------------------------------------------------------------------

// logIndicator reports state changes on the debug log.
type logIndicator struct {
	name string
	log  Logger
}

func (ind *logIndicator) Set(on bool) {
	state := "off"
	if on {
		state = "on"
	}
	ind.log.Debug("indicator", String("name", ind.name), String("state", state))
}

//----------------------------------------------------------------------

// hostLink treats the host as associated once an interface is up.
type hostLink struct {
	log Logger
}

func (l *hostLink) Join(ctx context.Context, ssid, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := primaryAddr(); !ok {
		return ErrNotAssociated
	}
	l.log.Debug("host link is up", String("ssid", ssid))
	return nil
}

// primaryAddr returns the first IPv4 unicast address of an interface
// that is up and not a loopback.
func primaryAddr() (netip.Addr, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return netip.Addr{}, false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			pfx, err := netip.ParsePrefix(a.String())
			if err != nil {
				continue
			}
			if ip := pfx.Addr(); ip.Is4() && ip.IsGlobalUnicast() {
				return ip, true
			}
		}
	}
	return netip.Addr{}, false
}

//----------------------------------------------------------------------

type hostStack struct {
	tos      int
	resolver *net.Resolver

	mu   sync.Mutex
	addr netip.Addr
}

// Process does nothing: the kernel handles packets.
func (s *hostStack) Process(ctx context.Context) {
	<-ctx.Done()
}

func (s *hostStack) IsConfigured() bool {
	addr, ok := primaryAddr()
	if ok {
		s.mu.Lock()
		s.addr = addr
		s.mu.Unlock()
	}
	return ok
}

func (s *hostStack) Addr() netip.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *hostStack) Query(ctx context.Context, host string) ([]netip.Addr, error) {
	return s.resolver.LookupNetIP(ctx, "ip4", host)
}

func (s *hostStack) Bind(port uint16) (Channel, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	if s.tos > 0 {
		if err = pc.SetTOS(s.tos); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set tos: %w", err)
		}
	}
	return &hostChannel{conn: conn, pc: pc}, nil
}

//----------------------------------------------------------------------

type hostChannel struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
}

func (ch *hostChannel) SendTo(ctx context.Context, payload []byte, dst netip.AddrPort) error {
	if ch == nil || ch.pc == nil {
		return ErrNotBound
	}
	if dl, ok := ctx.Deadline(); ok {
		if err := ch.conn.SetWriteDeadline(dl); err != nil {
			return sendError(err)
		}
	}
	_, err := ch.pc.WriteTo(payload, nil, net.UDPAddrFromAddrPort(dst))
	return sendError(err)
}

// sendError maps socket errors to the channel error kinds.
func sendError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: %v", ErrNotBound, err)
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return fmt.Errorf("%w: %v", ErrNoRoute, err)
	}
	return err
}
