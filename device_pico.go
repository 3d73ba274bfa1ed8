//go:build rp2040 || rp2350

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
	"machine"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs/eth/dhcp"
	"github.com/soypat/seqs/eth/dns"
	"github.com/soypat/seqs/stacks"
)

const mtu = cyw43439.MTU

// PicoDevice is a Raspberry Pico W / Pico 2 W with a CYW43439 radio.
// The local indicator is an external LED on GP22, the radio indicator
// the onboard LED wired to the radio chip.
type PicoDevice struct {
	ref   *cyw43439.Device // reference to device
	link  *picoLink
	stack *picoStack
	local Indicator
	radio Indicator
}

// InitDevice initializes the radio and the network stack. Packet
// processing starts with Stack().Process.
func InitDevice(cfg Config, log *SlogLogger) (*PicoDevice, error) {
	dev := new(PicoDevice)
	dev.ref = cyw43439.NewPicoWDevice()

	wificfg := cyw43439.DefaultWifiConfig()
	wificfg.Logger = log.Slog()
	log.Info("initializing pico W device...")
	devInitTime := time.Now()
	if err := dev.ref.Init(wificfg); err != nil {
		return nil, fmt.Errorf("cyw43439 init: %w", err)
	}
	log.Info("cyw43439:Init", Duration("duration", time.Since(devInitTime)))

	mac, err := dev.ref.HardwareAddr6()
	if err != nil {
		return nil, fmt.Errorf("hardware address: %w", err)
	}
	log.Info("hardware configured", String("mac", net.HardwareAddr(mac[:]).String()))

	stack := stacks.NewPortStack(stacks.PortStackConfig{
		MAC:             mac,
		MaxOpenPortsUDP: 2, // DHCP and DNS clients
		MaxOpenPortsTCP: 1, // diagnostics
		MTU:             mtu,
		Logger:          log.Slog(),
	})
	dev.ref.RecvEthHandle(stack.RecvEth)

	dev.stack = &picoStack{
		dev:      dev.ref,
		ps:       stack,
		mac:      mac,
		hostname: cfg.Hostname,
		log:      log,
		dhcp:     stacks.NewDHCPClient(stack, dhcp.DefaultClientPort),
	}
	dev.link = &picoLink{dev: dev.ref, stack: dev.stack}

	pin := machine.GP22
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	dev.local = pinIndicator(pin)
	dev.radio = &radioIndicator{dev: dev.ref, log: log}
	return dev, nil
}

func (dev *PicoDevice) Link() Link       { return dev.link }
func (dev *PicoDevice) Stack() Stack     { return dev.stack }
func (dev *PicoDevice) Local() Indicator { return dev.local }
func (dev *PicoDevice) Radio() Indicator { return dev.radio }

// Listen returns a TCP listener on the given port (diagnostics). Only
// valid after address configuration.
func (dev *PicoDevice) Listen(port uint16) (net.Listener, error) {
	listener, err := stacks.NewTCPListener(dev.stack.ps, stacks.TCPListenerConfig{
		MaxConnections: 3,
		ConnTxBufSize:  512,
		ConnRxBufSize:  512,
	})
	if err != nil {
		return nil, err
	}
	if err = listener.StartListening(port); err != nil {
		return nil, err
	}
	return listener, nil
}

//----------------------------------------------------------------------

// pinIndicator is a GPIO output of the microcontroller.
type pinIndicator machine.Pin

func (p pinIndicator) Set(on bool) {
	machine.Pin(p).Set(on)
}

// radioIndicator is the LED on GPIO 0 of the radio chip.
type radioIndicator struct {
	dev *cyw43439.Device
	log Logger
}

func (r *radioIndicator) Set(on bool) {
	if err := r.dev.GPIOSet(0, on); err != nil {
		r.log.Debug("radio indicator", Err(err))
	}
}

//----------------------------------------------------------------------

type picoLink struct {
	dev   *cyw43439.Device
	stack *picoStack
}

// Join a WPA2 (or open) network. JoinWPA2 blocks until the radio
// reports the result.
func (l *picoLink) Join(ctx context.Context, ssid, passphrase string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.dev.JoinWPA2(ssid, passphrase); err != nil {
		return err
	}
	l.stack.linkUp()
	return nil
}

//----------------------------------------------------------------------

type picoStack struct {
	dev      *cyw43439.Device
	ps       *stacks.PortStack
	mac      [6]byte
	hostname string
	log      *SlogLogger
	dhcp     *stacks.DHCPClient

	mu        sync.Mutex
	linked    bool
	requested bool
	bound     bool
	addr      netip.Addr
	prefix    netip.Prefix
	router    netip.Addr
	resolver  *Resolver
	ipID      uint16
}

func (s *picoStack) linkUp() {
	s.mu.Lock()
	s.linked = true
	s.mu.Unlock()
}

// Process runs the packet loop of the stack.
func (s *picoStack) Process(ctx context.Context) {
	nicLoop(ctx, s)
}

// IsConfigured starts the DHCP request once the link is up and
// reports when the lease is bound.
func (s *picoStack) IsConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bound {
		return true
	}
	if !s.linked {
		return false
	}
	if !s.requested {
		err := s.dhcp.BeginRequest(stacks.DHCPRequestConfig{
			Xid:      uint32(time.Now().Nanosecond()),
			Hostname: s.hostname,
		})
		if err != nil {
			s.log.Error("DHCP request failed", Err(err))
			return false
		}
		s.requested = true
	}
	if s.dhcp.State() != dhcp.StateBound {
		return false
	}
	ip := s.dhcp.Offer()
	s.ps.SetAddr(ip) // It's important to set the IP address after DHCP completes.
	s.addr = ip
	s.prefix = netip.PrefixFrom(ip, int(s.dhcp.CIDRBits())).Masked()
	s.router = s.dhcp.Router()
	if !s.router.IsValid() {
		s.router = s.dhcp.Gateway()
	}
	s.bound = true
	s.log.Info("DHCP complete",
		Uint64("cidrbits", uint64(s.dhcp.CIDRBits())),
		String("ourIP", ip.String()),
		String("router", s.router.String()),
		String("dhcp", s.dhcp.DHCPServer().String()),
		String("hostname", string(s.dhcp.Hostname())),
		Duration("lease", s.dhcp.IPLeaseTime()),
	)
	return true
}

func (s *picoStack) Addr() netip.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Query resolves A records through the DNS server announced by DHCP.
func (s *picoStack) Query(ctx context.Context, host string) ([]netip.Addr, error) {
	s.mu.Lock()
	if !s.bound {
		s.mu.Unlock()
		return nil, ErrNotConfigured
	}
	if s.resolver == nil {
		r, err := NewResolver(s.ps, s.dhcp)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.resolver = r
	}
	r := s.resolver
	s.mu.Unlock()
	return r.LookupNetIP(ctx, host)
}

// Bind a heartbeat channel to a local port.
func (s *picoStack) Bind(port uint16) (Channel, error) {
	if port == 0 || port == dhcp.DefaultClientPort || port == dns.ClientPort {
		return nil, fmt.Errorf("port %d not available", port)
	}
	return &picoChannel{stack: s, port: port}, nil
}

func (s *picoStack) nextHop(dst netip.Addr) netip.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefix.Contains(dst) || !s.router.IsValid() {
		return dst
	}
	return s.router
}

// sendEth hands a frame to the radio; the driver serializes bus access.
func (s *picoStack) sendEth(frame []byte) error {
	return s.dev.SendEth(frame)
}

//----------------------------------------------------------------------

// picoChannel writes UDP frames directly to the radio: the port stack
// only hosts its own built-in UDP clients.
type picoChannel struct {
	stack *picoStack
	port  uint16
	hop   netip.Addr
	hwDst [6]byte
	buf   [mtu]byte
}

func (ch *picoChannel) SendTo(ctx context.Context, payload []byte, dst netip.AddrPort) error {
	if ch == nil || ch.port == 0 {
		return ErrNotBound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	src := ch.stack.Addr()
	if !src.Is4() || !dst.Addr().Is4() {
		return ErrNoRoute
	}
	hop := ch.stack.nextHop(dst.Addr())
	if hop != ch.hop {
		hw, err := ResolveHardwareAddr(ch.stack.ps, hop)
		if err != nil {
			ch.hop = netip.Addr{}
			return fmt.Errorf("%w: arp %s: %v", ErrNoRoute, hop, err)
		}
		ch.hop, ch.hwDst = hop, hw
	}
	ch.stack.mu.Lock()
	ch.stack.ipID++
	id := ch.stack.ipID
	ch.stack.mu.Unlock()

	n, err := putUDPFrame(ch.buf[:], udpFrame{
		hwSrc:   ch.stack.mac,
		hwDst:   ch.hwDst,
		src:     netip.AddrPortFrom(src, ch.port),
		dst:     dst,
		id:      id,
		payload: payload,
	})
	if err != nil {
		return err
	}
	return ch.stack.sendEth(ch.buf[:n])
}

//----------------------------------------------------------------------
// adapted from https://raw.githubusercontent.com/soypat/cyw43439,
// file '/examples/common/common.go'.
//----------------------------------------------------------------------

// ResolveHardwareAddr obtains the hardware address of the given IP address.
func ResolveHardwareAddr(stack *stacks.PortStack, ip netip.Addr) ([6]byte, error) {
	if !ip.IsValid() {
		return [6]byte{}, errors.New("invalid ip")
	}
	arpc := stack.ARP()
	arpc.Abort() // Remove any previous ARP requests.
	err := arpc.BeginResolve(ip)
	if err != nil {
		return [6]byte{}, err
	}
	time.Sleep(4 * time.Millisecond)
	// ARP exchanges should be fast, don't wait too long for them.
	const timeout = time.Second
	const maxretries = 20
	retries := maxretries
	for !arpc.IsDone() && retries > 0 {
		retries--
		if retries == 0 {
			return [6]byte{}, errors.New("arp timed out")
		}
		time.Sleep(timeout / maxretries)
	}
	_, hw, err := arpc.ResultAs6()
	return hw, err
}

// Resolver queries the DNS server obtained via DHCP.
type Resolver struct {
	stack     *stacks.PortStack
	dns       *stacks.DNSClient
	dnsaddr   netip.Addr
	dnshwaddr [6]byte
}

// NewResolver for the DNS server announced by the DHCP lease.
func NewResolver(stack *stacks.PortStack, dhcp *stacks.DHCPClient) (*Resolver, error) {
	dnsaddrs := dhcp.DNSServers()
	if len(dnsaddrs) == 0 || !dnsaddrs[0].IsValid() {
		return nil, errors.New("dns addr obtained via DHCP not valid")
	}
	return &Resolver{
		stack:   stack,
		dns:     stacks.NewDNSClient(stack, dns.ClientPort),
		dnsaddr: dnsaddrs[0],
	}, nil
}

// LookupNetIP returns the IPv4 addresses of host.
func (r *Resolver) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	name, err := dns.NewName(host)
	if err != nil {
		return nil, err
	}
	if r.dnshwaddr, err = ResolveHardwareAddr(r.stack, r.dnsaddr); err != nil {
		return nil, err
	}
	err = r.dns.StartResolve(stacks.DNSResolveConfig{
		Questions: []dns.Question{
			{
				Name:  name,
				Type:  dns.TypeA,
				Class: dns.ClassINET,
			},
		},
		DNSAddr:         r.dnsaddr,
		DNSHWAddr:       r.dnshwaddr,
		EnableRecursion: true,
	})
	if err != nil {
		return nil, err
	}
	if err = sleep(ctx, 5*time.Millisecond); err != nil {
		return nil, err
	}
	retries := 100
	for retries > 0 {
		done, _ := r.dns.IsDone()
		if done {
			break
		}
		retries--
		if err = sleep(ctx, 20*time.Millisecond); err != nil {
			return nil, err
		}
	}
	done, rcode := r.dns.IsDone()
	if !done && retries == 0 {
		return nil, errors.New("dns lookup timed out")
	} else if rcode != dns.RCodeSuccess {
		return nil, errors.New("dns lookup failed: " + rcode.String())
	}
	answers := r.dns.Answers()
	var addrs []netip.Addr
	for i := range answers {
		data := answers[i].RawData()
		if len(data) == 4 {
			addrs = append(addrs, netip.AddrFrom4([4]byte(data)))
		}
	}
	return addrs, nil
}

// nicLoop moves frames between radio and stack until ctx is done.
func nicLoop(ctx context.Context, s *picoStack) {
	// Maximum number of packets to queue before sending them.
	const (
		queueSize                = 3
		maxRetriesBeforeDropping = 3
	)
	var queue [queueSize][mtu]byte
	var lenBuf [queueSize]int
	var retries [queueSize]int
	markSent := func(i int) {
		lenBuf[i] = 0
		retries[i] = 0
	}
	for ctx.Err() == nil {
		stallRx := true
		gotPacket, err := s.dev.PollOne()
		if err != nil {
			s.log.Debug("poll error", Err(err))
		}
		if gotPacket {
			stallRx = false
		}

		// Queue packets to be sent.
		for i := range queue {
			if retries[i] != 0 {
				continue // Packet currently queued for retransmission.
			}
			var err error
			buf := queue[i][:]
			lenBuf[i], err = s.ps.HandleEth(buf[:])
			if err != nil {
				s.log.Debug("stack error", Int("n", lenBuf[i]), Err(err))
				lenBuf[i] = 0
				continue
			}
			if lenBuf[i] == 0 {
				break
			}
		}
		stallTx := lenBuf == [queueSize]int{}
		if stallTx {
			if stallRx {
				// Avoid busy waiting when both Rx and Tx stall.
				time.Sleep(51 * time.Millisecond)
			}
			continue
		}

		// Send queued packets.
		for i := range queue {
			n := lenBuf[i]
			if n <= 0 {
				continue
			}
			if err := s.sendEth(queue[i][:n]); err != nil {
				// Queue packet for retransmission.
				retries[i]++
				if retries[i] > maxRetriesBeforeDropping {
					markSent(i)
					s.log.Warn("dropped outgoing packet", Err(err))
				}
			} else {
				markSent(i)
			}
		}
	}
}
