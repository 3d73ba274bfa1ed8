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
	"net/netip"

	"github.com/soypat/seqs/eth"
)

// Frame layout
const (
	udpFrameLen = eth.SizeEthernetHeader + eth.SizeIPv4Header + eth.SizeUDPHeader

	ipv4VersionIHL = 0x45 // version 4, 5 words
	ipFlagDontFrag = 0x4000
	protoUDP       = 17
	defaultTTL     = 64
)

var (
	errFrameSize = errors.New("payload exceeds frame buffer")
	errFrameAddr = errors.New("frame addresses must be IPv4")
)

// udpFrame describes an Ethernet/IPv4/UDP datagram.
type udpFrame struct {
	hwSrc, hwDst [6]byte
	src, dst     netip.AddrPort
	id           uint16
	payload      []byte
}

// putUDPFrame encodes f into buf and returns the frame length.
func putUDPFrame(buf []byte, f udpFrame) (int, error) {
	if !f.src.Addr().Is4() || !f.dst.Addr().Is4() {
		return 0, errFrameAddr
	}
	n := udpFrameLen + len(f.payload)
	if n > len(buf) || n-eth.SizeEthernetHeader > 0xffff {
		return 0, errFrameSize
	}
	ehdr := eth.EthernetHeader{
		Destination:     f.hwDst,
		Source:          f.hwSrc,
		SizeOrEtherType: uint16(eth.EtherTypeIPv4),
	}
	ihdr := eth.IPv4Header{
		VersionAndIHL: ipv4VersionIHL,
		TotalLength:   uint16(n - eth.SizeEthernetHeader),
		ID:            f.id,
		Flags:         ipFlagDontFrag,
		TTL:           defaultTTL,
		Protocol:      protoUDP,
		Source:        f.src.Addr().As4(),
		Destination:   f.dst.Addr().As4(),
	}
	ihdr.Checksum = ihdr.CalculateChecksum()
	uhdr := eth.UDPHeader{
		SourcePort:      f.src.Port(),
		DestinationPort: f.dst.Port(),
		Length:          uint16(eth.SizeUDPHeader + len(f.payload)),
	}
	// a computed zero is sent as all ones (zero means "no checksum")
	if uhdr.Checksum = uhdr.CalculateChecksumIPv4(&ihdr, f.payload); uhdr.Checksum == 0 {
		uhdr.Checksum = 0xffff
	}

	ehdr.Put(buf[:eth.SizeEthernetHeader])
	ihdr.Put(buf[eth.SizeEthernetHeader:])
	uhdr.Put(buf[eth.SizeEthernetHeader+eth.SizeIPv4Header:])
	copy(buf[udpFrameLen:n], f.payload)
	return n, nil
}
