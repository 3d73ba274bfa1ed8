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
	"net/netip"
)

// Device is a hardware abstraction
type Device interface {
	// Link to the wireless access point
	Link() Link
	// Stack is the network stack running on top of the link
	Stack() Stack
	// Local indicator (external LED)
	Local() Indicator
	// Radio indicator (LED wired to the radio chip)
	Radio() Indicator
}

// Indicator is a single on/off output.
type Indicator interface {
	Set(on bool)
}

// Link associates the device with a wireless network.
type Link interface {
	// Join blocks until the join attempt completed. An empty passphrase
	// joins an open network.
	Join(ctx context.Context, ssid, passphrase string) error
}

// Stack is the network stack driving address configuration, name
// resolution and datagram transport. Implementations synchronize
// internally; Process runs concurrently with all other methods.
type Stack interface {
	// Process handles packets until ctx is done.
	Process(ctx context.Context)
	// IsConfigured reports if address configuration (DHCP) completed.
	IsConfigured() bool
	// Addr returns the configured local address (if any).
	Addr() netip.Addr
	// Query resolves A records for host in the order received.
	Query(ctx context.Context, host string) ([]netip.Addr, error)
	// Bind a datagram channel to a local port.
	Bind(port uint16) (Channel, error)
}

// Channel is a connectionless endpoint bound to a local port.
type Channel interface {
	// SendTo transmits payload to dst. Failures are reported as
	// ErrNoRoute or ErrNotBound.
	SendTo(ctx context.Context, payload []byte, dst netip.AddrPort) error
}

// nopIndicator is used where no output is wired.
type nopIndicator struct{}

// Set does nothing.
func (nopIndicator) Set(bool) {}
