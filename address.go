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
	"net/netip"
	"time"
)

// PollPolicy for address configuration. MaxPolls 0 waits forever.
type PollPolicy struct {
	Interval time.Duration
	MaxPolls int
}

// WaitForAddress polls the stack until address configuration is
// complete and returns the local address. The address is reported for
// diagnostics only and may be invalid.
func WaitForAddress(ctx context.Context, stack Stack, policy PollPolicy, log Logger, sleep Sleeper) (netip.Addr, error) {
	log.Info("waiting for DHCP...")
	polls := 0
	for !stack.IsConfigured() {
		polls++
		if policy.MaxPolls > 0 && polls > policy.MaxPolls {
			return netip.Addr{}, fmt.Errorf("%w after %d polls", ErrNotConfigured, policy.MaxPolls)
		}
		if err := sleep(ctx, policy.Interval); err != nil {
			return netip.Addr{}, err
		}
	}
	addr := stack.Addr()
	if addr.IsValid() {
		log.Info("IP address assigned", Addr("addr", addr))
	} else {
		log.Warn("no IP address assigned")
	}
	log.Info("DHCP is up", Int("polls", polls))
	return addr, nil
}
