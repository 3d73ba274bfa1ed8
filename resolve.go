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

// Phase names used in fatal errors
const (
	phaseResolve = "resolve"
	phaseBind    = "bind"
)

// Resolve the peer host once. The first usable candidate is returned;
// a failed query or an empty answer is fatal. There is no retry.
func Resolve(ctx context.Context, stack Stack, host string, log Logger) (netip.Addr, error) {
	addrs, err := stack.Query(ctx, host)
	if err != nil {
		log.Error("error resolving peer", String("host", host), Err(err))
		return netip.Addr{}, fatal(phaseResolve, err)
	}
	if len(addrs) == 0 || !addrs[0].IsValid() {
		log.Error("peer resolved to no usable address", String("host", host), Int("candidates", len(addrs)))
		return netip.Addr{}, fatal(phaseResolve, ErrNoAddress)
	}
	peer := addrs[0].Unmap()
	log.Info("peer resolved", String("host", host), Addr("addr", peer), Int("candidates", len(addrs)))
	return peer, nil
}
