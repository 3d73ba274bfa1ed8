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
	"sync/atomic"
	"time"
)

// Status codes (number of blinks on a fatal condition)
const (
	StatUNK  = iota // unknown status (init)
	StatOK          // processing active
	StatDEV         // device failure
	StatCONF        // invalid build configuration
	StatWIFI        // can't initialize radio
	StatJOIN        // join attempts exhausted
	StatDHCP        // no DHCP reply
	StatDNS         // peer name resolution failed
	StatPEER        // no usable peer address
	StatBIND        // can't bind heartbeat channel
	StatSEND        // heartbeat channel not bound
	StatSRV         // can't serve diagnostics
	StatEXCP        // exception (panic) occured
)

var statNames = []string{
	"UNK", "OK", "DEV", "CONF", "WIFI", "JOIN", "DHCP", "DNS", "PEER", "BIND", "SEND", "SRV", "EXCP",
}

// StatName returns the short name of a status code.
func StatName(code int) string {
	if code < 0 || code >= len(statNames) {
		return fmt.Sprintf("STAT%d", code)
	}
	return statNames[code]
}

// StatCode maps an error from the endpoint to a status code.
func StatCode(err error) int {
	var fe *FatalError
	switch {
	case err == nil:
		return StatOK
	case errors.Is(err, ErrNoAddress):
		return StatPEER
	case errors.As(err, &fe) && fe.Phase == phaseResolve:
		return StatDNS
	case errors.As(err, &fe) && fe.Phase == phaseBind:
		return StatBIND
	case errors.Is(err, ErrJoinExhausted):
		return StatJOIN
	case errors.Is(err, ErrNotConfigured):
		return StatDHCP
	}
	return StatUNK
}

// Status of the endpoint. It is shown on an indicator as a blink code
// when the heartbeat loop is not running.
type Status struct {
	ind    Indicator    // indicator used for blink codes
	curr   atomic.Int32 // current state
	repeat atomic.Int32 // current repeat counter
}

// NewStatus with blink output on ind.
func NewStatus(ind Indicator) (state *Status) {
	if ind == nil {
		ind = nopIndicator{}
	}
	state = new(Status)
	state.ind = ind
	state.curr.Store(StatUNK)
	return
}

// Set status code; a non-zero num resets to StatOK after num blink cycles.
func (state *Status) Set(flag, num int) {
	if state != nil {
		state.curr.Store(int32(flag))
		state.repeat.Store(int32(num))
	}
}

// Get status code and remaining repeats.
func (state *Status) Get() (int, int) {
	if state == nil {
		return StatUNK, 0
	}
	return int(state.curr.Load()), int(state.repeat.Load())
}

// Blink the current status code until ctx is done: one long blink per
// five, one short blink per remaining unit, then a pause.
func (state *Status) Blink(ctx context.Context) {
	on := func(d time.Duration) bool {
		state.ind.Set(true)
		if sleep(ctx, d) != nil {
			return false
		}
		state.ind.Set(false)
		return true
	}
	for {
		if sleep(ctx, 5*time.Second) != nil {
			return
		}
		num := state.curr.Load()
		for num > 5 {
			if !on(1000*time.Millisecond) || sleep(ctx, 300*time.Millisecond) != nil {
				return
			}
			num -= 5
		}
		for range num {
			if !on(150*time.Millisecond) || sleep(ctx, 150*time.Millisecond) != nil {
				return
			}
		}
		if state.repeat.Add(-1) == 0 {
			state.curr.Store(StatOK)
		}
	}
}

// Trap a panic (deferred in main) and keep the code visible for t.
func (state *Status) Trap(t time.Duration) {
	s, _ := state.Get()
	if r := recover(); r != nil {
		fmt.Printf("EXCP: %v\n", r)
		if s == StatOK {
			state.Set(StatEXCP, 0)
		}
	} else if s == StatOK {
		state.Set(StatUNK, 0)
	}
	time.Sleep(t)
}
