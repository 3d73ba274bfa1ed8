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
	"time"
)

// LinkState of the wireless association.
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkAssociated
)

func (s LinkState) String() string {
	if s == LinkAssociated {
		return "associated"
	}
	return "disconnected"
}

// Credentials for joining a wireless network.
type Credentials struct {
	SSID       string
	Passphrase string
}

// RetryPolicy for join attempts. The zero value retries forever
// without delay.
type RetryPolicy struct {
	MaxAttempts int           // 0: unbounded
	Delay       time.Duration // pause between attempts
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleep is the default Sleeper.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// LinkController owns the association state.
type LinkController struct {
	link  Link
	log   Logger
	sleep Sleeper
	state LinkState
}

// NewLinkController for the given radio link.
func NewLinkController(link Link, log Logger, sleep Sleeper) *LinkController {
	return &LinkController{
		link:  link,
		log:   log,
		sleep: sleep,
	}
}

// State returns the current link state.
func (lc *LinkController) State() LinkState {
	return lc.state
}

// Associate joins the network, retrying failed attempts as allowed by
// the policy. Returns the number of attempts made.
func (lc *LinkController) Associate(ctx context.Context, cred Credentials, policy RetryPolicy) (attempts int, err error) {
	if lc.state == LinkAssociated {
		return 0, nil
	}
	if len(cred.Passphrase) == 0 {
		lc.log.Info("joining open network", String("ssid", cred.SSID))
	} else {
		lc.log.Info("joining WPA2 network", String("ssid", cred.SSID), Int("passlen", len(cred.Passphrase)))
	}
	for {
		if err = ctx.Err(); err != nil {
			return
		}
		attempts++
		if err = lc.link.Join(ctx, cred.SSID, cred.Passphrase); err == nil {
			lc.state = LinkAssociated
			lc.log.Info("joined network", String("ssid", cred.SSID), Int("attempts", attempts))
			return attempts, nil
		}
		lc.log.Warn("join failed", Err(err), Int("attempt", attempts))
		if policy.MaxAttempts > 0 && attempts >= policy.MaxAttempts {
			return attempts, fmt.Errorf("%w after %d attempts: %w", ErrJoinExhausted, attempts, err)
		}
		if policy.Delay > 0 {
			if err = lc.sleep(ctx, policy.Delay); err != nil {
				return
			}
		}
	}
}
