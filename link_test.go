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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errJoin = errors.New("join failed with status=1")

func TestAssociateFirstAttempt(t *testing.T) {
	t.Parallel()
	rec := new(recorder)
	link := &fakeLink{rec: rec}
	lc := NewLinkController(link, NopLogger{}, new(sleepRecorder).sleep)
	require.Equal(t, LinkDisconnected, lc.State())

	n, err := lc.Associate(context.Background(), Credentials{SSID: "net", Passphrase: "secret12"}, RetryPolicy{})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, LinkAssociated, lc.State())
}

// join fails twice, then succeeds: three attempts and no more after.
func TestAssociateRetriesUntilSuccess(t *testing.T) {
	t.Parallel()
	rec := new(recorder)
	link := &fakeLink{rec: rec, fails: []error{errJoin, errJoin}}
	sl := new(sleepRecorder)
	lc := NewLinkController(link, NopLogger{}, sl.sleep)

	n, err := lc.Associate(context.Background(), Credentials{SSID: "net"}, RetryPolicy{})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 3, link.calls)
	require.Equal(t, LinkAssociated, lc.State())
	require.Zero(t, sl.count(), "no backoff by default")

	n, err = lc.Associate(context.Background(), Credentials{SSID: "net"}, RetryPolicy{})
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 3, link.calls)
}

func TestAssociateBounded(t *testing.T) {
	t.Parallel()
	link := &fakeLink{rec: new(recorder), fails: []error{errJoin, errJoin, errJoin, errJoin}}
	sl := new(sleepRecorder)
	lc := NewLinkController(link, NopLogger{}, sl.sleep)

	n, err := lc.Associate(context.Background(), Credentials{SSID: "net"}, RetryPolicy{MaxAttempts: 3, Delay: time.Second})
	require.ErrorIs(t, err, ErrJoinExhausted)
	require.ErrorIs(t, err, errJoin)
	require.Equal(t, 3, n)
	require.Equal(t, LinkDisconnected, lc.State())
	require.Equal(t, []time.Duration{time.Second, time.Second}, sl.waits)
}

func TestAssociateCanceled(t *testing.T) {
	t.Parallel()
	link := &fakeLink{rec: new(recorder), fails: []error{errJoin}}
	lc := NewLinkController(link, NopLogger{}, new(sleepRecorder).sleep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lc.Associate(ctx, Credentials{SSID: "net"}, RetryPolicy{})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, link.calls)
	require.Equal(t, LinkDisconnected, lc.State())
}

func TestSleep(t *testing.T) {
	t.Parallel()
	require.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, sleep(ctx, 0), context.Canceled)
}
