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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveFirstCandidate(t *testing.T) {
	t.Parallel()
	stack := &fakeStack{rec: new(recorder), answer: []netip.Addr{
		netip.MustParseAddr("::ffff:192.168.1.50"),
		netip.MustParseAddr("192.168.1.51"),
	}}
	addr, err := Resolve(context.Background(), stack, "pi2b", NopLogger{})
	require.NoError(t, err)
	require.Equal(t, netip.MustParseAddr("192.168.1.50"), addr)
	require.Equal(t, 1, stack.queries)
}

func TestResolveFailures(t *testing.T) {
	t.Parallel()
	errLookup := errors.New("lookup failed")
	tests := []struct {
		name   string
		answer []netip.Addr
		err    error
		want   error
	}{
		{name: "query error", err: errLookup, want: errLookup},
		{name: "empty answer", want: ErrNoAddress},
		{name: "invalid address", answer: []netip.Addr{{}}, want: ErrNoAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack := &fakeStack{rec: new(recorder), answer: tt.answer, queryErr: tt.err}
			log := new(logRecorder)
			_, err := Resolve(context.Background(), stack, "pi2b", log)
			require.ErrorIs(t, err, tt.want)
			require.True(t, IsFatal(err))

			var fe *FatalError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, phaseResolve, fe.Phase)
			require.Equal(t, 1, stack.queries, "no retry")
			require.Equal(t, 1, len(log.lines))
		})
	}
}
