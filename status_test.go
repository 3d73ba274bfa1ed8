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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{nil, StatOK},
		{fatal(phaseResolve, errors.New("timeout")), StatDNS},
		{fatal(phaseResolve, ErrNoAddress), StatPEER},
		{fatal(phaseBind, errors.New("in use")), StatBIND},
		{fatal(phaseJoin, fmt.Errorf("%w after 3 attempts", ErrJoinExhausted)), StatJOIN},
		{fatal(phaseDHCP, ErrNotConfigured), StatDHCP},
		{errors.New("other"), StatUNK},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, StatCode(tt.err), "%v", tt.err)
	}
}

func TestStatName(t *testing.T) {
	t.Parallel()
	require.Equal(t, "OK", StatName(StatOK))
	require.Equal(t, "SEND", StatName(StatSEND))
	require.Equal(t, "EXCP", StatName(StatEXCP))
	require.Equal(t, "STAT99", StatName(99))
	require.Equal(t, "STAT-1", StatName(-1))
}

func TestStatusSetGet(t *testing.T) {
	t.Parallel()
	var nilStatus *Status
	nilStatus.Set(StatSEND, 0)
	code, _ := nilStatus.Get()
	require.Equal(t, StatUNK, code)

	st := NewStatus(nil)
	code, repeat := st.Get()
	require.Equal(t, StatUNK, code)
	require.Zero(t, repeat)

	st.Set(StatSRV, 3)
	code, repeat = st.Get()
	require.Equal(t, StatSRV, code)
	require.Equal(t, 3, repeat)
}

func TestStatusBlinkCanceled(t *testing.T) {
	t.Parallel()
	rec := new(recorder)
	st := NewStatus(&fakeIndicator{rec: rec, name: "radio"})
	st.Set(StatDNS, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	st.Blink(ctx)
	require.Empty(t, rec.trace(), "pause precedes the first code")
}

func TestFatalError(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("run: %w", fatal(phaseBind, ErrNotBound))
	require.True(t, IsFatal(err))
	require.ErrorIs(t, err, ErrNotBound)
	require.Equal(t, "run: fatal (bind): channel not bound", err.Error())
	require.False(t, IsFatal(ErrNotBound))
}
