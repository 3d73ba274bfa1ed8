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
	"sync"
	"sync/atomic"
	"time"
)

// recorder keeps an ordered event trace shared by all fakes.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

func (r *recorder) trace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(ev string) (n int) {
	for _, e := range r.trace() {
		if e == ev {
			n++
		}
	}
	return
}

//----------------------------------------------------------------------

// fakeLink fails with the queued errors, then succeeds.
type fakeLink struct {
	rec   *recorder
	fails []error
	calls int
}

func (l *fakeLink) Join(ctx context.Context, ssid, passphrase string) error {
	l.calls++
	l.rec.add("join")
	if l.calls <= len(l.fails) {
		return l.fails[l.calls-1]
	}
	return nil
}

// fakeStack is configured after readyAfter polls.
type fakeStack struct {
	rec        *recorder
	readyAfter int
	polls      int
	addr       netip.Addr

	answer   []netip.Addr
	queryErr error
	queries  int
	early    bool // query seen before configuration completed

	bindErr error
	binds   int
	ch      *fakeChannel

	processed atomic.Int32
}

func (s *fakeStack) Process(ctx context.Context) {
	s.processed.Add(1)
	<-ctx.Done()
}

func (s *fakeStack) configured() bool {
	return s.polls > s.readyAfter
}

func (s *fakeStack) IsConfigured() bool {
	s.polls++
	ok := s.configured()
	s.rec.add("poll %v", ok)
	return ok
}

func (s *fakeStack) Addr() netip.Addr {
	if !s.configured() {
		return netip.Addr{}
	}
	return s.addr
}

func (s *fakeStack) Query(_ context.Context, host string) ([]netip.Addr, error) {
	s.queries++
	if !s.configured() {
		s.early = true
	}
	s.rec.add("query %s", host)
	return s.answer, s.queryErr
}

func (s *fakeStack) Bind(port uint16) (Channel, error) {
	s.binds++
	s.rec.add("bind %d", port)
	if s.bindErr != nil {
		return nil, s.bindErr
	}
	if s.ch == nil {
		s.ch = &fakeChannel{rec: s.rec}
	}
	s.ch.port = port
	return s.ch, nil
}

// fakeChannel returns errs[i] for the i-th send (nil beyond).
type fakeChannel struct {
	rec      *recorder
	port     uint16
	errs     []error
	sends    int
	dsts     []netip.AddrPort
	payloads []string
}

func (ch *fakeChannel) SendTo(_ context.Context, payload []byte, dst netip.AddrPort) error {
	ch.sends++
	ch.dsts = append(ch.dsts, dst)
	ch.payloads = append(ch.payloads, string(payload))
	ch.rec.add("send")
	if ch.sends <= len(ch.errs) {
		return ch.errs[ch.sends-1]
	}
	return nil
}

// fakeIndicator records its output.
type fakeIndicator struct {
	rec  *recorder
	name string
}

func (ind *fakeIndicator) Set(on bool) {
	ind.rec.add("%s %v", ind.name, on)
}

type fakeDevice struct {
	link  *fakeLink
	stack *fakeStack
	local *fakeIndicator
	radio *fakeIndicator
}

func newFakeDevice(rec *recorder) *fakeDevice {
	return &fakeDevice{
		link:  &fakeLink{rec: rec},
		stack: &fakeStack{rec: rec, addr: netip.MustParseAddr("192.168.1.23")},
		local: &fakeIndicator{rec: rec, name: "local"},
		radio: &fakeIndicator{rec: rec, name: "radio"},
	}
}

func (d *fakeDevice) Link() Link       { return d.link }
func (d *fakeDevice) Stack() Stack     { return d.stack }
func (d *fakeDevice) Local() Indicator { return d.local }
func (d *fakeDevice) Radio() Indicator { return d.radio }

//----------------------------------------------------------------------

// sleepRecorder returns immediately and remembers the requested waits.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waits)
}

// testConfig is a valid configuration for fakes.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SSID = "WIFINAME"
	cfg.Passphrase = "wifipasswd"
	cfg.PeerHost = "pi2b"
	return cfg
}

// logRecorder keeps "level: msg" lines.
type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *logRecorder) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+": "+msg)
}

func (l *logRecorder) Debug(msg string, _ ...Field) { l.add("debug", msg) }
func (l *logRecorder) Info(msg string, _ ...Field)  { l.add("info", msg) }
func (l *logRecorder) Warn(msg string, _ ...Field)  { l.add("warn", msg) }
func (l *logRecorder) Error(msg string, _ ...Field) { l.add("error", msg) }

func (l *logRecorder) has(line string) bool {
	return l.count(line) > 0
}

func (l *logRecorder) count(line string) (n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.lines {
		if s == line {
			n++
		}
	}
	return
}
