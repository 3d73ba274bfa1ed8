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
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Defaults
const (
	DefaultHostname     = "picow"
	DefaultPeerPort     = 9932
	DefaultLocalPort    = 9400
	DefaultPayload      = "message"
	DefaultPollInterval = 100 * time.Millisecond
	DefaultHold         = time.Second
	DefaultStatusPort   = 564 // 9fs
)

// Config of the heartbeat endpoint. On the device all values are fixed
// at build time.
type Config struct {
	Hostname   string // name announced to the DHCP server
	SSID       string // wireless network name
	Passphrase string // WPA2 passphrase (empty: open network)

	PeerHost  string // peer to send heartbeats to
	PeerPort  uint16 // peer UDP port
	LocalPort uint16 // bound local UDP port
	Payload   string // heartbeat datagram content

	PollInterval time.Duration // DHCP readiness poll interval
	Hold         time.Duration // indicator hold time (half period)

	JoinAttempts int           // max. join attempts (0: unbounded)
	JoinDelay    time.Duration // delay between join attempts
	MaxPolls     int           // max. DHCP polls (0: unbounded)
	Periods      int           // heartbeat periods to run (0: forever)

	StatusPort uint16 // 9P diagnostics port (0: disabled)
	TOS        int    // IPv4 type-of-service for heartbeats (host only)
	LogLevel   string // debug, info, warn or error
}

// DefaultConfig returns a Config with reference values.
func DefaultConfig() Config {
	return Config{
		Hostname:     DefaultHostname,
		PeerPort:     DefaultPeerPort,
		LocalPort:    DefaultLocalPort,
		Payload:      DefaultPayload,
		PollInterval: DefaultPollInterval,
		Hold:         DefaultHold,
		StatusPort:   DefaultStatusPort,
		LogLevel:     "info",
	}
}

var (
	errNoSSID     = errors.New("network name (ssid) is required")
	errNoPeer     = errors.New("peer host is required")
	errPassphrase = errors.New("WPA2 passphrase must have 8 to 63 characters or 64 hex digits")
	errNoPayload  = errors.New("payload must not be empty")
	errPort       = errors.New("ports must be non-zero")
	errInterval   = errors.New("intervals must be positive")
	errNegative   = errors.New("retry bounds must not be negative")
	errTOS        = errors.New("tos must be in range 0..255")
)

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SSID == "" {
		return errNoSSID
	}
	if !validPassphrase(c.Passphrase) {
		return errPassphrase
	}
	if c.PeerHost == "" {
		return errNoPeer
	}
	if c.PeerPort == 0 || c.LocalPort == 0 {
		return errPort
	}
	if c.Payload == "" {
		return errNoPayload
	}
	if c.PollInterval <= 0 || c.Hold <= 0 {
		return errInterval
	}
	if c.JoinAttempts < 0 || c.MaxPolls < 0 || c.Periods < 0 || c.JoinDelay < 0 {
		return errNegative
	}
	if c.TOS < 0 || c.TOS > 255 {
		return errTOS
	}
	return nil
}

// validPassphrase accepts an open network (empty), an ASCII passphrase
// of 8..63 characters or a raw 256-bit PSK as 64 hex digits.
func validPassphrase(p string) bool {
	switch n := len(p); {
	case n == 0:
		return true
	case n >= 8 && n <= 63:
		return true
	case n == 64:
		_, err := hex.DecodeString(p)
		return err == nil
	}
	return false
}

// Retry returns the join retry policy.
func (c *Config) Retry() RetryPolicy {
	return RetryPolicy{MaxAttempts: c.JoinAttempts, Delay: c.JoinDelay}
}

// Poll returns the address configuration poll policy.
func (c *Config) Poll() PollPolicy {
	return PollPolicy{Interval: c.PollInterval, MaxPolls: c.MaxPolls}
}

// ParseBuildConfig builds a configuration from link-time strings
// (-ldflags "-X main.SSID=..."). Empty port strings keep defaults.
func ParseBuildConfig(host, ssid, passwd, peer, peerPort, localPort, statusPort string) (cfg Config, err error) {
	cfg = DefaultConfig()
	if host != "" {
		cfg.Hostname = host
	}
	cfg.SSID = ssid
	cfg.Passphrase = passwd
	cfg.PeerHost = peer
	if cfg.PeerPort, err = parsePort("peer port", peerPort, cfg.PeerPort); err != nil {
		return
	}
	if cfg.LocalPort, err = parsePort("local port", localPort, cfg.LocalPort); err != nil {
		return
	}
	if cfg.StatusPort, err = parsePort("status port", statusPort, cfg.StatusPort); err != nil {
		return
	}
	err = cfg.Validate()
	return
}

func parsePort(name, s string, def uint16) (uint16, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return uint16(v), nil
}
