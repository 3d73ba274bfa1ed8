//go:build !rp2040 && !rp2350

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

import "os"

// ApplyEnvConfig applies PICOBEAT_* environment variables. Explicitly
// set flags win.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("hostname", os.Getenv("PICOBEAT_HOSTNAME"), &cfg.Hostname)
	s.setString("ssid", os.Getenv("PICOBEAT_SSID"), &cfg.SSID)
	s.setString("passphrase", os.Getenv("PICOBEAT_PASSPHRASE"), &cfg.Passphrase)
	s.setString("peer", os.Getenv("PICOBEAT_PEER"), &cfg.PeerHost)
	s.setString("payload", os.Getenv("PICOBEAT_PAYLOAD"), &cfg.Payload)
	s.setString("log-level", os.Getenv("PICOBEAT_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setPortFromString("peer-port", os.Getenv("PICOBEAT_PEER_PORT"), &cfg.PeerPort); err != nil {
		return err
	}
	if err := s.setPortFromString("local-port", os.Getenv("PICOBEAT_LOCAL_PORT"), &cfg.LocalPort); err != nil {
		return err
	}
	if err := s.setPortFromString("status-port", os.Getenv("PICOBEAT_STATUS_PORT"), &cfg.StatusPort); err != nil {
		return err
	}
	if err := s.setDuration("poll", os.Getenv("PICOBEAT_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("hold", os.Getenv("PICOBEAT_HOLD"), &cfg.Hold); err != nil {
		return err
	}
	if err := s.setDuration("join-delay", os.Getenv("PICOBEAT_JOIN_DELAY"), &cfg.JoinDelay); err != nil {
		return err
	}
	if err := s.setIntFromString("join-attempts", os.Getenv("PICOBEAT_JOIN_ATTEMPTS"), &cfg.JoinAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("max-polls", os.Getenv("PICOBEAT_MAX_POLLS"), &cfg.MaxPolls); err != nil {
		return err
	}
	if err := s.setIntFromString("periods", os.Getenv("PICOBEAT_PERIODS"), &cfg.Periods); err != nil {
		return err
	}
	return s.setIntFromString("tos", os.Getenv("PICOBEAT_TOS"), &cfg.TOS)
}
