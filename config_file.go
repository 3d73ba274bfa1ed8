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

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML friendly types.
type FileConfig struct {
	Hostname     string `toml:"hostname"`
	SSID         string `toml:"ssid"`
	Passphrase   string `toml:"passphrase"`
	PeerHost     string `toml:"peer_host"`
	PeerPort     int    `toml:"peer_port"`
	LocalPort    int    `toml:"local_port"`
	Payload      string `toml:"payload"`
	PollInterval string `toml:"poll_interval"`
	Hold         string `toml:"hold"`
	JoinAttempts int    `toml:"join_attempts"`
	JoinDelay    string `toml:"join_delay"`
	MaxPolls     int    `toml:"max_polls"`
	Periods      int    `toml:"periods"`
	StatusPort   *int   `toml:"status_port"`
	TOS          int    `toml:"tos"`
	LogLevel     string `toml:"log_level"`
}

// LoadFileConfig reads a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.picobeat/config.toml (or "" if there
// is no home directory).
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".picobeat", "config.toml")
	}
	return ""
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFileConfig copies file settings into cfg unless the matching
// flag was set explicitly.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("hostname", fc.Hostname, &cfg.Hostname)
	s.setString("ssid", fc.SSID, &cfg.SSID)
	s.setString("passphrase", fc.Passphrase, &cfg.Passphrase)
	s.setString("peer", fc.PeerHost, &cfg.PeerHost)
	s.setString("payload", fc.Payload, &cfg.Payload)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setPort("peer-port", fc.PeerPort, &cfg.PeerPort); err != nil {
		return err
	}
	if err := s.setPort("local-port", fc.LocalPort, &cfg.LocalPort); err != nil {
		return err
	}
	if fc.StatusPort != nil && !changed["status-port"] {
		// 0 is meaningful here: it disables diagnostics
		if *fc.StatusPort < 0 || *fc.StatusPort > 0xffff {
			return fmt.Errorf("status-port: %d out of range", *fc.StatusPort)
		}
		cfg.StatusPort = uint16(*fc.StatusPort)
	}

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("hold", fc.Hold, &cfg.Hold); err != nil {
		return err
	}
	if err := s.setDuration("join-delay", fc.JoinDelay, &cfg.JoinDelay); err != nil {
		return err
	}

	s.setInt("join-attempts", fc.JoinAttempts, &cfg.JoinAttempts)
	s.setInt("max-polls", fc.MaxPolls, &cfg.MaxPolls)
	s.setInt("periods", fc.Periods, &cfg.Periods)
	s.setInt("tos", fc.TOS, &cfg.TOS)
	return nil
}

// configSetter applies values while respecting flag precedence.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setPort(flag string, value int, dst *uint16) error {
	if value == 0 || s.changed[flag] {
		return nil
	}
	if value < 0 || value > 0xffff {
		return fmt.Errorf("%s: %d out of range", flag, value)
	}
	*dst = uint16(value)
	return nil
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = v
	return nil
}

func (s *configSetter) setPortFromString(flag, value string, dst *uint16) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	v, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = uint16(v)
	return nil
}
