//go:build rp2040 || rp2350

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

package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"github.com/bfix/picobeat"
)

// Build-time configuration, e.g.
//
//	tinygo flash -target=pico-w -ldflags "-X main.SSID=... -X main.Passwd=... -X main.Peer=pi2b" ./example
var (
	Host       string // DHCP hostname (default "picow")
	SSID       string
	Passwd     string
	Peer       string // heartbeat receiver
	PeerPort   string // default 9932
	LocalPort  string // default 9400
	StatusPort string // 9P diagnostics, default 564 ("0" disables)
)

// run heartbeat endpoint
func main() {
	// wait a bit for serial
	time.Sleep(2 * time.Second)
	log := picobeat.NewSlogLogger(machine.Serial, slog.LevelInfo)
	log.Info("program start")

	cfg, err := picobeat.ParseBuildConfig(Host, SSID, Passwd, Peer, PeerPort, LocalPort, StatusPort)
	if err != nil {
		log.Error("invalid build configuration", picobeat.Err(err))
		halt()
	}

	dev, err := picobeat.InitDevice(cfg, log)
	if err != nil {
		log.Error("device init failed", picobeat.Err(err))
		halt()
	}
	ep := picobeat.NewEndpoint(dev, cfg, log)
	defer ep.Status().Trap(30 * time.Second)

	ctx := context.Background()
	if cfg.StatusPort != 0 {
		go picobeat.ServeDiagnostics(ctx, ep, dev.Listen, cfg.StatusPort, log)
	}

	// only returns on a fatal error
	err = ep.Run(ctx)
	code, _ := ep.Status().Get()
	log.Error("heartbeat stopped", picobeat.Err(err), picobeat.String("status", picobeat.StatName(code)))
	ep.Status().Blink(ctx)
}

// halt without a usable radio: the onboard LED is wired to the
// radio chip, so there is nothing to blink on.
func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
