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

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bfix/picobeat"
)

// Version is set at build time (-ldflags "-X main.Version=...").
var Version = "dev"

func main() {
	cfg := picobeat.DefaultConfig()
	var cfgPath string

	log := picobeat.NewConsoleLogger(os.Stderr, zerolog.InfoLevel)

	root := &cobra.Command{
		Use:   "picobeat",
		Short: "Send UDP heartbeats to a peer (host build of the Pico W endpoint)",
		Long: `Runs the heartbeat endpoint on a regular host: waits for an active
network interface, resolves the peer once and sends a fixed datagram
every period. Settings come from a TOML file, PICOBEAT_* environment
variables and flags (in increasing precedence).`,
		Example:       "  picobeat --ssid lab --peer pi2b\n  picobeat --config $HOME/.picobeat/config.toml --periods 10",
		Version:       fmt.Sprintf("%s %s/%s", Version, runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = picobeat.DefaultConfigPath()
			}
			if cfgFile != "" && picobeat.FileExists(cfgFile) {
				fc, err := picobeat.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err = picobeat.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}
			if err := picobeat.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			lvl, ok := picobeat.ParseLevel(cfg.LogLevel)
			if !ok {
				log.Warn("unknown log level, using info", picobeat.String("level", cfg.LogLevel))
			}
			log = picobeat.NewConsoleLogger(os.Stderr, lvl)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log)
		},
	}

	f := root.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "path to config file (default: $HOME/.picobeat/config.toml)")
	f.StringVar(&cfg.Hostname, "hostname", cfg.Hostname, "device hostname")
	f.StringVar(&cfg.SSID, "ssid", cfg.SSID, "wireless network name")
	f.StringVar(&cfg.Passphrase, "passphrase", cfg.Passphrase, "WPA2 passphrase")
	f.StringVar(&cfg.PeerHost, "peer", cfg.PeerHost, "peer hostname")
	f.Uint16Var(&cfg.PeerPort, "peer-port", cfg.PeerPort, "peer UDP port")
	f.Uint16Var(&cfg.LocalPort, "local-port", cfg.LocalPort, "local UDP port")
	f.StringVar(&cfg.Payload, "payload", cfg.Payload, "heartbeat payload")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "address configuration poll interval")
	f.DurationVar(&cfg.Hold, "hold", cfg.Hold, "indicator hold time (half a period)")
	f.IntVar(&cfg.JoinAttempts, "join-attempts", cfg.JoinAttempts, "max. join attempts (0: unbounded)")
	f.DurationVar(&cfg.JoinDelay, "join-delay", cfg.JoinDelay, "delay between join attempts")
	f.IntVar(&cfg.MaxPolls, "max-polls", cfg.MaxPolls, "max. address polls (0: unbounded)")
	f.IntVar(&cfg.Periods, "periods", cfg.Periods, "heartbeat periods to run (0: forever)")
	f.Uint16Var(&cfg.StatusPort, "status-port", cfg.StatusPort, "9P diagnostics port (0: disabled)")
	f.IntVar(&cfg.TOS, "tos", cfg.TOS, "IPv4 type-of-service of heartbeat datagrams")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), root.Version)
		},
	})

	if err := root.Execute(); err != nil {
		log.Error("picobeat", picobeat.Err(err))
		os.Exit(1)
	}
}

// run the endpoint until a fatal error or a signal.
func run(ctx context.Context, cfg picobeat.Config, log picobeat.Logger) error {
	dev, err := picobeat.InitDevice(cfg, log)
	if err != nil {
		return err
	}
	ep := picobeat.NewEndpoint(dev, cfg, log)
	if cfg.StatusPort != 0 {
		go func() {
			err := picobeat.ServeDiagnostics(ctx, ep, dev.Listen, cfg.StatusPort, log)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("diagnostics stopped", picobeat.Err(err))
			}
		}()
	}
	err = ep.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("received signal, stopped")
		return nil
	}
	return err
}
