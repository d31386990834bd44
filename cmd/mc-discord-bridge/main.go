// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command mc-discord-bridge relays events between a Minecraft Java server
// and a Discord channel. Server activity (joins, leaves, deaths,
// advancements, chat) is mirrored into the channel, channel messages are
// broadcast in-game, and players can link their Discord identity with a
// one-time verification code.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/mc-discord-bridge/pkg/bridge"
	"github.com/aiku/mc-discord-bridge/pkg/discord"
	"github.com/aiku/mc-discord-bridge/pkg/minecraft"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the bridge config file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}).
		With().Timestamp().Logger()

	cfg, err := bridge.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, keeping info")
	} else {
		log = log.Level(level)
	}
	log.Info().
		Str("tag", Tag).
		Str("commit", Commit).
		Str("build_time", BuildTime).
		Msg("Starting mc-discord-bridge")

	store, err := bridge.LoadStore(cfg.StateFile, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load identity store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dc, err := discord.NewClient(cfg.BotToken, cfg.ChannelID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Discord client")
	}

	rcon := minecraft.NewRCONClient(cfg.Minecraft.RCONAddress, cfg.Minecraft.RCONPassword, log)
	watcher := minecraft.NewWatcher(cfg.Minecraft.LogFile, log)
	host := minecraft.NewServer(rcon, watcher, log)
	webhook := bridge.NewWebhookClient(cfg.WebhookURL, log)

	br := bridge.New(cfg, store, host, dc, dc, webhook, log)
	dc.Subscribe(br)
	watcher.Subscribe(br)

	if err := dc.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Discord")
	}
	defer dc.Close()
	defer rcon.Close()

	go watcher.Run(ctx)
	br.Run(ctx)
	log.Info().Msg("Shut down cleanly")
}
