// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bridge implements the engine relaying events between a Minecraft
// server and a single Discord channel: server activity (joins, leaves,
// deaths, advancements, chat) appears in the channel, channel messages are
// broadcast back in-game, and a one-time verification code exchange durably
// links Discord identities to player UUIDs.
//
// # Core Types
//
// [Bridge] is the explicit context object holding all shared state. It
// implements [HostEvents] and [RemoteEvents]; the platform adapters register
// it as their handler and push events concurrently with the dispatcher tick.
//
// [Store] is the durable Discord↔Minecraft identity map plus pending
// verification codes, persisted as one JSON file after every mutation.
//
// [Queue] and [Dispatcher] decouple bursty server events from Discord's
// throughput limits: producers append without blocking, a single background
// worker drains the FIFO once a second with one second of pacing between
// sends. Delivery is at-most-once; failures are logged and dropped.
//
// [WebhookClient] posts impersonated chat messages, [Presence] mirrors the
// occupant count as the bot's status text.
//
// # Concurrency
//
// Host events, remote events and the dispatcher tick run on separate
// goroutines. The identity store and the presence counter are mutex-guarded;
// the queue permits many producers and one consumer. No event handler blocks
// on network delivery: webhook sends return a result channel consumed in the
// background, and queued sends are paid for by the dispatcher alone.
package bridge
