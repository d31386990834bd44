// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Bridge is the engine relaying events between a Minecraft server and a
// Discord channel. It holds all shared state explicitly (identity store,
// outbound queue, presence counter, config) so tests can run multiple
// independent instances.
//
// Bridge implements HostEvents and RemoteEvents; the platform adapters
// register it as their handler and push events concurrently.
type Bridge struct {
	cfg     *Config
	log     zerolog.Logger
	store   *Store
	queue   *Queue
	webhook WebhookSender
	host    HostServer

	dispatcher *Dispatcher
	presence   *Presence
	startTime  time.Time
}

var (
	_ HostEvents   = (*Bridge)(nil)
	_ RemoteEvents = (*Bridge)(nil)
)

// New assembles a bridge from its collaborators. The start time for /uptime
// is captured here, once.
func New(cfg *Config, store *Store, host HostServer, sender RemoteSender, status StatusUpdater, webhook WebhookSender, log zerolog.Logger) *Bridge {
	b := &Bridge{
		cfg:       cfg,
		log:       log.With().Str("component", "bridge").Logger(),
		store:     store,
		queue:     NewQueue(cfg.QueueLimit, log),
		webhook:   webhook,
		host:      host,
		startTime: time.Now(),
	}
	b.dispatcher = NewDispatcher(b.queue, sender, log)
	b.presence = NewPresence(cfg.StatusLabel, status, log)
	return b
}

// Run drives the outbound dispatcher until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) {
	b.dispatcher.Run(ctx)
}

// Queue exposes the outbound queue for adapters that relay raw payloads.
func (b *Bridge) Queue() *Queue {
	return b.queue
}

// ServerStarted queues the configured startup announcement, if any.
func (b *Bridge) ServerStarted() {
	b.log.Info().Msg("Host server started")
	if b.cfg.Announcement != "" {
		b.queue.Push(b.cfg.Announcement)
	}
}

// ServerStopping queues the shutdown notice.
func (b *Bridge) ServerStopping() {
	b.log.Info().Msg("Host server stopping")
	b.queue.Push("Server is shutting down...")
}

// PlayerJoined updates presence and relays the join to the channel.
func (b *Bridge) PlayerJoined(p Player) {
	b.presence.Join()
	b.queue.Push(p.Name + " joined the game")
}

// PlayerLeft updates presence and relays the leave to the channel.
func (b *Bridge) PlayerLeft(p Player) {
	b.presence.Leave()
	b.queue.Push(p.Name + " left the game")
}

// PlayerDied relays the death message verbatim.
func (b *Bridge) PlayerDied(message string) {
	b.queue.Push(message)
}

// PlayerAdvancement relays an announced advancement.
func (b *Bridge) PlayerAdvancement(p Player, title string) {
	b.queue.Push(p.Name + " has made the advancement [" + title + "]")
}

// HandleLinkRequest issues a verification code for a Discord user and
// returns the private reply text.
func (b *Bridge) HandleLinkRequest(remoteID string) string {
	code := b.store.IssueCode(remoteID)
	b.log.Info().Str("discord_id", remoteID).Msg("Issued verification code")
	return "Your verification code is: " + code + "\nUse /dclink <code> in Minecraft to link your account"
}

// reply sends text to a single player and logs delivery failures.
func (b *Bridge) reply(p Player, text string) {
	if err := b.host.Reply(context.Background(), p.ID, text); err != nil {
		b.log.Error().Err(err).Str("player", p.Name).Msg("Failed to reply to player")
	}
}
