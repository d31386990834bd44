// Copyright 2024-2026 Aiku AI

package bridge

import "context"

// Player identifies a connected Minecraft player. ID is the player's UUID
// string, Name the current in-game name.
type Player struct {
	ID   string
	Name string
}

// HostServer is the outbound surface of the Minecraft server. Implemented by
// the minecraft adapter; tests inject a mock.
type HostServer interface {
	// Broadcast sends a message to every connected player.
	Broadcast(ctx context.Context, text string) error
	// Reply sends a message to a single player, addressed by UUID.
	Reply(ctx context.Context, localID, text string) error
	// Players returns the currently connected players.
	Players() []Player
	// OnlineName returns the in-game name for a player UUID if that player
	// is currently connected.
	OnlineName(localID string) (string, bool)
}

// RemoteSender delivers a plain text message to the bridge channel.
type RemoteSender interface {
	SendChannelMessage(ctx context.Context, text string) error
}

// StatusUpdater pushes the bridge's presence text to the remote platform.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, status string) error
}

// WebhookSender delivers impersonated chat posts to the bridge channel.
type WebhookSender interface {
	// ExecuteAsync posts the envelope without blocking the caller and
	// reports the outcome on the returned channel.
	ExecuteAsync(ctx context.Context, env WebhookEnvelope) <-chan error
}

// RemoteMessage is a single inbound message from the remote platform.
type RemoteMessage struct {
	ChannelID  string
	AuthorID   string
	AuthorName string
	Bot        bool
	Content    string
}

// HostEvents receives push events from the host-server adapter. Implemented
// by *Bridge; the adapter calls these from its own event loop, concurrently
// with remote events and the dispatcher tick.
type HostEvents interface {
	ServerStarted()
	ServerStopping()
	PlayerJoined(p Player)
	PlayerLeft(p Player)
	PlayerChat(p Player, text string)
	PlayerDied(message string)
	PlayerAdvancement(p Player, title string)
}

// RemoteEvents receives push events from the remote-platform adapter.
// Implemented by *Bridge.
type RemoteEvents interface {
	// HandleRemoteMessage relays a channel message to the server. Messages
	// outside the bridge channel and messages from automated accounts are
	// discarded.
	HandleRemoteMessage(msg RemoteMessage)
	// HandleLinkRequest issues a fresh verification code for the given
	// remote user and returns the reply text to deliver privately.
	HandleLinkRequest(remoteID string) string
}
