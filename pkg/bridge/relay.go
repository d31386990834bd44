// Copyright 2024-2026 Aiku AI

package bridge

import "context"

// HandleRemoteMessage relays one Discord channel message to the server,
// synchronously. Messages outside the bridge channel, messages from bot
// accounts, and messages with no author are filtered silently.
//
// The display name prefers the sender's current in-game name when their
// Discord identity is linked and that player is online; otherwise the
// Discord username is used.
func (b *Bridge) HandleRemoteMessage(msg RemoteMessage) {
	if msg.ChannelID != b.cfg.ChannelID {
		return
	}
	if msg.Bot || msg.AuthorID == "" {
		b.log.Debug().Str("author_id", msg.AuthorID).Msg("Skipping automated message (echo prevention)")
		return
	}

	name := msg.AuthorName
	if localID, ok := b.store.LookupLocalID(msg.AuthorID); ok {
		if online, ok := b.host.OnlineName(localID); ok {
			name = online
		}
	}

	line := "§9[Discord] §r" + name + ": " + msg.Content
	if err := b.host.Broadcast(context.Background(), line); err != nil {
		b.log.Error().Err(err).Str("author", name).Msg("Failed to broadcast remote message")
	}
}
