// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PlayerChat dispatches a server chat line: bridge meta-commands are answered
// synchronously from live state, everything else is forwarded to Discord as
// an impersonated webhook message.
func (b *Bridge) PlayerChat(p Player, text string) {
	switch {
	case strings.HasPrefix(text, "/dclink"):
		b.handleLinkRedeem(p, text)
	case text == "/players":
		b.replyPlayerList(p)
	case text == "/uptime":
		b.replyUptime(p)
	default:
		b.forwardChat(p, text)
	}
}

func (b *Bridge) handleLinkRedeem(p Player, text string) {
	args := strings.Fields(text)
	if len(args) != 2 {
		b.reply(p, "Usage: /dclink <code>")
		return
	}
	remoteID, err := b.store.Redeem(args[1], p.ID)
	if err != nil {
		if !errors.Is(err, ErrInvalidCode) {
			b.log.Error().Err(err).Str("player", p.Name).Msg("Code redemption failed")
		}
		b.reply(p, "Invalid verification code!")
		return
	}
	b.log.Info().
		Str("player", p.Name).
		Str("player_id", p.ID).
		Str("discord_id", remoteID).
		Msg("Linked Discord account")
	b.reply(p, "Successfully linked your Discord account!")
}

func (b *Bridge) replyPlayerList(p Player) {
	players := b.host.Players()
	names := make([]string, len(players))
	for i, pl := range players {
		names[i] = pl.Name
	}
	b.reply(p, fmt.Sprintf("Online players (%d): %s", len(players), strings.Join(names, ", ")))
}

func (b *Bridge) replyUptime(p Player) {
	b.reply(p, formatUptime(time.Since(b.startTime)))
}

// formatUptime renders an elapsed duration as days, hours and minutes.
func formatUptime(d time.Duration) string {
	minutes := int(d.Minutes())
	return fmt.Sprintf("Server uptime: %d days, %d hours, %d minutes",
		minutes/(24*60), (minutes/60)%24, minutes%60)
}

// forwardChat posts the chat line to the Discord webhook under the player's
// name and avatar. The send is fire-and-forget; the result is consumed in
// the background for logging only.
func (b *Bridge) forwardChat(p Player, text string) {
	result := b.webhook.ExecuteAsync(context.Background(), WebhookEnvelope{
		Content:   text,
		ThreadID:  b.cfg.ChannelID,
		Username:  p.Name,
		AvatarURL: b.cfg.FormatAvatarURL(p),
	})
	go func() {
		if err := <-result; err != nil {
			b.log.Error().Err(err).Str("player", p.Name).Msg("Failed to deliver chat webhook")
		}
	}()
}
