// Copyright 2024-2026 Aiku AI

// Package discord is the thin Discord adapter: a discordgo gateway session
// that registers the /link command, forwards channel messages and link
// requests to the bridge, and serves the bridge's outbound sends and
// presence updates. Reconnection is handled by discordgo itself.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/mc-discord-bridge/pkg/bridge"
)

// Client wraps a single Discord gateway session.
type Client struct {
	session   *discordgo.Session
	channelID string
	log       zerolog.Logger

	mu     sync.Mutex
	events bridge.RemoteEvents

	closeOnce sync.Once
}

var (
	_ bridge.RemoteSender  = (*Client)(nil)
	_ bridge.StatusUpdater = (*Client)(nil)
)

// NewClient creates a gateway client for the given bot token and bridge
// channel. Subscribe must be called before Connect for inbound events to be
// delivered.
func NewClient(token, channelID string, log zerolog.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	c := &Client{
		session:   session,
		channelID: channelID,
		log:       log.With().Str("component", "discord").Logger(),
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	session.AddHandler(c.handleReady)
	session.AddHandler(c.handleMessageCreate)
	session.AddHandler(c.handleInteraction)
	return c, nil
}

// Subscribe registers the handler that receives inbound events.
func (c *Client) Subscribe(events bridge.RemoteEvents) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = events
}

func (c *Client) handler() bridge.RemoteEvents {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Connect opens the gateway connection. An open failure is fatal to the
// caller; once connected, discordgo reconnects on its own and events queued
// by the bridge accumulate while the connection is degraded.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close shuts the gateway connection down.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		if err := c.session.Close(); err != nil {
			c.log.Warn().Err(err).Msg("Error closing gateway session")
		}
	})
}

func (c *Client) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	c.log.Info().
		Str("username", r.User.Username).
		Str("user_id", r.User.ID).
		Msg("Discord gateway ready")
	cmd := &discordgo.ApplicationCommand{
		Name:        "link",
		Description: "Link your Discord account to Minecraft",
	}
	if _, err := s.ApplicationCommandCreate(r.User.ID, "", cmd); err != nil {
		c.log.Error().Err(err).Msg("Failed to register /link command")
	}
}

func (c *Client) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	events := c.handler()
	if events == nil || m.Author == nil {
		return
	}
	events.HandleRemoteMessage(messageToRemote(m))
}

// messageToRemote maps a gateway message to the bridge's inbound event type.
// Webhook and bot posts carry Author.Bot, which the relay uses for echo
// prevention.
func messageToRemote(m *discordgo.MessageCreate) bridge.RemoteMessage {
	return bridge.RemoteMessage{
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Bot:        m.Author.Bot,
		Content:    m.Content,
	}
}

func (c *Client) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.ApplicationCommandData().Name != "link" {
		return
	}
	events := c.handler()
	if events == nil {
		return
	}
	user := interactionUser(i)
	if user == nil {
		return
	}
	reply := events.HandleLinkRequest(user.ID)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		c.log.Error().Err(err).Str("discord_id", user.ID).Msg("Failed to reply to /link")
	}
}

// interactionUser returns the invoking user for both guild (Member) and DM
// (User) interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// SendChannelMessage posts a plain message to the bridge channel as the bot.
func (c *Client) SendChannelMessage(ctx context.Context, text string) error {
	_, err := c.session.ChannelMessageSend(c.channelID, text, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send channel message: %w", err)
	}
	return nil
}

// UpdateStatus sets the bot's playing status.
func (c *Client) UpdateStatus(_ context.Context, status string) error {
	if err := c.session.UpdateGameStatus(0, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}
