// Copyright 2024-2026 Aiku AI

// Package minecraft is the thin host-server adapter: a log follower that
// turns server log lines into bridge events and an RCON client that carries
// broadcasts and replies back into the game.
package minecraft

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"go.mau.fi/util/exerrors"

	"github.com/aiku/mc-discord-bridge/pkg/bridge"
)

// Server combines the RCON client and the log watcher into the bridge's
// host-server port.
type Server struct {
	rcon    *RCONClient
	watcher *Watcher
	log     zerolog.Logger
}

var _ bridge.HostServer = (*Server)(nil)

// NewServer wires an RCON client and a log watcher into a host-server port.
func NewServer(rcon *RCONClient, watcher *Watcher, log zerolog.Logger) *Server {
	return &Server{
		rcon:    rcon,
		watcher: watcher,
		log:     log.With().Str("component", "minecraft").Logger(),
	}
}

// Broadcast sends text to every connected player via tellraw.
func (s *Server) Broadcast(ctx context.Context, text string) error {
	if _, err := s.rcon.Exec(ctx, "tellraw @a "+textComponent(text)); err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	return nil
}

// Reply sends text to a single connected player, addressed by UUID.
func (s *Server) Reply(ctx context.Context, localID, text string) error {
	name, ok := s.watcher.OnlineName(localID)
	if !ok {
		return fmt.Errorf("player %s is not online", localID)
	}
	if _, err := s.rcon.Exec(ctx, "tellraw "+name+" "+textComponent(text)); err != nil {
		return fmt.Errorf("reply to %s: %w", name, err)
	}
	return nil
}

// Players returns the currently connected players.
func (s *Server) Players() []bridge.Player {
	return s.watcher.Players()
}

// OnlineName returns the in-game name for a connected player UUID.
func (s *Server) OnlineName(localID string) (string, bool) {
	return s.watcher.OnlineName(localID)
}

// textComponent encodes text as a tellraw JSON text component, escaping
// quotes and control characters.
func textComponent(text string) string {
	return string(exerrors.Must(json.Marshal(map[string]string{"text": text})))
}
