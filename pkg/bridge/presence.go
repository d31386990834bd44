// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Presence tracks the live occupant count and mirrors it to the remote
// platform as a status string. Join and Leave are safe for concurrent use.
type Presence struct {
	label   string
	updater StatusUpdater
	log     zerolog.Logger

	mu    sync.Mutex
	count int

	// pushMu orders the status pushes so a slow update cannot be overtaken
	// by a newer one and leave a stale count displayed.
	pushMu sync.Mutex
}

// NewPresence creates a presence aggregator for the given server label.
func NewPresence(label string, updater StatusUpdater, log zerolog.Logger) *Presence {
	return &Presence{
		label:   label,
		updater: updater,
		log:     log.With().Str("component", "presence").Logger(),
	}
}

// Join records a player connection and pushes the new status.
func (p *Presence) Join() {
	p.shift(1)
}

// Leave records a player disconnection and pushes the new status.
func (p *Presence) Leave() {
	p.shift(-1)
}

// Count returns the current occupant count.
func (p *Presence) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Status returns the status text for the current count.
func (p *Presence) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return statusText(p.count, p.label)
}

func (p *Presence) shift(delta int) {
	p.pushMu.Lock()
	defer p.pushMu.Unlock()

	p.mu.Lock()
	p.count += delta
	if p.count < 0 {
		// Leave without a matching join; don't let the count go negative.
		p.count = 0
	}
	status := statusText(p.count, p.label)
	count := p.count
	p.mu.Unlock()

	if err := p.updater.UpdateStatus(context.Background(), status); err != nil {
		p.log.Error().Err(err).Str("status", status).Msg("Failed to push presence status")
		return
	}
	p.log.Debug().Int("count", count).Str("status", status).Msg("Presence updated")
}

func statusText(count int, label string) string {
	if count > 0 {
		return fmt.Sprintf("#%d playing %s", count, label)
	}
	return "No-one playing " + label
}
