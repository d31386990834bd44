// Copyright 2024-2026 Aiku AI

package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// ErrInvalidCode is returned by Redeem when the submitted code does not match
// any pending link request. Already-redeemed codes are indistinguishable from
// codes that never existed.
var ErrInvalidCode = errors.New("invalid verification code")

// storeFile is the on-disk shape of the identity store: a single JSON
// document with the link map and the pending verification codes.
type storeFile struct {
	DiscordToMinecraft map[string]string `json:"discord_to_minecraft"`
	VerificationCodes  map[string]string `json:"verification_codes"`
}

// Store is the durable mapping of Discord user IDs to Minecraft player UUIDs,
// plus the set of pending verification codes. All methods are safe for
// concurrent use; every mutation rewrites the backing file synchronously.
// A persistence write failure is logged but does not roll back the in-memory
// mutation, so the running process stays authoritative.
type Store struct {
	path string
	log  zerolog.Logger

	mu            sync.Mutex
	remoteToLocal map[string]string
	pendingCodes  map[string]string
	newCode       func() string
}

// defaultCodeGenerator produces a 6-digit zero-padded numeric code. The
// 1-in-1,000,000 collision space is accepted; a colliding code simply
// re-points to the newest requester.
func defaultCodeGenerator() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

// LoadStore reads the identity store from path. A missing file yields an
// empty store; a file that exists but cannot be parsed is a startup fault,
// since silently discarding links would be unsafe.
func LoadStore(path string, log zerolog.Logger) (*Store, error) {
	s := &Store{
		path:          path,
		log:           log.With().Str("component", "identity_store").Logger(),
		remoteToLocal: make(map[string]string),
		pendingCodes:  make(map[string]string),
		newCode:       defaultCodeGenerator,
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity store: %w", err)
	}
	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse identity store %s: %w", path, err)
	}
	if file.DiscordToMinecraft != nil {
		s.remoteToLocal = file.DiscordToMinecraft
	}
	if file.VerificationCodes != nil {
		s.pendingCodes = file.VerificationCodes
	}
	s.log.Info().
		Int("links", len(s.remoteToLocal)).
		Int("pending_codes", len(s.pendingCodes)).
		Msg("Loaded identity store")
	return s, nil
}

// LookupLocalID returns the Minecraft UUID linked to a Discord user ID.
func (s *Store) LookupLocalID(remoteID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	localID, ok := s.remoteToLocal[remoteID]
	return localID, ok
}

// RecordLink stores a Discord→Minecraft association directly, bypassing the
// code exchange. An existing link for the same Discord user is replaced.
func (s *Store) RecordLink(remoteID, localID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteToLocal[remoteID] = localID
	s.saveLocked()
}

// IssueCode generates a fresh verification code for a Discord user and
// registers it as pending. Codes do not expire; they are consumed by Redeem
// or overwritten by a later collision.
func (s *Store) IssueCode(remoteID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.newCode()
	s.pendingCodes[code] = remoteID
	s.saveLocked()
	return code
}

// Redeem consumes a pending verification code and records the link to
// localID. The removal of the code and the insertion of the link happen
// atomically under one lock, so a code is accepted at most once even under
// concurrent redemption attempts.
func (s *Store) Redeem(code, localID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	remoteID, ok := s.pendingCodes[code]
	if !ok {
		return "", ErrInvalidCode
	}
	delete(s.pendingCodes, code)
	s.remoteToLocal[remoteID] = localID
	s.saveLocked()
	return remoteID, nil
}

// PendingCount reports the number of unredeemed verification codes.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingCodes)
}

func (s *Store) saveLocked() {
	data, err := json.MarshalIndent(storeFile{
		DiscordToMinecraft: s.remoteToLocal,
		VerificationCodes:  s.pendingCodes,
	}, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to encode identity store")
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("Failed to persist identity store")
	}
}
