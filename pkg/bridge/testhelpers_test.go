// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockSender records channel sends and can be told to fail specific payloads.
type mockSender struct {
	mu        sync.Mutex
	sent      []string
	attempted []string
	failOn    map[string]bool
}

func (m *mockSender) SendChannelMessage(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempted = append(m.attempted, text)
	if m.failOn[text] {
		return errors.New("send failed")
	}
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockSender) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.sent))
	copy(cp, m.sent)
	return cp
}

func (m *mockSender) Attempted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.attempted))
	copy(cp, m.attempted)
	return cp
}

// mockStatus records presence pushes.
type mockStatus struct {
	mu       sync.Mutex
	statuses []string
	err      error
}

func (m *mockStatus) UpdateStatus(_ context.Context, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockStatus) Statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.statuses))
	copy(cp, m.statuses)
	return cp
}

// mockWebhookSender records executed envelopes in place of a live webhook.
type mockWebhookSender struct {
	mu        sync.Mutex
	envelopes []WebhookEnvelope
}

func (m *mockWebhookSender) ExecuteAsync(_ context.Context, env WebhookEnvelope) <-chan error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envelopes = append(m.envelopes, env)
	result := make(chan error, 1)
	result <- nil
	return result
}

func (m *mockWebhookSender) Envelopes() []WebhookEnvelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]WebhookEnvelope, len(m.envelopes))
	copy(cp, m.envelopes)
	return cp
}

// mockHost records broadcasts and replies and serves a fixed player roster.
type mockHost struct {
	mu         sync.Mutex
	broadcasts []string
	replies    []hostReply
	players    []Player
}

type hostReply struct {
	LocalID string
	Text    string
}

func (m *mockHost) Broadcast(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, text)
	return nil
}

func (m *mockHost) Reply(_ context.Context, localID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, hostReply{LocalID: localID, Text: text})
	return nil
}

func (m *mockHost) Players() []Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Player, len(m.players))
	copy(cp, m.players)
	return cp
}

func (m *mockHost) OnlineName(localID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.players {
		if p.ID == localID {
			return p.Name, true
		}
	}
	return "", false
}

func (m *mockHost) Broadcasts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.broadcasts))
	copy(cp, m.broadcasts)
	return cp
}

func (m *mockHost) Replies() []hostReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]hostReply, len(m.replies))
	copy(cp, m.replies)
	return cp
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := LoadStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("LoadStore: %v", err)
	}
	return store
}

func testConfig(t *testing.T, webhookURL string) *Config {
	t.Helper()
	cfg := &Config{
		WebhookURL:   webhookURL,
		ChannelID:    "chan1",
		BotToken:     "token",
		StatusLabel:  "TestMC",
		StateFile:    filepath.Join(t.TempDir(), "state.json"),
		Announcement: "",
	}
	cfg.applyDefaults()
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	return cfg
}

// testFixture bundles a bridge with all its mocked collaborators.
type testFixture struct {
	bridge  *Bridge
	store   *Store
	host    *mockHost
	sender  *mockSender
	status  *mockStatus
	webhook *webhookRecorder
}

// webhookRecorder is an httptest server capturing webhook envelope posts.
type webhookRecorder struct {
	Server *httptest.Server

	mu     sync.Mutex
	bodies []string
	code   int
}

func newWebhookRecorder(t *testing.T) *webhookRecorder {
	t.Helper()
	rec := &webhookRecorder{code: http.StatusNoContent}
	rec.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, string(body))
		code := rec.code
		rec.mu.Unlock()
		w.WriteHeader(code)
	}))
	t.Cleanup(rec.Server.Close)
	return rec
}

func (r *webhookRecorder) Bodies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]string, len(r.bodies))
	copy(cp, r.bodies)
	return cp
}

func (r *webhookRecorder) SetStatusCode(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	rec := newWebhookRecorder(t)
	cfg := testConfig(t, rec.Server.URL)
	store := newTestStore(t)
	host := &mockHost{}
	sender := &mockSender{}
	status := &mockStatus{}
	webhook := NewWebhookClient(rec.Server.URL, zerolog.Nop())
	b := New(cfg, store, host, sender, status, webhook, zerolog.Nop())
	return &testFixture{
		bridge:  b,
		store:   store,
		host:    host,
		sender:  sender,
		status:  status,
		webhook: rec,
	}
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
