// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import "testing"

func TestHostEvents_JoinAndLeaveRelayAndPresence(t *testing.T) {
	t.Parallel()
	f := newTestFixture(t)

	f.bridge.PlayerJoined(Player{ID: "uuid-1", Name: "Steve"})
	f.bridge.PlayerJoined(Player{ID: "uuid-2", Name: "Alex"})
	f.bridge.PlayerLeft(Player{ID: "uuid-1", Name: "Steve"})

	got := f.bridge.queue.drain()
	want := []string{"Steve joined the game", "Alex joined the game", "Steve left the game"}
	if len(got) != len(want) {
		t.Fatalf("queued: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("queued[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
	if f.bridge.presence.Count() != 1 {
		t.Errorf("presence count: got %d, want 1", f.bridge.presence.Count())
	}
	statuses := f.status.Statuses()
	if len(statuses) != 3 || statuses[len(statuses)-1] != "#1 playing TestMC" {
		t.Errorf("statuses: got %v", statuses)
	}
}

func TestHostEvents_DeathAndAdvancement(t *testing.T) {
	t.Parallel()
	f := newTestFixture(t)

	f.bridge.PlayerDied("Steve was slain by Zombie")
	f.bridge.PlayerAdvancement(Player{ID: "uuid-1", Name: "Steve"}, "Stone Age")

	got := f.bridge.queue.drain()
	if len(got) != 2 {
		t.Fatalf("queued: got %v", got)
	}
	if got[0] != "Steve was slain by Zombie" {
		t.Errorf("death relay: got %q", got[0])
	}
	if got[1] != "Steve has made the advancement [Stone Age]" {
		t.Errorf("advancement relay: got %q", got[1])
	}
}

func TestHostEvents_StartupAnnouncement(t *testing.T) {
	t.Parallel()
	f := newTestFixture(t)
	f.bridge.cfg.Announcement = "The server is live!"

	f.bridge.ServerStarted()
	f.bridge.ServerStopping()

	got := f.bridge.queue.drain()
	if len(got) != 2 {
		t.Fatalf("queued: got %v", got)
	}
	if got[0] != "The server is live!" {
		t.Errorf("announcement: got %q", got[0])
	}
	if got[1] != "Server is shutting down..." {
		t.Errorf("shutdown notice: got %q", got[1])
	}
}

func TestHostEvents_EmptyAnnouncementSkipped(t *testing.T) {
	t.Parallel()
	f := newTestFixture(t)
	f.bridge.ServerStarted()
	if got := f.bridge.queue.Len(); got != 0 {
		t.Errorf("empty announcement must queue nothing, got %d entries", got)
	}
}
