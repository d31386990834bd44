// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package minecraft

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"

	"github.com/rs/zerolog"
)

// fakeRCONServer accepts connections and speaks just enough Source RCON for
// the client: auth against a fixed password, then echoes commands back with
// an "ok:" prefix.
type fakeRCONServer struct {
	listener net.Listener
	password string
}

func newFakeRCONServer(t *testing.T, password string) *fakeRCONServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &fakeRCONServer{listener: listener, password: password}
	t.Cleanup(func() { _ = listener.Close() })
	go srv.serve()
	return srv
}

func (s *fakeRCONServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeRCONServer) handle(conn net.Conn) {
	defer conn.Close()
	for {
		id, typ, body, err := readRCONPacket(conn)
		if err != nil {
			return
		}
		switch typ {
		case rconTypeAuth:
			respID := id
			if body != s.password {
				respID = -1
			}
			if err := writeRCONPacket(conn, respID, 2, ""); err != nil {
				return
			}
		case rconTypeCommand:
			if err := writeRCONPacket(conn, id, rconTypeResponse, "ok:"+body); err != nil {
				return
			}
		}
	}
}

func (s *fakeRCONServer) addr() string {
	return s.listener.Addr().String()
}

func TestRCON_ExecRoundTrip(t *testing.T) {
	t.Parallel()
	srv := newFakeRCONServer(t, "hunter2")
	client := NewRCONClient(srv.addr(), "hunter2", zerolog.Nop())
	defer client.Close()

	got, err := client.Exec(context.Background(), "list")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if got != "ok:list" {
		t.Errorf("response: got %q, want %q", got, "ok:list")
	}

	// The connection is reused for further commands.
	got, err = client.Exec(context.Background(), "tellraw @a {}")
	if err != nil {
		t.Fatalf("second Exec: %v", err)
	}
	if got != "ok:tellraw @a {}" {
		t.Errorf("second response: got %q", got)
	}
}

func TestRCON_BadPassword(t *testing.T) {
	t.Parallel()
	srv := newFakeRCONServer(t, "hunter2")
	client := NewRCONClient(srv.addr(), "wrong", zerolog.Nop())
	defer client.Close()

	if _, err := client.Exec(context.Background(), "list"); !errors.Is(err, ErrRCONAuth) {
		t.Fatalf("Exec with bad password: got %v, want ErrRCONAuth", err)
	}
}

func TestRCON_Unreachable(t *testing.T) {
	t.Parallel()
	client := NewRCONClient("127.0.0.1:1", "pw", zerolog.Nop())
	if _, err := client.Exec(context.Background(), "list"); err == nil {
		t.Fatal("unreachable server must be an error")
	}
}

func TestRCONPacket_RoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := writeRCONPacket(&buf, 7, rconTypeCommand, "say hello"); err != nil {
		t.Fatal(err)
	}
	id, typ, body, err := readRCONPacket(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if id != 7 || typ != rconTypeCommand || body != "say hello" {
		t.Errorf("decoded (%d, %d, %q), want (7, %d, \"say hello\")", id, typ, body, rconTypeCommand)
	}
}

func TestRCONPacket_RejectsBogusLength(t *testing.T) {
	t.Parallel()
	buf := bytes.NewBuffer([]byte{0xff, 0xff, 0xff, 0x7f})
	if _, _, _, err := readRCONPacket(buf); err == nil {
		t.Fatal("oversized length must be an error")
	}
}

func TestTextComponent_EscapesQuotes(t *testing.T) {
	t.Parallel()
	got := textComponent(`say "hi"`)
	if got != `{"text":"say \"hi\""}` {
		t.Errorf("component: got %q", got)
	}
}
