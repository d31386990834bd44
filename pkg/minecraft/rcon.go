// Copyright 2024-2026 Aiku AI

package minecraft

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Source RCON packet types.
const (
	rconTypeResponse = 0
	rconTypeCommand  = 2
	rconTypeAuth     = 3
)

// rconTimeout bounds dialing and each request/response round trip.
const rconTimeout = 30 * time.Second

// maxRCONPayload is the largest packet payload the server may send
// (4096 body bytes plus the two ID/type fields and two terminators).
const maxRCONPayload = 4110

// ErrRCONAuth indicates the server rejected the configured RCON password.
var ErrRCONAuth = errors.New("rcon authentication rejected")

// RCONClient executes commands against a Minecraft server over the Source
// RCON protocol. Requests are serialized; a failed round trip drops the
// connection and the next call reconnects.
type RCONClient struct {
	addr     string
	password string
	log      zerolog.Logger

	mu     sync.Mutex
	conn   net.Conn
	nextID int32
}

// NewRCONClient creates a client for the given address. No connection is
// made until the first Exec call.
func NewRCONClient(addr, password string, log zerolog.Logger) *RCONClient {
	return &RCONClient{
		addr:     addr,
		password: password,
		log:      log.With().Str("component", "rcon").Logger(),
	}
}

// Exec runs one command and returns the server's response body.
func (r *RCONClient) Exec(ctx context.Context, command string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		if err := r.connectLocked(ctx); err != nil {
			return "", err
		}
	}
	body, err := r.roundTripLocked(rconTypeCommand, command)
	if err != nil {
		r.closeLocked()
		return "", fmt.Errorf("rcon exec: %w", err)
	}
	return body, nil
}

// Close drops the connection if one is open.
func (r *RCONClient) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
}

func (r *RCONClient) closeLocked() {
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

func (r *RCONClient) connectLocked(ctx context.Context) error {
	dialer := net.Dialer{Timeout: rconTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return fmt.Errorf("rcon dial %s: %w", r.addr, err)
	}
	r.conn = conn
	_, respID, _, err := r.exchangeLocked(rconTypeAuth, r.password)
	if err != nil {
		r.closeLocked()
		return fmt.Errorf("rcon auth: %w", err)
	}
	// The server answers a rejected password with response ID -1.
	if respID == -1 {
		r.closeLocked()
		return ErrRCONAuth
	}
	r.log.Info().Str("addr", r.addr).Msg("RCON connected")
	return nil
}

func (r *RCONClient) roundTripLocked(typ int32, body string) (string, error) {
	sentID, respID, respBody, err := r.exchangeLocked(typ, body)
	if err != nil {
		return "", err
	}
	if respID != sentID {
		return "", fmt.Errorf("response id %d does not match request id %d", respID, sentID)
	}
	return respBody, nil
}

// exchangeLocked writes one packet and reads one response packet, with a
// deadline covering the whole round trip.
func (r *RCONClient) exchangeLocked(typ int32, body string) (sentID, respID int32, respBody string, err error) {
	r.nextID++
	sentID = r.nextID
	if err = r.conn.SetDeadline(time.Now().Add(rconTimeout)); err != nil {
		return
	}
	if err = writeRCONPacket(r.conn, sentID, typ, body); err != nil {
		return
	}
	respID, _, respBody, err = readRCONPacket(r.conn)
	return
}

func writeRCONPacket(w io.Writer, id, typ int32, body string) error {
	// length field + id + type + body + two NUL terminators.
	buf := make([]byte, 14+len(body))
	binary.LittleEndian.PutUint32(buf[0:], uint32(10+len(body)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(id))
	binary.LittleEndian.PutUint32(buf[8:], uint32(typ))
	copy(buf[12:], body)
	_, err := w.Write(buf)
	return err
}

func readRCONPacket(r io.Reader) (id, typ int32, body string, err error) {
	var lengthBuf [4]byte
	if _, err = io.ReadFull(r, lengthBuf[:]); err != nil {
		return
	}
	length := int32(binary.LittleEndian.Uint32(lengthBuf[:]))
	if length < 10 || length > maxRCONPayload {
		err = fmt.Errorf("invalid packet length %d", length)
		return
	}
	payload := make([]byte, length)
	if _, err = io.ReadFull(r, payload); err != nil {
		return
	}
	id = int32(binary.LittleEndian.Uint32(payload[0:]))
	typ = int32(binary.LittleEndian.Uint32(payload[4:]))
	body = string(payload[8 : length-2])
	return
}
