// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultQueueLimit bounds the outbound queue. When the limit is reached the
// oldest entry is dropped to make room, so a sustained Discord outage cannot
// grow the queue without bound.
const DefaultQueueLimit = 1000

// Queue is a FIFO of outbound message payloads. Push is non-blocking and safe
// for concurrent producers; the dispatcher is the single consumer.
type Queue struct {
	log zerolog.Logger

	mu      sync.Mutex
	entries []string
	limit   int
}

// NewQueue creates a queue holding at most limit entries. A limit of zero or
// less uses DefaultQueueLimit.
func NewQueue(limit int, log zerolog.Logger) *Queue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &Queue{
		log:   log.With().Str("component", "outbound_queue").Logger(),
		limit: limit,
	}
}

// Push appends a payload to the queue, evicting the oldest entry if the
// queue is full.
func (q *Queue) Push(text string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.limit {
		q.log.Warn().Str("dropped", q.entries[0]).Msg("Outbound queue full, dropping oldest entry")
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, text)
}

// Len reports the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// drain removes and returns all queued entries in FIFO order.
func (q *Queue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries := q.entries
	q.entries = nil
	return entries
}

// Dispatcher is the single background consumer of the outbound queue. Each
// tick it drains the whole queue in FIFO order, sending entries one at a time
// with a fixed pacing delay between sends to respect Discord rate limits.
// A failed send is logged and dropped; delivery is at-most-once.
type Dispatcher struct {
	queue  *Queue
	sender RemoteSender
	tick   time.Duration
	pace   time.Duration
	log    zerolog.Logger
}

// NewDispatcher creates a dispatcher with the reference 1-second tick and
// 1-second inter-message pacing.
func NewDispatcher(queue *Queue, sender RemoteSender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:  queue,
		sender: sender,
		tick:   time.Second,
		pace:   time.Second,
		log:    log.With().Str("component", "dispatcher").Logger(),
	}
}

// Run drives the dispatch loop until ctx is cancelled. It is the only
// goroutine that consumes the queue.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()
	d.log.Info().Dur("tick", d.tick).Dur("pace", d.pace).Msg("Dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Int("queued", d.queue.Len()).Msg("Dispatcher stopped")
			return
		case <-ticker.C:
			d.drainOnce(ctx)
		}
	}
}

// drainOnce delivers everything queued at the start of the tick. Entries
// pushed while draining wait for the next tick.
func (d *Dispatcher) drainOnce(ctx context.Context) {
	for _, text := range d.queue.drain() {
		if err := d.sender.SendChannelMessage(ctx, text); err != nil {
			d.log.Error().Err(err).Str("payload", text).Msg("Failed to deliver outbound message")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.pace):
		}
	}
}
