// Copyright 2024-2026 Aiku AI

package minecraft

import (
	"bufio"
	"context"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aiku/mc-discord-bridge/pkg/bridge"
)

// Log line patterns for a vanilla Java server. The outer pattern strips the
// "[HH:MM:SS] [Server thread/INFO]:" prefix; the rest match the message body.
var (
	logLineRegex     = regexp.MustCompile(`^\[[^\]]*\] \[[^\]]*\]: (.*)$`)
	uuidRegex        = regexp.MustCompile(`^UUID of player (\S+) is ([0-9a-fA-F-]{36})$`)
	joinRegex        = regexp.MustCompile(`^(\S+) joined the game$`)
	leaveRegex       = regexp.MustCompile(`^(\S+) left the game$`)
	chatRegex        = regexp.MustCompile(`^<(\S+)> (.*)$`)
	commandRegex     = regexp.MustCompile(`^(\S+) issued server command: (/(?:dclink|players|uptime)\b.*)$`)
	advancementRegex = regexp.MustCompile(`^(\S+) has made the advancement \[(.+)\]$`)
	startedRegex     = regexp.MustCompile(`^Done \([^)]+\)!`)
	stoppingRegex    = regexp.MustCompile(`^Stopping (the )?server$`)
)

// deathPhrases are the vanilla death message fragments recognized when a
// line starts with an online player's name.
var deathPhrases = []string{
	"was slain by", "was shot by", "was killed by", "was blown up by",
	"was fireballed by", "was pummeled by", "was squashed by",
	"was struck by lightning", "was pricked to death", "was stung to death",
	"was poked to death", "was impaled", "was skewered by", "was doomed to fall",
	"blew up", "drowned", "suffocated in a wall", "starved to death",
	"froze to death", "burned to death", "went up in flames",
	"tried to swim in lava", "discovered the floor was lava",
	"walked into fire", "fell from a high place", "fell off", "fell out of the world",
	"hit the ground too hard", "experienced kinetic energy", "withered away",
	"went off with a bang", "left the confines of this world",
}

// Watcher follows the Minecraft server log, parses lines into host events,
// and maintains the roster of online players (UUID and name) that serves the
// live player queries.
type Watcher struct {
	path     string
	interval time.Duration
	log      zerolog.Logger

	mu           sync.Mutex
	events       bridge.HostEvents
	online       map[string]bridge.Player // keyed by UUID
	byName       map[string]string        // name to UUID
	pendingUUIDs map[string]string        // UUID announced before the join line
}

// NewWatcher creates a watcher for the given log file. Subscribe must be
// called before Run for events to be dispatched.
func NewWatcher(path string, log zerolog.Logger) *Watcher {
	return &Watcher{
		path:         path,
		interval:     500 * time.Millisecond,
		log:          log.With().Str("component", "logwatch").Logger(),
		online:       make(map[string]bridge.Player),
		byName:       make(map[string]string),
		pendingUUIDs: make(map[string]string),
	}
}

// Subscribe registers the handler that receives parsed host events.
func (w *Watcher) Subscribe(events bridge.HostEvents) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = events
}

func (w *Watcher) handler() bridge.HostEvents {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events
}

// Players returns the currently connected players, sorted by name.
func (w *Watcher) Players() []bridge.Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	players := make([]bridge.Player, 0, len(w.online))
	for _, p := range w.online {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })
	return players
}

// OnlineName returns the in-game name for a connected player UUID.
func (w *Watcher) OnlineName(localID string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.online[localID]
	if !ok {
		return "", false
	}
	return p.Name, true
}

// Run follows the log file until ctx is cancelled. The first open seeks to
// the end so historical lines are not replayed; after rotation or truncation
// the new file is read from the start.
func (w *Watcher) Run(ctx context.Context) {
	fromEnd := true
	for {
		file, err := os.Open(w.path)
		if err != nil {
			w.log.Debug().Err(err).Msg("Log file not available, retrying")
			if !w.sleep(ctx) {
				return
			}
			continue
		}
		if fromEnd {
			_, _ = file.Seek(0, io.SeekEnd)
			fromEnd = false
		}
		done := w.follow(ctx, file)
		_ = file.Close()
		if done {
			return
		}
		w.log.Info().Str("path", w.path).Msg("Log file rotated, reopening")
	}
}

// follow reads lines until ctx is cancelled (returns true) or the file is
// rotated away (returns false).
func (w *Watcher) follow(ctx context.Context, file *os.File) bool {
	reader := bufio.NewReader(file)
	var partial strings.Builder
	var pos int64
	pos, _ = file.Seek(0, io.SeekCurrent)
	for {
		chunk, err := reader.ReadString('\n')
		pos += int64(len(chunk))
		partial.WriteString(chunk)
		if err == nil {
			w.handleLine(strings.TrimRight(partial.String(), "\r\n"))
			partial.Reset()
			continue
		}
		if !w.sleep(ctx) {
			return true
		}
		info, statErr := os.Stat(w.path)
		if statErr != nil || info.Size() < pos {
			return false
		}
	}
}

func (w *Watcher) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(w.interval):
		return true
	}
}

// handleLine classifies one raw log line and dispatches the matching host
// event. Lines that match nothing are ignored.
func (w *Watcher) handleLine(raw string) {
	m := logLineRegex.FindStringSubmatch(raw)
	if m == nil {
		return
	}
	msg := m[1]
	events := w.handler()
	if events == nil {
		return
	}

	if sub := uuidRegex.FindStringSubmatch(msg); sub != nil {
		w.mu.Lock()
		w.pendingUUIDs[sub[1]] = sub[2]
		w.mu.Unlock()
		return
	}
	if sub := joinRegex.FindStringSubmatch(msg); sub != nil {
		events.PlayerJoined(w.addPlayer(sub[1]))
		return
	}
	if sub := leaveRegex.FindStringSubmatch(msg); sub != nil {
		events.PlayerLeft(w.removePlayer(sub[1]))
		return
	}
	// 1.19+ prefixes unsigned chat with "[Not Secure]".
	chatLine := strings.TrimPrefix(msg, "[Not Secure] ")
	if sub := chatRegex.FindStringSubmatch(chatLine); sub != nil {
		events.PlayerChat(w.lookupPlayer(sub[1]), sub[2])
		return
	}
	// Clients never put slash commands in chat; they reach the log as
	// "issued server command" lines. Only the bridge's own commands are
	// relayed, everything else stays server-side.
	if sub := commandRegex.FindStringSubmatch(msg); sub != nil {
		events.PlayerChat(w.lookupPlayer(sub[1]), sub[2])
		return
	}
	if sub := advancementRegex.FindStringSubmatch(msg); sub != nil {
		events.PlayerAdvancement(w.lookupPlayer(sub[1]), sub[2])
		return
	}
	if startedRegex.MatchString(msg) {
		events.ServerStarted()
		return
	}
	if stoppingRegex.MatchString(msg) {
		events.ServerStopping()
		return
	}
	if w.isDeathMessage(msg) {
		events.PlayerDied(msg)
	}
}

// addPlayer moves a pending UUID announcement into the online roster. When
// no UUID was announced (offline-mode servers) the name doubles as the ID.
func (w *Watcher) addPlayer(name string) bridge.Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.pendingUUIDs[name]
	if !ok {
		id = name
	}
	delete(w.pendingUUIDs, name)
	p := bridge.Player{ID: id, Name: name}
	w.online[id] = p
	w.byName[name] = id
	return p
}

func (w *Watcher) removePlayer(name string) bridge.Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.byName[name]
	if !ok {
		// Leave without a tracked join; relay it with the name as ID.
		return bridge.Player{ID: name, Name: name}
	}
	p := w.online[id]
	delete(w.online, id)
	delete(w.byName, name)
	return p
}

func (w *Watcher) lookupPlayer(name string) bridge.Player {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.byName[name]; ok {
		return w.online[id]
	}
	return bridge.Player{ID: name, Name: name}
}

// isDeathMessage reports whether the line is a death message for a currently
// online player.
func (w *Watcher) isDeathMessage(msg string) bool {
	name, rest, ok := strings.Cut(msg, " ")
	if !ok {
		return false
	}
	w.mu.Lock()
	_, online := w.byName[name]
	w.mu.Unlock()
	if !online {
		return false
	}
	for _, phrase := range deathPhrases {
		if strings.HasPrefix(rest, phrase) {
			return true
		}
	}
	return false
}
