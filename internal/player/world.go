package player

import (
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/playernet/internal/protocol/packet"
)

// World is the set of players connected to one server.
type World struct {
	mu      sync.RWMutex
	players map[string]*Player

	// loginMu serializes name claims so one name is online at most once.
	loginMu sync.Mutex
}

func NewWorld() *World {
	return &World{players: make(map[string]*Player)}
}

func (w *World) add(p *Player) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players[p.id] = p
}

// Remove drops the player with the given session id.
func (w *World) Remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.players, id)
}

func (w *World) Get(id string) (*Player, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.players[id]
	return p, ok
}

// Players returns every connected player ordered by session id.
func (w *World) Players() []*Player {
	w.mu.RLock()
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Online returns the logged-in players ordered by session id.
func (w *World) Online() []*Player {
	all := w.Players()
	out := all[:0]
	for _, p := range all {
		if p.LoggedIn() {
			out = append(out, p)
		}
	}
	return out
}

// ByName finds a logged-in player by username, ignoring case.
func (w *World) ByName(name string) (*Player, bool) {
	for _, p := range w.Online() {
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

// claimName logs p in as name. A different player already online under the
// name is taken offline in the same step and returned so the caller can kick
// it without holding the lock.
func (w *World) claimName(p *Player, name string, login func()) *Player {
	w.loginMu.Lock()
	defer w.loginMu.Unlock()
	existing, ok := w.ByName(name)
	if ok && existing.id == p.id {
		existing = nil
	}
	if existing != nil {
		existing.mu.Lock()
		existing.loggedIn = false
		existing.mu.Unlock()
	}
	login()
	return existing
}

// Broadcast sends body to every online player except the given session id
// and returns how many accepted it.
func (w *World) Broadcast(body packet.Body, except string) int {
	sent := 0
	for _, p := range w.Online() {
		if p.id == except {
			continue
		}
		if p.Send(body, false) {
			sent++
		}
	}
	return sent
}
