package events

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyName     = errors.New("events: observer name required")
	ErrNilObserver   = errors.New("events: observer required")
	ErrDuplicateName = errors.New("events: observer already registered")
)

// Event is one message passing through the pipeline. Observers may edit the
// envelope body; Kind is fixed.
type Event struct {
	Direction protocol.Direction
	SessionID string
	Envelope  *protocol.Envelope

	cancelled bool
}

func (e *Event) Cancel() {
	e.cancelled = true
}

func (e *Event) Cancelled() bool {
	return e.cancelled
}

type Observer interface {
	Observe(ev *Event)
}

type ObserverFunc func(ev *Event)

func (f ObserverFunc) Observe(ev *Event) {
	f(ev)
}

type entry struct {
	name     string
	observer Observer
	passive  bool
}

// Bus runs registered observers synchronously, in registration order.
type Bus struct {
	mu      sync.RWMutex
	entries []entry
}

func NewBus() *Bus {
	return &Bus{}
}

// Register adds an observer that may cancel events.
func (b *Bus) Register(name string, o Observer) error {
	return b.add(name, o, false)
}

// RegisterPassive adds an observer whose cancel requests are ignored.
func (b *Bus) RegisterPassive(name string, o Observer) error {
	return b.add(name, o, true)
}

func (b *Bus) add(name string, o Observer, passive bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if o == nil {
		return ErrNilObserver
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
	}
	b.entries = append(b.entries, entry{name: name, observer: o, passive: passive})
	log.Debug().Str("observer", name).Bool("passive", passive).Msg("events.Register")
	return nil
}

func (b *Bus) Unregister(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.name == name {
			b.entries = append(b.entries[:i:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Names lists observers in dispatch order.
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.name)
	}
	return out
}

// Intercept delivers env to each observer until one cancels it and reports
// whether it was cancelled. Observers registered later see nothing once an
// earlier one cancels.
func (b *Bus) Intercept(dir protocol.Direction, sessionID string, env *protocol.Envelope) bool {
	b.mu.RLock()
	entries := b.entries
	b.mu.RUnlock()

	ev := &Event{Direction: dir, SessionID: sessionID, Envelope: env}
	for _, e := range entries {
		e.observer.Observe(ev)
		if !ev.cancelled {
			continue
		}
		if e.passive {
			ev.cancelled = false
			continue
		}
		log.Debug().
			Str("observer", e.name).
			Str("session", sessionID).
			Str("direction", dir.String()).
			Str("kind", env.Kind.String()).
			Msg("events.Intercept cancelled")
		return true
	}
	return false
}
