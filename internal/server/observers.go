package server

import (
	"strings"

	"github.com/danmuck/playernet/internal/config"
	"github.com/danmuck/playernet/internal/events"
	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/packet"
	"github.com/rs/zerolog/log"
)

const (
	ObserverPacketLog  = "packet-log"
	ObserverChatFilter = "chat-filter"
	ObserverKindFilter = "kind-filter"
)

func installObservers(bus *events.Bus, cfg config.ServerConfig) error {
	if cfg.Observers.LogPackets {
		if err := bus.RegisterPassive(ObserverPacketLog, packetLogger()); err != nil {
			return err
		}
	}
	if kinds := cfg.DropKinds(); len(kinds) > 0 {
		if err := bus.Register(ObserverKindFilter, kindFilter(kinds)); err != nil {
			return err
		}
	}
	if words := normalizeWords(cfg.Observers.BlockedWords); len(words) > 0 {
		if err := bus.Register(ObserverChatFilter, chatFilter(words)); err != nil {
			return err
		}
	}
	return nil
}

func packetLogger() events.Observer {
	return events.ObserverFunc(func(ev *events.Event) {
		log.Info().
			Str("session", ev.SessionID).
			Str("direction", ev.Direction.String()).
			Str("kind", ev.Envelope.Kind.String()).
			Int("bytes", len(ev.Envelope.Payload)).
			Msg("packet")
	})
}

// kindFilter cancels every message whose kind is listed.
func kindFilter(kinds []protocol.MessageKind) events.Observer {
	var drop [protocol.KindCount]bool
	for _, k := range kinds {
		if k.Valid() {
			drop[k] = true
		}
	}
	return events.ObserverFunc(func(ev *events.Event) {
		if k := ev.Envelope.Kind; k.Valid() && drop[k] {
			ev.Cancel()
		}
	})
}

// chatFilter cancels inbound chat lines containing a blocked word.
func chatFilter(words []string) events.Observer {
	return events.ObserverFunc(func(ev *events.Event) {
		if ev.Direction != protocol.Inbound || ev.Envelope.Kind != protocol.KindText {
			return
		}
		text, ok := ev.Envelope.Body.(*packet.Text)
		if !ok || text.Type != packet.TextTypeChat {
			return
		}
		msg := strings.ToLower(text.Message)
		for _, w := range words {
			if strings.Contains(msg, w) {
				log.Info().Str("session", ev.SessionID).Str("word", w).Msg("chat blocked")
				ev.Cancel()
				return
			}
		}
	})
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
