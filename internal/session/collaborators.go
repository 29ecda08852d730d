package session

import (
	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/packet"
)

// Transport delivers messages for a session and owns its channel.
// Put and Close must not block on network I/O.
type Transport interface {
	Put(sessionID string, env *protocol.Envelope, skipInterception, immediate bool)
	Close(sessionID string, reason string)
}

// Interceptor reports whether an observer cancelled the message.
type Interceptor interface {
	Intercept(dir protocol.Direction, sessionID string, env *protocol.Envelope) bool
}

// Decoder fills env.Body from env.Payload, moving the read cursor.
type Decoder interface {
	Decode(env *protocol.Envelope) error
}

// Diagnostics receives advisory messages. It never affects control flow.
type Diagnostics interface {
	Debug(msg string)
}

// Timings measures scopes keyed by direction and kind. Every Start is
// matched by one Stop with the same key.
type Timings interface {
	Start(key string)
	Stop(key string)
}

// Broadcaster fans a message out to other sessions.
type Broadcaster interface {
	Broadcast(sessionIDs []string, env *protocol.Envelope)
}

// Recorder counts per-message results. Outcome labels are the Outcome
// names plus "intercepted" and "sent".
type Recorder interface {
	RecordOutcome(dir protocol.Direction, kind protocol.MessageKind, outcome string)
}

// Owner is the domain entity behind a session, usually a connected player.
// Each Handle method reports whether the message was accepted.
type Owner interface {
	Name() string
	// Viewers lists the session ids currently observing this owner.
	Viewers() []string

	HandleLogin(*packet.Login) bool
	HandleResourcePackClientResponse(*packet.Generic) bool
	Chat(message string) bool
	HandleMoveEntityAbsolute(*packet.Generic) bool
	HandleMovePlayer(*packet.Generic) bool
	HandleLevelSoundEvent(*packet.Generic) bool
	HandleEntityEvent(*packet.Generic) bool
	HandleInventoryTransaction(*packet.Generic) bool
	HandleMobEquipment(*packet.Generic) bool
	HandleInteract(*packet.Generic) bool
	HandleBlockPickRequest(*packet.Generic) bool
	HandlePlayerAction(*packet.Generic) bool
	HandleAnimate(*packet.Generic) bool
	HandleContainerClose(*packet.Generic) bool
	HandleAdventureSettings(*packet.Generic) bool
	HandleBlockEntityData(*packet.Generic) bool
	HandlePlayerInput(*packet.Generic) bool
	HandleSetPlayerGameType(*packet.Generic) bool
	HandleItemFrameDropItem(*packet.Generic) bool
	HandleCommandRequest(*packet.CommandRequest) bool
	HandleResourcePackChunkRequest(*packet.Generic) bool
	ChangeSkin(skin packet.Skin, newSkinName, oldSkinName string) bool
	HandleBookEdit(*packet.Generic) bool
	// OnFormSubmit receives the JSON-decoded response, nil when the client
	// closed the form or sent malformed data.
	OnFormSubmit(formID uint32, data any) bool

	SetViewDistance(radius int)
	// ServerSettingsForm returns nil when no settings form is offered.
	ServerSettingsForm() *packet.ServerSettingsResponse
	SendServerSettings(form *packet.ServerSettingsResponse)
}

type noopInterceptor struct{}

func (noopInterceptor) Intercept(protocol.Direction, string, *protocol.Envelope) bool { return false }

type noopDiagnostics struct{}

func (noopDiagnostics) Debug(string) {}

type noopTimings struct{}

func (noopTimings) Start(string) {}
func (noopTimings) Stop(string)  {}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast([]string, *protocol.Envelope) {}

type noopRecorder struct{}

func (noopRecorder) RecordOutcome(protocol.Direction, protocol.MessageKind, string) {}
