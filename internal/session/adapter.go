package session

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/packet"
)

var (
	ErrMissingID        = errors.New("session: id required")
	ErrMissingOwner     = errors.New("session: owner required")
	ErrMissingTransport = errors.New("session: transport required")
)

const (
	outcomeIntercepted = "intercepted"
	outcomeSent        = "sent"
)

type Config struct {
	ID        string
	Owner     Owner
	Transport Transport

	// Optional collaborators. Nil values fall back to no-ops, except
	// Decoder which defaults to the packet codec.
	Interceptor Interceptor
	Decoder     Decoder
	Broadcaster Broadcaster
	Diagnostics Diagnostics
	Timings     Timings
	Recorder    Recorder
}

// Adapter routes the messages of one client session. HandleInbound calls are
// serialized by the host. SendOutbound and ServerDisconnect may be called
// from other sessions' goroutines when the collaborators are safe for
// concurrent use.
type Adapter struct {
	id          string
	owner       Owner
	transport   Transport
	interceptor Interceptor
	decoder     Decoder
	broadcaster Broadcaster
	diag        Diagnostics
	timings     Timings
	recorder    Recorder
}

func New(cfg Config) (*Adapter, error) {
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		return nil, ErrMissingID
	}
	if cfg.Owner == nil {
		return nil, ErrMissingOwner
	}
	if cfg.Transport == nil {
		return nil, ErrMissingTransport
	}
	a := &Adapter{
		id:          id,
		owner:       cfg.Owner,
		transport:   cfg.Transport,
		interceptor: cfg.Interceptor,
		decoder:     cfg.Decoder,
		broadcaster: cfg.Broadcaster,
		diag:        cfg.Diagnostics,
		timings:     cfg.Timings,
		recorder:    cfg.Recorder,
	}
	if a.interceptor == nil {
		a.interceptor = noopInterceptor{}
	}
	if a.decoder == nil {
		a.decoder = packet.Codec{}
	}
	if a.broadcaster == nil {
		a.broadcaster = noopBroadcaster{}
	}
	if a.diag == nil {
		a.diag = noopDiagnostics{}
	}
	if a.timings == nil {
		a.timings = noopTimings{}
	}
	if a.recorder == nil {
		a.recorder = noopRecorder{}
	}
	return a, nil
}

func (a *Adapter) ID() string {
	return a.id
}

func (a *Adapter) Owner() Owner {
	return a.owner
}

// TimingKey names the timing scope for one message, e.g. "receive:TextPacket".
func TimingKey(dir protocol.Direction, kind protocol.MessageKind) string {
	return dir.String() + ":" + kind.String()
}

// timed starts the scope for dir and kind and returns its release.
func (a *Adapter) timed(dir protocol.Direction, kind protocol.MessageKind) func() {
	key := TimingKey(dir, kind)
	a.timings.Start(key)
	return func() { a.timings.Stop(key) }
}

// HandleInbound decodes, intercepts and dispatches one received message.
// Anomalies are reported to Diagnostics; nothing is returned to the host.
func (a *Adapter) HandleInbound(env *protocol.Envelope) {
	defer a.timed(protocol.Inbound, env.Kind)()

	if err := a.decoder.Decode(env); err != nil {
		a.diag.Debug(fmt.Sprintf("Failed to decode %s from %s: %v", env.Kind, a.owner.Name(), err))
		return
	}
	if !env.Feof() && !env.MayHaveUnreadBytes() {
		remains := env.Remaining()
		a.diag.Debug(fmt.Sprintf("Still %d bytes unread in %s: 0x%s",
			len(remains), env.Kind, hex.EncodeToString(remains)))
	}

	if a.interceptor.Intercept(protocol.Inbound, a.id, env) {
		a.recorder.RecordOutcome(protocol.Inbound, env.Kind, outcomeIntercepted)
		return
	}
	out := a.Dispatch(env)
	a.recorder.RecordOutcome(protocol.Inbound, env.Kind, out.String())
	if out == Unconsumed {
		a.diag.Debug(fmt.Sprintf("Unhandled %s received from %s (session %s): 0x%s",
			env.Kind, a.owner.Name(), a.id, hex.EncodeToString(env.Payload)))
	}
}

// Dispatch runs the handler table entry for env's kind. A kind outside the
// enumeration is a programming error and panics.
func (a *Adapter) Dispatch(env *protocol.Envelope) Outcome {
	if !env.Kind.Valid() {
		panic(fmt.Sprintf("session: dispatch of unknown kind %s", env.Kind))
	}
	r := handlers[env.Kind]
	switch r.policy {
	case AlwaysConsumed:
		return Consumed
	case AlwaysUnconsumed:
		return Unconsumed
	case FixedCancelled:
		return Cancelled
	default:
		return r.fn(a, env)
	}
}

// SendOutbound hands env to the transport unless an observer cancels it.
// The result reports interception only, not delivery.
func (a *Adapter) SendOutbound(env *protocol.Envelope, immediate bool) bool {
	defer a.timed(protocol.Outbound, env.Kind)()

	if a.interceptor.Intercept(protocol.Outbound, a.id, env) {
		a.recorder.RecordOutcome(protocol.Outbound, env.Kind, outcomeIntercepted)
		return false
	}
	a.transport.Put(a.id, env, false, immediate)
	a.recorder.RecordOutcome(protocol.Outbound, env.Kind, outcomeSent)
	return true
}

// ServerDisconnect ends the session. With notify set, a Disconnect notice
// carrying reason is sent first and flushed immediately; an empty reason
// hides the disconnection screen. The transport is closed either way.
func (a *Adapter) ServerDisconnect(reason string, notify bool) {
	closeReason := ""
	if notify {
		a.SendOutbound(packet.NewEnvelope(&packet.Disconnect{
			HideDisconnectionScreen: reason == "",
			Message:                 reason,
		}), true)
		closeReason = reason
	}
	a.transport.Close(a.id, closeReason)
}
