package session

import (
	"fmt"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/packet"
)

// callLog is shared by fakes that need a global ordering of calls.
type callLog struct {
	entries []string
}

func (l *callLog) add(format string, args ...any) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

type fakeOwner struct {
	name    string
	accept  bool
	viewers []string
	log     *callLog

	chats        []string
	viewDistance int
	form         *packet.ServerSettingsResponse
	sentSettings []*packet.ServerSettingsResponse
	formData     []any
	panicOnChat  bool
}

func newFakeOwner(log *callLog) *fakeOwner {
	return &fakeOwner{name: "steve", accept: true, log: log}
}

func (o *fakeOwner) handle(name string) bool {
	o.log.add("owner:%s", name)
	return o.accept
}

func (o *fakeOwner) Name() string      { return o.name }
func (o *fakeOwner) Viewers() []string { return o.viewers }

func (o *fakeOwner) HandleLogin(*packet.Login) bool { return o.handle("Login") }
func (o *fakeOwner) HandleResourcePackClientResponse(*packet.Generic) bool {
	return o.handle("ResourcePackClientResponse")
}

func (o *fakeOwner) Chat(message string) bool {
	if o.panicOnChat {
		panic("chat failed")
	}
	o.chats = append(o.chats, message)
	return o.handle("Chat")
}

func (o *fakeOwner) HandleMoveEntityAbsolute(*packet.Generic) bool {
	return o.handle("MoveEntityAbsolute")
}
func (o *fakeOwner) HandleMovePlayer(*packet.Generic) bool      { return o.handle("MovePlayer") }
func (o *fakeOwner) HandleLevelSoundEvent(*packet.Generic) bool { return o.handle("LevelSoundEvent") }
func (o *fakeOwner) HandleEntityEvent(*packet.Generic) bool     { return o.handle("EntityEvent") }
func (o *fakeOwner) HandleInventoryTransaction(*packet.Generic) bool {
	return o.handle("InventoryTransaction")
}
func (o *fakeOwner) HandleMobEquipment(*packet.Generic) bool     { return o.handle("MobEquipment") }
func (o *fakeOwner) HandleInteract(*packet.Generic) bool         { return o.handle("Interact") }
func (o *fakeOwner) HandleBlockPickRequest(*packet.Generic) bool { return o.handle("BlockPickRequest") }
func (o *fakeOwner) HandlePlayerAction(*packet.Generic) bool     { return o.handle("PlayerAction") }
func (o *fakeOwner) HandleAnimate(*packet.Generic) bool          { return o.handle("Animate") }
func (o *fakeOwner) HandleContainerClose(*packet.Generic) bool   { return o.handle("ContainerClose") }
func (o *fakeOwner) HandleAdventureSettings(*packet.Generic) bool {
	return o.handle("AdventureSettings")
}
func (o *fakeOwner) HandleBlockEntityData(*packet.Generic) bool { return o.handle("BlockEntityData") }
func (o *fakeOwner) HandlePlayerInput(*packet.Generic) bool     { return o.handle("PlayerInput") }
func (o *fakeOwner) HandleSetPlayerGameType(*packet.Generic) bool {
	return o.handle("SetPlayerGameType")
}
func (o *fakeOwner) HandleItemFrameDropItem(*packet.Generic) bool {
	return o.handle("ItemFrameDropItem")
}
func (o *fakeOwner) HandleCommandRequest(*packet.CommandRequest) bool {
	return o.handle("CommandRequest")
}
func (o *fakeOwner) HandleResourcePackChunkRequest(*packet.Generic) bool {
	return o.handle("ResourcePackChunkRequest")
}

func (o *fakeOwner) ChangeSkin(packet.Skin, string, string) bool { return o.handle("ChangeSkin") }
func (o *fakeOwner) HandleBookEdit(*packet.Generic) bool         { return o.handle("BookEdit") }

func (o *fakeOwner) OnFormSubmit(formID uint32, data any) bool {
	o.formData = append(o.formData, data)
	return o.handle("OnFormSubmit")
}

func (o *fakeOwner) SetViewDistance(radius int) {
	o.log.add("owner:SetViewDistance")
	o.viewDistance = radius
}

func (o *fakeOwner) ServerSettingsForm() *packet.ServerSettingsResponse { return o.form }

func (o *fakeOwner) SendServerSettings(form *packet.ServerSettingsResponse) {
	o.log.add("owner:SendServerSettings")
	o.sentSettings = append(o.sentSettings, form)
}

type putCall struct {
	sessionID        string
	env              *protocol.Envelope
	skipInterception bool
	immediate        bool
}

type fakeTransport struct {
	log    *callLog
	puts   []putCall
	closes []string
}

func (t *fakeTransport) Put(sessionID string, env *protocol.Envelope, skipInterception, immediate bool) {
	t.log.add("put:%s", env.Kind)
	t.puts = append(t.puts, putCall{sessionID, env, skipInterception, immediate})
}

func (t *fakeTransport) Close(sessionID string, reason string) {
	t.log.add("close:%s", reason)
	t.closes = append(t.closes, reason)
}

type fakeInterceptor struct {
	cancel map[protocol.Direction]bool
	seen   []protocol.Direction
}

func (i *fakeInterceptor) Intercept(dir protocol.Direction, _ string, _ *protocol.Envelope) bool {
	i.seen = append(i.seen, dir)
	return i.cancel[dir]
}

type fakeDiagnostics struct {
	messages []string
}

func (d *fakeDiagnostics) Debug(msg string) {
	d.messages = append(d.messages, msg)
}

type fakeTimings struct {
	starts map[string]int
	stops  map[string]int
}

func newFakeTimings() *fakeTimings {
	return &fakeTimings{starts: map[string]int{}, stops: map[string]int{}}
}

func (t *fakeTimings) Start(key string) { t.starts[key]++ }
func (t *fakeTimings) Stop(key string)  { t.stops[key]++ }

type fakeBroadcaster struct {
	targets [][]string
	envs    []*protocol.Envelope
}

func (b *fakeBroadcaster) Broadcast(ids []string, env *protocol.Envelope) {
	b.targets = append(b.targets, ids)
	b.envs = append(b.envs, env)
}

type fakeRecorder struct {
	outcomes []string
}

func (r *fakeRecorder) RecordOutcome(dir protocol.Direction, kind protocol.MessageKind, outcome string) {
	r.outcomes = append(r.outcomes, dir.String()+":"+kind.String()+":"+outcome)
}

type harness struct {
	log         *callLog
	owner       *fakeOwner
	transport   *fakeTransport
	interceptor *fakeInterceptor
	diag        *fakeDiagnostics
	timings     *fakeTimings
	broadcaster *fakeBroadcaster
	recorder    *fakeRecorder
	adapter     *Adapter
}

func newHarness() *harness {
	log := &callLog{}
	h := &harness{
		log:         log,
		owner:       newFakeOwner(log),
		transport:   &fakeTransport{log: log},
		interceptor: &fakeInterceptor{cancel: map[protocol.Direction]bool{}},
		diag:        &fakeDiagnostics{},
		timings:     newFakeTimings(),
		broadcaster: &fakeBroadcaster{},
		recorder:    &fakeRecorder{},
	}
	a, err := New(Config{
		ID:          "s-1",
		Owner:       h.owner,
		Transport:   h.transport,
		Interceptor: h.interceptor,
		Broadcaster: h.broadcaster,
		Diagnostics: h.diag,
		Timings:     h.timings,
		Recorder:    h.recorder,
	})
	if err != nil {
		panic(err)
	}
	h.adapter = a
	return h
}

// inbound builds an undecoded envelope as the transport would deliver it.
func inbound(body packet.Body) *protocol.Envelope {
	return protocol.NewEnvelope(body.Kind(), packet.Encode(body))
}
