package player

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/packet"
	"github.com/danmuck/playernet/internal/protocol/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxViewDistance = 16

	kickOutdatedClient = "Outdated client"
	kickOutdatedServer = "Outdated server"
	kickInvalidName    = "Invalid name"
	kickDuplicateLogin = "Logged in from another location"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_ ]{1,16}$`)

// Session is the outbound side of a player's connection.
type Session interface {
	SendOutbound(env *protocol.Envelope, immediate bool) bool
	ServerDisconnect(reason string, notify bool)
}

type Config struct {
	MaxViewDistance int
	ProtocolVersion uint32
	// Welcome is sent as a system message after login when set.
	Welcome string
	// SettingsForm is the custom form shown in the client's settings
	// screen. It must marshal to JSON; nil offers no form.
	SettingsForm any
}

func (c Config) withDefaults() Config {
	if c.MaxViewDistance <= 0 {
		c.MaxViewDistance = DefaultMaxViewDistance
	}
	if c.ProtocolVersion == 0 {
		c.ProtocolVersion = packet.CurrentProtocol
	}
	return c
}

// Position is the last reported player location.
type Position struct {
	X, Y, Z float32
}

// Info is a point-in-time view of a player for the admin API.
type Info struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	LoggedIn     bool           `json:"logged_in"`
	Protocol     uint32         `json:"protocol"`
	ViewDistance int            `json:"view_distance"`
	Skin         string         `json:"skin,omitempty"`
	Position     Position       `json:"position"`
	Actions      map[string]int `json:"actions"`
}

// Player is the session owner for one connected client.
type Player struct {
	id     string
	cfg    Config
	world  *World
	logger zerolog.Logger

	mu             sync.Mutex
	session        Session
	name           string
	clientID       string
	protocol       uint32
	loggedIn       bool
	viewDistance   int
	skin           packet.Skin
	position       Position
	actions        map[protocol.MessageKind]int
	forms          map[uint32]FormHandler
	nextFormID     uint32
	settingsFormID uint32
	settings       any
}

// New creates a player for session id and adds it to world.
func New(id string, world *World, cfg Config) *Player {
	cfg = cfg.withDefaults()
	p := &Player{
		id:           id,
		cfg:          cfg,
		world:        world,
		logger:       log.With().Str("session", id).Logger(),
		viewDistance: cfg.MaxViewDistance,
		actions:      make(map[protocol.MessageKind]int),
		forms:        make(map[uint32]FormHandler),
		nextFormID:   1,
	}
	p.settingsFormID = p.allocFormID()
	world.add(p)
	return p
}

// Attach binds the session used for outbound messages.
func (p *Player) Attach(s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = s
}

func (p *Player) ID() string {
	return p.id
}

// Name is the username after login, or the session id before it.
func (p *Player) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.name == "" {
		return p.id
	}
	return p.name
}

func (p *Player) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loggedIn
}

func (p *Player) ViewDistance() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewDistance
}

// Viewers lists the other online players' session ids.
func (p *Player) Viewers() []string {
	online := p.world.Online()
	out := make([]string, 0, len(online))
	for _, other := range online {
		if other.id != p.id {
			out = append(out, other.id)
		}
	}
	return out
}

func (p *Player) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	actions := make(map[string]int, len(p.actions))
	for k, n := range p.actions {
		actions[k.String()] = n
	}
	name := p.name
	if name == "" {
		name = p.id
	}
	return Info{
		ID:           p.id,
		Name:         name,
		LoggedIn:     p.loggedIn,
		Protocol:     p.protocol,
		ViewDistance: p.viewDistance,
		Skin:         p.skin.ID,
		Position:     p.position,
		Actions:      actions,
	}
}

// Send wraps body in a new envelope and sends it through the session.
func (p *Player) Send(body packet.Body, immediate bool) bool {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	if s == nil {
		return false
	}
	return s.SendOutbound(packet.NewEnvelope(body), immediate)
}

// SendMessage sends a system text message.
func (p *Player) SendMessage(msg string) bool {
	return p.Send(&packet.Text{Type: packet.TextTypeSystem, Message: msg}, false)
}

// Kick disconnects the player with a visible reason.
func (p *Player) Kick(reason string) {
	p.mu.Lock()
	s := p.session
	p.mu.Unlock()
	p.logger.Info().Str("reason", reason).Msg("player.Kick")
	if s != nil {
		s.ServerDisconnect(reason, true)
	}
}

func (p *Player) HandleLogin(body *packet.Login) bool {
	if p.LoggedIn() {
		return false
	}
	if body.Protocol != p.cfg.ProtocolVersion {
		reason := kickOutdatedClient
		if body.Protocol > p.cfg.ProtocolVersion {
			reason = kickOutdatedServer
		}
		p.logger.Info().
			Uint32("protocol", body.Protocol).
			Uint32("want", p.cfg.ProtocolVersion).
			Msg("player.HandleLogin protocol mismatch")
		p.Kick(reason)
		return true
	}
	name := strings.TrimSpace(body.Username)
	if !validName.MatchString(name) {
		p.Kick(kickInvalidName)
		return true
	}
	evicted := p.world.claimName(p, name, func() {
		p.mu.Lock()
		p.name = name
		p.clientID = body.ClientID
		p.protocol = body.Protocol
		p.loggedIn = true
		p.mu.Unlock()
	})
	if evicted != nil {
		evicted.Kick(kickDuplicateLogin)
	}

	p.logger.Info().Str("name", name).Msg("player.HandleLogin")
	if p.cfg.Welcome != "" {
		p.SendMessage(p.cfg.Welcome)
	}
	return true
}

// Chat broadcasts a chat line to every online player, the sender included.
// Lines starting with "/" run as commands.
func (p *Player) Chat(message string) bool {
	if !p.LoggedIn() {
		return false
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}
	if strings.HasPrefix(message, "/") {
		return p.runCommand(message[1:])
	}
	name := p.Name()
	p.logger.Info().Str("name", name).Str("message", message).Msg("player.Chat")
	p.world.Broadcast(&packet.Text{Type: packet.TextTypeChat, Source: name, Message: message}, "")
	return true
}

func (p *Player) HandleCommandRequest(body *packet.CommandRequest) bool {
	if !p.LoggedIn() {
		return false
	}
	return p.runCommand(strings.TrimPrefix(strings.TrimSpace(body.Command), "/"))
}

// SetViewDistance clamps radius to [1, MaxViewDistance] and tells the
// client the radius it got.
func (p *Player) SetViewDistance(radius int) {
	if radius < 1 {
		radius = 1
	}
	if radius > p.cfg.MaxViewDistance {
		radius = p.cfg.MaxViewDistance
	}
	p.mu.Lock()
	p.viewDistance = radius
	p.mu.Unlock()
	p.Send(&packet.ChunkRadiusUpdated{Radius: int32(radius)}, false)
}

func (p *Player) ChangeSkin(skin packet.Skin, newSkinName, oldSkinName string) bool {
	if strings.TrimSpace(skin.ID) == "" {
		p.logger.Debug().Msg("player.ChangeSkin rejected empty skin id")
		return false
	}
	p.mu.Lock()
	p.skin = skin
	clientID := p.clientID
	p.mu.Unlock()

	p.world.Broadcast(&packet.PlayerSkin{
		ClientID:    clientID,
		Skin:        skin,
		NewSkinName: newSkinName,
		OldSkinName: oldSkinName,
	}, p.id)
	return true
}

// record counts an action of kind; actions are accepted only after login.
func (p *Player) record(kind protocol.MessageKind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions[kind]++
	return p.loggedIn
}

func (p *Player) HandleResourcePackClientResponse(*packet.Generic) bool {
	p.record(protocol.KindResourcePackClientResponse)
	return true
}

func (p *Player) HandleResourcePackChunkRequest(*packet.Generic) bool {
	p.record(protocol.KindResourcePackChunkRequest)
	return true
}

func (p *Player) HandleMovePlayer(body *packet.Generic) bool {
	if !p.record(protocol.KindMovePlayer) {
		return false
	}
	pos, ok := position(body)
	if !ok {
		return false
	}
	p.mu.Lock()
	p.position = pos
	p.mu.Unlock()
	return true
}

func (p *Player) HandleMoveEntityAbsolute(*packet.Generic) bool {
	return p.record(protocol.KindMoveEntityAbsolute)
}

func (p *Player) HandleLevelSoundEvent(*packet.Generic) bool {
	return p.record(protocol.KindLevelSoundEvent)
}

func (p *Player) HandleEntityEvent(*packet.Generic) bool {
	return p.record(protocol.KindEntityEvent)
}

func (p *Player) HandleInventoryTransaction(*packet.Generic) bool {
	return p.record(protocol.KindInventoryTransaction)
}

func (p *Player) HandleMobEquipment(*packet.Generic) bool {
	return p.record(protocol.KindMobEquipment)
}

func (p *Player) HandleInteract(*packet.Generic) bool {
	return p.record(protocol.KindInteract)
}

func (p *Player) HandleBlockPickRequest(*packet.Generic) bool {
	return p.record(protocol.KindBlockPickRequest)
}

func (p *Player) HandlePlayerAction(*packet.Generic) bool {
	return p.record(protocol.KindPlayerAction)
}

func (p *Player) HandleAnimate(*packet.Generic) bool {
	return p.record(protocol.KindAnimate)
}

func (p *Player) HandleContainerClose(*packet.Generic) bool {
	return p.record(protocol.KindContainerClose)
}

func (p *Player) HandleAdventureSettings(*packet.Generic) bool {
	return p.record(protocol.KindAdventureSettings)
}

func (p *Player) HandleBlockEntityData(*packet.Generic) bool {
	return p.record(protocol.KindBlockEntityData)
}

func (p *Player) HandlePlayerInput(*packet.Generic) bool {
	return p.record(protocol.KindPlayerInput)
}

func (p *Player) HandleSetPlayerGameType(*packet.Generic) bool {
	return p.record(protocol.KindSetPlayerGameType)
}

func (p *Player) HandleItemFrameDropItem(*packet.Generic) bool {
	return p.record(protocol.KindItemFrameDropItem)
}

func (p *Player) HandleBookEdit(*packet.Generic) bool {
	return p.record(protocol.KindBookEdit)
}

func position(body *packet.Generic) (Position, bool) {
	var pos Position
	for _, target := range []struct {
		id  uint16
		dst *float32
	}{
		{schema.FieldX, &pos.X},
		{schema.FieldY, &pos.Y},
		{schema.FieldZ, &pos.Z},
	} {
		f, ok := body.Field(target.id)
		if !ok {
			return Position{}, false
		}
		v, err := f.AsF32()
		if err != nil {
			return Position{}, false
		}
		*target.dst = v
	}
	return pos, true
}

func (p *Player) String() string {
	return fmt.Sprintf("%s(%s)", p.Name(), p.id)
}
