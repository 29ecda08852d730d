package protocol

import "fmt"

// MessageKind is the closed set of messages a session recognizes. Values are
// dense so tables can be indexed by kind; the on-wire id is WireID.
type MessageKind uint8

const (
	KindLogin MessageKind = iota
	KindClientToServerHandshake
	KindDisconnect
	KindResourcePackClientResponse
	KindText
	KindMoveEntityAbsolute
	KindMovePlayer
	KindLevelSoundEvent
	KindEntityEvent
	KindInventoryTransaction
	KindMobEquipment
	KindMobArmorEquipment
	KindInteract
	KindBlockPickRequest
	KindEntityPickRequest
	KindPlayerAction
	KindEntityFall
	KindSetEntityMotion
	KindAnimate
	KindContainerClose
	KindPlayerHotbar
	KindCraftingEvent
	KindAdventureSettings
	KindBlockEntityData
	KindPlayerInput
	KindSetPlayerGameType
	KindSpawnExperienceOrb
	KindMapInfoRequest
	KindRequestChunkRadius
	KindChunkRadiusUpdated
	KindItemFrameDropItem
	KindBossEvent
	KindShowCredits
	KindCommandRequest
	KindCommandBlockUpdate
	KindResourcePackChunkRequest
	KindPlayerSkin
	KindBookEdit
	KindModalFormRequest
	KindModalFormResponse
	KindServerSettingsRequest
	KindServerSettingsResponse

	// KindCount is the number of kinds; it is not a kind.
	KindCount
)

type kindInfo struct {
	name   string
	wireID uint8
}

var kindTable = [KindCount]kindInfo{
	KindLogin:                      {"LoginPacket", 0x01},
	KindClientToServerHandshake:    {"ClientToServerHandshakePacket", 0x04},
	KindDisconnect:                 {"DisconnectPacket", 0x05},
	KindResourcePackClientResponse: {"ResourcePackClientResponsePacket", 0x08},
	KindText:                       {"TextPacket", 0x09},
	KindMoveEntityAbsolute:         {"MoveEntityAbsolutePacket", 0x12},
	KindMovePlayer:                 {"MovePlayerPacket", 0x13},
	KindLevelSoundEvent:            {"LevelSoundEventPacket", 0x18},
	KindEntityEvent:                {"EntityEventPacket", 0x1b},
	KindInventoryTransaction:       {"InventoryTransactionPacket", 0x1e},
	KindMobEquipment:               {"MobEquipmentPacket", 0x1f},
	KindMobArmorEquipment:          {"MobArmorEquipmentPacket", 0x20},
	KindInteract:                   {"InteractPacket", 0x21},
	KindBlockPickRequest:           {"BlockPickRequestPacket", 0x22},
	KindEntityPickRequest:          {"EntityPickRequestPacket", 0x23},
	KindPlayerAction:               {"PlayerActionPacket", 0x24},
	KindEntityFall:                 {"EntityFallPacket", 0x25},
	KindSetEntityMotion:            {"SetEntityMotionPacket", 0x28},
	KindAnimate:                    {"AnimatePacket", 0x2c},
	KindContainerClose:             {"ContainerClosePacket", 0x2f},
	KindPlayerHotbar:               {"PlayerHotbarPacket", 0x30},
	KindCraftingEvent:              {"CraftingEventPacket", 0x35},
	KindAdventureSettings:          {"AdventureSettingsPacket", 0x37},
	KindBlockEntityData:            {"BlockEntityDataPacket", 0x38},
	KindPlayerInput:                {"PlayerInputPacket", 0x39},
	KindSetPlayerGameType:          {"SetPlayerGameTypePacket", 0x3e},
	KindSpawnExperienceOrb:         {"SpawnExperienceOrbPacket", 0x42},
	KindMapInfoRequest:             {"MapInfoRequestPacket", 0x44},
	KindRequestChunkRadius:         {"RequestChunkRadiusPacket", 0x45},
	KindChunkRadiusUpdated:         {"ChunkRadiusUpdatedPacket", 0x46},
	KindItemFrameDropItem:          {"ItemFrameDropItemPacket", 0x47},
	KindBossEvent:                  {"BossEventPacket", 0x4a},
	KindShowCredits:                {"ShowCreditsPacket", 0x4b},
	KindCommandRequest:             {"CommandRequestPacket", 0x4d},
	KindCommandBlockUpdate:         {"CommandBlockUpdatePacket", 0x4e},
	KindResourcePackChunkRequest:   {"ResourcePackChunkRequestPacket", 0x54},
	KindPlayerSkin:                 {"PlayerSkinPacket", 0x5d},
	KindBookEdit:                   {"BookEditPacket", 0x61},
	KindModalFormRequest:           {"ModalFormRequestPacket", 0x64},
	KindModalFormResponse:          {"ModalFormResponsePacket", 0x65},
	KindServerSettingsRequest:      {"ServerSettingsRequestPacket", 0x66},
	KindServerSettingsResponse:     {"ServerSettingsResponsePacket", 0x67},
}

var byWireID = func() map[uint8]MessageKind {
	m := make(map[uint8]MessageKind, KindCount)
	for k := MessageKind(0); k < KindCount; k++ {
		info := kindTable[k]
		if info.name == "" || info.wireID == 0 {
			panic(fmt.Sprintf("protocol: kind %d has no table entry", k))
		}
		if prev, dup := m[info.wireID]; dup {
			panic(fmt.Sprintf("protocol: wire id 0x%02x shared by %s and %s", info.wireID, kindTable[prev].name, info.name))
		}
		m[info.wireID] = k
	}
	return m
}()

// Valid reports whether k is a member of the enumeration.
func (k MessageKind) Valid() bool {
	return k < KindCount
}

func (k MessageKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("UnknownPacket(%d)", uint8(k))
	}
	return kindTable[k].name
}

// WireID returns the id carried in frame headers.
func (k MessageKind) WireID() uint8 {
	if !k.Valid() {
		return 0
	}
	return kindTable[k].wireID
}

// KindFromWireID resolves a frame header id.
func KindFromWireID(id uint8) (MessageKind, bool) {
	k, ok := byWireID[id]
	return k, ok
}

// Kinds returns every kind in enumeration order.
func Kinds() []MessageKind {
	out := make([]MessageKind, 0, KindCount)
	for k := MessageKind(0); k < KindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Direction is the side of the session a message travels.
type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "receive"
	case Outbound:
		return "send"
	default:
		return "unknown"
	}
}
