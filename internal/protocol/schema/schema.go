package schema

import (
	"fmt"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/tlv"
	"github.com/rs/zerolog/log"
)

// Field IDs from tlv contract.
const (
	FieldMessage    uint16 = 1
	FieldTextType   uint16 = 2
	FieldSource     uint16 = 3
	FieldHideScreen uint16 = 4

	FieldProtocol uint16 = 10
	FieldUsername uint16 = 11
	FieldClientID uint16 = 12

	FieldEntityRuntimeID uint16 = 100
	FieldEntityUniqueID  uint16 = 101
	FieldX               uint16 = 102
	FieldY               uint16 = 103
	FieldZ               uint16 = 104
	FieldPitch           uint16 = 105
	FieldYaw             uint16 = 106
	FieldMode            uint16 = 107
	FieldOnGround        uint16 = 108

	FieldBlockX uint16 = 120
	FieldBlockY uint16 = 121
	FieldBlockZ uint16 = 122
	FieldFace   uint16 = 123

	FieldAction     uint16 = 200
	FieldEvent      uint16 = 201
	FieldData       uint16 = 202
	FieldSlot       uint16 = 203
	FieldItem       uint16 = 204
	FieldWindowID   uint16 = 205
	FieldTarget     uint16 = 206
	FieldSound      uint16 = 207
	FieldFlags      uint16 = 208
	FieldPermission uint16 = 209
	FieldGameMode   uint16 = 210
	FieldAmount     uint16 = 211
	FieldDistance   uint16 = 212
	FieldInVoid     uint16 = 213
	FieldMotionX    uint16 = 214
	FieldMotionY    uint16 = 215
	FieldJumping    uint16 = 216
	FieldSneaking   uint16 = 217
	FieldNBT        uint16 = 218
	FieldRecipe     uint16 = 219
	FieldStatus     uint16 = 220

	FieldRadius    uint16 = 300
	FieldMapID     uint16 = 301
	FieldBossID    uint16 = 302
	FieldEventKind uint16 = 303

	FieldCommand   uint16 = 400
	FieldRequestID uint16 = 401
	FieldIsBlock   uint16 = 402

	FieldPackID     uint16 = 500
	FieldPackIDs    uint16 = 501
	FieldChunkIndex uint16 = 502

	FieldSkinID      uint16 = 600
	FieldSkinData    uint16 = 601
	FieldNewSkinName uint16 = 602
	FieldOldSkinName uint16 = 603

	FieldPage uint16 = 700

	FieldFormID   uint16 = 800
	FieldFormData uint16 = 801
)

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	Kind    protocol.MessageKind
	FieldID uint16
	Reason  string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: kind=%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("schema: kind=%s field=%d: %s", e.Kind, e.FieldID, e.Reason)
}

var position = []Requirement{
	{FieldX, tlv.TypeF32},
	{FieldY, tlv.TypeF32},
	{FieldZ, tlv.TypeF32},
}

var blockPosition = []Requirement{
	{FieldBlockX, tlv.TypeI32},
	{FieldBlockY, tlv.TypeI32},
	{FieldBlockZ, tlv.TypeI32},
}

func join(parts ...[]Requirement) []Requirement {
	out := make([]Requirement, 0)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func runtimeID() []Requirement {
	return []Requirement{{FieldEntityRuntimeID, tlv.TypeU64}}
}

// layouts lists, per kind, the fields a decoder reads in order. Kinds with an
// empty layout carry no payload.
var layouts = [protocol.KindCount][]Requirement{
	protocol.KindLogin: {
		{FieldProtocol, tlv.TypeU32},
		{FieldUsername, tlv.TypeString},
		{FieldClientID, tlv.TypeString},
	},
	protocol.KindClientToServerHandshake: {},
	protocol.KindDisconnect: {
		{FieldHideScreen, tlv.TypeBool},
		{FieldMessage, tlv.TypeString},
	},
	protocol.KindResourcePackClientResponse: {
		{FieldStatus, tlv.TypeU8},
		{FieldPackIDs, tlv.TypeBytes},
	},
	protocol.KindText: {
		{FieldTextType, tlv.TypeU8},
		{FieldSource, tlv.TypeString},
		{FieldMessage, tlv.TypeString},
	},
	protocol.KindMoveEntityAbsolute: join(runtimeID(), position),
	protocol.KindMovePlayer: join(runtimeID(), position, []Requirement{
		{FieldPitch, tlv.TypeF32},
		{FieldYaw, tlv.TypeF32},
		{FieldMode, tlv.TypeU8},
		{FieldOnGround, tlv.TypeBool},
	}),
	protocol.KindLevelSoundEvent: join([]Requirement{{FieldSound, tlv.TypeU32}}, position),
	protocol.KindEntityEvent: join(runtimeID(), []Requirement{
		{FieldEvent, tlv.TypeU8},
		{FieldData, tlv.TypeI32},
	}),
	protocol.KindInventoryTransaction: {
		{FieldAction, tlv.TypeU32},
		{FieldItem, tlv.TypeBytes},
	},
	protocol.KindMobEquipment: join(runtimeID(), []Requirement{
		{FieldSlot, tlv.TypeU8},
		{FieldItem, tlv.TypeBytes},
	}),
	protocol.KindMobArmorEquipment: join(runtimeID(), []Requirement{{FieldItem, tlv.TypeBytes}}),
	protocol.KindInteract: {
		{FieldAction, tlv.TypeU8},
		{FieldTarget, tlv.TypeU64},
	},
	protocol.KindBlockPickRequest: blockPosition,
	protocol.KindEntityPickRequest: {
		{FieldEntityUniqueID, tlv.TypeU64},
		{FieldSlot, tlv.TypeU8},
	},
	protocol.KindPlayerAction: join(runtimeID(), []Requirement{{FieldAction, tlv.TypeI32}}, blockPosition, []Requirement{
		{FieldFace, tlv.TypeI32},
	}),
	protocol.KindEntityFall: join(runtimeID(), []Requirement{
		{FieldDistance, tlv.TypeF32},
		{FieldInVoid, tlv.TypeBool},
	}),
	protocol.KindSetEntityMotion: join(runtimeID(), position),
	protocol.KindAnimate: join([]Requirement{{FieldAction, tlv.TypeI32}}, runtimeID()),
	protocol.KindContainerClose: {
		{FieldWindowID, tlv.TypeU8},
	},
	protocol.KindPlayerHotbar: {
		{FieldSlot, tlv.TypeU32},
		{FieldWindowID, tlv.TypeU8},
	},
	protocol.KindCraftingEvent: {
		{FieldWindowID, tlv.TypeU8},
		{FieldRecipe, tlv.TypeBytes},
	},
	protocol.KindAdventureSettings: {
		{FieldFlags, tlv.TypeU32},
		{FieldPermission, tlv.TypeU32},
	},
	protocol.KindBlockEntityData: join(blockPosition, []Requirement{{FieldNBT, tlv.TypeBytes}}),
	protocol.KindPlayerInput: {
		{FieldMotionX, tlv.TypeF32},
		{FieldMotionY, tlv.TypeF32},
		{FieldJumping, tlv.TypeBool},
		{FieldSneaking, tlv.TypeBool},
	},
	protocol.KindSetPlayerGameType: {
		{FieldGameMode, tlv.TypeI32},
	},
	protocol.KindSpawnExperienceOrb: join(position, []Requirement{{FieldAmount, tlv.TypeI32}}),
	protocol.KindMapInfoRequest: {
		{FieldMapID, tlv.TypeU64},
	},
	protocol.KindRequestChunkRadius: {
		{FieldRadius, tlv.TypeI32},
	},
	protocol.KindChunkRadiusUpdated: {
		{FieldRadius, tlv.TypeI32},
	},
	protocol.KindItemFrameDropItem: blockPosition,
	protocol.KindBossEvent: {
		{FieldBossID, tlv.TypeU64},
		{FieldEventKind, tlv.TypeU32},
	},
	protocol.KindShowCredits: join(runtimeID(), []Requirement{{FieldStatus, tlv.TypeI32}}),
	protocol.KindCommandRequest: {
		{FieldCommand, tlv.TypeString},
		{FieldRequestID, tlv.TypeString},
	},
	protocol.KindCommandBlockUpdate: {
		{FieldIsBlock, tlv.TypeBool},
		{FieldCommand, tlv.TypeString},
	},
	protocol.KindResourcePackChunkRequest: {
		{FieldPackID, tlv.TypeString},
		{FieldChunkIndex, tlv.TypeU32},
	},
	protocol.KindPlayerSkin: {
		{FieldClientID, tlv.TypeString},
		{FieldSkinID, tlv.TypeString},
		{FieldSkinData, tlv.TypeBytes},
		{FieldNewSkinName, tlv.TypeString},
		{FieldOldSkinName, tlv.TypeString},
	},
	protocol.KindBookEdit: {
		{FieldAction, tlv.TypeU8},
		{FieldSlot, tlv.TypeU8},
		{FieldPage, tlv.TypeU8},
		{FieldMessage, tlv.TypeString},
	},
	protocol.KindModalFormRequest: {
		{FieldFormID, tlv.TypeU32},
		{FieldFormData, tlv.TypeString},
	},
	protocol.KindModalFormResponse: {
		{FieldFormID, tlv.TypeU32},
		{FieldFormData, tlv.TypeString},
	},
	protocol.KindServerSettingsRequest: {},
	protocol.KindServerSettingsResponse: {
		{FieldFormID, tlv.TypeU32},
		{FieldFormData, tlv.TypeString},
	},
}

// Layout returns the ordered field requirements for kind.
func Layout(kind protocol.MessageKind) []Requirement {
	if !kind.Valid() {
		return nil
	}
	return layouts[kind]
}

// Validate enforces required fields and required field types for a kind.
// Unknown fields are ignored.
func Validate(kind protocol.MessageKind, fields []tlv.Field) error {
	if !kind.Valid() {
		log.Debug().Uint8("kind", uint8(kind)).Msg("schema.Validate unknown kind")
		return ValidationError{Kind: kind, Reason: "unknown kind"}
	}
	for _, req := range layouts[kind] {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			log.Debug().
				Str("kind", kind.String()).
				Uint16("field_id", req.ID).
				Msg("schema.Validate missing field")
			return ValidationError{Kind: kind, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			log.Debug().
				Str("kind", kind.String()).
				Uint16("field_id", req.ID).
				Uint8("got", f.Type).
				Uint8("want", req.Type).
				Msg("schema.Validate type mismatch")
			return ValidationError{Kind: kind, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}
