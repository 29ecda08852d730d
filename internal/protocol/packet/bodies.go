package packet

import (
	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/schema"
	"github.com/danmuck/playernet/internal/protocol/tlv"
)

// CurrentProtocol is the client protocol version this server speaks.
const CurrentProtocol uint32 = 282

type TextType uint8

const (
	TextTypeRaw TextType = iota
	TextTypeChat
	TextTypeTranslation
	TextTypePopup
	TextTypeJukeboxPopup
	TextTypeTip
	TextTypeSystem
	TextTypeWhisper
	TextTypeAnnouncement
)

type Login struct {
	Protocol uint32
	Username string
	ClientID string
}

func (*Login) Kind() protocol.MessageKind { return protocol.KindLogin }

func (b *Login) Fields() []tlv.Field {
	return []tlv.Field{
		tlv.U32(schema.FieldProtocol, b.Protocol),
		tlv.String(schema.FieldUsername, b.Username),
		tlv.String(schema.FieldClientID, b.ClientID),
	}
}

// MayHaveUnreadBytes is true for clients on another protocol version, whose
// login carries fields this decoder does not know.
func (b *Login) MayHaveUnreadBytes() bool {
	return b.Protocol != CurrentProtocol
}

type Disconnect struct {
	HideDisconnectionScreen bool
	Message                 string
}

func (*Disconnect) Kind() protocol.MessageKind { return protocol.KindDisconnect }

func (b *Disconnect) Fields() []tlv.Field {
	return []tlv.Field{
		tlv.Bool(schema.FieldHideScreen, b.HideDisconnectionScreen),
		tlv.String(schema.FieldMessage, b.Message),
	}
}

type Text struct {
	Type    TextType
	Source  string
	Message string
}

func (*Text) Kind() protocol.MessageKind { return protocol.KindText }

func (b *Text) Fields() []tlv.Field {
	return []tlv.Field{
		tlv.U8(schema.FieldTextType, uint8(b.Type)),
		tlv.String(schema.FieldSource, b.Source),
		tlv.String(schema.FieldMessage, b.Message),
	}
}

type SetEntityMotion struct {
	EntityRuntimeID uint64
	X, Y, Z         float32
}

func (*SetEntityMotion) Kind() protocol.MessageKind { return protocol.KindSetEntityMotion }

func (b *SetEntityMotion) Fields() []tlv.Field {
	return []tlv.Field{
		tlv.U64(schema.FieldEntityRuntimeID, b.EntityRuntimeID),
		tlv.F32(schema.FieldX, b.X),
		tlv.F32(schema.FieldY, b.Y),
		tlv.F32(schema.FieldZ, b.Z),
	}
}

type RequestChunkRadius struct {
	Radius int32
}

func (*RequestChunkRadius) Kind() protocol.MessageKind { return protocol.KindRequestChunkRadius }

func (b *RequestChunkRadius) Fields() []tlv.Field {
	return []tlv.Field{tlv.I32(schema.FieldRadius, b.Radius)}
}

type ChunkRadiusUpdated struct {
	Radius int32
}

func (*ChunkRadiusUpdated) Kind() protocol.MessageKind { return protocol.KindChunkRadiusUpdated }

func (b *ChunkRadiusUpdated) Fields() []tlv.Field {
	return []tlv.Field{tlv.I32(schema.FieldRadius, b.Radius)}
}

type CommandRequest struct {
	Command   string
	RequestID string
}

func (*CommandRequest) Kind() protocol.MessageKind { return protocol.KindCommandRequest }

func (b *CommandRequest) Fields() []tlv.Field {
	return []tlv.Field{
		tlv.String(schema.FieldCommand, b.Command),
		tlv.String(schema.FieldRequestID, b.RequestID),
	}
}

type Skin struct {
	ID   string
	Data []byte
}

type PlayerSkin struct {
	ClientID    string
	Skin        Skin
	NewSkinName string
	OldSkinName string
}

func (*PlayerSkin) Kind() protocol.MessageKind { return protocol.KindPlayerSkin }

func (b *PlayerSkin) Fields() []tlv.Field {
	return []tlv.Field{
		tlv.String(schema.FieldClientID, b.ClientID),
		tlv.String(schema.FieldSkinID, b.Skin.ID),
		tlv.Bytes(schema.FieldSkinData, b.Skin.Data),
		tlv.String(schema.FieldNewSkinName, b.NewSkinName),
		tlv.String(schema.FieldOldSkinName, b.OldSkinName),
	}
}

// Form bodies carry the form as a JSON document in FormData.

type ModalFormRequest struct {
	FormID   uint32
	FormData string
}

func (*ModalFormRequest) Kind() protocol.MessageKind { return protocol.KindModalFormRequest }

func (b *ModalFormRequest) Fields() []tlv.Field { return formFields(b.FormID, b.FormData) }

type ModalFormResponse struct {
	FormID   uint32
	FormData string
}

func (*ModalFormResponse) Kind() protocol.MessageKind { return protocol.KindModalFormResponse }

func (b *ModalFormResponse) Fields() []tlv.Field { return formFields(b.FormID, b.FormData) }

type ServerSettingsResponse struct {
	FormID   uint32
	FormData string
}

func (*ServerSettingsResponse) Kind() protocol.MessageKind {
	return protocol.KindServerSettingsResponse
}

func (b *ServerSettingsResponse) Fields() []tlv.Field { return formFields(b.FormID, b.FormData) }

func formFields(id uint32, data string) []tlv.Field {
	return []tlv.Field{
		tlv.U32(schema.FieldFormID, id),
		tlv.String(schema.FieldFormData, data),
	}
}

// Generic holds the decoded fields of a kind with no dedicated body type.
type Generic struct {
	MessageKind protocol.MessageKind
	Values      []tlv.Field
}

func (b *Generic) Kind() protocol.MessageKind { return b.MessageKind }

func (b *Generic) Fields() []tlv.Field { return b.Values }

// Field returns the value with the given id, if present.
func (b *Generic) Field(id uint16) (tlv.Field, bool) {
	return tlv.GetField(b.Values, id)
}
