// Package packet decodes tlv payloads into typed message bodies and encodes
// them back. Each kind reads exactly the fields its schema layout declares;
// anything after them is left unread on the envelope.
package packet

import (
	"errors"
	"fmt"

	"github.com/danmuck/playernet/internal/protocol"
	"github.com/danmuck/playernet/internal/protocol/schema"
	"github.com/danmuck/playernet/internal/protocol/tlv"
)

var ErrDecode = errors.New("packet: decode failed")

// Body is a typed message body.
type Body interface {
	Kind() protocol.MessageKind
	Fields() []tlv.Field
}

// Codec is the decode step handed to sessions.
type Codec struct{}

func (Codec) Decode(env *protocol.Envelope) error {
	return Decode(env)
}

// Decode reads the kind's declared fields from the envelope cursor and sets
// env.Body. Unread trailing bytes are not an error.
func Decode(env *protocol.Envelope) error {
	if env == nil {
		return protocol.ErrNilEnvelope
	}
	if !env.Kind.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrDecode, protocol.ErrUnknownKind, uint8(env.Kind))
	}
	layout := schema.Layout(env.Kind)
	fields := make([]tlv.Field, 0, len(layout))
	for _, req := range layout {
		f, err := env.ReadField()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDecode, env.Kind, err)
		}
		if f.ID != req.ID {
			return fmt.Errorf("%w: %s: %w: got %d want %d", ErrDecode, env.Kind, protocol.ErrFieldIDMismatch, f.ID, req.ID)
		}
		fields = append(fields, f)
	}
	if err := schema.Validate(env.Kind, fields); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	body, err := build(env.Kind, fields)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, env.Kind, err)
	}
	env.Body = body
	return nil
}

// Encode serializes a body into payload bytes.
func Encode(body Body) []byte {
	return tlv.EncodeFields(body.Fields())
}

// Payload returns the bytes to put on the wire for env, preferring the typed
// body so changes made by observers are carried.
func Payload(env *protocol.Envelope) []byte {
	if body, ok := env.Body.(Body); ok && body.Kind() == env.Kind {
		return Encode(body)
	}
	return env.Payload
}

// NewEnvelope wraps an outbound body. The returned envelope is already
// decoded: its cursor sits at the end of the payload.
func NewEnvelope(body Body) *protocol.Envelope {
	payload := Encode(body)
	return &protocol.Envelope{
		Kind:    body.Kind(),
		Payload: payload,
		Offset:  len(payload),
		Body:    body,
	}
}

func build(kind protocol.MessageKind, fields []tlv.Field) (Body, error) {
	r := &reader{fields: fields}
	var body Body
	switch kind {
	case protocol.KindLogin:
		body = &Login{Protocol: r.u32(), Username: r.str(), ClientID: r.str()}
	case protocol.KindDisconnect:
		body = &Disconnect{HideDisconnectionScreen: r.boolean(), Message: r.str()}
	case protocol.KindText:
		body = &Text{Type: TextType(r.u8()), Source: r.str(), Message: r.str()}
	case protocol.KindSetEntityMotion:
		body = &SetEntityMotion{EntityRuntimeID: r.u64(), X: r.f32(), Y: r.f32(), Z: r.f32()}
	case protocol.KindRequestChunkRadius:
		body = &RequestChunkRadius{Radius: r.i32()}
	case protocol.KindChunkRadiusUpdated:
		body = &ChunkRadiusUpdated{Radius: r.i32()}
	case protocol.KindCommandRequest:
		body = &CommandRequest{Command: r.str(), RequestID: r.str()}
	case protocol.KindPlayerSkin:
		body = &PlayerSkin{
			ClientID:    r.str(),
			Skin:        Skin{ID: r.str(), Data: r.bytes()},
			NewSkinName: r.str(),
			OldSkinName: r.str(),
		}
	case protocol.KindModalFormRequest:
		body = &ModalFormRequest{FormID: r.u32(), FormData: r.str()}
	case protocol.KindModalFormResponse:
		body = &ModalFormResponse{FormID: r.u32(), FormData: r.str()}
	case protocol.KindServerSettingsResponse:
		body = &ServerSettingsResponse{FormID: r.u32(), FormData: r.str()}
	default:
		body = &Generic{MessageKind: kind, Values: fields}
	}
	if r.err != nil {
		return nil, r.err
	}
	return body, nil
}

// reader walks decoded fields in layout order, keeping the first error.
type reader struct {
	fields []tlv.Field
	i      int
	err    error
}

func (r *reader) next() (tlv.Field, bool) {
	if r.err != nil {
		return tlv.Field{}, false
	}
	if r.i >= len(r.fields) {
		r.err = protocol.ErrTruncated
		return tlv.Field{}, false
	}
	f := r.fields[r.i]
	r.i++
	return f, true
}

func (r *reader) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *reader) u8() uint8 {
	f, ok := r.next()
	if !ok {
		return 0
	}
	v, err := f.AsU8()
	r.keep(err)
	return v
}

func (r *reader) u32() uint32 {
	f, ok := r.next()
	if !ok {
		return 0
	}
	v, err := f.AsU32()
	r.keep(err)
	return v
}

func (r *reader) u64() uint64 {
	f, ok := r.next()
	if !ok {
		return 0
	}
	v, err := f.AsU64()
	r.keep(err)
	return v
}

func (r *reader) i32() int32 {
	f, ok := r.next()
	if !ok {
		return 0
	}
	v, err := f.AsI32()
	r.keep(err)
	return v
}

func (r *reader) f32() float32 {
	f, ok := r.next()
	if !ok {
		return 0
	}
	v, err := f.AsF32()
	r.keep(err)
	return v
}

func (r *reader) boolean() bool {
	f, ok := r.next()
	if !ok {
		return false
	}
	v, err := f.AsBool()
	r.keep(err)
	return v
}

func (r *reader) str() string {
	f, ok := r.next()
	if !ok {
		return ""
	}
	v, err := f.AsString()
	r.keep(err)
	return v
}

func (r *reader) bytes() []byte {
	f, ok := r.next()
	if !ok {
		return nil
	}
	v, err := f.AsBytes()
	r.keep(err)
	return v
}
