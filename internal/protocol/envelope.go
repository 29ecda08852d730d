package protocol

import (
	"github.com/danmuck/playernet/internal/protocol/tlv"
)

// Envelope is one message in flight: its kind, the raw tlv payload, a read
// cursor into that payload, and the typed body once decoded.
//
// Decoding moves Offset and fills Body; Kind never changes after
// construction. Offset stays within [0, len(Payload)].
type Envelope struct {
	Kind    MessageKind
	Payload []byte
	Offset  int
	Body    any
}

// unreadTolerant is implemented by bodies whose payload may legitimately
// carry bytes the decoder does not understand.
type unreadTolerant interface {
	MayHaveUnreadBytes() bool
}

func NewEnvelope(kind MessageKind, payload []byte) *Envelope {
	return &Envelope{Kind: kind, Payload: payload}
}

// Feof reports whether the cursor has consumed the whole payload.
func (e *Envelope) Feof() bool {
	return e.Offset >= len(e.Payload)
}

// Remaining returns the unread tail of the payload.
func (e *Envelope) Remaining() []byte {
	if e.Feof() {
		return nil
	}
	return e.Payload[e.Offset:]
}

// ReadField decodes the next tlv field and advances the cursor. The cursor
// does not move on error.
func (e *Envelope) ReadField() (tlv.Field, error) {
	f, next, err := tlv.ReadField(e.Payload, e.Offset)
	if err != nil {
		return tlv.Field{}, err
	}
	e.Offset = next
	return f, nil
}

// MayHaveUnreadBytes reports whether trailing bytes after decode are
// expected for this message.
func (e *Envelope) MayHaveUnreadBytes() bool {
	if t, ok := e.Body.(unreadTolerant); ok {
		return t.MayHaveUnreadBytes()
	}
	return false
}

// Rewind resets the cursor and drops the decoded body.
func (e *Envelope) Rewind() {
	e.Offset = 0
	e.Body = nil
}
