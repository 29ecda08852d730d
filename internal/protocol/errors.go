package protocol

import "errors"

var (
	ErrUnknownKind     = errors.New("protocol: unknown message kind")
	ErrTruncated       = errors.New("protocol: truncated data")
	ErrFieldIDMismatch = errors.New("protocol: field id mismatch")
	ErrNilEnvelope     = errors.New("protocol: nil envelope")
)
