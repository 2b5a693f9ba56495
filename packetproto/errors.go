package packetproto

import "errors"

// ErrOversizeFrame is reported when a decoded length prefix exceeds the
// decoder's configured maximum payload — a fatal protocol error per
// spec.md §4.9/§6, delivered via the decoder's error-domain callback.
var ErrOversizeFrame = errors.New("packetproto: decoded frame length exceeds maximum payload")
