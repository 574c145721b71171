// Package envelope defines the boundary between the wire-level message
// bytes the send/receive paths move around and the end-to-end session
// payload inside them. Session/ratchet cryptography is out of scope here;
// this package only owns the base64 framing and the pluggable point where
// that crypto would plug in.
package envelope

import "encoding/base64"

// Envelope is an opaque, still-wrapped payload as retrieved from a swarm
// member or a direct peer, ready to be unwrapped by a Codec.
type Envelope struct {
	Recipient string
	Data      []byte
}

// Codec unwraps an Envelope's opaque Data into plaintext, or wraps
// plaintext into opaque Data for transmission. A real deployment plugs in
// a session/ratchet implementation here; this package only owns the
// framing around it.
type Codec interface {
	Unwrap(env Envelope) ([]byte, error)
	Wrap(recipient string, plaintext []byte) (Envelope, error)
}

// IdentityCodec is a pass-through Codec: Wrap/Unwrap move bytes unchanged.
// It stands in for the out-of-scope session cryptography so the send and
// receive paths have something concrete to call.
type IdentityCodec struct{}

func (IdentityCodec) Unwrap(env Envelope) ([]byte, error) {
	return env.Data, nil
}

func (IdentityCodec) Wrap(recipient string, plaintext []byte) (Envelope, error) {
	return Envelope{Recipient: recipient, Data: plaintext}, nil
}

// DecodeBase64Data base64-decodes the "data" field of a GetMessages
// response entry, as §4.5 requires before handing it to a Codec.
func DecodeBase64Data(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}

// EncodeBase64Data base64-encodes wire bytes for a SendMessage request's
// "data" field.
func EncodeBase64Data(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
