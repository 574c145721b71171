// Package p2p implements the direct peer-to-peer delivery path used by the
// message send path when a known, online peer entry
// exists for a destination: a signed message over a persistent WebSocket
// connection, bypassing the swarm entirely.
package p2p

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// Message types exchanged between directly-connected peers.
const (
	MsgHello    = "HELLO"    // sent immediately after dialing, to identify the caller
	MsgEnvelope = "ENVELOPE" // carries an opaque, end-to-end-encrypted envelope
	MsgAck      = "ACK"
)

// PeerID is a subscriber's Ed25519 public key, used to key connections.
type PeerID [ed25519.PublicKeySize]byte

// PeerIDFromPublicKey converts a raw Ed25519 public key into a PeerID.
func PeerIDFromPublicKey(pub ed25519.PublicKey) (PeerID, error) {
	var id PeerID
	if len(pub) != ed25519.PublicKeySize {
		return id, fmt.Errorf("public key has invalid length %d", len(pub))
	}
	copy(id[:], pub)
	return id, nil
}

// String returns the hex encoding of the peer ID.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// SenderInfo identifies the message sender.
type SenderInfo struct {
	PeerID  PeerID `json:"peer_id"`
	Address string `json:"address"`
}

// Message is the signed envelope exchanged between directly-connected peers.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Sender    SenderInfo      `json:"sender"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
	Signature string          `json:"signature,omitempty"`
}

// signable returns the bytes that are signed.
func (m *Message) signable() []byte {
	return []byte(m.Type + m.ID + strconv.FormatInt(m.Timestamp, 10) + string(m.Payload))
}

// Sign signs the message with the given private key.
func (m *Message) Sign(priv ed25519.PrivateKey) {
	sig := ed25519.Sign(priv, m.signable())
	m.Signature = hex.EncodeToString(sig)
}

// Verify checks the message signature against the sender's public key.
func (m *Message) Verify(pub ed25519.PublicKey) error {
	if m.Signature == "" {
		return fmt.Errorf("message has no signature")
	}
	sig, err := hex.DecodeString(m.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if !ed25519.Verify(pub, m.signable(), sig) {
		return fmt.Errorf("signature verification failed")
	}
	return nil
}

// EnvelopePayload carries an opaque, already-encrypted message envelope;
// contents are treated as bytes, base64-framed on the wire.
type EnvelopePayload struct {
	Data []byte `json:"data"`
	TTL  int64  `json:"ttl"`
}
