package p2p

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"
)

func TestMessageMarshalRoundTrip(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	peerID, err := PeerIDFromPublicKey(pub)
	if err != nil {
		t.Fatalf("peer id: %v", err)
	}

	msg := &Message{
		Type: MsgHello,
		ID:   "test-123",
		Sender: SenderInfo{
			PeerID:  peerID,
			Address: "ws://peer:9090",
		},
		Timestamp: 1739635200,
		Payload:   json.RawMessage(`{}`),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Type != MsgHello {
		t.Fatalf("type = %q, want %q", decoded.Type, MsgHello)
	}
	if decoded.Sender.Address != "ws://peer:9090" {
		t.Fatalf("address = %q, want %q", decoded.Sender.Address, "ws://peer:9090")
	}
	if decoded.Sender.PeerID != peerID {
		t.Fatal("peer ID mismatch after round trip")
	}
}

func TestMessageSignAndVerify(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)

	msg := &Message{
		Type:      MsgEnvelope,
		ID:        "test-456",
		Timestamp: 1739635200,
		Payload:   json.RawMessage(`{}`),
	}

	msg.Sign(priv)
	if msg.Signature == "" {
		t.Fatal("signature should be set")
	}

	if err := msg.Verify(pub); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestMessageVerifyRejectsTampered(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)

	msg := &Message{
		Type:      MsgEnvelope,
		ID:        "test-789",
		Timestamp: 1739635200,
		Payload:   json.RawMessage(`{}`),
	}

	msg.Sign(priv)
	msg.Timestamp = 9999999999 // tamper

	if err := msg.Verify(pub); err == nil {
		t.Fatal("should reject tampered message")
	}
}

func TestMessageVerifyRequiresSignature(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	msg := &Message{Type: MsgEnvelope, ID: "no-sig"}
	if err := msg.Verify(pub); err == nil {
		t.Fatal("expected error for unsigned message")
	}
}

func TestEnvelopePayloadSerialization(t *testing.T) {
	payload := EnvelopePayload{Data: []byte("ciphertext"), TTL: 86400}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got EnvelopePayload
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TTL != 86400 {
		t.Fatalf("TTL = %d, want 86400", got.TTL)
	}
	if string(got.Data) != "ciphertext" {
		t.Fatalf("data = %q, want %q", got.Data, "ciphertext")
	}
}

func TestPeerIDFromPublicKeyRejectsBadLength(t *testing.T) {
	if _, err := PeerIDFromPublicKey([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short public key")
	}
}
