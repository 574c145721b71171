package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/sha3"
)

func TestDecryptChallengeRoundTrip(t *testing.T) {
	userPub, userPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate user key: %v", err)
	}
	_ = userPub

	userX, err := ed25519PrivateKeyToX25519(userPriv)
	if err != nil {
		t.Fatalf("convert user key: %v", err)
	}
	userXPub, err := curve25519.X25519(userX, curve25519.Basepoint)
	if err != nil {
		t.Fatalf("derive user X25519 pub: %v", err)
	}

	var serverXPriv [32]byte
	if _, err := rand.Read(serverXPriv[:]); err != nil {
		t.Fatalf("generate server key: %v", err)
	}
	serverXPub, err := curve25519.X25519(serverXPriv[:], curve25519.Basepoint)
	if err != nil {
		t.Fatalf("derive server pub: %v", err)
	}

	// Server side: DH(serverPriv, userPub) to get the same shared secret the
	// client derives via DH(userPriv, serverPub).
	serverShared, err := curve25519.X25519(serverXPriv[:], userXPub)
	if err != nil {
		t.Fatalf("server shared secret: %v", err)
	}
	keyArr := sha3.Sum256(serverShared)
	key := keyArr[:]

	plaintext := []byte("the-bearer-token")
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("new gcm: %v", err)
	}
	nonce := make([]byte, ecdhNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		t.Fatalf("generate nonce: %v", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	cipherText := append(append([]byte{}, nonce...), sealed...)

	clientShared, err := ECDHSharedSecret(userPriv, serverXPub)
	if err != nil {
		t.Fatalf("client shared secret: %v", err)
	}

	got, err := DecryptChallenge(cipherText, clientShared)
	if err != nil {
		t.Fatalf("decrypt challenge: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("decrypted = %q, want %q", got, plaintext)
	}
}

func TestECDHSharedSecretStripsLeading05Byte(t *testing.T) {
	_, userPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate user key: %v", err)
	}

	var serverXPub [32]byte
	if _, err := rand.Read(serverXPub[:]); err != nil {
		t.Fatalf("generate server pub: %v", err)
	}

	prefixed := append([]byte{0x05}, serverXPub[:]...)

	short, err := ECDHSharedSecret(userPriv, serverXPub[:])
	if err != nil {
		t.Fatalf("shared secret (32-byte): %v", err)
	}
	long, err := ECDHSharedSecret(userPriv, prefixed)
	if err != nil {
		t.Fatalf("shared secret (33-byte prefixed): %v", err)
	}
	if !bytes.Equal(short, long) {
		t.Error("expected stripping leading 0x05 byte to produce the same shared secret")
	}
}

func TestECDHSharedSecretRejectsBadLength(t *testing.T) {
	_, userPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate user key: %v", err)
	}
	if _, err := ECDHSharedSecret(userPriv, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for invalid server public key length")
	}
}
