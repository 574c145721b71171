package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/sha3"
)

const ecdhNonceLen = 12

// ECDHSharedSecret derives a symmetric key from an Ed25519 identity private
// key and a Curve25519 server public key, by converting the Ed25519 key to
// its Montgomery (X25519) form and running a standard Diffie-Hellman
// exchange, then hashing the raw shared point with SHA3-256 so the key fed
// to AES-GCM is uniformly distributed rather than a raw curve point.
func ECDHSharedSecret(userPriv ed25519.PrivateKey, serverPub []byte) ([]byte, error) {
	if len(serverPub) == 33 && serverPub[0] == 0x05 {
		serverPub = serverPub[1:]
	}
	if len(serverPub) != curve25519.PointSize {
		return nil, fmt.Errorf("server public key has invalid length %d", len(serverPub))
	}

	xPriv, err := ed25519PrivateKeyToX25519(userPriv)
	if err != nil {
		return nil, fmt.Errorf("convert private key: %w", err)
	}

	shared, err := curve25519.X25519(xPriv, serverPub)
	if err != nil {
		return nil, fmt.Errorf("x25519: %w", err)
	}

	digest := sha3.Sum256(shared)
	return digest[:], nil
}

// DecryptChallenge decrypts an IV-prefixed AES-256-GCM ciphertext (the shape
// the open-group challenge endpoint returns) using a key derived from
// ECDHSharedSecret. The first ecdhNonceLen bytes of ciphertext are the GCM
// nonce; the remainder is the sealed box.
func DecryptChallenge(cipherText []byte, sharedKey []byte) ([]byte, error) {
	if len(cipherText) < ecdhNonceLen {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}
	nonce := cipherText[:ecdhNonceLen]
	box := cipherText[ecdhNonceLen:]

	block, err := aes.NewCipher(sharedKey)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, box, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt challenge: %w", err)
	}
	return plaintext, nil
}

// ed25519PrivateKeyToX25519 converts an Ed25519 seed-backed private key to
// its Curve25519 (Montgomery) scalar form, following the standard
// SHA-512-then-clamp derivation used by Ed25519 itself.
func ed25519PrivateKeyToX25519(priv ed25519.PrivateKey) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key length %d", len(priv))
	}
	digest := sha512.Sum512(priv.Seed())
	scalar := digest[:32]
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
	return scalar, nil
}
