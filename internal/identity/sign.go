// Package identity provides Ed25519 signing and verification for subscriber
// public keys: open-group message signatures and the short display
// identifiers derived from a public key.
package identity

import (
	"crypto/ed25519"
	"encoding/hex"
)

// SignatureVersion identifies the signing scheme used for an OpenGroupMessage
// signature, carried alongside the signature bytes on the wire.
const SignatureVersion = 1

// ShortID returns the first 8 bytes of a public key encoded as 16-character
// lowercase hexadecimal, used as a compact log/display identifier.
func ShortID(pub ed25519.PublicKey) string {
	if len(pub) < 8 {
		return hex.EncodeToString(pub)
	}
	return hex.EncodeToString(pub[:8])
}

// Sign signs body with priv and returns the raw signature bytes together
// with the signature scheme version that produced them.
func Sign(priv ed25519.PrivateKey, body []byte) (sig []byte, version int) {
	return ed25519.Sign(priv, body), SignatureVersion
}

// Verify reports whether sig (produced under the given version) is a valid
// Ed25519 signature of body under pub. Unknown versions never verify.
func Verify(pub ed25519.PublicKey, body, sig []byte, version int) bool {
	if version != SignatureVersion {
		return false
	}
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, body, sig)
}
