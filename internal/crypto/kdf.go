package crypto

import (
	"crypto/hmac"
	"crypto/rand"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4
	keyLen       = 32 // 256 bits
	saltLen      = 32
)

// DeriveKey derives a 256-bit key from password and salt via Argon2id,
// domain-separated by purpose (e.g. "auth-token", "passphrase-check") so
// the same (password, salt) pair never yields the same key material for
// two different at-rest uses.
func DeriveKey(password string, salt []byte, purpose string) []byte {
	material := append([]byte(purpose+":"), []byte(password)...)
	return argon2.IDKey(material, salt, argonTime, argonMemory, argonThreads, keyLen)
}

func GenerateSalt() []byte {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return salt
}

// HashPassword derives a verifier for password suitable for storing
// alongside its salt, using the "passphrase-check" domain so it can never
// be confused with a key derived to encrypt data under the same password.
func HashPassword(password string) []byte {
	salt := GenerateSalt()
	hash := DeriveKey(password, salt, "passphrase-check")
	result := make([]byte, saltLen+keyLen)
	copy(result[:saltLen], salt)
	copy(result[saltLen:], hash)
	return result
}

func VerifyPassword(password string, storedHash []byte) bool {
	if len(storedHash) < saltLen+keyLen {
		return false
	}
	salt := storedHash[:saltLen]
	hash := storedHash[saltLen:]
	computed := DeriveKey(password, salt, "passphrase-check")
	return hmac.Equal(hash, computed)
}
