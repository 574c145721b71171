package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const aesNonceLen = 12

// CipherAES identifies the at-rest cipher recorded alongside encrypted
// rows, so a future cipher can be introduced without a schema migration.
const CipherAES = "aes-256-gcm"

// EncryptAtRest encrypts plaintext under a key derived from password and a
// fresh salt, domain-separated by purpose (e.g. "auth-token"). purpose is
// also bound into the GCM authentication tag as associated data, so a
// ciphertext produced for one purpose cannot be swapped in for another
// even if it were somehow re-encrypted under the same key.
func EncryptAtRest(plaintext []byte, password, purpose string) (ciphertext, salt, nonce []byte, err error) {
	salt = GenerateSalt()
	key := DeriveKey(password, salt, purpose)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce = make([]byte, aesNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, []byte(purpose))
	return ciphertext, salt, nonce, nil
}

// DecryptAtRest reverses EncryptAtRest. purpose must match the value
// passed to EncryptAtRest or decryption fails authentication.
func DecryptAtRest(ciphertext []byte, password, purpose string, salt, nonce []byte) ([]byte, error) {
	key := DeriveKey(password, salt, purpose)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(purpose))
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}

	return plaintext, nil
}
