// Package pow computes the Hashcash-style proof-of-work nonce the send
// path attaches to outbound messages before a swarm broadcast.
package pow

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"golang.org/x/crypto/sha3"
)

// MaxIterations bounds the nonce search so a pathological difficulty can
// never hang the caller forever; exceeding it is reported as a
// ProofOfWorkCalculationFailed condition by the caller.
const MaxIterations = 1 << 28

// maxTarget is the all-ones uint64 a SHA3-512 digest's leading 8 bytes are
// compared against.
const maxTarget = ^uint64(0)

// Payload is the tuple the nonce is computed over: recipient, TTL,
// timestamp, and message content.
type Payload struct {
	Recipient string
	TTL       int64
	Timestamp int64
	Data      []byte
}

func (p Payload) bytes() []byte {
	header := fmt.Sprintf("%d%d%s", p.Timestamp, p.TTL, p.Recipient)
	buf := make([]byte, 0, len(header)+len(p.Data))
	buf = append(buf, header...)
	buf = append(buf, p.Data...)
	return buf
}

// Compute searches for an 8-byte nonce such that the leading 8 bytes of
// SHA3-512(nonce || payload), read as a big-endian uint64, fall at or below
// target(difficulty, len(payload)), returning the nonce hex-encoded. It
// returns an error if no such nonce is found within MaxIterations tries.
func Compute(payload Payload, difficulty int) (nonceHex string, err error) {
	base := payload.bytes()
	tgt := target(difficulty, len(base))
	var nonce [8]byte

	for i := uint64(0); i < MaxIterations; i++ {
		binary.BigEndian.PutUint64(nonce[:], i)
		digest := sha3.Sum512(append(nonce[:], base...))
		if binary.BigEndian.Uint64(digest[:8]) <= tgt {
			return hex.EncodeToString(nonce[:]), nil
		}
	}
	return "", fmt.Errorf("no valid nonce found within %d iterations at difficulty %d", MaxIterations, difficulty)
}

// Verify reports whether nonceHex is a valid proof of work for payload at
// difficulty.
func Verify(payload Payload, difficulty int, nonceHex string) bool {
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != 8 {
		return false
	}
	base := payload.bytes()
	digest := sha3.Sum512(append(nonce, base...))
	return binary.BigEndian.Uint64(digest[:8]) <= target(difficulty, len(base))
}

// target computes the acceptance threshold a candidate digest's leading 8
// bytes must fall at or below. Both difficulty and payload size scale the
// expected number of trials linearly (trials ~= difficulty * size), the
// way the deployed Session/Loki proof-of-work scheme scales nonce trials
// per byte, rather than exponentially as a leading-zero-bit-count scheme
// would: a size-208 payload at the network's default difficulty of 40
// takes on the order of 10^4 trials, not 2^40.
func target(difficulty, payloadLen int) uint64 {
	if difficulty < 1 {
		difficulty = 1
	}
	size := uint64(payloadLen) + 8 // +8 accounts for the prepended nonce
	denom := uint64(difficulty) * size
	if denom == 0 {
		return maxTarget
	}
	return maxTarget / denom
}

// ParseDifficulty extracts a numeric difficulty from a dynamically-typed
// JSON field (432 responses carry "difficulty" as int, float64, or
// string depending on the server).
func ParseDifficulty(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
