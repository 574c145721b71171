package sendpath

import "errors"

var errEmptyBody = errors.New("message has no body")

// Message is the domain-level outbound message a caller hands to the send
// path: recipient, body, TTL, and an optional ping flag that
// forces the direct peer-to-peer path even for a peer not yet marked
// online.
type Message struct {
	Destination string
	Body        []byte
	TTL         int64
	Timestamp   int64
	Ping        bool
}

// wireForm converts a Message into the bytes the proof-of-work and
// transmission steps operate on. A real deployment would serialize a
// protocol-buffer envelope here; that encoding is out of scope, so this
// is a direct byte copy guarded only by the presence of a body.
func wireForm(m Message) ([]byte, error) {
	if m.Body == nil {
		return nil, errEmptyBody
	}
	return m.Body, nil
}
