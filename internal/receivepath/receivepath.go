// Package receivepath implements the message receive path:
// polling a swarm member for new messages, advancing the per-target
// cursor, deduplicating against a persistent hash set, and unwrapping
// each surviving entry into an envelope.
package receivepath

import (
	"context"
	"log"
	"time"

	"github.com/ssd-technologies/swarmnet/internal/discovery"
	"github.com/ssd-technologies/swarmnet/internal/envelope"
	"github.com/ssd-technologies/swarmnet/internal/retry"
	"github.com/ssd-technologies/swarmnet/internal/rpc"
)

// Path drives getMessages() for one subscriber's own public key.
type Path struct {
	rpcClient *rpc.Client
	discovery *discovery.Discovery
	codec     envelope.Codec
	lastHash  LastHashStore
	received  *ReceivedHashSet
}

// New builds a receive path wired to the storage-RPC client, swarm
// discovery, an envelope codec, and the persistent cursor/dedup stores.
func New(rpcClient *rpc.Client, disco *discovery.Discovery, codec envelope.Codec, lastHash LastHashStore, received *ReceivedHashSet) *Path {
	return &Path{rpcClient: rpcClient, discovery: disco, codec: codec, lastHash: lastHash, received: received}
}

// GetMessages polls a single target snode for pubKey, optionally
// long-polling, and returns the new envelopes it yields after
// deduplication.
func (p *Path) GetMessages(ctx context.Context, pubKey string, longPoll bool) ([]envelope.Envelope, error) {
	target, err := p.discovery.GetSingleTargetSnode(ctx, pubKey)
	if err != nil {
		return nil, err
	}

	lastHash, _ := p.lastHash.GetLastMessageHashValue(target.Target())

	resp, err := retry.Do(ctx, func(ctx context.Context, _ int) (map[string]interface{}, error) {
		return p.rpcClient.GetMessages(ctx, target, pubKey, lastHash, longPoll)
	})
	if err != nil {
		return nil, err
	}

	rawMessages, _ := resp["messages"].([]interface{})
	if len(rawMessages) == 0 {
		return nil, nil
	}

	if last, ok := rawMessages[len(rawMessages)-1].(map[string]interface{}); ok {
		if hash, _ := last["hash"].(string); hash != "" {
			p.lastHash.SetLastMessageHashValue(target.Target(), hash)
		}
	}

	now := time.Now().Unix()
	envelopes := make([]envelope.Envelope, 0, len(rawMessages))
	for _, raw := range rawMessages {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		hash, _ := entry["hash"].(string)
		if hash != "" {
			if p.received.Contains(hash) {
				continue
			}
			p.received.Add(hash, now)
		}

		encoded, _ := entry["data"].(string)
		data, err := envelope.DecodeBase64Data(encoded)
		if err != nil {
			log.Printf("receivepath: discarding message %s: invalid base64: %v", hash, err)
			continue
		}

		env := envelope.Envelope{Recipient: pubKey, Data: data}
		plaintext, err := p.codec.Unwrap(env)
		if err != nil {
			log.Printf("receivepath: discarding message %s: unwrap failed: %v", hash, err)
			continue
		}
		envelopes = append(envelopes, envelope.Envelope{Recipient: pubKey, Data: plaintext})
	}

	return envelopes, nil
}
