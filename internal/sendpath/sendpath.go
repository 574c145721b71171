// Package sendpath implements the message send path: wire
// conversion, direct peer-to-peer delivery when a known online peer
// exists, and a proof-of-work-gated swarm broadcast otherwise.
package sendpath

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ssd-technologies/swarmnet/internal/async"
	"github.com/ssd-technologies/swarmnet/internal/discovery"
	"github.com/ssd-technologies/swarmnet/internal/envelope"
	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/p2p"
	"github.com/ssd-technologies/swarmnet/internal/pow"
	"github.com/ssd-technologies/swarmnet/internal/retry"
	"github.com/ssd-technologies/swarmnet/internal/rpc"
	"github.com/ssd-technologies/swarmnet/internal/rpcerr"
	"github.com/ssd-technologies/swarmnet/internal/swarm"
)

// Path is the send-path composition root: it owns no state of its own
// beyond what it's handed, and mediates between the direct transport, the
// peer directory, swarm discovery, and the storage-RPC client.
type Path struct {
	transport    *p2p.Transport
	peers        *PeerDirectory
	discovery    *discovery.Discovery
	rpcClient    *rpc.Client
	difficulty   *swarm.Difficulty
	codec        envelope.Codec
	network      *async.Executor
	onP2PSuccess func(destination string)
}

// New builds a send path. onP2PSuccess is invoked after a direct delivery
// succeeds; it may be nil.
func New(transport *p2p.Transport, peers *PeerDirectory, disco *discovery.Discovery, rpcClient *rpc.Client, difficulty *swarm.Difficulty, codec envelope.Codec, network *async.Executor, onP2PSuccess func(destination string)) *Path {
	return &Path{
		transport:    transport,
		peers:        peers,
		discovery:    disco,
		rpcClient:    rpcClient,
		difficulty:   difficulty,
		codec:        codec,
		network:      network,
		onP2PSuccess: onP2PSuccess,
	}
}

// Send delivers msg, returning the set of in-flight storage-RPC futures
// when it took the swarm broadcast branch (nil when delivered directly).
func (p *Path) Send(ctx context.Context, msg Message) ([]*async.Future[httpclient.JSON], error) {
	wire, err := wireForm(msg)
	if err != nil {
		return nil, rpcerr.Wrap(rpcerr.KindMessageConversionFailed, err)
	}

	env, err := p.codec.Wrap(msg.Destination, wire)
	if err != nil {
		return nil, rpcerr.Wrap(rpcerr.KindMessageConversionFailed, err)
	}

	if entry, ok := p.peers.lookup(msg.Destination); ok && (msg.Ping || entry.online) {
		if p.sendDirect(msg.Destination, entry.id, env) {
			return nil, nil
		}
		p.peers.markOffline(msg.Destination)
	}

	return p.sendViaSwarm(ctx, msg, env)
}

// sendDirect attempts delivery over the direct peer transport, reporting
// whether it succeeded.
func (p *Path) sendDirect(destination string, peerID p2p.PeerID, env envelope.Envelope) bool {
	payload, err := json.Marshal(map[string]string{"data": envelope.EncodeBase64Data(env.Data)})
	if err != nil {
		return false
	}
	err = p.transport.Send(peerID, &p2p.Message{
		Type:    p2p.MsgEnvelope,
		ID:      uuid.NewString(),
		Payload: json.RawMessage(payload),
	})
	if err != nil {
		return false
	}
	p.peers.markOnline(destination)
	if p.onP2PSuccess != nil {
		p.onP2PSuccess(destination)
	}
	return true
}

// sendViaSwarm computes proof of work against the current difficulty and
// broadcasts to the destination's target snodes concurrently, each call
// wrapped in the bounded retry policy.
func (p *Path) sendViaSwarm(ctx context.Context, msg Message, env envelope.Envelope) ([]*async.Future[httpclient.JSON], error) {
	difficulty := p.difficulty.Get()
	nonce, err := pow.Compute(pow.Payload{
		Recipient: msg.Destination,
		TTL:       msg.TTL,
		Timestamp: msg.Timestamp,
		Data:      env.Data,
	}, difficulty)
	if err != nil {
		return nil, rpcerr.Wrap(rpcerr.KindProofOfWorkCalculationFailed, err)
	}

	targets, err := p.discovery.GetTargetSnodes(ctx, msg.Destination)
	if err != nil {
		return nil, err
	}

	wireMessage := httpclient.JSON{
		"pubKey":    msg.Destination,
		"ttl":       msg.TTL,
		"timestamp": msg.Timestamp,
		"data":      envelope.EncodeBase64Data(env.Data),
		"nonce":     nonce,
	}

	futures := make([]*async.Future[httpclient.JSON], 0, len(targets))
	for _, target := range targets {
		target := target
		futures = append(futures, async.Submit(p.network, func() (httpclient.JSON, error) {
			resp, err := retry.Do(ctx, func(ctx context.Context, _ int) (httpclient.JSON, error) {
				return p.rpcClient.SendMessage(ctx, target, msg.Destination, wireMessage)
			})
			if err == nil {
				p.observeDifficulty(resp)
			}
			return resp, err
		}))
	}

	return futures, nil
}

// observeDifficulty applies a network-reported difficulty from a
// SendMessage response if present and different from the current value.
func (p *Path) observeDifficulty(resp httpclient.JSON) {
	if resp == nil {
		return
	}
	reported, ok := pow.ParseDifficulty(resp["difficulty"])
	if !ok || reported == p.difficulty.Get() {
		return
	}
	p.difficulty.Set(reported)
}
