// Package rpc implements the storage-RPC client: invoking a
// named method on a chosen service node and applying the status-code
// policy that drives swarm invalidation, difficulty updates, and snode
// eviction.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/pow"
	"github.com/ssd-technologies/swarmnet/internal/rpcerr"
	"github.com/ssd-technologies/swarmnet/internal/swarm"
)

// Method names the storage_rpc/v1 endpoint understands.
const (
	MethodGetSwarm    = "GetSwarm"
	MethodGetMessages = "GetMessages"
	MethodSendMessage = "SendMessage"
)

// Client invokes storage_rpc/v1 methods against a target ServiceNode and
// applies the authoritative status-code policy.
type Client struct {
	http         *httpclient.Client
	longPollHTTP *httpclient.Client
	failures     *swarm.FailureTable
	pool         *swarm.RandomPool
	cache        *swarm.Cache
	difficulty   *swarm.Difficulty
}

// New builds a storage-RPC client wired to the shared failure table,
// random pool, swarm cache, and difficulty controller a NetworkContext
// threads through the core. longPollHTTP is used for GetMessages calls
// made with the long-poll header, and may share the service-node client's
// TLS policy with a raised timeout.
func New(http *httpclient.Client, longPollHTTP *httpclient.Client, failures *swarm.FailureTable, pool *swarm.RandomPool, cache *swarm.Cache, difficulty *swarm.Difficulty) *Client {
	return &Client{http: http, longPollHTTP: longPollHTTP, failures: failures, pool: pool, cache: cache, difficulty: difficulty}
}

// Call invokes method against target with params, applying the
// status-code policy table. key is the public key the call is made on
// behalf of, used to evict target from the right swarm cache entry on a
// 421 or on crossing the failure threshold; it may be empty for calls
// with no associated key (e.g. a bare GetSwarm bootstrap probe).
func (c *Client) Call(ctx context.Context, target swarm.ServiceNode, key string, method string, params httpclient.JSON) (httpclient.JSON, error) {
	body := httpclient.JSON{"method": method, "params": params}
	resp, err := c.http.Execute(ctx, httpclient.POST, target.Target()+"/storage_rpc/v1", body, nil)
	if err == nil {
		return resp, nil
	}
	return c.handleFailure(target, key, err)
}

// applyPolicy implements the status-code policy table for an
// error already known to be an *rpcerr.Error.
func (c *Client) applyPolicy(target swarm.ServiceNode, key string, rpcErr *rpcerr.Error) (httpclient.JSON, error) {
	switch rpcErr.Status {
	case 421:
		if key != "" {
			c.cache.Evict(key, target)
		}
		return nil, rpcerr.New(rpcerr.KindSnodeMigrated, "service node reported wrong swarm")
	case 432:
		if difficulty, ok := pow.ParseDifficulty(parseDifficultyField(rpcErr.Body)); ok {
			c.difficulty.Set(difficulty)
		}
		return nil, rpcerr.New(rpcerr.KindInsufficientProofOfWork, "proof of work below required difficulty")
	case 0, 400, 500, 503:
		c.countFailure(target, key)
		return nil, rpcErr
	default:
		return nil, rpcerr.Wrap(rpcerr.KindGeneric, rpcErr)
	}
}

// asRPCError extracts an *rpcerr.Error, if err is one.
func asRPCError(err error) (*rpcerr.Error, bool) {
	rpcErr, ok := err.(*rpcerr.Error)
	return rpcErr, ok
}

// handleFailure applies the status-code policy to an error returned by an
// Execute call. Both Call and the long-poll GetMessages path (which uses
// its own client, so it does not go through Call) route through it.
func (c *Client) handleFailure(target swarm.ServiceNode, key string, err error) (httpclient.JSON, error) {
	rpcErr, ok := asRPCError(err)
	if !ok {
		return nil, err
	}
	return c.applyPolicy(target, key, rpcErr)
}

// countFailure records a failure against target and evicts it from both
// the key's swarm cache and the random pool once it crosses
// swarm.EvictionThreshold, resetting the counter afterward.
func (c *Client) countFailure(target swarm.ServiceNode, key string) {
	count := c.failures.Increment(target)
	if count < swarm.EvictionThreshold {
		return
	}
	if key != "" {
		c.cache.Evict(key, target)
	}
	c.pool.Remove(target)
	c.failures.Reset(target)
}

// parseDifficultyField extracts the "difficulty" field from a 432
// response body, tolerating the multi-typed numeric encodings the
// network actually sends.
func parseDifficultyField(body string) interface{} {
	var decoded httpclient.JSON
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil
	}
	return decoded["difficulty"]
}
