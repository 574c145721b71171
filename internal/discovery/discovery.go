// Package discovery implements swarm discovery: bootstrapping
// the process-wide random pool of service nodes from a seed, fetching and
// caching a public key's swarm, and picking broadcast targets.
package discovery

import (
	"context"
	cryptorand "crypto/rand"
	"math/big"
	"strconv"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/rpcerr"
	"github.com/ssd-technologies/swarmnet/internal/swarm"
)

// Seeds is the process-wide seed node list, a compile-time constant
// (three URLs in the reference deployment).
var Seeds = []string{
	"https://seed1.swarmnet.example",
	"https://seed2.swarmnet.example",
	"https://seed3.swarmnet.example",
}

const bootstrapLimit = 24

// Discovery owns the random pool and per-key swarm cache, and mediates
// every lookup that needs a target service node.
type Discovery struct {
	seedClient        *httpclient.Client
	serviceNodeClient *httpclient.Client
	pool              *swarm.RandomPool
	cache             *swarm.Cache
	seeds             []string
}

// New creates a Discovery backed by pool and cache. seedClient talks to
// seed nodes (standard certificate validation); serviceNodeClient talks to
// service nodes sampled from the random pool, which present self-signed
// certificates, so it must be the permissive client returned by
// httpclient.NewServiceNodeClient. A nil seeds slice falls back to the
// package-level Seeds constant.
func New(seedClient, serviceNodeClient *httpclient.Client, pool *swarm.RandomPool, cache *swarm.Cache, seeds []string) *Discovery {
	if seeds == nil {
		seeds = Seeds
	}
	return &Discovery{seedClient: seedClient, serviceNodeClient: serviceNodeClient, pool: pool, cache: cache, seeds: seeds}
}

// EnsurePool bootstraps the random pool from a uniformly random seed if it
// is currently empty.
func (d *Discovery) EnsurePool(ctx context.Context) error {
	if !d.pool.IsEmpty() {
		return nil
	}
	return d.bootstrap(ctx)
}

func (d *Discovery) bootstrap(ctx context.Context) error {
	if len(d.seeds) == 0 {
		return rpcerr.New(rpcerr.KindGeneric, "no seed nodes configured")
	}
	seedIdx := cryptoIntn(len(d.seeds))
	seed := d.seeds[seedIdx]

	params := httpclient.JSON{
		"method": "get_n_service_nodes",
		"params": httpclient.JSON{
			"active_only": true,
			"limit":       bootstrapLimit,
			"fields": httpclient.JSON{
				"public_ip":    true,
				"storage_port": true,
			},
		},
	}

	resp, err := d.seedClient.Execute(ctx, httpclient.POST, seed+"/json_rpc", params, nil)
	if err != nil {
		return err
	}

	result, _ := resp["result"].(map[string]interface{})
	states, _ := result["service_node_states"].([]interface{})

	nodes := make([]swarm.ServiceNode, 0, len(states))
	for _, raw := range states {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		ip, _ := entry["public_ip"].(string)
		if ip == "" || ip == "0.0.0.0" {
			continue
		}
		port, ok := parsePort(entry["storage_port"])
		if !ok {
			continue
		}
		nodes = append(nodes, swarm.ServiceNode{Address: "https://" + ip, Port: port})
	}

	if len(nodes) == 0 {
		return rpcerr.New(rpcerr.KindGeneric, "seed returned no usable service nodes")
	}

	d.pool.Add(nodes...)
	return nil
}

// GetSwarm returns the swarm for key, fetching and persisting it if the
// cached swarm is smaller than swarm.MinimumSnodeCount.
func (d *Discovery) GetSwarm(ctx context.Context, key string) ([]swarm.ServiceNode, error) {
	if !d.cache.NeedsRefresh(key) {
		nodes, _ := d.cache.Get(key)
		return nodes, nil
	}

	if err := d.EnsurePool(ctx); err != nil {
		return nil, err
	}
	target, ok := d.pool.Sample()
	if !ok {
		return nil, rpcerr.New(rpcerr.KindGeneric, "random pool empty after bootstrap")
	}

	resp, err := d.serviceNodeClient.Execute(ctx, httpclient.POST, target.Target()+"/storage_rpc/v1",
		httpclient.JSON{"method": "GetSwarm", "params": httpclient.JSON{"pubKey": key}}, nil)
	if err != nil {
		return nil, err
	}

	rawSnodes, _ := resp["snodes"].([]interface{})
	nodes := make([]swarm.ServiceNode, 0, len(rawSnodes))
	for _, raw := range rawSnodes {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		ip, _ := entry["ip"].(string)
		if ip == "" || ip == "0.0.0.0" {
			continue
		}
		port, ok := parsePort(entry["port"])
		if !ok {
			continue
		}
		nodes = append(nodes, swarm.ServiceNode{Address: "https://" + ip, Port: port})
	}

	d.cache.Set(key, nodes)
	return nodes, nil
}

// GetSingleTargetSnode returns one cryptographically shuffled pick from
// key's swarm.
func (d *Discovery) GetSingleTargetSnode(ctx context.Context, key string) (swarm.ServiceNode, error) {
	nodes, err := d.GetSwarm(ctx, key)
	if err != nil {
		return swarm.ServiceNode{}, err
	}
	if len(nodes) == 0 {
		return swarm.ServiceNode{}, rpcerr.New(rpcerr.KindGeneric, "empty swarm for key")
	}
	return swarm.CryptoShuffle(nodes)[0], nil
}

// GetTargetSnodes returns a cryptographically shuffled prefix of key's
// swarm of length swarm.TargetSnodeCount, for broadcast sends.
func (d *Discovery) GetTargetSnodes(ctx context.Context, key string) ([]swarm.ServiceNode, error) {
	nodes, err := d.GetSwarm(ctx, key)
	if err != nil {
		return nil, err
	}
	shuffled := swarm.CryptoShuffle(nodes)
	n := swarm.TargetSnodeCount
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n], nil
}

// Pool returns the underlying random pool, so callers (e.g. the
// storage-RPC client's eviction policy) can remove a node from it too.
func (d *Discovery) Pool() *swarm.RandomPool { return d.pool }

// Cache returns the underlying per-key swarm cache.
func (d *Discovery) Cache() *swarm.Cache { return d.cache }

func parsePort(v interface{}) (int, bool) {
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int(t), true
	case int:
		return t, true
	default:
		return 0, false
	}
}

func cryptoIntn(n int) int {
	if n <= 0 {
		return 0
	}
	v, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
