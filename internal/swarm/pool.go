package swarm

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// RandomPool is the process-wide set of known service nodes, bootstrapped
// from a seed node and sampled uniformly at random by Swarm Discovery when
// choosing a node to ask about a key's swarm. It is never empty once
// populated except transiently while a refresh is in flight.
type RandomPool struct {
	mu    sync.RWMutex
	nodes map[ServiceNode]struct{}
}

// NewRandomPool creates an empty pool.
func NewRandomPool() *RandomPool {
	return &RandomPool{nodes: make(map[ServiceNode]struct{})}
}

// Add merges nodes into the pool.
func (p *RandomPool) Add(nodes ...ServiceNode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range nodes {
		p.nodes[n] = struct{}{}
	}
}

// Remove evicts a node from the pool, e.g. after it crosses the failure
// threshold.
func (p *RandomPool) Remove(n ServiceNode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.nodes, n)
}

// IsEmpty reports whether the pool currently holds no nodes, in which case
// callers should bootstrap from a seed before sampling.
func (p *RandomPool) IsEmpty() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes) == 0
}

// Len returns the number of nodes currently in the pool.
func (p *RandomPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.nodes)
}

// Sample picks one node from the pool uniformly at random using a
// cryptographic RNG, as required for target selection. ok is false if the
// pool is empty.
func (p *RandomPool) Sample() (node ServiceNode, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.nodes) == 0 {
		return ServiceNode{}, false
	}
	all := make([]ServiceNode, 0, len(p.nodes))
	for n := range p.nodes {
		all = append(all, n)
	}
	idx := cryptoIntn(len(all))
	return all[idx], true
}

// All returns a snapshot of every node currently in the pool.
func (p *RandomPool) All() []ServiceNode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	all := make([]ServiceNode, 0, len(p.nodes))
	for n := range p.nodes {
		all = append(all, n)
	}
	return all
}

// cryptoIntn returns a cryptographically random integer in [0, n).
func cryptoIntn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// CryptoShuffle returns a cryptographically shuffled copy of nodes, used by
// getSingleTargetSnode/getTargetSnodes to pick swarm targets.
func CryptoShuffle(nodes []ServiceNode) []ServiceNode {
	out := make([]ServiceNode, len(nodes))
	copy(out, nodes)
	for i := len(out) - 1; i > 0; i-- {
		j := cryptoIntn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
