// Package swarm maintains the process-wide random pool of service nodes,
// per-public-key swarm caches, failure accounting with eviction, and the
// current proof-of-work difficulty reported back by the network.
package swarm

import "fmt"

// ServiceNode identifies a storage RPC endpoint by address and port.
// Addresses are opaque URIs prefixed with scheme (e.g. "https://1.2.3.4").
// Equality and hashing are by (Address, Port).
type ServiceNode struct {
	Address string
	Port    int
}

// Target returns the base URL to POST storage_rpc/v1 calls against.
func (n ServiceNode) Target() string {
	return fmt.Sprintf("%s:%d", n.Address, n.Port)
}

func (n ServiceNode) String() string {
	return n.Target()
}
