package swarm

import "sync"

// EvictionThreshold is the number of consecutive failures against a
// service node that triggers eviction from both the affected key's swarm
// cache and the random pool.
const EvictionThreshold = 2

// FailureTable counts failures per service node, process-wide. Callers
// increment it on the error classes defined by the storage-RPC status-code
// policy; once a node's count reaches EvictionThreshold the caller is
// expected to evict it and reset the counter.
type FailureTable struct {
	mu     sync.Mutex
	counts map[ServiceNode]int
}

// NewFailureTable creates an empty FailureTable.
func NewFailureTable() *FailureTable {
	return &FailureTable{counts: make(map[ServiceNode]int)}
}

// Increment records one more failure against n and returns the new count.
func (f *FailureTable) Increment(n ServiceNode) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[n]++
	return f.counts[n]
}

// Reset zeroes the counter for n, e.g. after eviction.
func (f *FailureTable) Reset(n ServiceNode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counts, n)
}

// Count returns the current failure count for n.
func (f *FailureTable) Count(n ServiceNode) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[n]
}
