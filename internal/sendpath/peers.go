package sendpath

import (
	"sync"

	"github.com/ssd-technologies/swarmnet/internal/p2p"
)

// peerEntry is what the send path knows about a destination's direct
// transport address: whether we have dialed or been dialed by it before,
// and whether the last attempt succeeded.
type peerEntry struct {
	id     p2p.PeerID
	online bool
}

// PeerDirectory tracks, per destination public key, whether a direct
// peer-to-peer entry exists and whether it is currently considered
// online, driving the send path's direct-vs-swarm path selection.
type PeerDirectory struct {
	mu      sync.Mutex
	entries map[string]*peerEntry
}

// NewPeerDirectory creates an empty directory.
func NewPeerDirectory() *PeerDirectory {
	return &PeerDirectory{entries: make(map[string]*peerEntry)}
}

// Register records a direct peer-to-peer entry for destination, starting
// offline until a send succeeds.
func (d *PeerDirectory) Register(destination string, id p2p.PeerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[destination] = &peerEntry{id: id}
}

// Forget removes any peer entry for destination.
func (d *PeerDirectory) Forget(destination string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, destination)
}

// lookup returns destination's peer entry, if any.
func (d *PeerDirectory) lookup(destination string) (peerEntry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[destination]
	if !ok {
		return peerEntry{}, false
	}
	return *e, true
}

// markOnline flags destination's peer entry as online, after a successful
// direct send.
func (d *PeerDirectory) markOnline(destination string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[destination]; ok {
		e.online = true
	}
}

// markOffline flags destination's peer entry as offline, after a failed
// direct send, so the next attempt falls through to the swarm path unless
// it is a ping.
func (d *PeerDirectory) markOffline(destination string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[destination]; ok {
		e.online = false
	}
}
