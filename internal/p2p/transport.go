package p2p

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// peerConn wraps a websocket connection with a write mutex. gorilla/websocket
// connections do not support concurrent writers, so every write must be
// serialized per connection. limiter guards against a peer flooding us with
// envelopes faster than the receive path can process them.
type peerConn struct {
	conn    *websocket.Conn
	wmu     sync.Mutex // guards writes
	limiter *peerLimiter
}

// Transport manages direct WebSocket connections to other subscribers,
// used by the send path when a known, online peer entry exists for a
// destination. Each outbound and inbound connection runs
// a read-loop goroutine that deserializes messages and dispatches them to a
// registered handler, and fires a status callback when a peer goes offline.
type Transport struct {
	mu        sync.RWMutex
	self      PeerID
	privKey   ed25519.PrivateKey
	conns     map[PeerID]*peerConn
	handler   func(*Message, PeerID)
	onOffline func(PeerID)
	listener  net.Listener
	server    *http.Server
}

// upgrader allows any origin, since peers dial each other directly rather
// than through a browser subject to same-origin restrictions.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewTransport creates a Transport for the local subscriber identified by
// self, signing outgoing messages with privKey.
func NewTransport(self PeerID, privKey ed25519.PrivateKey) *Transport {
	return &Transport{
		self:    self,
		privKey: privKey,
		conns:   make(map[PeerID]*peerConn),
	}
}

// Listen starts a WebSocket server on the given port so other peers can
// connect to us directly. Use port 0 to listen on a random available port.
func (t *Transport) Listen(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	t.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", t.handleWS)

	t.server = &http.Server{Handler: mux}
	go t.server.Serve(ln) //nolint:errcheck
	return nil
}

// handleWS upgrades an inbound HTTP connection to WebSocket and starts a
// read loop. The remote peer's PeerID is learned from the first message.
func (t *Transport) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(1 << 20) // 1 MB, envelopes are small

	pc := &peerConn{conn: conn, limiter: newPeerLimiter()}
	go t.readLoop(pc, PeerID{}, true)
}

// Connect dials address directly and identifies the local peer so the
// remote side can register this connection under our PeerID. This is the
// "send directly to (peer.address, peer.port)" path of the send operation.
func (t *Transport) Connect(address string, peerID PeerID) error {
	url := fmt.Sprintf("ws://%s/ws", address)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}
	conn.SetReadLimit(1 << 20)

	pc := &peerConn{conn: conn, limiter: newPeerLimiter()}
	t.mu.Lock()
	t.conns[peerID] = pc
	t.mu.Unlock()

	hello := &Message{
		Type:      MsgHello,
		ID:        "hello",
		Payload:   json.RawMessage(`{}`),
		Timestamp: time.Now().Unix(),
	}
	hello.Sender.PeerID = t.self
	hello.Sign(t.privKey)

	pc.wmu.Lock()
	writeErr := conn.WriteJSON(hello)
	pc.wmu.Unlock()
	if writeErr != nil {
		conn.Close()
		t.mu.Lock()
		delete(t.conns, peerID)
		t.mu.Unlock()
		return fmt.Errorf("write hello: %w", writeErr)
	}

	go t.readLoop(pc, peerID, false)
	return nil
}

// readLoop reads JSON messages from a connection until it errors or closes,
// at which point the peer is removed and, if a status callback is
// registered, reported offline. For inbound connections the first message
// determines the remote peer's identity.
func (t *Transport) readLoop(pc *peerConn, peerID PeerID, inbound bool) {
	identified := !inbound
	defer func() {
		pc.conn.Close()
		if identified {
			t.mu.Lock()
			existing, ok := t.conns[peerID]
			if ok && existing == pc {
				delete(t.conns, peerID)
			}
			onOffline := t.onOffline
			t.mu.Unlock()
			if ok && onOffline != nil {
				onOffline(peerID)
			}
		}
	}()

	for {
		var msg Message
		if err := pc.conn.ReadJSON(&msg); err != nil {
			return
		}

		if !pc.limiter.allow() {
			continue
		}

		if !identified {
			peerID = msg.Sender.PeerID
			t.mu.Lock()
			t.conns[peerID] = pc
			t.mu.Unlock()
			identified = true
		}

		t.mu.RLock()
		handler := t.handler
		t.mu.RUnlock()

		if handler != nil {
			handler(&msg, peerID)
		}
	}
}

// Send signs and writes msg to the connection already open for target. It
// returns an error if there is no live connection to that peer, in which
// case the caller should fall through to the swarm delivery path.
func (t *Transport) Send(target PeerID, msg *Message) error {
	t.mu.RLock()
	pc, ok := t.conns[target]
	t.mu.RUnlock()

	if !ok {
		return fmt.Errorf("not connected to peer %s", target.String()[:8])
	}

	msg.Sender.PeerID = t.self
	msg.Timestamp = time.Now().Unix()
	msg.Sign(t.privKey)

	pc.wmu.Lock()
	err := pc.conn.WriteJSON(msg)
	pc.wmu.Unlock()
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// OnMessage registers a callback invoked for every incoming message, along
// with the sender's PeerID.
func (t *Transport) OnMessage(handler func(*Message, PeerID)) {
	t.mu.Lock()
	t.handler = handler
	t.mu.Unlock()
}

// OnOffline registers a callback invoked when a connected peer's connection
// drops. netctx uses this to remove the peer's entry from the send path's
// peer directory so subsequent sends go through the swarm.
func (t *Transport) OnOffline(handler func(PeerID)) {
	t.mu.Lock()
	t.onOffline = handler
	t.mu.Unlock()
}

// Connected reports whether there is currently a live connection to id.
func (t *Transport) Connected(id PeerID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.conns[id]
	return ok
}

// Disconnect closes the connection to a specific peer and removes it from
// the connection map.
func (t *Transport) Disconnect(id PeerID) {
	t.mu.Lock()
	pc, ok := t.conns[id]
	if ok {
		delete(t.conns, id)
	}
	t.mu.Unlock()

	if ok {
		pc.conn.Close()
	}
}

// ConnectedPeers returns the PeerIDs of all currently connected peers.
func (t *Transport) ConnectedPeers() []PeerID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	peers := make([]PeerID, 0, len(t.conns))
	for id := range t.conns {
		peers = append(peers, id)
	}
	return peers
}

// Close shuts down the listener and closes all peer connections.
func (t *Transport) Close() {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		t.server.Shutdown(ctx) //nolint:errcheck
	}

	t.mu.Lock()
	for id, pc := range t.conns {
		pc.conn.Close()
		delete(t.conns, id)
	}
	t.mu.Unlock()
}

// Addr returns the listener's network address (e.g., "0.0.0.0:12345").
// Useful for tests and for advertising our own address/port to peers.
func (t *Transport) Addr() string {
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

// Self returns this Transport's own PeerID.
func (t *Transport) Self() PeerID {
	return t.self
}
