// Package netctx wires together every long-lived component a running
// subscriber needs into a single composition root: the process-wide swarm
// state (random pool, failure table, difficulty), the storage-RPC and
// open-group clients built on top of it, the send and receive paths, and
// two bounded executors ("network" and "work").
package netctx

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ssd-technologies/swarmnet/internal/async"
	"github.com/ssd-technologies/swarmnet/internal/discovery"
	"github.com/ssd-technologies/swarmnet/internal/envelope"
	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/opengroup"
	"github.com/ssd-technologies/swarmnet/internal/p2p"
	"github.com/ssd-technologies/swarmnet/internal/receivepath"
	"github.com/ssd-technologies/swarmnet/internal/rpc"
	"github.com/ssd-technologies/swarmnet/internal/sendpath"
	"github.com/ssd-technologies/swarmnet/internal/store"
	"github.com/ssd-technologies/swarmnet/internal/swarm"
)

// networkExecutorConcurrency and workExecutorConcurrency bound the two
// named executors. The send path runs its swarm broadcasts on the network
// executor; the receive path and the open-group client do not use either
// executor, and no component submits work to the work executor.
const (
	networkExecutorConcurrency = 8
	workExecutorConcurrency    = 8
)

// Config carries everything a NetworkContext needs to construct its
// components.
type Config struct {
	// PublicKey and PrivateKey identify the local subscriber, used for
	// open-group signing/auth and direct peer-to-peer identity.
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey

	// DBPath is the SQLite file backing every persistence contract. An
	// empty path builds an in-memory-only context for tests and one-off
	// tooling.
	DBPath string

	// TokenPassphrase derives the at-rest encryption key for cached
	// open-group bearer tokens.
	TokenPassphrase string

	// ListenPort is the local WebSocket listen port for direct
	// peer-to-peer delivery. 0 disables listening (outbound-only).
	ListenPort int

	// Seeds overrides the compile-time seed node list; nil uses
	// discovery.Seeds.
	Seeds []string

	// Codec wraps/unwraps envelope payloads; a nil Codec defaults to
	// envelope.IdentityCodec{}.
	Codec envelope.Codec
}

// NetworkContext is the long-lived value a caller builds once per process
// and threads through every send, receive, and open-group operation.
type NetworkContext struct {
	DB        *store.DB
	Transport *p2p.Transport
	Discovery *discovery.Discovery
	RPC       *rpc.Client
	Send      *sendpath.Path
	Receive   *receivepath.Path
	OpenGroup *opengroup.Client

	pool       *swarm.RandomPool
	failures   *swarm.FailureTable
	difficulty *swarm.Difficulty
	peers      *sendpath.PeerDirectory

	network *async.Executor
	work    *async.Executor
}

// New builds a NetworkContext from cfg. The caller owns the returned
// value's lifetime and must call Close when done.
func New(cfg Config) (*NetworkContext, error) {
	var db *store.DB
	if cfg.DBPath != "" {
		var err error
		db, err = store.NewDB(cfg.DBPath, cfg.TokenPassphrase)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
	}

	pool := swarm.NewRandomPool()
	failures := swarm.NewFailureTable()
	difficulty := swarm.NewDifficulty()
	swarmCache := swarm.NewCache(cacheStoreOrNil(db))

	seedClient := httpclient.NewSeedClient()
	serviceNodeClient := httpclient.NewServiceNodeClient(httpclient.DefaultTimeout)
	longPollClient := httpclient.NewServiceNodeClient(httpclient.LongPollTimeout)

	disco := discovery.New(seedClient, serviceNodeClient, pool, swarmCache, cfg.Seeds)
	rpcClient := rpc.New(serviceNodeClient, longPollClient, failures, pool, swarmCache, difficulty)

	codec := cfg.Codec
	if codec == nil {
		codec = envelope.IdentityCodec{}
	}

	peerID, err := p2p.PeerIDFromPublicKey(cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("derive peer id: %w", err)
	}
	transport := p2p.NewTransport(peerID, cfg.PrivateKey)
	if cfg.ListenPort != 0 {
		if err := transport.Listen(cfg.ListenPort); err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
	}

	peers := sendpath.NewPeerDirectory()
	transport.OnOffline(func(id p2p.PeerID) {
		peers.Forget(id.String())
	})

	network := async.NewExecutor(networkExecutorConcurrency)
	work := async.NewExecutor(workExecutorConcurrency)

	sendPath := sendpath.New(transport, peers, disco, rpcClient, difficulty, codec, network, nil)

	received, err := receivepath.NewReceivedHashSet(hashStoreOrMemory(db))
	if err != nil {
		return nil, fmt.Errorf("load received hash set: %w", err)
	}
	receivePath := receivepath.New(rpcClient, disco, codec, lastHashStoreOrMemory(db), received)

	ogClient := opengroup.New(seedClient, authTokenStoreOrMemory(db), cursorStoreOrMemory(db), cfg.PublicKey, cfg.PrivateKey)

	return &NetworkContext{
		DB:         db,
		Transport:  transport,
		Discovery:  disco,
		RPC:        rpcClient,
		Send:       sendPath,
		Receive:    receivePath,
		OpenGroup:  ogClient,
		pool:       pool,
		failures:   failures,
		difficulty: difficulty,
		peers:      peers,
		network:    network,
		work:       work,
	}, nil
}

// Close releases the transport's listener/connections and the underlying
// database, if any.
func (nc *NetworkContext) Close() error {
	nc.Transport.Close()
	if nc.DB != nil {
		return nc.DB.Close()
	}
	return nil
}

// ConnectPeer dials a known peer's advertised address directly and
// registers it in the peer directory. The entry starts offline, so the send
// path delivers ping messages to that destination directly at once and
// other messages only after the entry has been marked online.
func (nc *NetworkContext) ConnectPeer(destination, address string, peerID p2p.PeerID) error {
	if err := nc.Transport.Connect(address, peerID); err != nil {
		return err
	}
	nc.peers.Register(destination, peerID)
	return nil
}

// Difficulty returns the current process-wide proof-of-work difficulty.
func (nc *NetworkContext) Difficulty() int { return nc.difficulty.Get() }

// PoolSize returns the number of service nodes currently known.
func (nc *NetworkContext) PoolSize() int { return nc.pool.Len() }

// Network returns the bounded executor the send path runs its swarm
// broadcasts on.
func (nc *NetworkContext) Network() *async.Executor { return nc.network }

// Work returns the second bounded executor; no component of the context
// submits work to it.
func (nc *NetworkContext) Work() *async.Executor { return nc.work }

func cacheStoreOrNil(db *store.DB) swarm.CacheStore {
	if db == nil {
		return nil
	}
	return db
}

func hashStoreOrMemory(db *store.DB) receivepath.HashStore {
	if db == nil {
		return newMemHashStore()
	}
	return db
}

func lastHashStoreOrMemory(db *store.DB) receivepath.LastHashStore {
	if db == nil {
		return newMemHashStore()
	}
	return db
}

func authTokenStoreOrMemory(db *store.DB) opengroup.AuthTokenStore {
	if db == nil {
		return newMemAuthStore()
	}
	return db
}

func cursorStoreOrMemory(db *store.DB) opengroup.CursorStore {
	if db == nil {
		return newMemCursorStore()
	}
	return db
}

// memHashStore backs ReceivedHashSet and the last-message-hash cursor for
// a NetworkContext built without a database, e.g. in tests or short-lived
// tooling.
type memHashStore struct {
	received map[string]int64
	lastHash map[string]string
}

func newMemHashStore() *memHashStore {
	return &memHashStore{received: make(map[string]int64), lastHash: make(map[string]string)}
}

func (m *memHashStore) GetReceivedMessageHashValues() (map[string]bool, error) {
	out := make(map[string]bool, len(m.received))
	for h := range m.received {
		out[h] = true
	}
	return out, nil
}

func (m *memHashStore) SetReceivedMessageHashValue(hash string, seenAtUnix int64) {
	m.received[hash] = seenAtUnix
}

func (m *memHashStore) GetLastMessageHashValue(target string) (string, bool) {
	h, ok := m.lastHash[target]
	return h, ok
}

func (m *memHashStore) SetLastMessageHashValue(target, hash string) {
	m.lastHash[target] = hash
}

type memAuthStore struct {
	tokens map[string]string
}

func newMemAuthStore() *memAuthStore { return &memAuthStore{tokens: make(map[string]string)} }

func (m *memAuthStore) GetAuthToken(server string) (string, bool) {
	t, ok := m.tokens[server]
	return t, ok
}

func (m *memAuthStore) SetAuthToken(server, token string) error {
	m.tokens[server] = token
	return nil
}

func (m *memAuthStore) ClearAuthToken(server string) error {
	delete(m.tokens, server)
	return nil
}

type memCursorStore struct {
	lastMessageID map[string]int64
	lastDeleteID  map[string]int64
	userCounts    map[string]int
	avatarURLs    map[string]string
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{
		lastMessageID: make(map[string]int64),
		lastDeleteID:  make(map[string]int64),
		userCounts:    make(map[string]int),
		avatarURLs:    make(map[string]string),
	}
}

func cursorKey(channel, server string) string { return channel + "|" + server }

func (m *memCursorStore) GetLastMessageServerID(channel, server string) (int64, bool) {
	id, ok := m.lastMessageID[cursorKey(channel, server)]
	return id, ok
}
func (m *memCursorStore) SetLastMessageServerID(channel, server string, id int64) {
	m.lastMessageID[cursorKey(channel, server)] = id
}
func (m *memCursorStore) GetLastDeletionServerID(channel, server string) (int64, bool) {
	id, ok := m.lastDeleteID[cursorKey(channel, server)]
	return id, ok
}
func (m *memCursorStore) SetLastDeletionServerID(channel, server string, id int64) {
	m.lastDeleteID[cursorKey(channel, server)] = id
}
func (m *memCursorStore) SetUserCount(channel, server string, n int) {
	m.userCounts[cursorKey(channel, server)] = n
}
func (m *memCursorStore) GetOpenGroupAvatarURL(channel, server string) (string, bool) {
	url, ok := m.avatarURLs[cursorKey(channel, server)]
	return url, ok
}
func (m *memCursorStore) SetOpenGroupAvatarURL(channel, server, url string) {
	m.avatarURLs[cursorKey(channel, server)] = url
}
