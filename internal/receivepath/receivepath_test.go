package receivepath

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssd-technologies/swarmnet/internal/discovery"
	"github.com/ssd-technologies/swarmnet/internal/envelope"
	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/rpc"
	"github.com/ssd-technologies/swarmnet/internal/swarm"
)

type memLastHash struct {
	hashes map[string]string
}

func newMemLastHash() *memLastHash { return &memLastHash{hashes: make(map[string]string)} }

func (m *memLastHash) GetLastMessageHashValue(target string) (string, bool) {
	h, ok := m.hashes[target]
	return h, ok
}

func (m *memLastHash) SetLastMessageHashValue(target, hash string) {
	m.hashes[target] = hash
}

type memHashStore struct {
	seen map[string]bool
}

func newMemHashStore() *memHashStore { return &memHashStore{seen: make(map[string]bool)} }

func (m *memHashStore) GetReceivedMessageHashValues() (map[string]bool, error) {
	cp := make(map[string]bool, len(m.seen))
	for k, v := range m.seen {
		cp[k] = v
	}
	return cp, nil
}

func (m *memHashStore) SetReceivedMessageHashValue(hash string, seenAtUnix int64) {
	m.seen[hash] = true
}

func serviceNodeFor(t *testing.T, rawURL string) swarm.ServiceNode {
	t.Helper()
	idx := len(rawURL) - 1
	for ; idx >= 0; idx-- {
		if rawURL[idx] == ':' {
			break
		}
	}
	port := 0
	for _, r := range rawURL[idx+1:] {
		port = port*10 + int(r-'0')
	}
	return swarm.ServiceNode{Address: rawURL[:idx], Port: port}
}

func newTestPath(t *testing.T, server *httptest.Server, received *memHashStore) (*Path, *memLastHash) {
	t.Helper()
	target := serviceNodeFor(t, server.URL)
	cache := swarm.NewCache(nil)
	cache.Set("userkey", []swarm.ServiceNode{target, target})
	disco := discovery.New(httpclient.NewSeedClient(), httpclient.NewServiceNodeClient(httpclient.DefaultTimeout), swarm.NewRandomPool(), cache, nil)

	rpcClient := rpc.New(httpclient.NewSeedClient(), httpclient.NewSeedClient(),
		swarm.NewFailureTable(), swarm.NewRandomPool(), cache, swarm.NewDifficulty())

	hashSet, err := NewReceivedHashSet(received)
	if err != nil {
		t.Fatalf("new received hash set: %v", err)
	}
	lastHash := newMemLastHash()
	return New(rpcClient, disco, envelope.IdentityCodec{}, lastHash, hashSet), lastHash
}

func TestGetMessagesDecodesAndAdvancesCursor(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"hash":"h1","data":"` + payload + `"}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	received := newMemHashStore()
	path, lastHash := newTestPath(t, server, received)

	envs, err := path.GetMessages(context.Background(), "userkey", false)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(envs) != 1 || string(envs[0].Data) != "hello" {
		t.Fatalf("envelopes = %+v", envs)
	}
	if !received.seen["h1"] {
		t.Fatal("expected hash h1 to be recorded")
	}

	target := serviceNodeFor(t, server.URL)
	got, ok := lastHash.GetLastMessageHashValue(target.Target())
	if !ok || got != "h1" {
		t.Fatalf("last hash = %q, %v", got, ok)
	}
}

func TestGetMessagesSkipsAlreadySeenHashes(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"hash":"h1","data":"` + payload + `"}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	received := newMemHashStore()
	received.seen["h1"] = true
	path, _ := newTestPath(t, server, received)

	envs, err := path.GetMessages(context.Background(), "userkey", false)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(envs) != 0 {
		t.Fatalf("expected already-seen hash to be skipped, got %+v", envs)
	}
}

func TestGetMessagesDiscardsMalformedBase64(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[{"hash":"h1","data":"not-valid-base64!!"}]}`)) //nolint:errcheck
	}))
	defer server.Close()

	received := newMemHashStore()
	path, _ := newTestPath(t, server, received)

	envs, err := path.GetMessages(context.Background(), "userkey", false)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(envs) != 0 {
		t.Fatalf("expected malformed entry to be discarded, got %+v", envs)
	}
}

func TestGetMessagesEmptyResultIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[]}`)) //nolint:errcheck
	}))
	defer server.Close()

	received := newMemHashStore()
	path, _ := newTestPath(t, server, received)

	envs, err := path.GetMessages(context.Background(), "userkey", false)
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(envs) != 0 {
		t.Fatalf("expected no envelopes, got %+v", envs)
	}
}
