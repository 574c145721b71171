package sendpath

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ssd-technologies/swarmnet/internal/async"
	"github.com/ssd-technologies/swarmnet/internal/discovery"
	"github.com/ssd-technologies/swarmnet/internal/envelope"
	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/p2p"
	"github.com/ssd-technologies/swarmnet/internal/rpc"
	"github.com/ssd-technologies/swarmnet/internal/swarm"
)

func testTransport(t *testing.T) *p2p.Transport {
	t.Helper()
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	peerID, err := p2p.PeerIDFromPublicKey(pub)
	if err != nil {
		t.Fatalf("peer id: %v", err)
	}
	tr := p2p.NewTransport(peerID, priv)
	if err := tr.Listen(0); err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(tr.Close)
	return tr
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

func TestSendConvertsEmptyBodyToMessageConversionFailed(t *testing.T) {
	p := New(nil, NewPeerDirectory(), nil, nil, swarm.NewDifficulty(), envelope.IdentityCodec{}, async.NewExecutor(1), nil)
	_, err := p.Send(context.Background(), Message{Destination: "05abc"})
	if err == nil {
		t.Fatal("expected error for nil body")
	}
}

func TestSendDeliversDirectlyWhenPeerOnline(t *testing.T) {
	a := testTransport(t)
	b := testTransport(t)
	if err := b.Connect(a.Addr(), a.Self()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	var received []byte
	done := make(chan struct{})
	a.OnMessage(func(msg *p2p.Message, from p2p.PeerID) {
		received = msg.Payload
		close(done)
	})

	peers := NewPeerDirectory()
	peers.Register("dest", a.Self())
	peers.markOnline("dest")

	var p2pSuccessCalled bool
	path := New(b, peers, nil, nil, swarm.NewDifficulty(), envelope.IdentityCodec{}, async.NewExecutor(1),
		func(destination string) { p2pSuccessCalled = true })

	futures, err := path.Send(context.Background(), Message{Destination: "dest", Body: []byte("hi"), TTL: 100, Timestamp: 1})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if futures != nil {
		t.Fatalf("expected nil futures on direct delivery, got %v", futures)
	}
	if !p2pSuccessCalled {
		t.Fatal("expected the P2P success callback to fire")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for direct message delivery")
	}
	if len(received) == 0 {
		t.Fatal("expected a non-empty payload")
	}
}

func TestSendFallsBackToSwarmWhenPeerNotConnected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"ok"}`)) //nolint:errcheck
	}))
	defer server.Close()

	target := serviceNodeFor(t, server.URL)
	cache := swarm.NewCache(nil)
	cache.Set("dest", []swarm.ServiceNode{target, target, target})
	disco := discovery.New(httpclient.NewSeedClient(), httpclient.NewServiceNodeClient(httpclient.DefaultTimeout), swarm.NewRandomPool(), cache, nil)
	rpcClient := rpc.New(httpclient.NewSeedClient(), httpclient.NewSeedClient(),
		swarm.NewFailureTable(), swarm.NewRandomPool(), cache, swarm.NewDifficulty())

	disconnectedTransport := testTransport(t)
	peers := NewPeerDirectory()
	// Registered but never actually connected, and never marked online.
	peers.Register("dest", disconnectedTransport.Self())

	difficulty := swarm.NewDifficulty()
	path := New(disconnectedTransport, peers, disco, rpcClient, difficulty, envelope.IdentityCodec{}, async.NewExecutor(2), nil)

	futures, err := path.Send(context.Background(), Message{Destination: "dest", Body: []byte("hi"), TTL: 100, Timestamp: 1})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(futures) == 0 {
		t.Fatal("expected swarm broadcast futures")
	}
	for _, f := range futures {
		resp, err := f.Wait(context.Background())
		if err != nil {
			t.Fatalf("future wait: %v", err)
		}
		if resp["result"] != "ok" {
			t.Fatalf("resp = %v", resp)
		}
	}
}

func TestSendUpdatesDifficultyFromSwarmResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"ok","difficulty":77}`)) //nolint:errcheck
	}))
	defer server.Close()

	target := serviceNodeFor(t, server.URL)
	cache := swarm.NewCache(nil)
	cache.Set("dest", []swarm.ServiceNode{target, target, target})
	disco := discovery.New(httpclient.NewSeedClient(), httpclient.NewServiceNodeClient(httpclient.DefaultTimeout), swarm.NewRandomPool(), cache, nil)
	rpcClient := rpc.New(httpclient.NewSeedClient(), httpclient.NewSeedClient(),
		swarm.NewFailureTable(), swarm.NewRandomPool(), cache, swarm.NewDifficulty())

	difficulty := swarm.NewDifficulty()
	path := New(nil, NewPeerDirectory(), disco, rpcClient, difficulty, envelope.IdentityCodec{}, async.NewExecutor(2), nil)

	futures, err := path.Send(context.Background(), Message{Destination: "dest", Body: []byte("hi"), TTL: 100, Timestamp: 1})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	for _, f := range futures {
		if _, err := f.Wait(context.Background()); err != nil {
			t.Fatalf("future wait: %v", err)
		}
	}
	if difficulty.Get() != 77 {
		t.Fatalf("difficulty = %d, want 77", difficulty.Get())
	}
}
