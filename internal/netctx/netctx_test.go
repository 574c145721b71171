package netctx

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
)

func TestNewBuildsAnInMemoryContextAndCloses(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	nc, err := New(Config{PublicKey: pub, PrivateKey: priv})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer nc.Close()

	if nc.Discovery == nil || nc.RPC == nil || nc.Send == nil || nc.Receive == nil || nc.OpenGroup == nil {
		t.Fatalf("expected every component to be wired, got %+v", nc)
	}
	if nc.Difficulty() == 0 {
		t.Fatal("expected a nonzero initial difficulty")
	}
	if nc.PoolSize() != 0 {
		t.Fatalf("expected an empty pool before any bootstrap, got %d", nc.PoolSize())
	}
	if nc.Network() == nil || nc.Work() == nil {
		t.Fatal("expected both named executors to be constructed")
	}
}

func TestNewDoesNotListenWhenPortIsZero(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	nc, err := New(Config{PublicKey: pub, PrivateKey: priv, ListenPort: 0})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer nc.Close()

	if nc.Transport.Addr() != "" {
		t.Fatalf("expected no listener when ListenPort is 0, got %q", nc.Transport.Addr())
	}
}
