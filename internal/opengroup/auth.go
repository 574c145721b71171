package opengroup

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"sync"

	"github.com/ssd-technologies/swarmnet/internal/crypto"
	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/rpcerr"
)

// AuthTokenStore is the persistence contract for the open-group bearer
// token cache.
type AuthTokenStore interface {
	GetAuthToken(server string) (string, bool)
	SetAuthToken(server, token string) error
	ClearAuthToken(server string) error
}

// authenticator performs the challenge/submit exchange and caches the
// resulting bearer token per server, deduplicating concurrent exchanges
// for the same server behind a single in-flight call.
type authenticator struct {
	http    *httpclient.Client
	store   AuthTokenStore
	pub     ed25519.PublicKey
	priv    ed25519.PrivateKey
	mu      sync.Mutex
	inFlight map[string]*tokenFuture
}

type tokenFuture struct {
	done  chan struct{}
	token string
	err   error
}

func newAuthenticator(http *httpclient.Client, store AuthTokenStore, pub ed25519.PublicKey, priv ed25519.PrivateKey) *authenticator {
	return &authenticator{http: http, store: store, pub: pub, priv: priv, inFlight: make(map[string]*tokenFuture)}
}

// token returns a cached bearer token for server, performing the
// challenge exchange if none is cached. Concurrent callers for the same
// server share one exchange.
func (a *authenticator) token(ctx context.Context, server string) (string, error) {
	if cached, ok := a.store.GetAuthToken(server); ok {
		return cached, nil
	}

	a.mu.Lock()
	if f, ok := a.inFlight[server]; ok {
		a.mu.Unlock()
		<-f.done
		return f.token, f.err
	}
	f := &tokenFuture{done: make(chan struct{})}
	a.inFlight[server] = f
	a.mu.Unlock()

	f.token, f.err = a.exchange(ctx, server)
	close(f.done)

	a.mu.Lock()
	delete(a.inFlight, server)
	a.mu.Unlock()

	return f.token, f.err
}

// exchange runs the two-step challenge/submit flow and persists the
// resulting token.
func (a *authenticator) exchange(ctx context.Context, server string) (string, error) {
	pubHex := hex.EncodeToString(a.pub)
	resp, err := a.http.Execute(ctx, httpclient.GET, server+"/loki/v1/get_challenge", httpclient.JSON{"pubKey": pubHex}, nil)
	if err != nil {
		return "", err
	}

	cipherText64, _ := resp["cipherText64"].(string)
	serverPubKey64, _ := resp["serverPubKey64"].(string)
	if cipherText64 == "" || serverPubKey64 == "" {
		return "", rpcerr.New(rpcerr.KindParsingFailed, "challenge response missing cipherText64/serverPubKey64")
	}

	cipherText, err := base64.StdEncoding.DecodeString(cipherText64)
	if err != nil {
		return "", rpcerr.Wrap(rpcerr.KindParsingFailed, err)
	}
	serverPub, err := base64.StdEncoding.DecodeString(serverPubKey64)
	if err != nil {
		return "", rpcerr.Wrap(rpcerr.KindParsingFailed, err)
	}

	sharedKey, err := crypto.ECDHSharedSecret(a.priv, serverPub)
	if err != nil {
		return "", rpcerr.Wrap(rpcerr.KindParsingFailed, err)
	}

	token, err := crypto.DecryptChallenge(cipherText, sharedKey)
	if err != nil {
		return "", rpcerr.Wrap(rpcerr.KindParsingFailed, err)
	}

	if _, err := a.http.Execute(ctx, httpclient.POST, server+"/loki/v1/submit_challenge", httpclient.JSON{
		"pubKey": pubHex,
		"token":  string(token),
	}, nil); err != nil {
		return "", err
	}

	if err := a.store.SetAuthToken(server, string(token)); err != nil {
		return "", err
	}
	return string(token), nil
}

// clear invalidates the cached token for server, e.g. after a 401.
func (a *authenticator) clear(server string) {
	_ = a.store.ClearAuthToken(server)
}
