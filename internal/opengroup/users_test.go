package opengroup

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
)

func TestGetUserProfilesParsesBatch(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	var sawIDs string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/loki/v1/get_challenge":
			w.Write([]byte(`{"cipherText64":"","serverPubKey64":""}`)) //nolint:errcheck
		case "/users":
			sawIDs = r.URL.Query().Get("ids")
			w.Write([]byte(`{"data":[{"username":"05aaa","name":"Alice"},{"username":"05bbb","name":"Bob"},{"name":"no-username"}]}`)) //nolint:errcheck
		default:
			w.Write([]byte(`{}`)) //nolint:errcheck
		}
	}))
	defer server.Close()

	store := newMemTokenStore()
	store.tokens[server.URL] = "tok"
	client := New(httpclient.NewSeedClient(), store, newMemCursorStore(), pub, priv)

	profiles, err := client.GetUserProfiles(context.Background(), server.URL, []string{"05aaa", "05bbb"}, false)
	if err != nil {
		t.Fatalf("get user profiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected the entry without a username to be skipped, got %d profiles: %+v", len(profiles), profiles)
	}
	if profiles[0].DisplayName != "Alice" || profiles[1].DisplayName != "Bob" {
		t.Fatalf("profiles = %+v", profiles)
	}
	if sawIDs != "@05aaa,@05bbb" {
		t.Fatalf("expected ids to be @-prefixed and comma joined, got %q", sawIDs)
	}
}

func TestSetDisplayNameAndAnnotation(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/loki/v1/get_challenge":
			w.Write([]byte(`{"cipherText64":"","serverPubKey64":""}`)) //nolint:errcheck
		case "/users/me":
			calls++
			w.Write([]byte(`{}`)) //nolint:errcheck
		default:
			w.Write([]byte(`{}`)) //nolint:errcheck
		}
	}))
	defer server.Close()

	store := newMemTokenStore()
	store.tokens[server.URL] = "tok"
	client := New(httpclient.NewSeedClient(), store, newMemCursorStore(), pub, priv)

	if err := client.SetDisplayName(context.Background(), server.URL, "New Name"); err != nil {
		t.Fatalf("set display name: %v", err)
	}
	if err := client.SetAnnotation(context.Background(), server.URL, "net.app.core.oembed", nil); err != nil {
		t.Fatalf("set annotation: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 PATCH /users/me calls, got %d", calls)
	}
}
