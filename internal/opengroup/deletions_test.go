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

func TestGetDeletionsAdvancesCursorToMaxDeletionID(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/loki/v1/get_challenge":
			w.Write([]byte(`{"cipherText64":"","serverPubKey64":""}`)) //nolint:errcheck
		default:
			w.Write([]byte(`{"data":[{"id":5,"deleted_message_id":1},{"id":7,"deleted_message_id":2}]}`)) //nolint:errcheck
		}
	}))
	defer server.Close()

	store := newMemTokenStore()
	store.tokens[server.URL] = "tok"
	cache := newMemCursorStore()
	client := New(httpclient.NewSeedClient(), store, cache, pub, priv)

	ids, err := client.GetDeletions(context.Background(), server.URL, "1")
	if err != nil {
		t.Fatalf("get deletions: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("ids = %v", ids)
	}

	lastID, ok := cache.GetLastDeletionServerID("1", server.URL)
	if !ok || lastID != 7 {
		t.Fatalf("expected cursor to advance to the max deletion id (7), got %d, %v", lastID, ok)
	}
}

func TestDeleteMessagesJoinsIDs(t *testing.T) {
	pub, priv, _ := ed25519.GenerateKey(rand.Reader)
	var seenBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/loki/v1/get_challenge":
			w.Write([]byte(`{"cipherText64":"","serverPubKey64":""}`)) //nolint:errcheck
		case "/loki/v1/messages":
			seenBody = r.URL.RawQuery
			w.Write([]byte(`{}`)) //nolint:errcheck
		default:
			w.Write([]byte(`{}`)) //nolint:errcheck
		}
	}))
	defer server.Close()

	store := newMemTokenStore()
	store.tokens[server.URL] = "tok"
	client := New(httpclient.NewSeedClient(), store, newMemCursorStore(), pub, priv)

	if err := client.DeleteMessages(context.Background(), server.URL, []int64{1, 2, 3}); err != nil {
		t.Fatalf("delete messages: %v", err)
	}
	if seenBody == "" {
		t.Fatal("expected the bulk delete request to carry the joined ids somewhere in the request")
	}
}
