package opengroup

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"sync"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/retry"
	"github.com/ssd-technologies/swarmnet/internal/rpcerr"
)

// Client is the open-group REST client: authenticated calls over the
// shared HTTP primitive, a per-(server,channel) moderator cache, and the
// persistence contracts the rest of the package needs.
type Client struct {
	http  *httpclient.Client
	auth  *authenticator
	cache CursorStore

	modMu       sync.Mutex
	moderators  map[string][]string // keyed by server|channel
}

// New builds an open-group client authenticating as (pub, priv), backed
// by tokens persisted in tokenStore and cursors/avatars/counts persisted
// in cache.
func New(http *httpclient.Client, tokenStore AuthTokenStore, cache CursorStore, pub ed25519.PublicKey, priv ed25519.PrivateKey) *Client {
	return &Client{
		http:       http,
		auth:       newAuthenticator(http, tokenStore, pub, priv),
		cache:      cache,
		moderators: make(map[string][]string),
	}
}

// authedGet issues an authenticated GET through authedCall's retry.Do. A
// 401 clears the cached token and fails the call with
// rpcerr.KindTokenExpired, which retry.Do does not retry.
func (c *Client) authedGet(ctx context.Context, server, path string, params httpclient.JSON) (httpclient.JSON, error) {
	return c.authedCall(ctx, httpclient.GET, server, path, params)
}

func (c *Client) authedCall(ctx context.Context, verb httpclient.Verb, server, path string, params httpclient.JSON) (httpclient.JSON, error) {
	return retry.Do(ctx, func(ctx context.Context, _ int) (httpclient.JSON, error) {
		token, err := c.auth.token(ctx, server)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Execute(ctx, verb, server+"/"+path, params, map[string]string{
			"Authorization": "Bearer " + token,
		})
		return c.handleAuthedResponse(server, resp, err)
	})
}

// authedMultipart issues an authenticated multipart/form-data upload,
// wrapped in the same retry.Do/401-clearing policy as authedCall so a
// transient failure or an expired bearer token is handled identically for
// uploads as for every other REST endpoint.
func (c *Client) authedMultipart(ctx context.Context, url, field, filename, contentType string, body io.Reader, server string) (httpclient.JSON, error) {
	return retry.Do(ctx, func(ctx context.Context, _ int) (httpclient.JSON, error) {
		token, err := c.auth.token(ctx, server)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.ExecuteMultipart(ctx, url, field, filename, contentType, body, map[string]string{
			"Authorization": "Bearer " + token,
		})
		return c.handleAuthedResponse(server, resp, err)
	})
}

// handleAuthedResponse clears the cached bearer token and reports
// rpcerr.KindTokenExpired on a 401, the shared reaction every authenticated
// call (GET/POST/DELETE/PATCH or multipart upload) takes to a rejected
// token.
func (c *Client) handleAuthedResponse(server string, resp httpclient.JSON, err error) (httpclient.JSON, error) {
	if err == nil {
		return resp, nil
	}
	if rpcErr, ok := err.(*rpcerr.Error); ok && rpcErr.Status == 401 {
		c.auth.clear(server)
		return nil, rpcerr.New(rpcerr.KindTokenExpired, "open-group bearer token rejected")
	}
	return nil, err
}

func moderatorKey(server, channel string) string {
	return fmt.Sprintf("%s|%s", server, channel)
}
