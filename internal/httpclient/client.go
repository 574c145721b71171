// Package httpclient implements the synchronous and asynchronous
// JSON-over-HTTPS primitive shared by the storage-RPC client and the
// open-group REST client. Two long-lived singletons exist: a
// seed client with standard TLS validation, and a service-node client that
// accepts any certificate because service nodes use self-signed certs.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ssd-technologies/swarmnet/internal/rpcerr"
)

// Verb is one of the HTTP methods the core issues.
type Verb string

const (
	GET    Verb = http.MethodGet
	PUT    Verb = http.MethodPut
	POST   Verb = http.MethodPost
	PATCH  Verb = http.MethodPatch
	DELETE Verb = http.MethodDelete
)

// DefaultTimeout is the connect/read/write timeout for ordinary calls.
const DefaultTimeout = 20 * time.Second

// LongPollTimeout is the raised read timeout the receive path uses for
// long-polling GetMessages calls.
const LongPollTimeout = 40 * time.Second

// JSON is the generic decoded-body shape Execute returns.
type JSON = map[string]interface{}

// Client wraps an *http.Client configured with one of the two TLS
// policies described in §4.1, plus a request timeout.
type Client struct {
	http *http.Client
}

// NewSeedClient builds the seed connection pool: standard TLS validation,
// DefaultTimeout.
func NewSeedClient() *Client {
	return &Client{http: &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{}},
	}}
}

// NewServiceNodeClient builds the service-node connection pool: accepts
// any certificate and any hostname: service nodes present self-signed
// certs, so this client deliberately skips verification. It must remain
// the only permissive client in this package.
func NewServiceNodeClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}}
}

// Execute issues verb against rawURL, placing params in the query string
// for GET/DELETE or as a JSON body for PUT/POST/PATCH, and returns the
// decoded JSON response.
//
// Failure contract (§4.1): a transport error fails with
// rpcerr.HTTPRequestFailed(0, ""). A non-2xx response fails with
// rpcerr.HTTPRequestFailed(status, body). A 2xx response whose body is not
// valid JSON is wrapped as {"result": raw-text}.
func (c *Client) Execute(ctx context.Context, verb Verb, rawURL string, params JSON, headers map[string]string) (JSON, error) {
	req, err := c.buildRequest(ctx, verb, rawURL, params)
	if err != nil {
		return nil, rpcerr.Wrap(rpcerr.KindGeneric, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, rpcerr.HTTPRequestFailed(0, "")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rpcerr.HTTPRequestFailed(0, "")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rpcerr.HTTPRequestFailed(resp.StatusCode, string(body))
	}

	var decoded JSON
	if err := json.Unmarshal(body, &decoded); err != nil {
		return JSON{"result": string(body)}, nil
	}
	return decoded, nil
}

func (c *Client) buildRequest(ctx context.Context, verb Verb, rawURL string, params JSON) (*http.Request, error) {
	switch verb {
	case GET, DELETE:
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
		if len(params) > 0 {
			q := u.Query()
			for k, v := range params {
				q.Set(k, toQueryString(v))
			}
			u.RawQuery = q.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, string(verb), u.String(), nil)
		if err != nil {
			return nil, err
		}
		return req, nil
	default: // PUT, POST, PATCH
		var body io.Reader
		if params != nil {
			encoded, err := json.Marshal(params)
			if err != nil {
				return nil, err
			}
			body = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, string(verb), rawURL, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}
}

func toQueryString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		// Strip surrounding quotes for scalar JSON values so booleans and
		// numbers render as bare query values (e.g. true, 24) rather than
		// JSON-quoted strings.
		s := string(encoded)
		if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
			return s[1 : len(s)-1]
		}
		return s
	}
}
