package rpc

import (
	"context"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/swarm"
)

// GetMessages polls target for messages addressed to pubKey since
// lastHash, optionally long-polling.
func (c *Client) GetMessages(ctx context.Context, target swarm.ServiceNode, pubKey, lastHash string, longPoll bool) (httpclient.JSON, error) {
	params := httpclient.JSON{"pubKey": pubKey, "lastHash": lastHash}
	if !longPoll {
		return c.Call(ctx, target, pubKey, MethodGetMessages, params)
	}

	body := httpclient.JSON{"method": MethodGetMessages, "params": params}
	resp, err := c.longPollHTTP.Execute(ctx, httpclient.POST, target.Target()+"/storage_rpc/v1", body,
		map[string]string{"X-Loki-Long-Poll": "true"})
	if err == nil {
		return resp, nil
	}
	return c.handleFailure(target, pubKey, err)
}

// SendMessage deposits a wire-form message, with its attached proof of
// work, at target on behalf of recipient.
func (c *Client) SendMessage(ctx context.Context, target swarm.ServiceNode, recipient string, wireMessage httpclient.JSON) (httpclient.JSON, error) {
	return c.Call(ctx, target, recipient, MethodSendMessage, wireMessage)
}

