package opengroup

import (
	"context"
	"fmt"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
)

// ChannelInfo fetches channel's metadata, persisting the user count and
// avatar URL to the cursor store as a side effect.
func (c *Client) ChannelInfo(ctx context.Context, server, channel string) error {
	resp, err := c.authedGet(ctx, server, fmt.Sprintf("channels/%s", channel), httpclient.JSON{"include_annotations": 1})
	if err != nil {
		return err
	}

	data, _ := resp["data"].(map[string]interface{})
	if n, ok := numericField(data["counts"]); ok {
		c.cache.SetUserCount(channel, server, int(n))
	} else if counts, ok := data["counts"].(map[string]interface{}); ok {
		if n, ok := numericField(counts["subscribers"]); ok {
			c.cache.SetUserCount(channel, server, int(n))
		}
	}

	annotations, _ := data["annotations"].([]interface{})
	for _, raw := range annotations {
		ann, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if kind, _ := ann["type"].(string); kind != annotationPublicChat {
			continue
		}
		value, _ := ann["value"].(map[string]interface{})
		if avatarURL, ok := value["avatarUrl"].(string); ok && avatarURL != "" {
			c.cache.SetOpenGroupAvatarURL(channel, server, avatarURL)
		}
	}
	return nil
}

// Subscribe joins channel.
func (c *Client) Subscribe(ctx context.Context, server, channel string) error {
	_, err := c.authedCall(ctx, httpclient.POST, server, fmt.Sprintf("channels/%s/subscribe", channel), nil)
	return err
}

// Unsubscribe leaves channel.
func (c *Client) Unsubscribe(ctx context.Context, server, channel string) error {
	_, err := c.authedCall(ctx, httpclient.DELETE, server, fmt.Sprintf("channels/%s/subscribe", channel), nil)
	return err
}
