package opengroup

import (
	"context"
	"fmt"
)

// GetModerators returns channel's moderator list, cached per (server,
// channel) after the first fetch.
func (c *Client) GetModerators(ctx context.Context, server, channel string) ([]string, error) {
	key := moderatorKey(server, channel)

	c.modMu.Lock()
	if cached, ok := c.moderators[key]; ok {
		c.modMu.Unlock()
		return cached, nil
	}
	c.modMu.Unlock()

	resp, err := c.authedGet(ctx, server, fmt.Sprintf("loki/v1/channel/%s/get_moderators", channel), nil)
	if err != nil {
		return nil, err
	}

	rawMods, _ := resp["moderators"].([]interface{})
	mods := make([]string, 0, len(rawMods))
	for _, raw := range rawMods {
		if name, ok := raw.(string); ok {
			mods = append(mods, name)
		}
	}

	c.modMu.Lock()
	c.moderators[key] = mods
	c.modMu.Unlock()
	return mods, nil
}

// InvalidateModerators drops the cached moderator list for (server,
// channel), forcing the next GetModerators call to re-fetch.
func (c *Client) InvalidateModerators(server, channel string) {
	c.modMu.Lock()
	delete(c.moderators, moderatorKey(server, channel))
	c.modMu.Unlock()
}
