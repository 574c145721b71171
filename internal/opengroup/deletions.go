package opengroup

import (
	"context"
	"fmt"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
)

// GetDeletions fetches deletion ids for channel since the persisted
// LastDeletionId cursor, advancing it to the max id seen.
func (c *Client) GetDeletions(ctx context.Context, server, channel string) ([]int64, error) {
	params := httpclient.JSON{}
	if sinceID, ok := c.cache.GetLastDeletionServerID(channel, server); ok {
		params["since_id"] = sinceID
	} else {
		params["count"] = messagesPageSize
	}

	resp, err := c.authedGet(ctx, server, fmt.Sprintf("loki/v1/channel/%s/deletes", channel), params)
	if err != nil {
		return nil, err
	}

	rawDeletes, _ := resp["data"].([]interface{})
	ids := make([]int64, 0, len(rawDeletes))
	var maxID int64
	for _, raw := range rawDeletes {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id, ok := numericField(entry["deleted_message_id"])
		if !ok {
			continue
		}
		ids = append(ids, id)
		if deletionID, ok := numericField(entry["id"]); ok && deletionID > maxID {
			maxID = deletionID
		}
	}

	if maxID > 0 {
		c.cache.SetLastDeletionServerID(channel, server, maxID)
	}
	return ids, nil
}

// DeleteMessage removes a message the caller authored.
func (c *Client) DeleteMessage(ctx context.Context, server, channel string, messageID int64) error {
	_, err := c.authedCall(ctx, httpclient.DELETE, server, fmt.Sprintf("channels/%s/messages/%d", channel, messageID), nil)
	return err
}

// ModeratorDeleteMessage removes any message as a moderator.
func (c *Client) ModeratorDeleteMessage(ctx context.Context, server string, messageID int64) error {
	_, err := c.authedCall(ctx, httpclient.DELETE, server, fmt.Sprintf("loki/v1/moderation/message/%d", messageID), nil)
	return err
}

// DeleteMessages bulk-removes messages the caller authored.
func (c *Client) DeleteMessages(ctx context.Context, server string, messageIDs []int64) error {
	_, err := c.authedCall(ctx, httpclient.DELETE, server, "loki/v1/messages", httpclient.JSON{"ids": joinIDs(messageIDs)})
	return err
}

// ModeratorDeleteMessages bulk-removes messages as a moderator.
func (c *Client) ModeratorDeleteMessages(ctx context.Context, server string, messageIDs []int64) error {
	_, err := c.authedCall(ctx, httpclient.DELETE, server, "loki/v1/moderation/messages", httpclient.JSON{"ids": joinIDs(messageIDs)})
	return err
}

func joinIDs(ids []int64) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%d", id)
	}
	return out
}
