package opengroup

import (
	"context"
	"strings"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
)

// UserProfile is a subscriber's public profile as returned by the batch
// users endpoint.
type UserProfile struct {
	PublicKey   string
	DisplayName string
}

// GetUserProfiles fetches profiles for the given public keys in one
// batched call.
func (c *Client) GetUserProfiles(ctx context.Context, server string, publicKeys []string, includeAnnotations bool) ([]UserProfile, error) {
	ids := make([]string, len(publicKeys))
	for i, k := range publicKeys {
		ids[i] = "@" + k
	}
	params := httpclient.JSON{"ids": strings.Join(ids, ",")}
	if includeAnnotations {
		params["include_user_annotations"] = 1
	} else {
		params["include_user_annotations"] = 0
	}

	resp, err := c.authedGet(ctx, server, "users", params)
	if err != nil {
		return nil, err
	}

	rawUsers, _ := resp["data"].([]interface{})
	out := make([]UserProfile, 0, len(rawUsers))
	for _, raw := range rawUsers {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		username, _ := entry["username"].(string)
		name, _ := entry["name"].(string)
		if username == "" {
			continue
		}
		out = append(out, UserProfile{PublicKey: username, DisplayName: name})
	}
	return out, nil
}

// SetDisplayName updates the caller's own display name.
func (c *Client) SetDisplayName(ctx context.Context, server, name string) error {
	_, err := c.authedCall(ctx, httpclient.PATCH, server, "users/me", httpclient.JSON{"name": name})
	return err
}

// SetAnnotation sets (or, with a nil value, removes) a self-annotation.
func (c *Client) SetAnnotation(ctx context.Context, server, annotationType string, value interface{}) error {
	_, err := c.authedCall(ctx, httpclient.PATCH, server, "users/me", httpclient.JSON{
		"annotations": []interface{}{
			httpclient.JSON{"type": annotationType, "value": value},
		},
	})
	return err
}
