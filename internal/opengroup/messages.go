package opengroup

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/ssd-technologies/swarmnet/internal/httpclient"
	"github.com/ssd-technologies/swarmnet/internal/identity"
)

const (
	annotationPublicChat = "network.loki.messenger.publicChat"
	annotationOembed     = "net.app.core.oembed"
	messagesPageSize     = 64
)

// GetMessages fetches new messages on channel since the persisted
// LastServerId cursor, verifies signatures, sorts ascending by server
// timestamp, and advances the cursor to the max id seen.
func (c *Client) GetMessages(ctx context.Context, server, channel string) ([]OpenGroupMessage, error) {
	params := httpclient.JSON{"include_annotations": 1}
	if sinceID, ok := c.cache.GetLastMessageServerID(channel, server); ok {
		params["since_id"] = sinceID
	} else {
		params["count"] = messagesPageSize
		params["include_deleted"] = 0
	}

	resp, err := c.authedGet(ctx, server, fmt.Sprintf("channels/%s/messages", channel), params)
	if err != nil {
		return nil, err
	}

	rawMessages, _ := resp["data"].([]interface{})
	out := make([]OpenGroupMessage, 0, len(rawMessages))
	var maxID int64

	for _, raw := range rawMessages {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		// The cursor must advance past every entry the server returned,
		// deleted or malformed or not, or a permanently-undeliverable tail
		// entry (e.g. a tampered signature) would be re-fetched forever.
		if id, ok := numericField(entry["id"]); ok && id > maxID {
			maxID = id
		}

		if isDeleted, _ := entry["is_deleted"].(bool); isDeleted {
			continue
		}

		msg, ok := parseMessage(entry)
		if !ok {
			log.Printf("opengroup: discarding malformed message on channel %s", channel)
			continue
		}
		if !verifyMessage(msg) {
			log.Printf("opengroup: discarding message %d with invalid signature", msg.ServerID)
			continue
		}

		out = append(out, msg)
	}

	if maxID > 0 {
		c.cache.SetLastMessageServerID(channel, server, maxID)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ServerTimestamp.Before(out[j].ServerTimestamp)
	})
	return out, nil
}

// PostMessage signs body with priv and posts it to channel, returning the
// server-echoed message.
func (c *Client) PostMessage(ctx context.Context, server, channel string, priv ed25519.PrivateKey, body string, timestamp int64) (OpenGroupMessage, error) {
	sig, version := identity.Sign(priv, []byte(body))
	payload := httpclient.JSON{
		"text": body,
		"annotations": []interface{}{
			httpclient.JSON{
				"type": annotationPublicChat,
				"value": httpclient.JSON{
					"timestamp": timestamp,
					"sig":       base64.StdEncoding.EncodeToString(sig),
					"sigver":    version,
				},
			},
		},
	}

	resp, err := c.authedCall(ctx, httpclient.POST, server, fmt.Sprintf("channels/%s/messages", channel), payload)
	if err != nil {
		return OpenGroupMessage{}, err
	}
	data, _ := resp["data"].(map[string]interface{})
	msg, ok := parseMessage(data)
	if !ok {
		return OpenGroupMessage{}, fmt.Errorf("server echoed an unparsable message")
	}
	return msg, nil
}

// parseMessage extracts an OpenGroupMessage from a raw /channels messages
// entry, tolerating the multi-typed numeric field encodings the API uses.
func parseMessage(entry map[string]interface{}) (OpenGroupMessage, bool) {
	if entry == nil {
		return OpenGroupMessage{}, false
	}

	id, ok := numericField(entry["id"])
	if !ok {
		return OpenGroupMessage{}, false
	}

	author := ""
	displayName := ""
	if user, ok := entry["user"].(map[string]interface{}); ok {
		author, _ = user["username"].(string)
		displayName, _ = user["name"].(string)
	}

	body, _ := entry["text"].(string)

	serverTimestamp, ok := parseTimestamp(entry["created_at"])
	if !ok {
		return OpenGroupMessage{}, false
	}

	msg := OpenGroupMessage{
		ServerID:        id,
		Author:          author,
		DisplayName:     displayName,
		Body:            body,
		ServerTimestamp: serverTimestamp,
	}

	annotations, _ := entry["annotations"].([]interface{})
	for _, raw := range annotations {
		ann, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		kind, _ := ann["type"].(string)
		value, _ := ann["value"].(map[string]interface{})
		switch kind {
		case annotationPublicChat:
			applyPublicChatAnnotation(&msg, value)
		case annotationOembed:
			if att, ok := parseAttachment(value); ok {
				msg.Attachments = append(msg.Attachments, att)
			}
		}
	}

	return msg, true
}

func applyPublicChatAnnotation(msg *OpenGroupMessage, value map[string]interface{}) {
	if value == nil {
		return
	}
	if ts, ok := numericField(value["timestamp"]); ok {
		msg.Timestamp = ts
	}
	if sigB64, ok := value["sig"].(string); ok {
		if decoded, err := base64.StdEncoding.DecodeString(sigB64); err == nil {
			msg.Signature.Bytes = decoded
		}
	}
	if version, ok := numericField(value["sigver"]); ok {
		msg.Signature.Version = int(version)
	}
	if quote, ok := value["quote"].(map[string]interface{}); ok {
		q := &Quote{}
		if ts, ok := numericField(quote["id"]); ok {
			q.QuotedTimestamp = ts
		}
		q.Author, _ = quote["author"].(string)
		q.Text, _ = quote["text"].(string)
		if replyTo, ok := numericField(quote["serverId"]); ok {
			q.ReplyTo = replyTo
		}
		msg.Quote = q
	}
	if profileKeyB64, ok := value["profileKey"].(string); ok {
		if decoded, err := base64.StdEncoding.DecodeString(profileKeyB64); err == nil {
			avatarURL, _ := value["avatarUrl"].(string)
			msg.ProfilePicture = &ProfilePicture{ProfileKey: decoded, URL: avatarURL}
		}
	}
}

func parseAttachment(value map[string]interface{}) (Attachment, bool) {
	if value == nil {
		return Attachment{}, false
	}
	kindStr, _ := value["type"].(string)
	att := Attachment{Kind: AttachmentKind(kindStr)}
	if att.Kind == "" {
		att.Kind = AttachmentGeneric
	}
	if id, ok := numericField(value["id"]); ok {
		att.ID = id
	}
	att.Server, _ = value["server"].(string)
	att.ContentType, _ = value["contentType"].(string)
	if size, ok := numericField(value["size"]); ok {
		att.Size = size
	}
	att.Filename, _ = value["filename"].(string)
	if flags, ok := numericField(value["flags"]); ok {
		att.Flags = int(flags)
	}
	if w, ok := numericField(value["width"]); ok {
		att.Width = int(w)
	}
	if h, ok := numericField(value["height"]); ok {
		att.Height = int(h)
	}
	att.Caption, _ = value["caption"].(string)
	att.URL, _ = value["url"].(string)
	att.LinkPreviewURL, _ = value["linkPreviewUrl"].(string)
	att.LinkPreviewTitle, _ = value["linkPreviewTitle"].(string)

	if att.Kind == AttachmentLinkPreview && (att.LinkPreviewURL == "" || att.LinkPreviewTitle == "") {
		return Attachment{}, false
	}
	return att, true
}

func verifyMessage(msg OpenGroupMessage) bool {
	if msg.Author == "" || len(msg.Signature.Bytes) == 0 {
		return false
	}
	pub, err := decodeAuthorPublicKey(msg.Author)
	if err != nil {
		return false
	}
	return identity.Verify(pub, []byte(msg.Body), msg.Signature.Bytes, msg.Signature.Version)
}

func decodeAuthorPublicKey(author string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(author)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(raw), nil
}

// numericField parses a defensively-typed numeric JSON field that may
// arrive as a float64, an int, or a decimal string.
func numericField(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case int64:
		return t, true
	case int:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// parseTimestamp parses an ISO-8601 UTC "created_at" field into a Time.
func parseTimestamp(v interface{}) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
