package opengroup

import (
	"context"
	"io"
)

// UploadResult is the location of a completed upload.
type UploadResult struct {
	ID  int64
	URL string
}

// UploadFile streams body to {server}/files as a single opaque
// multipart/form-data part; no chunking or erasure coding.
func (c *Client) UploadFile(ctx context.Context, server, filename, contentType string, body io.Reader) (UploadResult, error) {
	return c.upload(ctx, server+"/files", "file", filename, contentType, body, "id", "url")
}

// UploadAvatar streams body to {server}/users/me/avatar.
func (c *Client) UploadAvatar(ctx context.Context, server, filename, contentType string, body io.Reader) (UploadResult, error) {
	return c.upload(ctx, server+"/users/me/avatar", "avatar", filename, contentType, body, "", "")
}

func (c *Client) upload(ctx context.Context, url, field, filename, contentType string, body io.Reader, idKey, urlKey string) (UploadResult, error) {
	resp, err := c.authedMultipart(ctx, url, field, filename, contentType, body, baseServer(url))
	if err != nil {
		return UploadResult{}, err
	}

	data, _ := resp["data"].(map[string]interface{})
	if idKey != "" && urlKey != "" {
		id, _ := numericField(data[idKey])
		fileURL, _ := data[urlKey].(string)
		return UploadResult{ID: id, URL: fileURL}, nil
	}

	avatar, _ := data["avatar_image"].(map[string]interface{})
	fileURL, _ := avatar["url"].(string)
	return UploadResult{URL: fileURL}, nil
}

// baseServer strips the path suffix this package always appends
// ("/files" or "/users/me/avatar") to recover the bare server URL the
// token cache is keyed by.
func baseServer(url string) string {
	for _, suffix := range []string{"/files", "/users/me/avatar"} {
		if len(url) > len(suffix) && url[len(url)-len(suffix):] == suffix {
			return url[:len(url)-len(suffix)]
		}
	}
	return url
}
