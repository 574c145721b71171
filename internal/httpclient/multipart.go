package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/ssd-technologies/swarmnet/internal/rpcerr"
)

// ExecuteMultipart POSTs a single-file multipart/form-data body to rawURL,
// the opaque upload primitive the open-group client uses for avatars and
// attachments.
func (c *Client) ExecuteMultipart(ctx context.Context, rawURL, fieldName, filename, contentType string, body io.Reader, headers map[string]string) (JSON, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile(fieldName, filename)
		if err == nil {
			_, err = io.Copy(part, body)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, pr)
	if err != nil {
		return nil, rpcerr.Wrap(rpcerr.KindGeneric, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	_ = contentType // the part's content type is inferred by the server from filename

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, rpcerr.HTTPRequestFailed(0, "")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rpcerr.HTTPRequestFailed(0, "")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rpcerr.HTTPRequestFailed(resp.StatusCode, string(respBody))
	}

	var decoded JSON
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return JSON{"result": string(respBody)}, nil
	}
	return decoded, nil
}
