package httpclient

import (
	"context"

	"github.com/ssd-technologies/swarmnet/internal/async"
)

// ExecuteAsync runs Execute on executor and returns a future for its
// result, letting callers pin this step to a bounded network executor.
func (c *Client) ExecuteAsync(ctx context.Context, executor *async.Executor, verb Verb, rawURL string, params JSON, headers map[string]string) *async.Future[JSON] {
	return async.Submit(executor, func() (JSON, error) {
		return c.Execute(ctx, verb, rawURL, params, headers)
	})
}
