// Package retry implements the bounded, application-level retry wrapper
// that sits around every outermost RPC call in the send, receive, and
// open-group paths.
package retry

import (
	"context"

	"github.com/ssd-technologies/swarmnet/internal/rpcerr"
)

// MaxCount is the maximum number of attempts for a single logical call.
const MaxCount = 8

// Do retries fn up to MaxCount times, stopping early on success or on any
// error rpcerr.IsFatal classifies as fatal to this call (SnodeMigrated,
// InsufficientProofOfWork, TokenExpired) — those are surfaced immediately
// so the caller can react and re-enter the higher-level flow rather than
// retry blindly.
func Do[T any](ctx context.Context, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < MaxCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		val, err := fn(ctx, attempt)
		if err == nil {
			return val, nil
		}
		lastErr = err
		if rpcerr.IsFatal(err) {
			return zero, err
		}
	}
	return zero, lastErr
}
