package ctxutil

import (
	"context"
	"time"
)

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Detached keeps ctx's values but not its cancellation, bounded by timeout
// when timeout is positive.
func Detached(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	out := context.WithoutCancel(Default(ctx))
	if timeout <= 0 {
		return out, func() {}
	}
	return context.WithTimeout(out, timeout)
}
